package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestEncoding(t *testing.T) {
	encoded := Request{Source: "2+3"}.Encode()
	require.Equal(t, []byte{0, 0, 0, 3, '2', '+', '3'}, encoded)

	req, n, err := DecodeRequest(encoded)
	require.NoError(t, err)
	require.Equal(t, "2+3", req.Source)
	require.Equal(t, len(encoded), n)
}

func TestResponseEncoding(t *testing.T) {
	encoded := Success("5").Encode()
	require.Equal(t, []byte{0, 0, 0, 0, 1, '5'}, encoded)

	resp, n, err := DecodeResponse(encoded)
	require.NoError(t, err)
	require.True(t, resp.IsSuccess())
	require.Equal(t, "5", resp.Output)
	require.Equal(t, 6, n)

	encoded = Failure("boom").Encode()
	require.Equal(t, byte(1), encoded[0])
	resp, _, err = DecodeResponse(encoded)
	require.NoError(t, err)
	require.False(t, resp.IsSuccess())
	require.Equal(t, StatusError, resp.Status)
	require.Equal(t, "boom", resp.Output)
}

func TestDecodeConsumesOneFrame(t *testing.T) {
	buf := append(Request{Source: "x = 1"}.Encode(), Request{Source: "x"}.Encode()...)
	first, n, err := DecodeRequest(buf)
	require.NoError(t, err)
	require.Equal(t, "x = 1", first.Source)
	require.Equal(t, 9, n)

	second, m, err := DecodeRequest(buf[n:])
	require.NoError(t, err)
	require.Equal(t, "x", second.Source)
	require.Equal(t, 5, m)
}

func TestEmptyPayloads(t *testing.T) {
	req, n, err := DecodeRequest(Request{}.Encode())
	require.NoError(t, err)
	require.Equal(t, "", req.Source)
	require.Equal(t, 4, n)

	resp, n, err := DecodeResponse(Success("").Encode())
	require.NoError(t, err)
	require.Equal(t, "", resp.Output)
	require.Equal(t, 5, n)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		response bool
		input    []byte
		kind     error
		message  string
	}{
		{"short request header", false, []byte{0, 0}, ErrIncomplete,
			"incomplete message: Expected at least 4 bytes for length prefix, got 2"},
		{"short request body", false, []byte{0, 0, 0, 5, 'a'}, ErrIncomplete,
			"incomplete message: Expected 5 bytes of code, got 1"},
		{"bad request utf8", false, []byte{0, 0, 0, 1, 0xff}, ErrInvalidUTF8,
			"invalid UTF-8: request source is not valid UTF-8"},
		{"short response header", true, []byte{0, 0, 0}, ErrIncomplete,
			"incomplete message: Expected at least 5 bytes for status and length prefix, got 3"},
		{"bad status", true, []byte{7, 0, 0, 0, 0}, ErrInvalidStatus,
			"invalid status code: 7"},
		{"short response body", true, []byte{0, 0, 0, 0, 4, 'a', 'b'}, ErrIncomplete,
			"incomplete message: Expected 4 bytes of output, got 2"},
		{"bad response utf8", true, []byte{1, 0, 0, 0, 2, 0xc3, 0x28}, ErrInvalidUTF8,
			"invalid UTF-8: response output is not valid UTF-8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.response {
				_, _, err = DecodeResponse(tt.input)
			} else {
				_, _, err = DecodeRequest(tt.input)
			}
			require.Error(t, err)
			require.ErrorIs(t, err, tt.kind)
			var protoErr *Error
			require.True(t, errors.As(err, &protoErr))
			require.Equal(t, tt.message, err.Error())
		})
	}
}

func TestStreamRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRequest(&buf, Request{Source: "print(1)"}))
	require.NoError(t, WriteResponse(&buf, Success("1")))

	req, err := ReadRequest(&buf, MaxMessageSize)
	require.NoError(t, err)
	require.Equal(t, "print(1)", req.Source)

	resp, err := ReadResponse(&buf, MaxMessageSize)
	require.NoError(t, err)
	require.Equal(t, Success("1"), resp)

	_, err = ReadRequest(&buf, MaxMessageSize)
	require.ErrorIs(t, err, io.EOF)
}

func TestStreamErrors(t *testing.T) {
	_, err := ReadRequest(bytes.NewReader(Request{Source: "too long"}.Encode()), 4)
	require.ErrorIs(t, err, ErrTooLarge)

	_, err = ReadRequest(bytes.NewReader([]byte{0, 0, 0, 9, 'x'}), MaxMessageSize)
	require.ErrorIs(t, err, ErrIncomplete)

	_, err = ReadResponse(bytes.NewReader([]byte{9, 0, 0, 0, 0}), MaxMessageSize)
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestStatusString(t *testing.T) {
	require.Equal(t, "success", StatusSuccess.String())
	require.Equal(t, "error", StatusError.String())
	require.Equal(t, "status(9)", Status(9).String())
}
