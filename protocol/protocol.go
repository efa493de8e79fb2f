// Package protocol implements the length-prefixed framing used between the
// pyreg client and daemon.
//
// A request is a 4-byte big-endian length followed by UTF-8 source text. A
// response is a status byte (0 success, 1 error), a 4-byte big-endian length
// and the UTF-8 output or error message.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

// MaxMessageSize bounds the payload accepted by the stream readers.
const MaxMessageSize = 10 * 1024 * 1024

const (
	requestHeaderSize  = 4
	responseHeaderSize = 5
)

var (
	ErrIncomplete     = errors.New("incomplete message")
	ErrLengthOverflow = errors.New("length overflow")
	ErrInvalidUTF8    = errors.New("invalid UTF-8")
	ErrInvalidStatus  = errors.New("invalid status code")
	ErrTooLarge       = errors.New("message too large")
)

// Error describes a framing failure. Kind is one of the Err* sentinels.
type Error struct {
	Kind    error
	Message string
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the error's kind.
func (e *Error) Unwrap() error {
	return e.Kind
}

// Status is the outcome carried by a Response.
type Status uint8

const (
	StatusSuccess Status = 0
	StatusError   Status = 1
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Request asks the daemon to execute Source.
type Request struct {
	Source string
}

// Encode returns the wire form of the request.
func (r Request) Encode() []byte {
	buf := make([]byte, requestHeaderSize, requestHeaderSize+len(r.Source))
	binary.BigEndian.PutUint32(buf, uint32(len(r.Source)))
	return append(buf, r.Source...)
}

// DecodeRequest parses one request from the front of buf and reports how many
// bytes it consumed.
func DecodeRequest(buf []byte) (Request, int, error) {
	if len(buf) < requestHeaderSize {
		return Request{}, 0, newError(ErrIncomplete,
			"Expected at least 4 bytes for length prefix, got %d", len(buf))
	}
	length := binary.BigEndian.Uint32(buf)
	total, err := frameSize(requestHeaderSize, length)
	if err != nil {
		return Request{}, 0, err
	}
	if len(buf) < total {
		return Request{}, 0, newError(ErrIncomplete,
			"Expected %d bytes of code, got %d", length, len(buf)-requestHeaderSize)
	}
	payload := buf[requestHeaderSize:total]
	if !utf8.Valid(payload) {
		return Request{}, 0, newError(ErrInvalidUTF8, "request source is not valid UTF-8")
	}
	return Request{Source: string(payload)}, total, nil
}

// Response carries the result of executing a request.
type Response struct {
	Status Status
	Output string
}

// Success returns a successful response carrying output.
func Success(output string) Response {
	return Response{Status: StatusSuccess, Output: output}
}

// Failure returns an error response carrying message.
func Failure(message string) Response {
	return Response{Status: StatusError, Output: message}
}

// IsSuccess reports whether the response status is StatusSuccess.
func (r Response) IsSuccess() bool {
	return r.Status == StatusSuccess
}

// Encode returns the wire form of the response.
func (r Response) Encode() []byte {
	buf := make([]byte, responseHeaderSize, responseHeaderSize+len(r.Output))
	buf[0] = byte(r.Status)
	binary.BigEndian.PutUint32(buf[1:], uint32(len(r.Output)))
	return append(buf, r.Output...)
}

// DecodeResponse parses one response from the front of buf and reports how
// many bytes it consumed.
func DecodeResponse(buf []byte) (Response, int, error) {
	if len(buf) < responseHeaderSize {
		return Response{}, 0, newError(ErrIncomplete,
			"Expected at least 5 bytes for status and length prefix, got %d", len(buf))
	}
	status := Status(buf[0])
	if status != StatusSuccess && status != StatusError {
		return Response{}, 0, newError(ErrInvalidStatus, "%d", buf[0])
	}
	length := binary.BigEndian.Uint32(buf[1:])
	total, err := frameSize(responseHeaderSize, length)
	if err != nil {
		return Response{}, 0, err
	}
	if len(buf) < total {
		return Response{}, 0, newError(ErrIncomplete,
			"Expected %d bytes of output, got %d", length, len(buf)-responseHeaderSize)
	}
	payload := buf[responseHeaderSize:total]
	if !utf8.Valid(payload) {
		return Response{}, 0, newError(ErrInvalidUTF8, "response output is not valid UTF-8")
	}
	return Response{Status: status, Output: string(payload)}, total, nil
}

func frameSize(header int, length uint32) (int, error) {
	if uint64(length) > uint64(math.MaxInt-header) {
		return 0, newError(ErrLengthOverflow,
			"length %d would overflow when adding the %d byte header", length, header)
	}
	return header + int(length), nil
}

// ReadRequest reads one request from r, rejecting payloads above maxSize.
func ReadRequest(r io.Reader, maxSize int) (Request, error) {
	var header [requestHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Request{}, err
	}
	payload, err := readPayload(r, binary.BigEndian.Uint32(header[:]), maxSize)
	if err != nil {
		return Request{}, err
	}
	if !utf8.Valid(payload) {
		return Request{}, newError(ErrInvalidUTF8, "request source is not valid UTF-8")
	}
	return Request{Source: string(payload)}, nil
}

// ReadResponse reads one response from r, rejecting payloads above maxSize.
func ReadResponse(r io.Reader, maxSize int) (Response, error) {
	var header [responseHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Response{}, err
	}
	status := Status(header[0])
	if status != StatusSuccess && status != StatusError {
		return Response{}, newError(ErrInvalidStatus, "%d", header[0])
	}
	payload, err := readPayload(r, binary.BigEndian.Uint32(header[1:]), maxSize)
	if err != nil {
		return Response{}, err
	}
	if !utf8.Valid(payload) {
		return Response{}, newError(ErrInvalidUTF8, "response output is not valid UTF-8")
	}
	return Response{Status: status, Output: string(payload)}, nil
}

func readPayload(r io.Reader, length uint32, maxSize int) ([]byte, error) {
	if maxSize > 0 && uint64(length) > uint64(maxSize) {
		return nil, newError(ErrTooLarge, "%d bytes exceeds limit of %d", length, maxSize)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, newError(ErrIncomplete, "expected %d bytes of payload: %v", length, err)
		}
		return nil, err
	}
	return payload, nil
}

// WriteRequest writes the encoded request to w.
func WriteRequest(w io.Writer, req Request) error {
	_, err := w.Write(req.Encode())
	return err
}

// WriteResponse writes the encoded response to w.
func WriteResponse(w io.Writer, resp Response) error {
	_, err := w.Write(resp.Encode())
	return err
}
