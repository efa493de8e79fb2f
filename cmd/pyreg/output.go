package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/deepnoodle-ai/pyreg/errz"
	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

var red = color.New(color.FgRed).SprintFunc()

func fatal(msg interface{}) {
	var s string
	switch msg := msg.(type) {
	case string:
		s = msg
	case error:
		s = msg.Error()
	default:
		s = fmt.Sprintf("%v", msg)
	}
	fmt.Fprintf(os.Stderr, "%s\n", red(strings.TrimRight(s, "\n")))
	os.Exit(1)
}

// sourceError renders a pipeline error with the offending source line.
type sourceError struct {
	err    error
	source string
}

func (e *sourceError) Error() string {
	return errz.FriendlyErrorMessage(e.err, e.source)
}

func (e *sourceError) Unwrap() error {
	return e.err
}

func withSource(err error, source string) error {
	if err == nil {
		return nil
	}
	return &sourceError{err: err, source: source}
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func colorEnabled() bool {
	return !color.NoColor
}

var outputFormatsCompletion = []string{"json", "text"}

func marshalJSON(v any) ([]byte, error) {
	if colorEnabled() {
		return prettyjson.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

// newLogger returns a console logger on stderr at the configured level.
func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(viper.GetString("log-level"))
	if err != nil || viper.GetString("log-level") == "" {
		level = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: !colorEnabled(),
	}).Level(level).With().Timestamp().Logger()
}

// Reads global flags from Viper and adjusts the environment accordingly.
func processGlobalFlags() {
	if viper.GetBool("no-color") || !isTerminal(os.Stderr) {
		color.NoColor = true
	}
}
