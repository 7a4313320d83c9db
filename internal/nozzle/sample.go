// Package nozzle implements the streaming feature-extraction and
// state-classification pipeline for the nozzle condition monitor. The
// microcontroller streams line-delimited `<encoder>,<current>` records over
// serial; a sliding window of samples is summarized into a feature vector and
// classified against pre-fitted preprocessing and clustering artifacts.
package nozzle

import (
	"fmt"
	"strconv"
	"strings"
)

// Sample is a single reading from the device: the encoder count and the motor
// current in amps. Samples are immutable once parsed.
type Sample struct {
	EncoderCount float64 `json:"encoder_count"`
	Current      float64 `json:"current"`
}

// FormatError reports a line whose shape is wrong (field count != 2). The
// offending line is carried verbatim so it can be echoed back to the operator.
type FormatError struct {
	Line string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid sample format %q: expected 2 comma-separated fields", e.Line)
}

// ParseError reports a line whose fields could not be parsed as floats.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid sample data %q: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseSampleLine converts one raw serial line into a Sample. The line is
// split on a single comma into exactly two fields, both parsed as floats.
// Failures are non-fatal to the stream: the caller reports them and moves on
// to the next line.
func ParseSampleLine(line string) (Sample, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Sample{}, &FormatError{Line: line}
	}

	fields := strings.Split(trimmed, ",")
	if len(fields) != 2 {
		return Sample{}, &FormatError{Line: line}
	}

	encoder, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return Sample{}, &ParseError{Line: line, Err: err}
	}

	current, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return Sample{}, &ParseError{Line: line, Err: err}
	}

	return Sample{EncoderCount: encoder, Current: current}, nil
}
