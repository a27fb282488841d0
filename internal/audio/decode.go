// Package audio converts client-supplied audio payloads into raw bytes.
package audio

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// dataURLMarker terminates a data-URL header such as "data:audio/wav;base64,".
const dataURLMarker = "base64,"

// DecodeError indicates a malformed audio payload.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode audio payload: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode converts a base64 audio payload into raw bytes. An optional
// data-URL prefix up to and including "base64," is stripped first; the
// remainder must be valid base64.
func Decode(input string) ([]byte, error) {
	payload := input
	if idx := strings.Index(input, dataURLMarker); idx >= 0 {
		payload = input[idx+len(dataURLMarker):]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	return data, nil
}
