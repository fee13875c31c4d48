package process

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyField is returned for a record that contains a zero-length field.
var ErrEmptyField = errors.New("empty field")

// DecodeError reports a record line of the listing that could not be decoded.
type DecodeError struct {
	Line int // 1-based line number in the listing
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode listing line %d: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeRecord splits one NUL-delimited lsof -F0 record into its fields.
// The first byte of every field is the key, the rest is the value. If a key
// repeats, the last value wins.
func DecodeRecord(line string) (map[byte]string, error) {
	line = strings.TrimPrefix(line, "\x00")
	line = strings.TrimSuffix(line, "\x00")

	parts := strings.Split(line, "\x00")
	fields := make(map[byte]string, len(parts))
	for i, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("field %d: %w", i, ErrEmptyField)
		}
		fields[part[0]] = part[1:]
	}
	return fields, nil
}
