package model

import "fmt"

// ValidationError marks an error as caused by bad caller input. The HTTP
// layer translates it to 400 rather than 500, so every rejection of a
// request field should go through Invalidf.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// Invalidf builds a ValidationError with a formatted message.
func Invalidf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}
