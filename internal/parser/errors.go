package parser

import (
	"fmt"
	"path/filepath"
)

// NotFoundError is returned when the input file does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found at %s", filepath.Base(e.Path), e.Path)
}

// ParseError is returned when the input is not a well-formed TRX document.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to parse TRX: %v", e.Err)
	}
	return fmt.Sprintf("failed to parse TRX file %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
