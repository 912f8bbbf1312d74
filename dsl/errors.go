package dsl

import "fmt"

// ParseError reports a syntax error at a byte offset into the source.
type ParseError struct {
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("dsl: parse error at %d: %s", e.Pos, e.Message)
}
