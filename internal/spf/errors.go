package spf

import "fmt"

// SyntaxError reports malformed input with its 1-based position.
type SyntaxError struct {
	Line    int
	Col     int
	Message string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("spf: line %d, col %d: %s", e.Line, e.Col, e.Message)
}

func syntaxErrorf(line, col int, format string, args ...any) *SyntaxError {
	return &SyntaxError{Line: line, Col: col, Message: fmt.Sprintf(format, args...)}
}
