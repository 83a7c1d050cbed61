package parser

import "fmt"

// StructuralParseError reports a document whose paragraph or table layout
// does not match the résumé template. It aborts that document only.
type StructuralParseError struct {
	Source string
	Err    error
}

func (e *StructuralParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *StructuralParseError) Unwrap() error { return e.Err }

// RowParseError reports a malformed project row. The row is skipped.
type RowParseError struct {
	Row int
	Err error
}

func (e *RowParseError) Error() string {
	return fmt.Sprintf("project row %d: %v", e.Row, e.Err)
}

func (e *RowParseError) Unwrap() error { return e.Err }
