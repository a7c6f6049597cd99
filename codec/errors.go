package codec

import "fmt"

// DomainError reports a value that is outside the contract of an encoder,
// such as a negative amount or one that does not fit in 64 bits. It is a
// programming error on the caller's side and is never retried.
type DomainError struct {
	Field  string
	Value  string
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("domain error: %s=%s: %s", e.Field, e.Value, e.Reason)
}

// LayoutError reports a buffer that is too short for the fixed layout it is
// being decoded with.
type LayoutError struct {
	Layout string
	Want   int
	Got    int
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("layout error: %s needs %d bytes, got %d", e.Layout, e.Want, e.Got)
}
