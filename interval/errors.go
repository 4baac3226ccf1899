package interval

import "fmt"

// UsageError is a caller-visible failure that leaves state unchanged
// (spec §7 "Usage").
type UsageError struct{ Msg string }

func (e *UsageError) Error() string { return "interval: " + e.Msg }

func usageErrorf(format string, args ...any) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// AssertionError is a fatal invariant violation (spec §7 "Assert"). Code
// that hits one panics with this type rather than returning an error,
// since by definition the state is no longer trustworthy.
type AssertionError struct{ Msg string }

func (e *AssertionError) Error() string { return "interval: assertion failed: " + e.Msg }

func assert(cond bool, format string, args ...any) {
	if !cond {
		panic(&AssertionError{Msg: fmt.Sprintf(format, args...)})
	}
}
