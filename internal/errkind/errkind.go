// Package errkind classifies pipeline failures into the IO, Parse and Format kinds
// reported by the CLI.
package errkind

import (
	"errors"
	"io/fs"
)

// Kind is the failure category of an Error.
type Kind string

const (
	KindIO     Kind = "io"     // missing file, permission denied, already exists
	KindParse  Kind = "parse"  // row does not coerce to the declared columns
	KindFormat Kind = "format" // writing the output stream failed
)

// Error wraps an error with its Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IO marks err as an IO failure. A nil err returns nil.
func IO(err error) error {
	return wrap(KindIO, err)
}

// Parse marks err as a Parse failure. A nil err returns nil.
func Parse(err error) error {
	return wrap(KindParse, err)
}

// Format marks err as a Format failure. A nil err returns nil.
func Format(err error) error {
	return wrap(KindFormat, err)
}

func wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Of returns the Kind of the first Error in err's chain, or "" if there is none.
func Of(err error) Kind {
	var ke *Error
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return ""
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return err != nil && Of(err) == kind
}

// IsExist reports whether err is an IO failure caused by a file that already exists.
func IsExist(err error) bool {
	return Is(err, KindIO) && errors.Is(err, fs.ErrExist)
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch Of(err) {
	case KindIO:
		return 2
	case KindParse:
		return 3
	case KindFormat:
		return 4
	default:
		return 1
	}
}
