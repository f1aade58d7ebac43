package extract

import (
	"errors"
	"fmt"
)

// Kind classifies why an extraction stopped.
type Kind int

const (
	// PathTraversal means an entry would have been written outside the
	// destination directory.
	PathTraversal Kind = iota + 1
	// IOError means reading the archive file or writing the output failed.
	IOError
	// ArchiveFormatError means the archive is not a zip or is corrupt.
	ArchiveFormatError
)

var (
	ErrPathTraversal = errors.New("attempted path traversal in zip file")
	ErrIO            = errors.New("i/o error during extraction")
	ErrArchiveFormat = errors.New("invalid or corrupt zip archive")
)

func (k Kind) String() string {
	switch k {
	case PathTraversal:
		return "path_traversal"
	case IOError:
		return "io_error"
	case ArchiveFormatError:
		return "archive_format_error"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case PathTraversal:
		return ErrPathTraversal
	case IOError:
		return ErrIO
	case ArchiveFormatError:
		return ErrArchiveFormat
	default:
		return nil
	}
}

// Error is returned by Extract for every failure. Entry is empty when the
// failure is not tied to a single archive member.
type Error struct {
	Kind  Kind
	Entry string
	Err   error
}

func (e *Error) Error() string {
	msg := "extraction failed"
	if s := e.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Entry != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Entry)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match an *Error against ErrPathTraversal, ErrIO or
// ErrArchiveFormat.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func newError(kind Kind, entry string, err error) *Error {
	return &Error{Kind: kind, Entry: entry, Err: err}
}
