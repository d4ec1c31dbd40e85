package ir

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorizes translation errors.
type ErrorKind uint8

const (
	// ErrDecode covers malformed or unsupported bytecode.
	ErrDecode ErrorKind = iota

	// ErrProfile covers unknown profiles and constructs a profile cannot express.
	ErrProfile

	// ErrAlloc indicates the allocator could not provide memory.
	ErrAlloc
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrDecode:
		return "Decode"
	case ErrProfile:
		return "Profile"
	case ErrAlloc:
		return "Alloc"
	default:
		return "Unknown"
	}
}

// Error positions that are not byte offsets.
const (
	PositionNone   = -3
	PositionBefore = -2
	PositionAfter  = -1
)

// MaxErrors caps the number of errors recorded per parse.
const MaxErrors = 64

// Error is one translation error.
type Error struct {
	Kind     ErrorKind
	Message  string
	Filename string
	// Position is a byte offset into the bytecode or one of the
	// Position* sentinels.
	Position int
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Filename != "" {
		b.WriteString(e.Filename)
		b.WriteString(":")
	}
	switch e.Position {
	case PositionNone:
	case PositionBefore:
		b.WriteString("(before):")
	case PositionAfter:
		b.WriteString("(end):")
	default:
		fmt.Fprintf(&b, "%d:", e.Position)
	}
	if b.Len() > 0 {
		b.WriteString(" ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// NewError creates an error at pos.
func NewError(kind ErrorKind, pos int, format string, args ...any) *Error {
	return &Error{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Position: pos,
	}
}

// IsDecode returns true if the error is ErrDecode.
func (e *Error) IsDecode() bool { return e.Kind == ErrDecode }

// IsProfile returns true if the error is ErrProfile.
func (e *Error) IsProfile() bool { return e.Kind == ErrProfile }

// AsError extracts an *Error from err, wrapping foreign errors as kind at pos.
func AsError(err error, kind ErrorKind, pos int) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: kind, Message: err.Error(), Position: pos}
}

// ErrorList accumulates errors up to MaxErrors.
type ErrorList struct {
	Filename string
	errs     []*Error
	capped   bool
}

// Add records an error. Once MaxErrors entries exist, one final
// "too many errors" entry is recorded and further errors are dropped.
func (l *ErrorList) Add(e *Error) {
	if l.capped {
		return
	}
	if e.Filename == "" {
		e.Filename = l.Filename
	}
	if len(l.errs) >= MaxErrors {
		l.errs = append(l.errs, &Error{
			Kind:     e.Kind,
			Message:  "too many errors",
			Filename: l.Filename,
			Position: PositionNone,
		})
		l.capped = true
		return
	}
	l.errs = append(l.errs, e)
}

// Addf records a formatted error.
func (l *ErrorList) Addf(kind ErrorKind, pos int, format string, args ...any) {
	l.Add(NewError(kind, pos, format, args...))
}

// HasErrors reports whether any error was recorded.
func (l *ErrorList) HasErrors() bool { return len(l.errs) > 0 }

// Len returns the number of recorded errors.
func (l *ErrorList) Len() int { return len(l.errs) }

// Errors returns the recorded errors.
func (l *ErrorList) Errors() []*Error { return l.errs }

// Err joins the recorded errors into one error, or returns nil.
func (l *ErrorList) Err() error {
	if len(l.errs) == 0 {
		return nil
	}
	errs := make([]error, len(l.errs))
	for i, e := range l.errs {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// FormatAll renders every error on its own line.
func (l *ErrorList) FormatAll() string {
	var b strings.Builder
	for i, e := range l.errs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.Error())
	}
	return b.String()
}
