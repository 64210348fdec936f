package dxfutils

import "github.com/pkg/errors"

// The error kinds reported by the toolkit. Call sites wrap these with
// errors.Wrapf so that errors.Is can classify a failure while the message
// keeps the offending context.
var (
	// ErrParse marks a malformed DXF group-code stream: a non-numeric
	// group code, an unterminated pair or a document without EOF.
	ErrParse = errors.New("parse error")

	// ErrBadInput marks values which do not satisfy the numeric grammar
	// or references which cannot be resolved.
	ErrBadInput = errors.New("bad input")

	// ErrDuplicateSection is reported by Canonicalize in strict mode when
	// two sections carry the same name.
	ErrDuplicateSection = errors.New("duplicate section")

	// ErrUnsupportedEntity is reported by BoilDown when a requested kind
	// has no conversion chain into the acceptable set.
	ErrUnsupportedEntity = errors.New("unsupported entity")

	// ErrNotImplemented is reported for block children outside
	// LINE/SPLINE/POINT/LWPOLYLINE and for other recognised but
	// unhandled constructs.
	ErrNotImplemented = errors.New("not implemented")

	// ErrInvalidArgument marks a bad filter criterion or a wrong arity.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidPolyline marks an LWPOLYLINE with mismatched coordinate
	// arrays or no points at all.
	ErrInvalidPolyline = errors.New("invalid polyline")
)

// WarnFunc receives tolerated oddities: unmatched end nodes, skipped
// entities, unknown commands. A nil WarnFunc silently drops them.
type WarnFunc func(err error)

func (w WarnFunc) warnf(format string, args ...interface{}) {
	if w != nil {
		w(errors.Errorf(format, args...))
	}
}
