package session

import "errors"

var (
	ErrUnknownMode     = errors.New("unknown mode")
	ErrUnknownProperty = errors.New("unknown search property")
	ErrUnknownSession  = errors.New("unknown session")
	ErrUnknownFeature  = errors.New("unknown feature")
	ErrUnknownLayer    = errors.New("unknown layer")
	ErrNotDrawing      = errors.New("no polygon is being drawn")
	ErrEmptyImport     = errors.New("import contains no features")
)
