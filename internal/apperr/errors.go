package apperr

import "errors"

var (
	ErrNotInitialized     = errors.New("slipbox has not been initialized")
	ErrAlreadyInitialized = errors.New("slipbox has already been initialized")
	ErrNoteNotFound       = errors.New("note does not exist")
	ErrDuplicateNote      = errors.New("duplicate note id")
	ErrConverterMissing   = errors.New("converter not found")
	ErrLayoutMissing      = errors.New("layout engine not found")
	ErrBuildFailed        = errors.New("build failed")
	ErrCheckFailed        = errors.New("check failed")
)
