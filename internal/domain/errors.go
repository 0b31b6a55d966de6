package domain

import "errors"

var (
	// ErrNotFound indicates resource not found
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidArgument indicates programmatic API misuse
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotReady indicates the model session is not ready for inference
	ErrNotReady = errors.New("model session not ready")
	// ErrClosed indicates the model session has been shut down
	ErrClosed = errors.New("model session closed")
	// ErrDimensionMismatch indicates a vector of the wrong width
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrUnsupportedFileType indicates a file extension outside the lesson set
	ErrUnsupportedFileType = errors.New("unsupported file type")
)
