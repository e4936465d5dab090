package pipeline

import "errors"

var (
	ErrNotFound     = errors.New("image not found")
	ErrInvalidItem  = errors.New("invalid image name")
	ErrInvalidImage = errors.New("image is empty or unsupported format")
	ErrRender       = errors.New("failed to write annotated image")
	ErrStopped      = errors.New("pipeline stopped")
	ErrInternal     = errors.New("pipeline worker panic")
)
