package renderer

import "errors"

var (
	ErrInvalidDimensions  = errors.New("renderer: width and height must be positive")
	ErrInvalidThreadCount = errors.New("renderer: thread count must be positive")
	ErrRendererClosed     = errors.New("renderer: renderer has been closed")
	ErrBufferTooSmall     = errors.New("renderer: output buffer too small")
	ErrOutOfBounds        = errors.New("renderer: pixel coordinates out of bounds")
)
