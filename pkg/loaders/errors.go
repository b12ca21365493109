package loaders

import "errors"

var (
	ErrMalformedSTL      = errors.New("loaders: malformed STL data")
	ErrMalformedPLY      = errors.New("loaders: malformed PLY data")
	ErrMalformedOBJ      = errors.New("loaders: malformed OBJ data")
	ErrUnknownObjectType = errors.New("loaders: unknown object type")
	ErrUnknownMaterial   = errors.New("loaders: unknown material")
	ErrUnknownKey        = errors.New("loaders: unknown key in scene file")
)
