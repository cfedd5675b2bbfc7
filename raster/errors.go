package raster

import "errors"

var (
	// ErrNoImage is returned when the polygon list is empty and there is
	// nothing to composite.
	ErrNoImage = errors.New("no image")

	// ErrInvalidOptions indicates compositor options that cannot produce
	// an image.
	ErrInvalidOptions = errors.New("invalid compositor options")
)
