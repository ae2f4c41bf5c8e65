package model

import "errors"

// Common errors used across the application
var (
	// Caption errors
	ErrEmptyCaptions    = errors.New("caption list is empty")
	ErrCaptionsNotFound = errors.New("captions not found")

	// Clock errors
	ErrInvalidFixedTime = errors.New("invalid fixed time")

	// View errors
	ErrViewNotFound  = errors.New("view not found")
	ErrUnknownSignal = errors.New("unknown readiness signal")

	// Font errors
	ErrFontNotLoaded = errors.New("font not loaded")
)
