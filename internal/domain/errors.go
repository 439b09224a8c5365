package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnknownStyle     = errors.New("unknown style")
	ErrImageNotFound    = errors.New("image not found")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrPromptGeneration = errors.New("prompt generation failed")
)
