package domain

import "errors"

var (
	ErrEmptyURL        = errors.New("url is required")
	ErrUnknownTool     = errors.New("unknown tool")
	ErrInvalidLanguage = errors.New("invalid language")
)
