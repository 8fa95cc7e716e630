package ssd

import "errors"

// Model assembly errors.
var (
	ErrUnsupportedArchitecture = errors.New("unsupported base architecture")
	ErrBranchMismatch          = errors.New("input stages and predictors differ in length")
	ErrInvalidTap              = errors.New("invalid feature tap")
	ErrInvalidConfig           = errors.New("invalid model config")
)
