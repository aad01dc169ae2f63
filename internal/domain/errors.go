package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNoData        = errors.New("no data in range")
	ErrContextDone   = errors.New("context cancelled")
)
