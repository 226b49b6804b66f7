package csc

import "errors"

var (
	ErrCountryNotFound = errors.New("country not found")
	ErrStateNotFound   = errors.New("state not found")
)
