package domain

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrDecode      = errors.New("malformed item payload")
	ErrUpstream    = errors.New("upstream feed error")
	ErrContextDone = errors.New("context cancelled")
)
