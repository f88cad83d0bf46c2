package domain

import "errors"

var (
	ErrNoReport       = errors.New("no position report available")
	ErrNotConnected   = errors.New("position source not connected")
	ErrAlreadyStarted = errors.New("engine already started")
	ErrStopTimeout    = errors.New("engine did not stop in time")
	ErrNoFix          = errors.New("no position fix")
)
