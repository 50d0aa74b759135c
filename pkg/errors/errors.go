package syncerrors

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotConnected   = errors.New("not connected")
	ErrDuplicateFrame = errors.New("duplicate frame")
	ErrUploadInFlight = errors.New("upload already in flight")
	ErrStaleSeq       = errors.New("stale sequence number")
	ErrTokenExpired   = errors.New("token expired")
	ErrUnauthorized   = errors.New("unauthorized")
)

// NowPtr returns a pointer to current time
func NowPtr() *time.Time {
	now := time.Now()
	return &now
}
