package store

import "errors"

var (
	ErrOffsetOutOfRange = errors.New("store: offset out of range")
	ErrRecordTooLarge   = errors.New("store: record larger than segment")
	ErrClosed           = errors.New("store: closed")
	ErrCorrupt          = errors.New("store: corrupt segment")
)
