package btcore

import "errors"

// Common errors
var (
	ErrInvalidDeviceInfo = errors.New("invalid device name or pairing key length")
	ErrListFull          = errors.New("device list is full")
	ErrIndexOutOfBounds  = errors.New("index out of bounds")
	ErrInvalidConnHandle = errors.New("connection handle out of range")
	ErrInvalidMagic      = errors.New("magic number mismatch")
)
