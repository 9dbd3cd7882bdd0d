package storage

import "errors"

var (
	ErrUnknownDriver = errors.New("storage: unknown driver")
	ErrBlobStatus    = errors.New("storage: unexpected blob store status")
	ErrCorruptCount  = errors.New("storage: corrupt counter blob")
)
