package domain

import "errors"

// Pipeline error taxonomy. Adapters wrap the underlying cause with %w.
var (
	ErrTransport     = errors.New("transport error")
	ErrDecompression = errors.New("decompression error")
	ErrParse         = errors.New("parse error")
	ErrPersistence   = errors.New("persistence error")
	ErrSerialization = errors.New("serialization error")
	ErrNotification  = errors.New("notification error")

	ErrNotFound = errors.New("not found")
)
