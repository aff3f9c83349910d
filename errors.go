package gldf

import "errors"

var (
	ErrCorruptArchive      = errors.New("gldf: corrupt archive")
	ErrEntryNotFound       = errors.New("gldf: entry not found")
	ErrMalformedXML        = errors.New("gldf: malformed product xml")
	ErrMalformedJSON       = errors.New("gldf: malformed product json")
	ErrEncoding            = errors.New("gldf: undecodable text encoding")
	ErrDuplicateID         = errors.New("gldf: duplicate id")
	ErrNotFound            = errors.New("gldf: id not found")
	ErrUnresolvedReference = errors.New("gldf: unresolved file reference")
	ErrExternalContent     = errors.New("gldf: content is an external url reference")
	ErrNotText             = errors.New("gldf: content type is not text-based")
	ErrLimitExceeded       = errors.New("gldf: limit exceeded")
	ErrValidation          = errors.New("gldf: validation failed")
)
