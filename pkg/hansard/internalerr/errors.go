package internalerr

import "errors"

// Sentinel errors shared by the parse chain, the corpus builder and the stores.
var (
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrUnsupported            = errors.New("document not supported")
	ErrChainExhausted         = errors.New("no parser could parse this document")
	ErrSourceUnavailable      = errors.New("source store unavailable")
	ErrDestinationUnavailable = errors.New("destination store unavailable")
	ErrInvalidConfig          = errors.New("invalid configuration")
)
