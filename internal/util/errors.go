package util

import "errors"

var (
	ErrNoExtractableText = errors.New("no extractable text found in PDF")

	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	ErrProviderUnavailable  = errors.New("completion provider unavailable")
	ErrStoreWrite           = errors.New("vector store write failed")
	ErrStoreQuery           = errors.New("vector store query failed")
)
