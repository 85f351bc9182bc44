package errors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalid           = errors.New("invalid")
	ErrInternal          = errors.New("internal")
	ErrCorpusUnavailable = errors.New("corpus unavailable")
	ErrCacheCorrupt      = errors.New("embedding cache corrupt")
	ErrCacheUnavailable  = errors.New("embedding cache unavailable")
	ErrEmbeddingBackend  = errors.New("embedding backend failure")
	ErrInvalidQuery      = errors.New("invalid query")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidQuery(err error) bool {
	return errors.Is(err, ErrInvalidQuery)
}

func IsCacheUnavailable(err error) bool {
	return errors.Is(err, ErrCacheUnavailable)
}
