package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrNotFound
	ErrInvalid
	ErrInternal
	ErrInvalidQuery
	ErrCacheUnavailable
	ErrNoData
	ErrImportFailed
	ErrInvalidFile
	ErrUnauthorized
	ErrTooMany
)
