package crud

import "errors"

// Dispatcher errors. Actions wrap them with detail; hosts classify with errors.Is.
var (
	// ErrConfiguration indicates a missing or unknown admin code, an unknown
	// batch action, or a batch action without a handler.
	ErrConfiguration = errors.New("crud: configuration error")

	// ErrPermissionDenied indicates the admin refused the permission for this request.
	ErrPermissionDenied = errors.New("crud: permission denied")

	// ErrNotFound indicates the object addressed by the request does not exist.
	ErrNotFound = errors.New("crud: object not found")

	// ErrInvalidRequest indicates the request cannot be served as sent (wrong method).
	ErrInvalidRequest = errors.New("crud: invalid request")
)
