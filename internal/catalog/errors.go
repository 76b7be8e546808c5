package catalog

import "errors"

// Catalog errors.
var (
	ErrComponentNotFound = errors.New("component not found")
	ErrGroupNotFound     = errors.New("component group not found")
	ErrMetricNotFound    = errors.New("metric not found")
	ErrPageNotFound      = errors.New("status page not found")
	ErrSlugExists        = errors.New("slug already exists")
	ErrInvalidSlug       = errors.New("invalid slug")
	ErrInvalidStatus     = errors.New("invalid component status")
	ErrGroupPageMismatch = errors.New("group belongs to a different status page")
)
