package statuspages

import "errors"

// Sentinel errors for the status pages module.
var (
	ErrOrgNotFound  = errors.New("organization not found")
	ErrPageNotFound = errors.New("status page not found")
	ErrSlugExists   = errors.New("slug already in use")
	ErrInvalidSlug  = errors.New("invalid slug")
)
