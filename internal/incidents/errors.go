package incidents

import "errors"

// Sentinel errors for the incidents module.
var (
	ErrIncidentNotFound    = errors.New("incident not found")
	ErrIncidentNotResolved = errors.New("incident is not resolved")
	ErrInvalidStatus       = errors.New("invalid incident status")
	ErrInvalidImpact       = errors.New("invalid incident impact")
	ErrComponentNotOnPage  = errors.New("component does not belong to the incident's page")
	ErrPageNotFound        = errors.New("status page not found")
)
