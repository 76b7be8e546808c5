package maintenance

import "errors"

// Sentinel errors for the maintenance module.
var (
	ErrWindowNotFound     = errors.New("maintenance window not found")
	ErrInvalidStatus      = errors.New("invalid maintenance status")
	ErrInvalidSchedule    = errors.New("maintenance window must end after it starts")
	ErrComponentNotOnPage = errors.New("component does not belong to the window's page")
	ErrPageNotFound       = errors.New("status page not found")
)
