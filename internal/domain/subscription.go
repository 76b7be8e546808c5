package domain

import "time"

// Subscriber represents a public email subscription to one status page.
// The unsubscribe token is generated at creation and acts as the only
// credential for removing the subscription.
type Subscriber struct {
	ID               string    `json:"id"`
	PageID           string    `json:"page_id"`
	Email            string    `json:"email"`
	UnsubscribeToken string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
}
