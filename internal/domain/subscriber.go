package domain

import "strings"

// Subscriber is a reconciled, listmonk-bound contact. Email keeps the casing
// it had at the source; it is compared case-insensitively via Key.
type Subscriber struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Attributes string `json:"attributes"`
	Subscribed bool   `json:"-"`
}

// Key returns the deduplication key for the subscriber.
func (s Subscriber) Key() string {
	return EmailKey(s.Email)
}

// EmailKey normalizes an email address for case-insensitive comparison.
func EmailKey(email string) string {
	return strings.ToLower(email)
}

// Bucket returns which import the subscriber belongs to.
func (s Subscriber) Bucket() ImportMode {
	if s.Subscribed {
		return ModeSubscribe
	}
	return ModeBlocklist
}
