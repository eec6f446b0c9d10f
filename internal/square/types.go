package square

// APIVersion pins the Square-Version header so schema changes on Square's
// side cannot silently break decoding.
const APIVersion = "2023-01-19"

// DefaultBaseURL is Square's production API origin.
const DefaultBaseURL = "https://connect.squareup.com"

// Customer is the subset of a Square customer profile the sync needs.
// Optional strings stay nil when Square omits them.
type Customer struct {
	ID           string       `json:"id,omitempty"`
	EmailAddress *string      `json:"email_address,omitempty"`
	GivenName    *string      `json:"given_name,omitempty"`
	FamilyName   *string      `json:"family_name,omitempty"`
	Preferences  *Preferences `json:"preferences,omitempty"`
}

// Preferences holds a customer's marketing preferences.
type Preferences struct {
	EmailUnsubscribed bool `json:"email_unsubscribed"`
}

// HasEmail reports whether the customer carries an email address.
func (c Customer) HasEmail() bool {
	return c.EmailAddress != nil
}

// HasName reports whether either name part is present.
func (c Customer) HasName() bool {
	return c.GivenName != nil || c.FamilyName != nil
}

// Unsubscribed reports the customer's email opt-out flag.
func (c Customer) Unsubscribed() bool {
	return c.Preferences != nil && c.Preferences.EmailUnsubscribed
}

// ListCustomersResponse is one page of GET /v2/customers.
type ListCustomersResponse struct {
	Customers []Customer       `json:"customers"`
	Cursor    string           `json:"cursor,omitempty"`
	Errors    []APIErrorDetail `json:"errors,omitempty"`
}

// APIErrorDetail is an entry of Square's standard error envelope.
type APIErrorDetail struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail,omitempty"`
	Field    string `json:"field,omitempty"`
}
