package models

import "time"

// Organization approval states carried on the user record. Only Approved
// changes how the organizer is displayed.
const (
	OrganizationNone     = -1
	OrganizationPending  = 0
	OrganizationApproved = 1
	OrganizationRejected = 2
)

// User is a read-only reference here: authentication and account management
// live in a separate service, the API only joins owners into event reads.
type User struct {
	ID                 int       `json:"id" db:"id"`
	Username           string    `json:"username" db:"username"`
	DisplayName        string    `json:"displayName" db:"display_name"`
	OrganizationStatus int       `json:"organization_status" db:"organization_status"`
	OrganizationName   *string   `json:"organizationName,omitempty" db:"organization_name"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}
