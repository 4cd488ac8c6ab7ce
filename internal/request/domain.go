package request

import "time"

// Status is the request lifecycle state. The enumeration is closed at
// this boundary regardless of what the transport layer would accept.
type Status string

const (
	StatusRequested Status = "requested"
	StatusReturned  Status = "returned"
	StatusPaid      Status = "paid"
)

// ValidStatus reports whether s is one of the three lifecycle values.
func ValidStatus(s Status) bool {
	switch s {
	case StatusRequested, StatusReturned, StatusPaid:
		return true
	}
	return false
}

// Statuses lists the lifecycle values in their forward order.
func Statuses() []Status {
	return []Status{StatusRequested, StatusReturned, StatusPaid}
}

// Actor is the denormalized snapshot of the user who handled a request.
// Once set it is never cleared, only replaced by a new create.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// RetailerRequest is the core business record tracked through its status
// lifecycle. The repository assigns ID and both timestamps on creation.
type RetailerRequest struct {
	ID           string    `json:"id"`
	RetailerName string    `json:"retailerName"`
	ProductName  string    `json:"productName"`
	Description  string    `json:"description"`
	UniqueID     string    `json:"uniqueId,omitempty"`
	Status       Status    `json:"status"`
	AttendedBy   *Actor    `json:"attendedBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CreateInput carries the user-entered fields of a new request. The
// repository's create body additionally takes the acting user's name as
// attendedBy, which the service fills from the session.
type CreateInput struct {
	RetailerName string `json:"retailerName" validate:"required"`
	ProductName  string `json:"productName" validate:"required"`
	Description  string `json:"description" validate:"required"`
	UniqueID     string `json:"uniqueId"`
}
