package domain

import "time"

// PhoneUnknown is shown in place of a phone number the store could not provide.
// It is deliberately not shaped like a phone number.
const PhoneUnknown = "unknown"

// Customer is a utility customer who raised at least one complaint.
type Customer struct {
	ID            string
	Name          string
	Email         string
	Phone         string
	Address       string
	Region        string
	MeterNumber   string
	AccountNumber string
	CreatedAt     time.Time
}

// GetRegion implements region scoped filtering.
func (c Customer) GetRegion() string {
	return c.Region
}

// DisplayPhone returns the phone or the unknown sentinel.
func (c Customer) DisplayPhone() string {
	if c.Phone == "" {
		return PhoneUnknown
	}
	return c.Phone
}

// Ref converts the customer into the reference embedded in complaints.
func (c Customer) Ref() CustomerRef {
	return CustomerRef{
		ID:            c.ID,
		Name:          c.Name,
		Email:         c.Email,
		Phone:         c.Phone,
		Address:       c.Address,
		Region:        c.Region,
		MeterNumber:   c.MeterNumber,
		AccountNumber: c.AccountNumber,
	}
}
