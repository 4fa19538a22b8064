package canonical

import (
	"strings"
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

var (
	customerIDAliases      = []string{"Customer ID", "customerId", "customer_id"}
	customerNameAliases    = []string{"Customer Name", "customerName", "customer_name"}
	customerEmailAliases   = []string{"Customer Email", "customerEmail", "customer_email"}
	customerPhoneAliases   = []string{"Customer Phone", "customerPhone", "customer_phone", "Phone", "phone"}
	customerAddressAliases = []string{"Customer Address", "customerAddress", "Address", "address"}
	customerRegionAliases  = []string{"Customer Region", "customerRegion"}
	meterAliases           = []string{"Meter Number", "meterNumber", "meter_number", "Meter No"}
	accountAliases         = []string{"Account Number", "accountNumber", "account_number", "Account No"}

	// plain aliases used for standalone customer rows and nested customer objects
	plainIDAliases      = []string{"ID", "id", "Customer ID", "customerId"}
	plainNameAliases    = []string{"Name", "name", "Full Name", "fullName", "Customer Name", "customerName"}
	plainEmailAliases   = []string{"Email", "email", "Email Address"}
	plainPhoneAliases   = []string{"Phone", "phone", "Phone Number", "phoneNumber", "Mobile"}
	plainAddressAliases = []string{"Address", "address"}
	plainRegionAliases  = []string{"Region", "region"}
	createdAtAliases    = []string{"Created At", "createdAt", "created_at", "Date Created", "Timestamp"}
)

// NormalizeCustomer canonicalises a standalone customer row.
func NormalizeCustomer(raw Bag) Result[domain.Customer] {
	var issues issueList
	customer := domain.Customer{
		ID:            raw.text(plainIDAliases...),
		Name:          raw.text(plainNameAliases...),
		Email:         strings.ToLower(raw.text(plainEmailAliases...)),
		Address:       raw.text(plainAddressAliases...),
		Region:        domain.CanonicalRegion(raw.text(plainRegionAliases...)),
		MeterNumber:   raw.text(meterAliases...),
		AccountNumber: raw.text(accountAliases...),
	}
	if val, ok := raw.lookup(plainPhoneAliases...); ok {
		customer.Phone = normalizePhone(val, "phone", &issues)
	}
	customer.CreatedAt = timeField(raw, "created_at", &issues, createdAtAliases...)
	return Result[domain.Customer]{Entity: customer, Issues: issues}
}

// CustomerAttributes renders a customer as a store payload.
func CustomerAttributes(c domain.Customer) Bag {
	bag := Bag{
		"id":            c.ID,
		"name":          c.Name,
		"email":         c.Email,
		"phone":         c.Phone,
		"address":       c.Address,
		"region":        c.Region,
		"meterNumber":   c.MeterNumber,
		"accountNumber": c.AccountNumber,
	}
	if ts := formatTime(c.CreatedAt); ts != "" {
		bag["createdAt"] = ts
	}
	return bag
}

// customerRef resolves the customer embedded in a complaint row, preferring flat columns
// and falling back to a nested customer object.
func customerRef(raw Bag, issues *issueList) domain.CustomerRef {
	nested := raw.nested("customer", "Customer")
	pick := func(flat, plain []string) string {
		if v := raw.text(flat...); v != "" {
			return v
		}
		return nested.text(plain...)
	}

	ref := domain.CustomerRef{
		ID:            pick(customerIDAliases, plainIDAliases),
		Name:          pick(customerNameAliases, plainNameAliases),
		Email:         strings.ToLower(pick(customerEmailAliases, plainEmailAliases)),
		Address:       pick(customerAddressAliases, plainAddressAliases),
		Region:        domain.CanonicalRegion(pick(customerRegionAliases, plainRegionAliases)),
		MeterNumber:   pick(meterAliases, meterAliases),
		AccountNumber: pick(accountAliases, accountAliases),
	}
	if val, ok := raw.lookup(customerPhoneAliases...); ok {
		ref.Phone = normalizePhone(val, "customer.phone", issues)
	} else if val, ok := nested.lookup(plainPhoneAliases...); ok {
		ref.Phone = normalizePhone(val, "customer.phone", issues)
	}
	return ref
}

// normalizePhone keeps a phone as text. A negative number is an upstream formatting defect
// and yields an empty value plus an issue; no substitute number is ever produced.
func normalizePhone(val any, field string, issues *issueList) string {
	if num, ok := val.(float64); ok && num < 0 {
		issues.add(field, IssueInvalidPhone, "phone arrived as a negative number")
		return ""
	}
	text := toText(val)
	if IsCorruptedMarker(text) {
		issues.add(field, IssueInvalidPhone, "phone holds a corrupted serialization marker")
		return ""
	}
	if strings.HasPrefix(text, "-") {
		if _, isNum := toNumber(text); isNum {
			issues.add(field, IssueInvalidPhone, "phone arrived as a negative number")
			return ""
		}
	}
	return text
}

func timeField(raw Bag, field string, issues *issueList, aliases ...string) time.Time {
	val, ok := raw.lookup(aliases...)
	if !ok {
		return time.Time{}
	}
	parsed, ok := toTime(val)
	if !ok {
		issues.add(field, IssueInvalidTimestamp, "unparseable timestamp "+toText(val))
		return time.Time{}
	}
	return parsed
}
