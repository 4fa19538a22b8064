package dto

import "time"

// PublicComplaintRequest is submitted by customers without an account.
type PublicComplaintRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	Region        string `json:"region"`
	MeterNumber   string `json:"meter_number"`
	AccountNumber string `json:"account_number"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	Priority      string `json:"priority"`
}

// PublicComplaintResponse is the receipt shown to the submitter.
type PublicComplaintResponse struct {
	Reference string    `json:"reference"`
	Status    string    `json:"status"`
	Region    string    `json:"region"`
	CreatedAt time.Time `json:"created_at"`
}
