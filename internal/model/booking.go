package model

import "time"

// Booking is a consultation request attached to exactly one Calculation.
// It is a request record, not a confirmed slot.
type Booking struct {
	ID            string    `json:"id"`
	CalculationID string    `json:"calculationId"`
	UserID        string    `json:"userId"` // always equals the calculation's owner
	FullName      string    `json:"fullName"`
	Phone         string    `json:"phone,omitempty"`
	PreferredDate string    `json:"preferredDate"` // YYYY-MM-DD
	PreferredTime string    `json:"preferredTime"` // HH:MM
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// BookingView is a booking joined with its calculation's product.
type BookingView struct {
	Booking
	ProductSlug string  `json:"productSlug"`
	ProductName string  `json:"productName"`
	CostSaved   float64 `json:"costSaved"`
}

// AccountView is everything the account dashboard shows, newest first.
type AccountView struct {
	Email        string            `json:"email"`
	Calculations []CalculationView `json:"calculations"`
	Bookings     []BookingView     `json:"bookings"`
}
