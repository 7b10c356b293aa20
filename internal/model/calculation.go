package model

import "time"

// HomeSize is the coarse household size category picked on the quote form.
type HomeSize string

const (
	HomeSizeSmall  HomeSize = "small"
	HomeSizeMedium HomeSize = "medium"
	HomeSizeLarge  HomeSize = "large"
)

// HouseholdInput holds the figures a visitor submits with a quote request.
type HouseholdInput struct {
	ElectricityKWh float64  `json:"electricityKwh"`
	GasKWh         float64  `json:"gasKwh"`
	HomeSize       HomeSize `json:"homeSize"`
	Occupants      int      `json:"occupants"`
	EVCharging     bool     `json:"evCharging"`
	SmartHome      bool     `json:"smartHome"`
}

// Savings is the output of one estimate, already rounded to two decimals.
type Savings struct {
	KWhSaved  float64 `json:"kwhSaved"`
	CostSaved float64 `json:"costSaved"`
	CO2Saved  float64 `json:"co2Saved"`
}

// Calculation is the immutable record of one quote submission.
// It is owned by exactly one user and is the unit of authorization for booking.
type Calculation struct {
	ID          string         `json:"id"`
	ProductSlug string         `json:"productSlug"`
	Email       string         `json:"email"`
	UserID      string         `json:"userId"`
	Input       HouseholdInput `json:"input"`
	Savings     Savings        `json:"savings"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// CalculationView is a calculation joined with its product's display name.
type CalculationView struct {
	Calculation
	ProductName string `json:"productName"`
}
