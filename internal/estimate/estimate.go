// Package estimate computes the energy, cost and CO2 savings a household can
// expect from a product. It is a pure function: no state, no I/O.
//
// Coefficients are hard-coded per product slug. They are deliberately NOT read
// from model.Product.TypicalSavingPct, which is display copy only.
package estimate

import (
	"math"

	"github.com/sakif/energy-advisor/internal/model"
)

// Product slugs with a saving policy. Any other slug estimates to zero.
const (
	Solar     = "solar"
	EVCharger = "ev-charger"
	SmartHome = "smart-home"
)

// Unit prices (currency per kWh) and emission factors (kg CO2 per kWh).
const (
	ElectricityPrice  = 0.28
	GasPrice          = 0.07
	ElectricityFactor = 0.20
	GasFactor         = 0.18
)

const (
	solarRate = 0.25
	evRate    = 0.06

	smartElecRate = 0.08
	smartGasRate  = 0.05
	basicElecRate = 0.03
	basicGasRate  = 0.02
)

// MaxUsageKWh is the largest annual usage figure the engine accepts. Far above
// any household, and small enough that no product of it can overflow.
const MaxUsageKWh = 1e7

// Input is what the engine reads from a household submission.
// A usage figure that is negative, non-finite or above MaxUsageKWh counts as 0.
type Input struct {
	ElectricityKWh float64
	GasKWh         float64
	EVCharging     bool
	SmartHome      bool
}

// FromHousehold picks the fields the engine uses out of a form submission.
func FromHousehold(h model.HouseholdInput) Input {
	return Input{
		ElectricityKWh: h.ElectricityKWh,
		GasKWh:         h.GasKWh,
		EVCharging:     h.EVCharging,
		SmartHome:      h.SmartHome,
	}
}

// Estimate returns the savings for productSlug. Values are rounded to two
// decimal places. Unknown slugs produce a zero result rather than an error;
// the quote workflow rejects unknown products before calling in here.
func Estimate(productSlug string, in Input) model.Savings {
	in.ElectricityKWh = usage(in.ElectricityKWh)
	in.GasKWh = usage(in.GasKWh)
	kwh := kwhSaved(productSlug, in)

	var price, factor float64
	switch productSlug {
	case Solar, EVCharger:
		// Both only ever displace grid electricity.
		price, factor = ElectricityPrice, ElectricityFactor
	default:
		price, factor = blended(in)
	}

	return model.Savings{
		KWhSaved:  round2(kwh),
		CostSaved: round2(kwh * price),
		CO2Saved:  round2(kwh * factor),
	}
}

// Supported reports whether productSlug has a saving policy.
func Supported(productSlug string) bool {
	switch productSlug {
	case Solar, EVCharger, SmartHome:
		return true
	}
	return false
}

func kwhSaved(productSlug string, in Input) float64 {
	switch productSlug {
	case Solar:
		return solarRate * in.ElectricityKWh
	case EVCharger:
		if !in.EVCharging {
			return 0
		}
		return evRate * in.ElectricityKWh
	case SmartHome:
		elecRate, gasRate := basicElecRate, basicGasRate
		if in.SmartHome {
			elecRate, gasRate = smartElecRate, smartGasRate
		}
		return in.ElectricityKWh*elecRate + in.GasKWh*gasRate
	default:
		return 0
	}
}

// blended weights the electricity and gas price/factor by submitted volume.
// The denominator is floored at 1 so two zero volumes do not divide by zero.
func blended(in Input) (price, factor float64) {
	total := math.Max(1, in.ElectricityKWh+in.GasKWh)
	price = (in.ElectricityKWh*ElectricityPrice + in.GasKWh*GasPrice) / total
	factor = (in.ElectricityKWh*ElectricityFactor + in.GasKWh*GasFactor) / total
	return price, factor
}

func usage(v float64) float64 {
	if math.IsNaN(v) || v <= 0 || v > MaxUsageKWh {
		return 0
	}
	return v
}

// round2 also folds -0 into 0.
func round2(v float64) float64 {
	return math.Round(v*100)/100 + 0
}
