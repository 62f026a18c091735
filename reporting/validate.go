package reporting

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SUBMISSION VALIDATION - Field-level checks, raised as InvalidInput
// =============================================================================

func validateSubmission(sub Submission, vessel *Vessel) error {
	if strings.TrimSpace(sub.SubmittedBy) == "" {
		return &ValidationError{Field: "submittedBy", Message: "is required"}
	}
	if sub.ReportDate.IsZero() {
		return &ValidationError{Field: "reportDate", Message: "is required"}
	}
	if sub.Payload == nil {
		return &ValidationError{Field: "reportData", Message: "is required"}
	}
	if err := validateBunkers(sub.Payload.BunkerInput()); err != nil {
		return err
	}

	switch p := sub.Payload.(type) {
	case *DeparturePayload:
		return validateDeparture(p, vessel)
	case *NoonPayload:
		if !p.PassageState.Valid() {
			return &ValidationError{Field: "passageState", Message: "must be one of noon, sosp, rosp"}
		}
		if err := nonNegative("distanceSinceLastReport", p.DistanceSinceLastReport); err != nil {
			return err
		}
		if err := nonNegative("averageSpeed", p.AverageSpeed); err != nil {
			return err
		}
		return validateNavigation(p.Position, p.Weather)
	case *ArrivalPayload:
		if err := nonNegative("distanceSinceLastReport", p.DistanceSinceLastReport); err != nil {
			return err
		}
		return validateNavigation(p.Position, p.Weather)
	case *BerthPayload:
		switch p.CargoOperation {
		case CargoOpNone, CargoOpLoad, CargoOpUnload:
		default:
			return &ValidationError{Field: "cargoOperation", Message: "must be one of none, load, unload"}
		}
		if err := nonNegative("cargoLoaded", p.CargoLoaded); err != nil {
			return err
		}
		return nonNegative("cargoUnloaded", p.CargoUnloaded)
	}
	return &ValidationError{Field: "reportType", Message: "unsupported report payload"}
}

func validateDeparture(p *DeparturePayload, vessel *Vessel) error {
	required := []struct{ field, value string }{
		{"voyageNumber", p.VoyageNumber},
		{"departurePort", p.DeparturePort},
		{"destinationPort", p.DestinationPort},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Message: "is required"}
		}
	}
	if p.CargoStatus != CargoLoaded && p.CargoStatus != CargoBallast {
		return &ValidationError{Field: "cargoStatus", Message: "must be loaded or ballast"}
	}
	for _, q := range []struct {
		field string
		value decimal.Decimal
	}{
		{"voyageDistance", p.VoyageDistance},
		{"harbourDistance", p.HarbourDistance},
		{"cargoQuantity", p.CargoQuantity},
	} {
		if err := nonNegative(q.field, q.value); err != nil {
			return err
		}
	}
	if err := withinBLS("cargoQuantity", p.CargoQuantity, vessel); err != nil {
		return err
	}
	if p.InitialROB != nil {
		if err := levelsNonNegative("initialRob", *p.InitialROB); err != nil {
			return err
		}
	}
	return validateNavigation(p.Position, p.Weather)
}

func validateBunkers(in BunkerInput) error {
	if err := levelsNonNegative("consumption", in.Consumption.Totals()); err != nil {
		return err
	}
	for _, burn := range []struct {
		field string
		f     FuelBurn
	}{
		{"consumption.lsifo", in.Consumption.LSIFO},
		{"consumption.lsmgo", in.Consumption.LSMGO},
	} {
		for _, d := range []decimal.Decimal{burn.f.ME, burn.f.AE, burn.f.Boiler} {
			if err := nonNegative(burn.field, d); err != nil {
				return err
			}
		}
	}
	return levelsNonNegative("supply", in.Supply)
}

func validateNavigation(pos Position, w Weather) error {
	if pos.Latitude < -90 || pos.Latitude > 90 {
		return &ValidationError{Field: "latitude", Message: "must be between -90 and 90"}
	}
	if pos.Longitude < -180 || pos.Longitude > 180 {
		return &ValidationError{Field: "longitude", Message: "must be between -180 and 180"}
	}
	if w.WindForce < 0 || w.WindForce > 12 {
		return &ValidationError{Field: "windForce", Message: "must be between 0 and 12 (Beaufort)"}
	}
	if w.SeaState < 0 || w.SeaState > 9 {
		return &ValidationError{Field: "seaState", Message: "must be between 0 and 9"}
	}
	return nil
}

func nonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return &ValidationError{Field: field, Message: "must not be negative"}
	}
	return nil
}

func levelsNonNegative(field string, l Levels) error {
	if s, neg := l.FirstNegative(); neg {
		return &ValidationError{Field: field + "." + string(s), Message: "must not be negative"}
	}
	return nil
}

// withinBLS rejects cargo above the vessel's bill-of-lading capacity. A zero
// limit means the vessel has none configured.
func withinBLS(field string, qty decimal.Decimal, vessel *Vessel) error {
	if vessel == nil || !vessel.BLSLimit.IsPositive() {
		return nil
	}
	if qty.GreaterThan(vessel.BLSLimit) {
		return &ValidationError{
			Field:   field,
			Message: "exceeds vessel BLS limit of " + vessel.BLSLimit.String(),
		}
	}
	return nil
}
