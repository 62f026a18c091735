package reporting

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// PAYLOAD - Tagged variant keyed by report type
// =============================================================================

// Payload is the type-specific body of a report. The concrete types are
// *DeparturePayload, *NoonPayload, *ArrivalPayload and *BerthPayload.
type Payload interface {
	ReportType() ReportType
	BunkerInput() BunkerInput
	isPayload()
}

var (
	_ Payload = (*DeparturePayload)(nil)
	_ Payload = (*NoonPayload)(nil)
	_ Payload = (*ArrivalPayload)(nil)
	_ Payload = (*BerthPayload)(nil)
)

// =============================================================================
// SHARED BLOCKS
// =============================================================================

// FuelBurn splits fuel consumption by consumer.
type FuelBurn struct {
	ME     decimal.Decimal
	AE     decimal.Decimal
	Boiler decimal.Decimal
}

func (f FuelBurn) Total() decimal.Decimal {
	return f.ME.Add(f.AE).Add(f.Boiler)
}

// Consumption is what was burned since the previous report.
type Consumption struct {
	LSIFO  FuelBurn
	LSMGO  FuelBurn
	CylOil decimal.Decimal
	MEOil  decimal.Decimal
	AEOil  decimal.Decimal
	VOLOil decimal.Decimal
}

// Totals collapses the per-consumer breakdown into per-substance totals.
func (c Consumption) Totals() Levels {
	return Levels{
		LSIFO:  c.LSIFO.Total(),
		LSMGO:  c.LSMGO.Total(),
		CylOil: c.CylOil,
		MEOil:  c.MEOil,
		AEOil:  c.AEOil,
		VOLOil: c.VOLOil,
	}
}

// BunkerInput is the consumption and supply a report contributes to the
// bunker ledger.
type BunkerInput struct {
	Consumption Consumption
	Supply      Levels
}

type Position struct {
	Latitude  float64
	Longitude float64
}

type Weather struct {
	WindForce     int // Beaufort 0-12
	WindDirection string
	SeaState      int // Douglas 0-9
	Visibility    string
}

type EngineReadings struct {
	MERPM        decimal.Decimal
	MELoadPct    decimal.Decimal
	SlipPct      decimal.Decimal
	RunningHours decimal.Decimal
}

// =============================================================================
// DEPARTURE
// =============================================================================

type DeparturePayload struct {
	VoyageNumber    string
	DeparturePort   string
	DestinationPort string

	CargoStatus   CargoStatus
	CargoType     string
	CargoQuantity decimal.Decimal

	VoyageDistance  decimal.Decimal
	HarbourDistance decimal.Decimal

	// InitialROB is only honoured for a vessel with no bunker history.
	InitialROB *Levels

	Position Position
	Weather  Weather
	Engine   EngineReadings
	Bunkers  BunkerInput
}

func (*DeparturePayload) ReportType() ReportType     { return ReportDeparture }
func (p *DeparturePayload) BunkerInput() BunkerInput { return p.Bunkers }
func (*DeparturePayload) isPayload()                 {}

// =============================================================================
// NOON
// =============================================================================

// PassageState is the noon-report sub-state: normal passage, stoppage of
// sea passage (sosp) or resumption of sea passage (rosp).
type PassageState string

const (
	PassageNoon PassageState = "noon"
	PassageSOSP PassageState = "sosp"
	PassageROSP PassageState = "rosp"
)

func (p PassageState) Valid() bool {
	return p == PassageNoon || p == PassageSOSP || p == PassageROSP
}

type NoonPayload struct {
	PassageState            PassageState
	DistanceSinceLastReport decimal.Decimal
	AverageSpeed            decimal.Decimal

	Position Position
	Weather  Weather
	Engine   EngineReadings
	Bunkers  BunkerInput
}

func (*NoonPayload) ReportType() ReportType     { return ReportNoon }
func (p *NoonPayload) BunkerInput() BunkerInput { return p.Bunkers }
func (*NoonPayload) isPayload()                 {}

// =============================================================================
// ARRIVAL
// =============================================================================

type ArrivalPayload struct {
	ArrivalPort             string
	DistanceSinceLastReport decimal.Decimal

	Position Position
	Weather  Weather
	Engine   EngineReadings
	Bunkers  BunkerInput
}

func (*ArrivalPayload) ReportType() ReportType     { return ReportArrival }
func (p *ArrivalPayload) BunkerInput() BunkerInput { return p.Bunkers }
func (*ArrivalPayload) isPayload()                 {}

// =============================================================================
// BERTH
// =============================================================================

type CargoOperation string

const (
	CargoOpNone   CargoOperation = "none"
	CargoOpLoad   CargoOperation = "load"
	CargoOpUnload CargoOperation = "unload"
)

type BerthPayload struct {
	BerthName      string
	CargoOperation CargoOperation
	CargoLoaded    decimal.Decimal
	CargoUnloaded  decimal.Decimal

	Bunkers BunkerInput
}

func (*BerthPayload) ReportType() ReportType     { return ReportBerth }
func (p *BerthPayload) BunkerInput() BunkerInput { return p.Bunkers }
func (*BerthPayload) isPayload()                 {}

// ApplyCargo returns the voyage cargo quantity after this berth's
// load/unload. Unloading never takes the quantity below zero.
func (p *BerthPayload) ApplyCargo(current decimal.Decimal) decimal.Decimal {
	next := current
	switch p.CargoOperation {
	case CargoOpLoad:
		next = next.Add(p.CargoLoaded)
	case CargoOpUnload:
		next = next.Sub(p.CargoUnloaded)
	}
	if next.IsNegative() {
		return decimal.Zero
	}
	return next
}
