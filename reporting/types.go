/*
Package reporting is the voyage report engine.

PURPOSE:
  Records a vessel's voyage lifecycle as a chain of operator-submitted
  reports (departure, noon, arrival, berth). Each report stays pending until
  shore staff approve it, and only approved reports become the baseline the
  next submission is computed from.

KEY CONCEPTS IN THIS FILE (types.go):
  - Vessel, Voyage, Report, BunkerRecord: the persisted records
  - Levels: remaining-on-board (ROB) quantities for the six tracked substances
  - VesselHead: per-vessel pointer to the baseline and latest report
  - Report identifiers: integer ids, max(existing)+1 per collection

DESIGN PRINCIPLES:
  1. Baseline, not latest: derived fields come from the last APPROVED report
  2. Precision: all quantities use decimal.Decimal
  3. Fixed at creation: distance and ROB fields are never recomputed
  4. Typed payloads: each report type carries its own payload struct

SEE ALSO:
  - payload.go: Report payload variants
  - submit.go: Report state machine
  - review.go: Approve/reject workflow
  - bunker.go: Bunker ledger
*/
package reporting

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type VesselID int64
type VoyageID int64
type ReportID int64
type BunkerRecordID int64

// =============================================================================
// VESSEL - Created out of band, read-only to the engine
// =============================================================================

type Vessel struct {
	ID      VesselID
	Name    string
	IMO     string
	Flag    string
	Captain string

	// BLSLimit is the cargo capacity. Zero means "not configured" and
	// disables the capacity check.
	BLSLimit decimal.Decimal
}

// =============================================================================
// VOYAGE - One leg of vessel operation, opened by a departure report
// =============================================================================

type CargoStatus string

const (
	CargoLoaded  CargoStatus = "loaded"
	CargoBallast CargoStatus = "ballast"
)

type Voyage struct {
	ID              VoyageID
	VesselID        VesselID
	VoyageNumber    string
	DeparturePort   string
	DestinationPort string
	CargoStatus     CargoStatus
	CargoType       string
	CargoQuantity   decimal.Decimal
	TotalDistance   decimal.Decimal
	Active          bool
	StartDate       time.Time
	EndDate         *time.Time

	StartingReportID ReportID
	EndingReportID   *ReportID
}

// =============================================================================
// REPORT
// =============================================================================

type ReportType string

const (
	ReportDeparture ReportType = "departure"
	ReportNoon      ReportType = "noon"
	ReportArrival   ReportType = "arrival"
	ReportBerth     ReportType = "berth"
)

func (t ReportType) Valid() bool {
	switch t {
	case ReportDeparture, ReportNoon, ReportArrival, ReportBerth:
		return true
	}
	return false
}

type ReportStatus string

const (
	StatusPending  ReportStatus = "pending"
	StatusApproved ReportStatus = "approved"
	StatusRejected ReportStatus = "rejected"
)

// Report is one submission. Status changes only through the review
// workflow; everything else is fixed when the report is created.
type Report struct {
	ID             ReportID
	Type           ReportType
	VesselID       VesselID
	VoyageID       VoyageID
	SequenceNumber int

	SubmittedBy string
	SubmittedAt time.Time
	Status      ReportStatus

	ReviewedBy      *string
	ReviewedAt      *time.Time
	RejectionReason *string

	ReportDate       time.Time
	DistanceTraveled decimal.Decimal
	DistanceToGo     decimal.Decimal

	Payload Payload
}

// PassageState returns the noon sub-state, or "" for non-noon reports.
func (r *Report) PassageState() PassageState {
	if p, ok := r.Payload.(*NoonPayload); ok {
		return p.PassageState
	}
	return ""
}

// StartsVoyage reports whether r is the departure that opened v.
func (r *Report) StartsVoyage(v *Voyage) bool {
	return r.Type == ReportDeparture &&
		r.SequenceNumber == 1 &&
		v != nil &&
		v.StartingReportID == r.ID
}

// =============================================================================
// LEVELS - ROB quantities for the six tracked substances
// =============================================================================

type Substance string

const (
	LSIFO  Substance = "lsifo"
	LSMGO  Substance = "lsmgo"
	CylOil Substance = "cyl_oil"
	MEOil  Substance = "me_oil"
	AEOil  Substance = "ae_oil"
	VOLOil Substance = "vol_oil"
)

// Substances lists every tracked substance in ledger column order.
var Substances = []Substance{LSIFO, LSMGO, CylOil, MEOil, AEOil, VOLOil}

// Levels holds one quantity per substance. The zero value is all-zero, so a
// missing input reads as 0.
type Levels struct {
	LSIFO  decimal.Decimal
	LSMGO  decimal.Decimal
	CylOil decimal.Decimal
	MEOil  decimal.Decimal
	AEOil  decimal.Decimal
	VOLOil decimal.Decimal
}

// Get returns the quantity for s.
func (l Levels) Get(s Substance) decimal.Decimal {
	switch s {
	case LSIFO:
		return l.LSIFO
	case LSMGO:
		return l.LSMGO
	case CylOil:
		return l.CylOil
	case MEOil:
		return l.MEOil
	case AEOil:
		return l.AEOil
	case VOLOil:
		return l.VOLOil
	}
	return decimal.Zero
}

// Set returns a copy of l with s set to v.
func (l Levels) Set(s Substance, v decimal.Decimal) Levels {
	switch s {
	case LSIFO:
		l.LSIFO = v
	case LSMGO:
		l.LSMGO = v
	case CylOil:
		l.CylOil = v
	case MEOil:
		l.MEOil = v
	case AEOil:
		l.AEOil = v
	case VOLOil:
		l.VOLOil = v
	}
	return l
}

func (l Levels) Add(o Levels) Levels { return l.zip(o, decimal.Decimal.Add) }
func (l Levels) Sub(o Levels) Levels { return l.zip(o, decimal.Decimal.Sub) }

func (l Levels) zip(o Levels, op func(decimal.Decimal, decimal.Decimal) decimal.Decimal) Levels {
	var out Levels
	for _, s := range Substances {
		out = out.Set(s, op(l.Get(s), o.Get(s)))
	}
	return out
}

// Equal compares numerically, so 1.0 equals 1.
func (l Levels) Equal(o Levels) bool {
	for _, s := range Substances {
		if !l.Get(s).Equal(o.Get(s)) {
			return false
		}
	}
	return true
}

// FirstNegative returns the first substance below zero, if any.
func (l Levels) FirstNegative() (Substance, bool) {
	for _, s := range Substances {
		if l.Get(s).IsNegative() {
			return s, true
		}
	}
	return "", false
}

// =============================================================================
// BUNKER RECORD - ROB snapshot tied 1:1 to a report
// =============================================================================

type BunkerRecord struct {
	ID         BunkerRecordID
	VesselID   VesselID
	ReportID   ReportID
	ReportDate time.Time

	ROB      Levels
	Consumed Levels
	Supplied Levels

	CreatedAt time.Time
}

// =============================================================================
// VESSEL HEAD - Materialized pointers used for O(1) baseline lookup
// =============================================================================

// VesselHead tracks, per vessel, the most recent approved report (the
// baseline) and the most recently submitted report of any status. Zero ids
// mean "none".
type VesselHead struct {
	VesselID         VesselID
	BaselineReportID ReportID
	LatestReportID   ReportID
}
