/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the reporting model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Fleet:     VesselDTO, VoyageDTO, VesselStatusDTO
  Reports:   SubmitReportRequest, ReportDTO
  Review:    ApproveRequest, RejectRequest
  Ledger:    BunkerRecordDTO, LevelsDTO
  Audit:     AuditEntryDTO
  Scenarios: ScenarioDTO, LoadScenarioRequest

NUMBERS:
  Quantities go out as JSON numbers (float64). The engine keeps them as
  decimals; the conversion only happens here. reportData echoes the
  submitted payload with decimals as strings, so it round-trips exactly.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/report.go: reportData JSON schema
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/voyage-ledger/factory"
	"github.com/warp/voyage-ledger/reporting"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// SubmitReportRequest is the body of POST /api/reports.
type SubmitReportRequest struct {
	VesselID    int64           `json:"vesselId"`
	SubmittedBy string          `json:"submittedBy"`
	ReportType  string          `json:"reportType"`
	ReportDate  string          `json:"reportDate"` // RFC3339 or YYYY-MM-DD
	ReportData  json.RawMessage `json:"reportData"`
}

type ApproveRequest struct {
	Reviewer string `json:"reviewer"`
}

type RejectRequest struct {
	Reviewer        string `json:"reviewer"`
	RejectionReason string `json:"rejectionReason"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type VesselDTO struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	IMO      string  `json:"imoNumber"`
	Flag     string  `json:"flag,omitempty"`
	Captain  string  `json:"captain,omitempty"`
	BLSLimit float64 `json:"blsLimit"`
}

type VoyageDTO struct {
	ID               int64   `json:"id"`
	VesselID         int64   `json:"vesselId"`
	VoyageNumber     string  `json:"voyageNumber"`
	DeparturePort    string  `json:"departurePort"`
	DestinationPort  string  `json:"destinationPort"`
	CargoStatus      string  `json:"cargoStatus"`
	CargoType        string  `json:"cargoType,omitempty"`
	CargoQuantity    float64 `json:"cargoQuantity"`
	TotalDistance    float64 `json:"totalDistance"`
	Active           bool    `json:"active"`
	StartDate        string  `json:"startDate"`
	EndDate          *string `json:"endDate,omitempty"`
	StartingReportID int64   `json:"startingReportId"`
	EndingReportID   *int64  `json:"endingReportId,omitempty"`
}

type ReportDTO struct {
	ID               int64   `json:"id"`
	ReportType       string  `json:"reportType"`
	VesselID         int64   `json:"vesselId"`
	VoyageID         int64   `json:"voyageId"`
	SequenceNumber   int     `json:"sequenceNumber"`
	SubmittedBy      string  `json:"submittedBy"`
	SubmittedAt      string  `json:"submittedAt"`
	Status           string  `json:"status"`
	ReviewedBy       *string `json:"reviewedBy,omitempty"`
	ReviewedAt       *string `json:"reviewedAt,omitempty"`
	RejectionReason  *string `json:"rejectionReason,omitempty"`
	ReportDate       string  `json:"reportDate"`
	PassageState     string  `json:"passageState,omitempty"`
	DistanceTraveled float64 `json:"distanceTraveled"`
	DistanceToGo     float64 `json:"distanceToGo"`
	ReportData       any     `json:"reportData"`
}

// LevelsDTO is one value per tracked substance.
type LevelsDTO struct {
	LSIFO  float64 `json:"lsifo"`
	LSMGO  float64 `json:"lsmgo"`
	CylOil float64 `json:"cylOil"`
	MEOil  float64 `json:"meOil"`
	AEOil  float64 `json:"aeOil"`
	VOLOil float64 `json:"volOil"`
}

type BunkerRecordDTO struct {
	ID         int64     `json:"id"`
	VesselID   int64     `json:"vesselId"`
	ReportID   int64     `json:"reportId"`
	ReportDate string    `json:"reportDate"`
	ROB        LevelsDTO `json:"rob"`
	Consumed   LevelsDTO `json:"consumed"`
	Supplied   LevelsDTO `json:"supplied"`
	CreatedAt  string    `json:"createdAt"`
}

type AuditEntryDTO struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actorId"`
	Action    string `json:"action"`
	VesselID  int64  `json:"vesselId"`
	ReportID  int64  `json:"reportId,omitempty"`
	VoyageID  int64  `json:"voyageId,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// VesselStatusDTO tells a submission form what it may offer next.
type VesselStatusDTO struct {
	Vessel          VesselDTO  `json:"vessel"`
	ActiveVoyage    *VoyageDTO `json:"activeVoyage,omitempty"`
	BaselineReport  *ReportDTO `json:"baselineReport,omitempty"`
	PendingReport   *ReportDTO `json:"pendingReport,omitempty"`
	NextReportTypes []string   `json:"nextReportTypes"`
}

// OverdueReportsDTO is the body of GET /api/reports/overdue. The last
// check fields are empty when no scheduler is running.
type OverdueReportsDTO struct {
	MaxAge           string      `json:"maxAge"`
	Reports          []ReportDTO `json:"reports"`
	LastCheck        *string     `json:"lastCheck,omitempty"`
	LastCheckOverdue int         `json:"lastCheckOverdue"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toVesselDTO(v reporting.Vessel) VesselDTO {
	return VesselDTO{
		ID:       int64(v.ID),
		Name:     v.Name,
		IMO:      v.IMO,
		Flag:     v.Flag,
		Captain:  v.Captain,
		BLSLimit: v.BLSLimit.InexactFloat64(),
	}
}

func toVoyageDTO(v reporting.Voyage) VoyageDTO {
	dto := VoyageDTO{
		ID:               int64(v.ID),
		VesselID:         int64(v.VesselID),
		VoyageNumber:     v.VoyageNumber,
		DeparturePort:    v.DeparturePort,
		DestinationPort:  v.DestinationPort,
		CargoStatus:      string(v.CargoStatus),
		CargoType:        v.CargoType,
		CargoQuantity:    v.CargoQuantity.InexactFloat64(),
		TotalDistance:    v.TotalDistance.InexactFloat64(),
		Active:           v.Active,
		StartDate:        formatTime(v.StartDate),
		EndDate:          formatTimePtr(v.EndDate),
		StartingReportID: int64(v.StartingReportID),
	}
	if v.EndingReportID != nil {
		id := int64(*v.EndingReportID)
		dto.EndingReportID = &id
	}
	return dto
}

func toReportDTO(r reporting.Report, f *factory.ReportFactory) ReportDTO {
	return ReportDTO{
		ID:               int64(r.ID),
		ReportType:       string(r.Type),
		VesselID:         int64(r.VesselID),
		VoyageID:         int64(r.VoyageID),
		SequenceNumber:   r.SequenceNumber,
		SubmittedBy:      r.SubmittedBy,
		SubmittedAt:      formatTime(r.SubmittedAt),
		Status:           string(r.Status),
		ReviewedBy:       r.ReviewedBy,
		ReviewedAt:       formatTimePtr(r.ReviewedAt),
		RejectionReason:  r.RejectionReason,
		ReportDate:       formatTime(r.ReportDate),
		PassageState:     string(r.PassageState()),
		DistanceTraveled: r.DistanceTraveled.InexactFloat64(),
		DistanceToGo:     r.DistanceToGo.InexactFloat64(),
		ReportData:       f.Encode(r.Payload),
	}
}

func toLevelsDTO(l reporting.Levels) LevelsDTO {
	f := decimal.Decimal.InexactFloat64
	return LevelsDTO{
		LSIFO:  f(l.LSIFO),
		LSMGO:  f(l.LSMGO),
		CylOil: f(l.CylOil),
		MEOil:  f(l.MEOil),
		AEOil:  f(l.AEOil),
		VOLOil: f(l.VOLOil),
	}
}

func toBunkerRecordDTO(b reporting.BunkerRecord) BunkerRecordDTO {
	return BunkerRecordDTO{
		ID:         int64(b.ID),
		VesselID:   int64(b.VesselID),
		ReportID:   int64(b.ReportID),
		ReportDate: formatTime(b.ReportDate),
		ROB:        toLevelsDTO(b.ROB),
		Consumed:   toLevelsDTO(b.Consumed),
		Supplied:   toLevelsDTO(b.Supplied),
		CreatedAt:  formatTime(b.CreatedAt),
	}
}

func toAuditEntryDTO(e reporting.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:        e.ID,
		Timestamp: formatTime(e.Timestamp),
		ActorID:   e.ActorID,
		Action:    string(e.Action),
		VesselID:  int64(e.VesselID),
		ReportID:  int64(e.ReportID),
		VoyageID:  int64(e.VoyageID),
		Detail:    e.Detail,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// parseReportDate accepts RFC3339 timestamps and bare dates.
func parseReportDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, s)
}
