package reporting

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// AUDIT LOG - Append-only record of who did what when
// =============================================================================

type AuditAction string

const (
	AuditReportSubmitted    AuditAction = "report_submitted"
	AuditReportApproved     AuditAction = "report_approved"
	AuditReportRejected     AuditAction = "report_rejected"
	AuditVoyageOpened       AuditAction = "voyage_opened"
	AuditVoyageClosed       AuditAction = "voyage_closed"
	AuditVoyageRolledBack   AuditAction = "voyage_rolled_back"
	AuditBunkerRecordVoided AuditAction = "bunker_record_voided"
)

type AuditEntry struct {
	ID        string
	Timestamp time.Time
	ActorID   string
	Action    AuditAction
	VesselID  VesselID
	ReportID  ReportID
	VoyageID  VoyageID
	Detail    string
}

// AuditFilter narrows ListAudit. Results are ordered oldest first.
type AuditFilter struct {
	VesselID VesselID
	ReportID ReportID
}

func (f AuditFilter) Match(e AuditEntry) bool {
	return (f.VesselID == 0 || e.VesselID == f.VesselID) &&
		(f.ReportID == 0 || e.ReportID == f.ReportID)
}

func newAuditEntry(at time.Time, actor string, action AuditAction, r *Report, detail string) AuditEntry {
	return AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: at,
		ActorID:   actor,
		Action:    action,
		VesselID:  r.VesselID,
		ReportID:  r.ID,
		VoyageID:  r.VoyageID,
		Detail:    detail,
	}
}
