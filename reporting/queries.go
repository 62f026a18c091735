package reporting

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// READ SIDE - Lookups used by the API; no locks, no transactions
// =============================================================================

func (rs *ReportService) GetVessel(ctx context.Context, id VesselID) (*Vessel, error) {
	v, err := rs.Store.GetVessel(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get vessel: %w", err)
	}
	if v == nil {
		return nil, &NotFoundError{Kind: "vessel", ID: int64(id)}
	}
	return v, nil
}

func (rs *ReportService) ListVessels(ctx context.Context) ([]Vessel, error) {
	return rs.Store.ListVessels(ctx)
}

func (rs *ReportService) ListVoyages(ctx context.Context, filter VoyageFilter) ([]Voyage, error) {
	return rs.Store.ListVoyages(ctx, filter)
}

func (rs *ReportService) GetReport(ctx context.Context, id ReportID) (*Report, error) {
	r, err := rs.Store.GetReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if r == nil {
		return nil, &NotFoundError{Kind: "report", ID: int64(id)}
	}
	return r, nil
}

func (rs *ReportService) ListReports(ctx context.Context, filter ReportFilter) ([]Report, error) {
	return rs.Store.ListReports(ctx, filter)
}

// OverdueReports returns pending reports submitted more than maxAge ago,
// oldest first.
func (rs *ReportService) OverdueReports(ctx context.Context, maxAge time.Duration) ([]Report, error) {
	pending, err := rs.Store.ListReports(ctx, ReportFilter{Status: StatusPending})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending reports: %w", err)
	}
	cutoff := rs.Now().UTC().Add(-maxAge)
	var out []Report
	for _, r := range pending {
		if r.SubmittedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}

// BunkerRecordForReport returns the ROB snapshot created with the report.
func (rs *ReportService) BunkerRecordForReport(ctx context.Context, id ReportID) (*BunkerRecord, error) {
	r, err := rs.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	rec, err := rs.Ledger.FindByReport(ctx, r.ID, r.VesselID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bunker record: %w", err)
	}
	if rec == nil {
		return nil, &NotFoundError{Kind: "bunker record for report", ID: int64(id)}
	}
	return rec, nil
}

// BunkerHistory returns the vessel's ledger, oldest first.
func (rs *ReportService) BunkerHistory(ctx context.Context, vesselID VesselID) ([]BunkerRecord, error) {
	if _, err := rs.GetVessel(ctx, vesselID); err != nil {
		return nil, err
	}
	return rs.Ledger.History(ctx, vesselID)
}

// HasBunkerRecords reports whether the vessel already has approved ROB
// history, i.e. whether a departure form still needs initial ROB.
func (rs *ReportService) HasBunkerRecords(ctx context.Context, vesselID VesselID) (bool, error) {
	if _, err := rs.GetVessel(ctx, vesselID); err != nil {
		return false, err
	}
	return rs.Ledger.HasApprovedRecords(ctx, vesselID)
}

func (rs *ReportService) Audit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error) {
	return rs.Store.ListAudit(ctx, filter)
}

// VesselStatus summarizes where a vessel stands in its report chain.
type VesselStatus struct {
	Vessel       Vessel
	ActiveVoyage *Voyage
	Baseline     *Report
	Pending      *Report
	NextTypes    []ReportType
}

// Status returns the vessel's current baseline, any pending report and the
// report types that may be submitted once nothing is pending.
func (rs *ReportService) Status(ctx context.Context, vesselID VesselID) (*VesselStatus, error) {
	v, err := rs.GetVessel(ctx, vesselID)
	if err != nil {
		return nil, err
	}
	head, err := rs.Store.GetHead(ctx, vesselID)
	if err != nil {
		return nil, fmt.Errorf("failed to get vessel head: %w", err)
	}

	st := &VesselStatus{Vessel: *v}
	if st.ActiveVoyage, err = rs.Store.ActiveVoyage(ctx, vesselID); err != nil {
		return nil, fmt.Errorf("failed to get active voyage: %w", err)
	}
	if head.BaselineReportID != 0 {
		if st.Baseline, err = rs.Store.GetReport(ctx, head.BaselineReportID); err != nil {
			return nil, fmt.Errorf("failed to get baseline report: %w", err)
		}
	}
	if head.LatestReportID != 0 {
		latest, err := rs.Store.GetReport(ctx, head.LatestReportID)
		if err != nil {
			return nil, fmt.Errorf("failed to get latest report: %w", err)
		}
		if latest != nil && latest.Status == StatusPending {
			st.Pending = latest
		}
	}
	st.NextTypes = LegalSuccessors(st.Baseline)
	return st, nil
}
