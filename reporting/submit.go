/*
submit.go - Report state machine

PURPOSE:
  Accepts a new report for a vessel, decides whether it may follow the
  vessel's approved history, and materializes everything derived from it:
  the report row, voyage open/close/cargo changes, the bunker snapshot, the
  vessel head and audit entries.

CHECK ORDER:
  1. Vessel exists                         -> NotFound
  2. Submission fields valid               -> InvalidInput
  3. Admission gate (latest is pending)    -> Conflict
  4. Baseline report readable              -> DataIntegrity
  5. Transition legal                      -> InvalidState / InvalidTransition
  6. Baseline bunker record present        -> DataIntegrity

  The gate is vessel-wide: a pending report on any voyage blocks every
  submission for the vessel, including a new departure.

DERIVED FIELDS (by type):
  departure: seq 1, traveled = harbour, dtg = max(0, voyage - harbour)
  noon:      seq = baseline+1, traveled = sinceLast (0 for sosp),
             dtg = max(0, baseline.dtg - sinceLast)
  arrival:   as noon
  berth:     seq = baseline+1, traveled 0, dtg = baseline.dtg, cargo applied

ATOMICITY:
  Everything runs under the vessel's lock and inside one WithTx, so a failed
  submission leaves no partial writes and two concurrent submissions for
  the same vessel cannot both pass the admission gate.

SEE ALSO:
  - transition.go: Transition table
  - bunker.go: ROB computation
  - review.go: What happens after submission
*/
package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/voyage-ledger/logging"
)

// Submission is a new report as handed over by the API layer.
type Submission struct {
	VesselID    VesselID
	SubmittedBy string
	ReportDate  time.Time
	Payload     Payload
}

// ReportService runs the report state machine and the read side used by
// the API.
type ReportService struct {
	Store  TxStore
	Ledger *BunkerLedger
	Locks  *VesselLocks
	Logger logging.Logger
	Now    func() time.Time
}

// NewReportService wires a state machine over store. locks should be shared
// with the ReviewService operating on the same store.
func NewReportService(store TxStore, locks *VesselLocks, logger logging.Logger) *ReportService {
	return &ReportService{
		Store:  store,
		Ledger: NewBunkerLedger(store, logger),
		Locks:  locks,
		Logger: logger,
		Now:    time.Now,
	}
}

// Submit validates and records a report. The returned report is pending.
func (rs *ReportService) Submit(ctx context.Context, sub Submission) (*Report, error) {
	unlock := rs.Locks.Lock(sub.VesselID)
	defer unlock()

	var created *Report
	err := rs.Store.WithTx(ctx, func(tx Store) error {
		r, err := rs.submit(ctx, tx, sub)
		if err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		rs.logFailure(ctx, "report submission failed", err, "vessel_id", sub.VesselID)
		return nil, err
	}

	rs.Logger.Info(ctx, "report submitted",
		"report_id", created.ID, "vessel_id", created.VesselID, "voyage_id", created.VoyageID,
		"type", string(created.Type), "sequence", created.SequenceNumber)
	return created, nil
}

// logFailure logs client errors at info and everything else at error.
func (rs *ReportService) logFailure(ctx context.Context, msg string, err error, args ...any) {
	args = append(args, "error", err.Error())
	if IsClientError(err) {
		rs.Logger.Info(ctx, msg, args...)
		return
	}
	rs.Logger.Error(ctx, msg, args...)
}

// submission carries the in-flight state of one Submit call.
type submission struct {
	Submission
	tx     Store
	ledger *BunkerLedger
	now    time.Time

	vessel         *Vessel
	head           VesselHead
	baseline       *Report
	baselineRecord *BunkerRecord
	audit          []AuditEntry
}

func (rs *ReportService) submit(ctx context.Context, tx Store, sub Submission) (*Report, error) {
	s := &submission{
		Submission: sub,
		tx:         tx,
		ledger:     rs.Ledger.withStore(tx),
		now:        rs.Now().UTC(),
	}

	vessel, err := tx.GetVessel(ctx, sub.VesselID)
	if err != nil {
		return nil, fmt.Errorf("failed to get vessel: %w", err)
	}
	if vessel == nil {
		return nil, &NotFoundError{Kind: "vessel", ID: int64(sub.VesselID)}
	}
	s.vessel = vessel

	if err := validateSubmission(sub, vessel); err != nil {
		return nil, err
	}

	if s.head, err = tx.GetHead(ctx, sub.VesselID); err != nil {
		return nil, fmt.Errorf("failed to get vessel head: %w", err)
	}
	if err := s.admit(ctx); err != nil {
		return nil, err
	}
	if err := s.loadBaseline(ctx); err != nil {
		return nil, err
	}

	if err := CheckTransition(s.baseline, sub.Payload.ReportType(), passageStateOf(sub.Payload)); err != nil {
		return nil, err
	}

	if s.baseline != nil {
		rec, err := s.ledger.FindByReport(ctx, s.baseline.ID, sub.VesselID)
		if err != nil {
			return nil, fmt.Errorf("failed to get baseline bunker record: %w", err)
		}
		if rec == nil {
			return nil, &IntegrityError{
				VesselID: sub.VesselID,
				ReportID: s.baseline.ID,
				Detail:   "approved baseline report has no bunker record",
			}
		}
		s.baselineRecord = rec
	}

	var report *Report
	switch p := sub.Payload.(type) {
	case *DeparturePayload:
		report, err = s.departure(ctx, p)
	case *NoonPayload:
		report, err = s.continuation(ctx, p.DistanceSinceLastReport, p.PassageState == PassageSOSP)
	case *ArrivalPayload:
		report, err = s.continuation(ctx, p.DistanceSinceLastReport, false)
	case *BerthPayload:
		report, err = s.berth(ctx, p)
	default:
		return nil, &ValidationError{Field: "reportType", Message: "unsupported report payload"}
	}
	if err != nil {
		return nil, err
	}

	var initial *Levels
	if dep, ok := sub.Payload.(*DeparturePayload); ok && s.baselineRecord == nil {
		initial = dep.InitialROB
	}
	if _, err := s.ledger.AppendRecord(ctx, AppendEntry{
		VesselID:   report.VesselID,
		ReportID:   report.ID,
		ReportDate: report.ReportDate,
		Baseline:   s.baselineRecord,
		Input:      sub.Payload.BunkerInput(),
		InitialROB: initial,
	}); err != nil {
		return nil, err
	}

	s.head.VesselID = sub.VesselID
	s.head.LatestReportID = report.ID
	if err := tx.SaveHead(ctx, s.head); err != nil {
		return nil, fmt.Errorf("failed to save vessel head: %w", err)
	}

	s.audit = append([]AuditEntry{newAuditEntry(s.now, sub.SubmittedBy, AuditReportSubmitted, report,
		fmt.Sprintf("%s report #%d submitted", report.Type, report.SequenceNumber))}, s.audit...)
	for _, e := range s.audit {
		if err := tx.AppendAudit(ctx, e); err != nil {
			return nil, fmt.Errorf("failed to append audit entry: %w", err)
		}
	}
	return report, nil
}

// admit is the admission gate.
func (s *submission) admit(ctx context.Context) error {
	if s.head.LatestReportID == 0 {
		return nil
	}
	latest, err := s.tx.GetReport(ctx, s.head.LatestReportID)
	if err != nil {
		return fmt.Errorf("failed to get latest report: %w", err)
	}
	if latest == nil {
		return &IntegrityError{VesselID: s.VesselID, ReportID: s.head.LatestReportID, Detail: "latest report missing"}
	}
	if latest.Status != StatusPending {
		return nil
	}

	blocked := &PendingReportError{ReportID: latest.ID, Type: latest.Type}
	if v, err := s.tx.GetVoyage(ctx, latest.VoyageID); err == nil && v != nil {
		blocked.VoyageNumber = v.VoyageNumber
	}
	return blocked
}

func (s *submission) loadBaseline(ctx context.Context) error {
	if s.head.BaselineReportID == 0 {
		return nil
	}
	baseline, err := s.tx.GetReport(ctx, s.head.BaselineReportID)
	if err != nil {
		return fmt.Errorf("failed to get baseline report: %w", err)
	}
	if baseline == nil || baseline.Status != StatusApproved {
		return &IntegrityError{VesselID: s.VesselID, ReportID: s.head.BaselineReportID, Detail: "baseline report missing or not approved"}
	}
	s.baseline = baseline
	return nil
}

// baselineVoyage returns the voyage a continuation report belongs to.
func (s *submission) baselineVoyage(ctx context.Context) (*Voyage, error) {
	v, err := s.tx.GetVoyage(ctx, s.baseline.VoyageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get voyage: %w", err)
	}
	if v == nil {
		return nil, &IntegrityError{VesselID: s.VesselID, ReportID: s.baseline.ID, Detail: "baseline voyage missing"}
	}
	return v, nil
}

func (s *submission) newReport(t ReportType, voyage VoyageID, seq int) *Report {
	return &Report{
		Type:           t,
		VesselID:       s.VesselID,
		VoyageID:       voyage,
		SequenceNumber: seq,
		SubmittedBy:    s.SubmittedBy,
		SubmittedAt:    s.now,
		Status:         StatusPending,
		ReportDate:     s.ReportDate,
		Payload:        s.Payload,
	}
}

// =============================================================================
// PER-TYPE BEHAVIOR
// =============================================================================

func (s *submission) departure(ctx context.Context, p *DeparturePayload) (*Report, error) {
	previous, err := s.tx.ListVoyages(ctx, VoyageFilter{VesselID: s.VesselID, ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list active voyages: %w", err)
	}

	voyage := &Voyage{
		VesselID:        s.VesselID,
		VoyageNumber:    p.VoyageNumber,
		DeparturePort:   p.DeparturePort,
		DestinationPort: p.DestinationPort,
		CargoStatus:     p.CargoStatus,
		CargoType:       p.CargoType,
		CargoQuantity:   p.CargoQuantity,
		TotalDistance:   p.VoyageDistance,
		Active:          true,
		StartDate:       s.ReportDate,
	}
	if err := s.tx.CreateVoyage(ctx, voyage); err != nil {
		return nil, fmt.Errorf("failed to create voyage: %w", err)
	}

	report := s.newReport(ReportDeparture, voyage.ID, 1)
	report.DistanceTraveled = p.HarbourDistance
	report.DistanceToGo = InitialDistanceToGo(p.VoyageDistance, p.HarbourDistance)
	if err := s.tx.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	voyage.StartingReportID = report.ID
	if err := s.tx.UpdateVoyage(ctx, *voyage); err != nil {
		return nil, fmt.Errorf("failed to update voyage: %w", err)
	}

	for _, old := range previous {
		end := s.ReportDate
		endingID := report.ID
		old.Active = false
		old.EndDate = &end
		old.EndingReportID = &endingID
		if err := s.tx.UpdateVoyage(ctx, old); err != nil {
			return nil, fmt.Errorf("failed to close voyage %d: %w", old.ID, err)
		}
		closed := newAuditEntry(s.now, s.SubmittedBy, AuditVoyageClosed, report,
			fmt.Sprintf("voyage %s closed by departure of %s", old.VoyageNumber, voyage.VoyageNumber))
		closed.VoyageID = old.ID
		s.audit = append(s.audit, closed)
	}

	s.audit = append(s.audit, newAuditEntry(s.now, s.SubmittedBy, AuditVoyageOpened, report,
		fmt.Sprintf("voyage %s opened: %s -> %s", voyage.VoyageNumber, voyage.DeparturePort, voyage.DestinationPort)))
	return report, nil
}

// continuation handles noon and arrival reports.
func (s *submission) continuation(ctx context.Context, sinceLast decimal.Decimal, stopped bool) (*Report, error) {
	voyage, err := s.baselineVoyage(ctx)
	if err != nil {
		return nil, err
	}

	report := s.newReport(s.Payload.ReportType(), voyage.ID, s.baseline.SequenceNumber+1)
	report.DistanceToGo = UpdatedDistanceToGo(s.baseline.DistanceToGo, sinceLast)
	if !stopped {
		report.DistanceTraveled = sinceLast
	}
	if err := s.tx.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	return report, nil
}

// berth changes cargo on the baseline report's voyage. That voyage is
// normally the active one, but after a rejected departure has rolled back
// it stays closed, and the berth report still attaches to it.
func (s *submission) berth(ctx context.Context, p *BerthPayload) (*Report, error) {
	voyage, err := s.baselineVoyage(ctx)
	if err != nil {
		return nil, err
	}

	cargo := p.ApplyCargo(voyage.CargoQuantity)
	if p.CargoOperation == CargoOpLoad {
		if err := withinBLS("cargoLoaded", cargo, s.vessel); err != nil {
			return nil, err
		}
	}

	report := s.newReport(ReportBerth, voyage.ID, s.baseline.SequenceNumber+1)
	report.DistanceToGo = s.baseline.DistanceToGo
	if err := s.tx.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	if !cargo.Equal(voyage.CargoQuantity) {
		voyage.CargoQuantity = cargo
		if err := s.tx.UpdateVoyage(ctx, *voyage); err != nil {
			return nil, fmt.Errorf("failed to update voyage cargo: %w", err)
		}
	}
	return report, nil
}

func passageStateOf(p Payload) PassageState {
	if n, ok := p.(*NoonPayload); ok {
		return n.PassageState
	}
	return ""
}
