/*
bunker.go - Per-vessel fuel and lube-oil remaining-on-board ledger

PURPOSE:
  Every report carries the consumption and supply since the previous
  report. The bunker ledger turns that into a ROB snapshot (BunkerRecord)
  tied 1:1 to the report, computed from the snapshot of the BASELINE report.

LEDGER RULE:
  rob[n] = rob[n-1] - consumed[n] + supplied[n]     (per substance)
  rob[0] = initialRob - consumed[0] + supplied[0]   (vessel's first record)

  No clamping: a negative ROB is stored as computed. Whether that should be
  rejected is an open question, so the permissive behavior is kept and a
  warning is logged.

CHAINING:
  The state machine chains from FindByReport(baseline.ID), never from
  FindLatest. Records belonging to rejected continuation reports stay in the
  collection but are skipped, because no approved report points at them.

DEGRADED PATH:
  With neither a baseline record nor initial ROB, AppendRecord falls back to
  all-zero levels and logs a warning instead of failing.

SEE ALSO:
  - submit.go: Calls AppendRecord for every report type
  - review.go: Deletes the record of a rejected voyage-starting departure
*/
package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/voyage-ledger/logging"
)

// =============================================================================
// PURE COMPUTATION
// =============================================================================

// ComputeNextROB applies one report's deltas to the previous levels.
func ComputeNextROB(previous, consumed, supplied Levels) Levels {
	return previous.Sub(consumed).Add(supplied)
}

// =============================================================================
// BUNKER LEDGER
// =============================================================================

type BunkerLedger struct {
	Store  Store
	Logger logging.Logger
	Now    func() time.Time
}

func NewBunkerLedger(store Store, logger logging.Logger) *BunkerLedger {
	return &BunkerLedger{Store: store, Logger: logger, Now: time.Now}
}

// withStore returns a ledger bound to s, typically a transaction view.
func (l *BunkerLedger) withStore(s Store) *BunkerLedger {
	cp := *l
	cp.Store = s
	return &cp
}

// AppendEntry is everything needed to materialize one snapshot.
type AppendEntry struct {
	VesselID   VesselID
	ReportID   ReportID
	ReportDate time.Time
	Baseline   *BunkerRecord
	Input      BunkerInput
	InitialROB *Levels
}

// AppendRecord computes and persists the snapshot for a report.
func (l *BunkerLedger) AppendRecord(ctx context.Context, e AppendEntry) (BunkerRecord, error) {
	var (
		previous Levels
		consumed = e.Input.Consumption.Totals()
		supplied = e.Input.Supply
	)

	switch {
	case e.Baseline != nil:
		previous = e.Baseline.ROB
	case e.InitialROB != nil:
		previous = *e.InitialROB
	default:
		l.Logger.Warn(ctx, "no baseline bunker record or initial ROB; falling back to zero levels",
			"vessel_id", e.VesselID, "report_id", e.ReportID)
		consumed, supplied = Levels{}, Levels{}
	}

	record := BunkerRecord{
		VesselID:   e.VesselID,
		ReportID:   e.ReportID,
		ReportDate: e.ReportDate,
		ROB:        ComputeNextROB(previous, consumed, supplied),
		Consumed:   consumed,
		Supplied:   supplied,
		CreatedAt:  l.Now().UTC(),
	}

	if s, neg := record.ROB.FirstNegative(); neg {
		l.Logger.Warn(ctx, "bunker ROB below zero",
			"vessel_id", e.VesselID, "report_id", e.ReportID,
			"substance", string(s), "rob", record.ROB.Get(s).String())
	}

	if err := l.Store.AppendBunkerRecord(ctx, &record); err != nil {
		return BunkerRecord{}, fmt.Errorf("failed to append bunker record: %w", err)
	}
	return record, nil
}

// FindLatest returns the vessel's most recent record by id, or nil.
// Only a fallback; report chaining goes through FindByReport.
func (l *BunkerLedger) FindLatest(ctx context.Context, vesselID VesselID) (*BunkerRecord, error) {
	return l.Store.LatestBunkerRecord(ctx, vesselID)
}

// FindByReport returns the record for (reportID, vesselID), or nil. If
// duplicates exist the highest id wins.
func (l *BunkerLedger) FindByReport(ctx context.Context, reportID ReportID, vesselID VesselID) (*BunkerRecord, error) {
	records, err := l.Store.BunkerRecordsByReport(ctx, reportID, vesselID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	if len(records) > 1 {
		l.Logger.Warn(ctx, "duplicate bunker records for report",
			"vessel_id", vesselID, "report_id", reportID, "count", len(records))
	}
	latest := records[0]
	for _, r := range records[1:] {
		if r.ID > latest.ID {
			latest = r
		}
	}
	return &latest, nil
}

// History returns the vessel's records ordered by report id.
func (l *BunkerLedger) History(ctx context.Context, vesselID VesselID) ([]BunkerRecord, error) {
	return l.Store.ListBunkerRecords(ctx, vesselID)
}

// HasApprovedRecords reports whether any record belongs to an approved
// report of the vessel. The submission UI uses it to decide whether to ask
// for initial ROB.
func (l *BunkerLedger) HasApprovedRecords(ctx context.Context, vesselID VesselID) (bool, error) {
	return l.Store.HasApprovedBunkerRecords(ctx, vesselID)
}

// Void deletes the records of a report. Used only to roll back a rejected
// voyage-starting departure.
func (l *BunkerLedger) Void(ctx context.Context, reportID ReportID) (int, error) {
	n, err := l.Store.DeleteBunkerRecordsByReport(ctx, reportID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete bunker records for report %d: %w", reportID, err)
	}
	return n, nil
}
