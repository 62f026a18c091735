/*
review.go - Approve/reject workflow

PURPOSE:
  Shore staff move a pending report to approved or rejected. Approval makes
  the report the vessel's baseline. Rejection leaves the baseline where it
  was, so the next submission recomputes from the last approved report.

STATE TRANSITIONS:
  pending --approve--> approved
  pending --reject---> rejected
  Reviewing anything that is not pending is a Conflict.

ROLLBACK ON REJECT:
  Only a voyage-starting departure (type departure, sequence 1, and the
  voyage's starting_report_id is this report) cascades:
    - the voyage it opened is deactivated
    - its bunker record(s) are deleted
  The voyage it closed is NOT reactivated. Rejected noon, arrival and berth
  reports cascade nothing; their bunker records stay in the collection and
  are ignored because no approved report points at them.

SEE ALSO:
  - submit.go: Creates the pending reports reviewed here
*/
package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/warp/voyage-ledger/logging"
)

type ReviewService struct {
	Store  TxStore
	Ledger *BunkerLedger
	Locks  *VesselLocks
	Logger logging.Logger
	Now    func() time.Time
}

func NewReviewService(store TxStore, locks *VesselLocks, logger logging.Logger) *ReviewService {
	return &ReviewService{
		Store:  store,
		Ledger: NewBunkerLedger(store, logger),
		Locks:  locks,
		Logger: logger,
		Now:    time.Now,
	}
}

// Approve marks a pending report approved and makes it the vessel's baseline.
func (rv *ReviewService) Approve(ctx context.Context, id ReportID, reviewer string) (*Report, error) {
	if strings.TrimSpace(reviewer) == "" {
		return nil, &ValidationError{Field: "reviewer", Message: "is required"}
	}

	report, err := rv.review(ctx, id, func(tx Store, r *Report, now time.Time) error {
		r.Status = StatusApproved
		r.ReviewedBy = &reviewer
		r.ReviewedAt = &now
		r.RejectionReason = nil
		if err := tx.UpdateReportReview(ctx, *r); err != nil {
			return fmt.Errorf("failed to update report: %w", err)
		}

		head, err := tx.GetHead(ctx, r.VesselID)
		if err != nil {
			return fmt.Errorf("failed to get vessel head: %w", err)
		}
		head.VesselID = r.VesselID
		if r.ID > head.BaselineReportID {
			head.BaselineReportID = r.ID
		}
		if head.LatestReportID == 0 {
			head.LatestReportID = r.ID
		}
		if err := tx.SaveHead(ctx, head); err != nil {
			return fmt.Errorf("failed to save vessel head: %w", err)
		}

		return tx.AppendAudit(ctx, newAuditEntry(now, reviewer, AuditReportApproved, r,
			fmt.Sprintf("%s report #%d approved", r.Type, r.SequenceNumber)))
	})
	if err != nil {
		rv.logFailure(ctx, "report approval failed", err, "report_id", id)
		return nil, err
	}

	rv.Logger.Info(ctx, "report approved",
		"report_id", report.ID, "vessel_id", report.VesselID, "reviewer", reviewer)
	return report, nil
}

// Reject marks a pending report rejected. Rejecting a voyage-starting
// departure also rolls back the voyage activation and its bunker record.
func (rv *ReviewService) Reject(ctx context.Context, id ReportID, reviewer, reason string) (*Report, error) {
	if strings.TrimSpace(reviewer) == "" {
		return nil, &ValidationError{Field: "reviewer", Message: "is required"}
	}
	if strings.TrimSpace(reason) == "" {
		return nil, &ValidationError{Field: "rejectionReason", Message: "is required"}
	}

	report, err := rv.review(ctx, id, func(tx Store, r *Report, now time.Time) error {
		r.Status = StatusRejected
		r.ReviewedBy = &reviewer
		r.ReviewedAt = &now
		r.RejectionReason = &reason
		if err := tx.UpdateReportReview(ctx, *r); err != nil {
			return fmt.Errorf("failed to update report: %w", err)
		}
		if err := tx.AppendAudit(ctx, newAuditEntry(now, reviewer, AuditReportRejected, r, reason)); err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}

		if r.Type != ReportDeparture {
			return nil
		}
		voyage, err := tx.GetVoyage(ctx, r.VoyageID)
		if err != nil {
			return fmt.Errorf("failed to get voyage: %w", err)
		}
		if !r.StartsVoyage(voyage) {
			return nil
		}
		return rv.rollbackDeparture(ctx, tx, r, voyage, reviewer, now)
	})
	if err != nil {
		rv.logFailure(ctx, "report rejection failed", err, "report_id", id)
		return nil, err
	}

	rv.Logger.Info(ctx, "report rejected",
		"report_id", report.ID, "vessel_id", report.VesselID, "reviewer", reviewer)
	return report, nil
}

// rollbackDeparture undoes what a voyage-starting departure created.
func (rv *ReviewService) rollbackDeparture(ctx context.Context, tx Store, r *Report, voyage *Voyage, actor string, now time.Time) error {
	voyage.Active = false
	if err := tx.UpdateVoyage(ctx, *voyage); err != nil {
		return fmt.Errorf("failed to deactivate voyage %d: %w", voyage.ID, err)
	}

	n, err := rv.Ledger.withStore(tx).Void(ctx, r.ID)
	if err != nil {
		return err
	}

	if err := tx.AppendAudit(ctx, newAuditEntry(now, actor, AuditVoyageRolledBack, r,
		fmt.Sprintf("voyage %s deactivated", voyage.VoyageNumber))); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	if err := tx.AppendAudit(ctx, newAuditEntry(now, actor, AuditBunkerRecordVoided, r,
		fmt.Sprintf("%d bunker record(s) deleted", n))); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	rv.Logger.Info(ctx, "voyage rolled back",
		"voyage_id", voyage.ID, "report_id", r.ID, "bunker_records_deleted", n)
	return nil
}

// review loads the report, takes the vessel lock and applies fn to the
// re-read report inside a transaction, provided it is still pending.
func (rv *ReviewService) review(ctx context.Context, id ReportID, fn func(tx Store, r *Report, now time.Time) error) (*Report, error) {
	r, err := rv.Store.GetReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if r == nil {
		return nil, &NotFoundError{Kind: "report", ID: int64(id)}
	}

	unlock := rv.Locks.Lock(r.VesselID)
	defer unlock()

	var out *Report
	err = rv.Store.WithTx(ctx, func(tx Store) error {
		current, err := tx.GetReport(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get report: %w", err)
		}
		if current == nil {
			return &NotFoundError{Kind: "report", ID: int64(id)}
		}
		if current.Status != StatusPending {
			return &NotPendingError{ReportID: id, Status: current.Status}
		}
		if err := fn(tx, current, rv.Now().UTC()); err != nil {
			return err
		}
		out = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (rv *ReviewService) logFailure(ctx context.Context, msg string, err error, args ...any) {
	args = append(args, "error", err.Error())
	if IsClientError(err) {
		rv.Logger.Info(ctx, msg, args...)
		return
	}
	rv.Logger.Error(ctx, msg, args...)
}
