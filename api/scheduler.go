/*
scheduler.go - Overdue review scheduler

PURPOSE:
  Periodically looks for reports that have been waiting for shore review
  longer than MaxAge. A pending report blocks every further submission for
  its vessel, so a forgotten review stalls the vessel's report chain.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each check lists pending reports older than MaxAge
  - Logs one warning per overdue report and a summary per run
  - Remembers the last run; GET /api/reports/overdue reports it

CONFIGURATION:
  - CheckInterval: How often to check (config ReviewInterval, 0 disables)
  - MaxAge: Pending age at which a report is overdue (config ReviewMaxAge)

USAGE:
  scheduler := NewReviewScheduler(handler.Reports, logger)
  scheduler.Start(ctx)
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ListOverdueReports endpoint (same query, on demand)
  - reporting/queries.go: OverdueReports
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/voyage-ledger/logging"
	"github.com/warp/voyage-ledger/reporting"
)

// ReviewScheduler flags reports that have been pending too long.
type ReviewScheduler struct {
	Reports       *reporting.ReportService
	Logger        logging.Logger
	CheckInterval time.Duration
	MaxAge        time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	statsMu     sync.Mutex
	lastRun     time.Time
	lastOverdue int
}

// NewReviewScheduler creates a new scheduler.
func NewReviewScheduler(reports *reporting.ReportService, logger logging.Logger) *ReviewScheduler {
	return &ReviewScheduler{
		Reports:       reports,
		Logger:        logger,
		CheckInterval: 15 * time.Minute,
		MaxAge:        24 * time.Hour,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (rs *ReviewScheduler) Start(ctx context.Context) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled || rs.CheckInterval <= 0 {
		rs.Logger.Info(ctx, "review scheduler disabled")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run(ctx)

	rs.Logger.Info(ctx, "review scheduler started",
		"interval", rs.CheckInterval.String(), "max_age", rs.MaxAge.String())
}

// Stop stops the scheduler and waits for a running check to finish.
func (rs *ReviewScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.Logger.Info(context.Background(), "review scheduler stopped")
	}
}

func (rs *ReviewScheduler) run(ctx context.Context) {
	defer rs.wg.Done()

	// Run immediately on start
	rs.check(ctx)

	for {
		select {
		case <-rs.ticker.C:
			rs.check(ctx)
		case <-rs.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (rs *ReviewScheduler) check(ctx context.Context) []reporting.Report {
	overdue, err := rs.Reports.OverdueReports(ctx, rs.MaxAge)
	if err != nil {
		rs.Logger.Error(ctx, "overdue review check failed", "error", err.Error())
		return nil
	}

	for _, r := range overdue {
		rs.Logger.Warn(ctx, "report awaiting review",
			"report_id", r.ID, "vessel_id", r.VesselID, "type", string(r.Type),
			"submitted_by", r.SubmittedBy, "pending_for", time.Since(r.SubmittedAt).Round(time.Minute).String())
	}

	rs.statsMu.Lock()
	rs.lastRun = time.Now()
	rs.lastOverdue = len(overdue)
	rs.statsMu.Unlock()

	rs.Logger.Debug(ctx, "overdue review check complete", "overdue", len(overdue))
	return overdue
}

// RunNow triggers an immediate check (for testing/admin).
func (rs *ReviewScheduler) RunNow(ctx context.Context) []reporting.Report {
	return rs.check(ctx)
}

// LastRun returns when the last check ran and how many reports it flagged.
func (rs *ReviewScheduler) LastRun() (time.Time, int) {
	rs.statsMu.Lock()
	defer rs.statsMu.Unlock()
	return rs.lastRun, rs.lastOverdue
}
