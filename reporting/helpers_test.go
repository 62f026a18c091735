package reporting_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/warp/voyage-ledger/logging"
	"github.com/warp/voyage-ledger/reporting"
	"github.com/warp/voyage-ledger/reporting/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const (
	nordicStar reporting.VesselID = 1 // BLS 52000
	coralBay   reporting.VesselID = 2 // no BLS configured
)

type fixture struct {
	ctx     context.Context
	store   *store.Memory
	reports *reporting.ReportService
	reviews *reporting.ReviewService
	date    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()

	require.NoError(t, st.CreateVessel(ctx, &reporting.Vessel{
		ID: nordicStar, Name: "MV Nordic Star", IMO: "9321483", BLSLimit: decimal.NewFromInt(52000),
	}))
	require.NoError(t, st.CreateVessel(ctx, &reporting.Vessel{
		ID: coralBay, Name: "MV Coral Bay", IMO: "9456721",
	}))

	locks := reporting.NewVesselLocks()
	logger := logging.Nop()
	return &fixture{
		ctx:     ctx,
		store:   st,
		reports: reporting.NewReportService(st, locks, logger),
		reviews: reporting.NewReviewService(st, locks, logger),
		date:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) submit(vessel reporting.VesselID, p reporting.Payload) (*reporting.Report, error) {
	f.date = f.date.Add(24 * time.Hour)
	return f.reports.Submit(f.ctx, reporting.Submission{
		VesselID:    vessel,
		SubmittedBy: "master",
		ReportDate:  f.date,
		Payload:     p,
	})
}

func (f *fixture) mustSubmit(t *testing.T, vessel reporting.VesselID, p reporting.Payload) *reporting.Report {
	t.Helper()
	r, err := f.submit(vessel, p)
	require.NoError(t, err)
	return r
}

func (f *fixture) mustApprove(t *testing.T, id reporting.ReportID) *reporting.Report {
	t.Helper()
	r, err := f.reviews.Approve(f.ctx, id, "superintendent")
	require.NoError(t, err)
	return r
}

// submitApproved submits and approves in one step.
func (f *fixture) submitApproved(t *testing.T, vessel reporting.VesselID, p reporting.Payload) *reporting.Report {
	t.Helper()
	return f.mustApprove(t, f.mustSubmit(t, vessel, p).ID)
}

func (f *fixture) record(t *testing.T, id reporting.ReportID) *reporting.BunkerRecord {
	t.Helper()
	rec, err := f.reports.BunkerRecordForReport(f.ctx, id)
	require.NoError(t, err)
	return rec
}

func (f *fixture) voyage(t *testing.T, id reporting.VoyageID) *reporting.Voyage {
	t.Helper()
	v, err := f.store.GetVoyage(f.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, v)
	return v
}

func (f *fixture) activeVoyages(t *testing.T, vessel reporting.VesselID) []reporting.Voyage {
	t.Helper()
	vs, err := f.store.ListVoyages(f.ctx, reporting.VoyageFilter{VesselID: vessel, ActiveOnly: true})
	require.NoError(t, err)
	return vs
}

func (f *fixture) auditActions(t *testing.T, filter reporting.AuditFilter) []reporting.AuditAction {
	t.Helper()
	entries, err := f.reports.Audit(f.ctx, filter)
	require.NoError(t, err)
	out := make([]reporting.AuditAction, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func burnLSIFO(me string) reporting.BunkerInput {
	return reporting.BunkerInput{
		Consumption: reporting.Consumption{LSIFO: reporting.FuelBurn{ME: dec(me)}},
	}
}

// departure is a 1000 nm loaded voyage with a 50 nm harbour leg.
func departure(voyageNumber string) *reporting.DeparturePayload {
	return &reporting.DeparturePayload{
		VoyageNumber:    voyageNumber,
		DeparturePort:   "Rotterdam",
		DestinationPort: "Gothenburg",
		CargoStatus:     reporting.CargoLoaded,
		CargoType:       "Steel coils",
		CargoQuantity:   dec("30000"),
		VoyageDistance:  dec("1000"),
		HarbourDistance: dec("50"),
		Position:        reporting.Position{Latitude: 51.95, Longitude: 4.05},
		Bunkers:         burnLSIFO("10"),
	}
}

// firstDeparture adds initial ROB for a vessel without bunker history.
func firstDeparture(voyageNumber, initialLSIFO string) *reporting.DeparturePayload {
	p := departure(voyageNumber)
	p.InitialROB = &reporting.Levels{LSIFO: dec(initialLSIFO), LSMGO: dec("120")}
	return p
}

func noon(state reporting.PassageState, distance, meLSIFO string) *reporting.NoonPayload {
	return &reporting.NoonPayload{
		PassageState:            state,
		DistanceSinceLastReport: dec(distance),
		AverageSpeed:            dec("12"),
		Bunkers:                 burnLSIFO(meLSIFO),
	}
}

func arrival(distance string) *reporting.ArrivalPayload {
	return &reporting.ArrivalPayload{
		ArrivalPort:             "Gothenburg",
		DistanceSinceLastReport: dec(distance),
		Bunkers:                 burnLSIFO("3"),
	}
}

func berth(op reporting.CargoOperation, qty string) *reporting.BerthPayload {
	p := &reporting.BerthPayload{BerthName: "Skandia 712", CargoOperation: op}
	switch op {
	case reporting.CargoOpLoad:
		p.CargoLoaded = dec(qty)
	case reporting.CargoOpUnload:
		p.CargoUnloaded = dec(qty)
	}
	return p
}

// assertLedgerConserved checks rob[n] = rob[n-1] - consumed[n] + supplied[n]
// along the vessel's chain of non-rejected reports.
func assertLedgerConserved(t *testing.T, f *fixture, vessel reporting.VesselID) {
	t.Helper()
	reports, err := f.store.ListReports(f.ctx, reporting.ReportFilter{VesselID: vessel})
	require.NoError(t, err)

	var prev *reporting.BunkerRecord
	for _, r := range reports {
		if r.Status == reporting.StatusRejected {
			continue
		}
		rec := f.record(t, r.ID)
		if prev != nil {
			want := reporting.ComputeNextROB(prev.ROB, rec.Consumed, rec.Supplied)
			require.True(t, want.Equal(rec.ROB), "report %d: want %+v, got %+v", r.ID, want, rec.ROB)
		}
		prev = rec
	}
}
