package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/voyage-ledger/logging"
	"github.com/warp/voyage-ledger/reporting"
	"github.com/warp/voyage-ledger/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.CreateVessel(context.Background(), &reporting.Vessel{
		ID: 1, Name: "MV Nordic Star", IMO: "9321483", Flag: "Panama",
		BLSLimit: decimal.NewFromInt(52000),
	}))
	return st
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var reportDate = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testDeparture() *reporting.DeparturePayload {
	return &reporting.DeparturePayload{
		VoyageNumber:    "NS-2501",
		DeparturePort:   "Rotterdam",
		DestinationPort: "Gothenburg",
		CargoStatus:     reporting.CargoLoaded,
		CargoType:       "Steel coils",
		CargoQuantity:   dec("31500.5"),
		VoyageDistance:  dec("1000"),
		HarbourDistance: dec("50"),
		InitialROB:      &reporting.Levels{LSIFO: dec("500"), LSMGO: dec("120"), CylOil: dec("18")},
		Position:        reporting.Position{Latitude: 51.95, Longitude: 4.05},
		Weather:         reporting.Weather{WindForce: 4, WindDirection: "SW", SeaState: 3},
		Bunkers: reporting.BunkerInput{
			Consumption: reporting.Consumption{
				LSIFO:  reporting.FuelBurn{ME: dec("8"), AE: dec("1.5"), Boiler: dec("0.5")},
				CylOil: dec("0.2"),
			},
		},
	}
}

// =============================================================================
// ROUND TRIPS
// =============================================================================

func TestStore_VesselRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	v, err := st.GetVessel(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "MV Nordic Star", v.Name)
	assert.Equal(t, "Panama", v.Flag)
	assert.True(t, v.BLSLimit.Equal(dec("52000")))

	auto := &reporting.Vessel{Name: "MV Coral Bay"}
	require.NoError(t, st.CreateVessel(ctx, auto))
	assert.Equal(t, reporting.VesselID(2), auto.ID)

	missing, err := st.GetVessel(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_ReportRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	voyage := &reporting.Voyage{
		VesselID: 1, VoyageNumber: "NS-2501", DeparturePort: "Rotterdam", DestinationPort: "Gothenburg",
		CargoStatus: reporting.CargoLoaded, CargoQuantity: dec("31500.5"), TotalDistance: dec("1000"),
		Active: true, StartDate: reportDate,
	}
	require.NoError(t, st.CreateVoyage(ctx, voyage))

	in := &reporting.Report{
		Type: reporting.ReportDeparture, VesselID: 1, VoyageID: voyage.ID, SequenceNumber: 1,
		SubmittedBy: "master", SubmittedAt: reportDate.Add(time.Minute), Status: reporting.StatusPending,
		ReportDate: reportDate, DistanceTraveled: dec("50"), DistanceToGo: dec("950"),
		Payload: testDeparture(),
	}
	require.NoError(t, st.CreateReport(ctx, in))
	assert.Equal(t, reporting.ReportID(1), in.ID)

	got, err := st.GetReport(ctx, in.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, reporting.ReportDeparture, got.Type)
	assert.Equal(t, reporting.StatusPending, got.Status)
	assert.True(t, got.ReportDate.Equal(reportDate))
	assert.True(t, got.DistanceToGo.Equal(dec("950")))
	assert.Nil(t, got.ReviewedBy)
	assert.Nil(t, got.ReviewedAt)

	p, ok := got.Payload.(*reporting.DeparturePayload)
	require.True(t, ok, "payload type %T", got.Payload)
	assert.Equal(t, "NS-2501", p.VoyageNumber)
	assert.True(t, p.CargoQuantity.Equal(dec("31500.5")))
	require.NotNil(t, p.InitialROB)
	assert.True(t, p.InitialROB.LSIFO.Equal(dec("500")))
	assert.True(t, p.Bunkers.Consumption.LSIFO.Total().Equal(dec("10")))
	assert.Equal(t, 51.95, p.Position.Latitude)
	assert.Equal(t, "SW", p.Weather.WindDirection)

	reviewer := "superintendent"
	at := reportDate.Add(time.Hour)
	got.Status = reporting.StatusApproved
	got.ReviewedBy = &reviewer
	got.ReviewedAt = &at
	require.NoError(t, st.UpdateReportReview(ctx, *got))

	reviewed, err := st.GetReport(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, reporting.StatusApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedAt)
	assert.True(t, reviewed.ReviewedAt.Equal(at))

	err = st.UpdateReportReview(ctx, reporting.Report{ID: 42, Status: reporting.StatusApproved})
	assert.ErrorIs(t, err, reporting.ErrNotFound)
}

func TestStore_VoyageUpdateAndActive(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	v := &reporting.Voyage{
		VesselID: 1, VoyageNumber: "NS-2501", DeparturePort: "Rotterdam", DestinationPort: "Gothenburg",
		CargoStatus: reporting.CargoBallast, Active: true, StartDate: reportDate,
	}
	require.NoError(t, st.CreateVoyage(ctx, v))

	active, err := st.ActiveVoyage(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, v.ID, active.ID)

	end := reportDate.Add(72 * time.Hour)
	ending := reporting.ReportID(9)
	v.Active = false
	v.EndDate = &end
	v.EndingReportID = &ending
	require.NoError(t, st.UpdateVoyage(ctx, *v))

	active, err = st.ActiveVoyage(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, active)

	closed, err := st.GetVoyage(ctx, v.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.EndDate)
	assert.True(t, closed.EndDate.Equal(end))
	require.NotNil(t, closed.EndingReportID)
	assert.Equal(t, ending, *closed.EndingReportID)

	assert.ErrorIs(t, st.UpdateVoyage(ctx, reporting.Voyage{ID: 77}), reporting.ErrNotFound)
}

func TestStore_HeadUpsert(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	h, err := st.GetHead(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, reporting.VesselHead{VesselID: 1}, h)

	require.NoError(t, st.SaveHead(ctx, reporting.VesselHead{VesselID: 1, LatestReportID: 3}))
	require.NoError(t, st.SaveHead(ctx, reporting.VesselHead{VesselID: 1, BaselineReportID: 3, LatestReportID: 4}))

	h, err = st.GetHead(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, reporting.VesselHead{VesselID: 1, BaselineReportID: 3, LatestReportID: 4}, h)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestStore_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(tx reporting.Store) error {
		if err := tx.CreateVoyage(ctx, &reporting.Voyage{
			VesselID: 1, VoyageNumber: "NS-2501", DeparturePort: "A", DestinationPort: "B",
			CargoStatus: reporting.CargoBallast, Active: true, StartDate: reportDate,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	voyages, err := st.ListVoyages(ctx, reporting.VoyageFilter{})
	require.NoError(t, err)
	assert.Empty(t, voyages)
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	require.NoError(t, st.AppendAudit(ctx, reporting.AuditEntry{
		ID: "e1", Timestamp: reportDate, ActorID: "master", Action: reporting.AuditReportSubmitted, VesselID: 1,
	}))
	require.NoError(t, st.Reset(ctx))

	vessels, err := st.ListVessels(ctx)
	require.NoError(t, err)
	assert.Empty(t, vessels)

	entries, err := st.ListAudit(ctx, reporting.AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNew_FileDatabaseMigratesOnce(t *testing.T) {
	// GIVEN: A file database that has already been migrated
	// WHEN: Opening it again
	// THEN: Migrations are skipped and the data is still there

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "voyage.db")

	st, err := sqlite.New(ctx, path)
	require.NoError(t, err)
	require.NoError(t, st.CreateVessel(ctx, &reporting.Vessel{ID: 1, Name: "MV Nordic Star"}))
	require.NoError(t, st.Close())

	st, err = sqlite.New(ctx, path)
	require.NoError(t, err)
	defer st.Close()

	vessels, err := st.ListVessels(ctx)
	require.NoError(t, err)
	require.Len(t, vessels, 1)
	assert.Equal(t, "MV Nordic Star", vessels[0].Name)
}

// =============================================================================
// ENGINE ON SQLITE
// =============================================================================

func TestEngine_SubmitApproveRejectOnSQLite(t *testing.T) {
	// GIVEN: The report engine running on SQLite
	// WHEN: A departure is approved, a noon submitted, and the noon rejected
	// THEN: Derived values, heads, ledger and audit all persist

	ctx := context.Background()
	st := newTestStore(t)
	locks := reporting.NewVesselLocks()
	reports := reporting.NewReportService(st, locks, logging.Nop())
	reviews := reporting.NewReviewService(st, locks, logging.Nop())

	dep, err := reports.Submit(ctx, reporting.Submission{
		VesselID: 1, SubmittedBy: "master", ReportDate: reportDate, Payload: testDeparture(),
	})
	require.NoError(t, err)
	assert.True(t, dep.DistanceToGo.Equal(dec("950")))

	_, err = reviews.Approve(ctx, dep.ID, "superintendent")
	require.NoError(t, err)

	noon, err := reports.Submit(ctx, reporting.Submission{
		VesselID: 1, SubmittedBy: "master", ReportDate: reportDate.Add(24 * time.Hour),
		Payload: &reporting.NoonPayload{
			PassageState:            reporting.PassageNoon,
			DistanceSinceLastReport: dec("200"),
			Bunkers: reporting.BunkerInput{
				Consumption: reporting.Consumption{LSIFO: reporting.FuelBurn{ME: dec("5")}},
				Supply:      reporting.Levels{LSMGO: dec("30")},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, noon.SequenceNumber)
	assert.True(t, noon.DistanceToGo.Equal(dec("750")))

	rec, err := reports.BunkerRecordForReport(ctx, noon.ID)
	require.NoError(t, err)
	assert.True(t, rec.ROB.LSIFO.Equal(dec("485")))
	assert.True(t, rec.ROB.LSMGO.Equal(dec("150")))
	assert.True(t, rec.ROB.CylOil.Equal(dec("17.8")))
	assert.True(t, rec.Supplied.LSMGO.Equal(dec("30")))

	_, err = reports.Submit(ctx, reporting.Submission{
		VesselID: 1, SubmittedBy: "master", ReportDate: reportDate.Add(48 * time.Hour),
		Payload: &reporting.ArrivalPayload{ArrivalPort: "Gothenburg"},
	})
	assert.ErrorIs(t, err, reporting.ErrConflict)

	_, err = reviews.Reject(ctx, noon.ID, "superintendent", "bad position fix")
	require.NoError(t, err)

	history, err := reports.BunkerHistory(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	has, err := reports.HasBunkerRecords(ctx, 1)
	require.NoError(t, err)
	assert.True(t, has)

	head, err := st.GetHead(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, dep.ID, head.BaselineReportID)
	assert.Equal(t, noon.ID, head.LatestReportID)

	entries, err := reports.Audit(ctx, reporting.AuditFilter{VesselID: 1})
	require.NoError(t, err)
	actions := make([]reporting.AuditAction, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	assert.Equal(t, []reporting.AuditAction{
		reporting.AuditReportSubmitted,
		reporting.AuditVoyageOpened,
		reporting.AuditReportApproved,
		reporting.AuditReportSubmitted,
		reporting.AuditReportRejected,
	}, actions)
}

func TestEngine_RejectedDepartureRollsBackOnSQLite(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	locks := reporting.NewVesselLocks()
	reports := reporting.NewReportService(st, locks, logging.Nop())
	reviews := reporting.NewReviewService(st, locks, logging.Nop())

	dep, err := reports.Submit(ctx, reporting.Submission{
		VesselID: 1, SubmittedBy: "master", ReportDate: reportDate, Payload: testDeparture(),
	})
	require.NoError(t, err)

	_, err = reviews.Reject(ctx, dep.ID, "superintendent", "wrong harbour distance")
	require.NoError(t, err)

	v, err := st.GetVoyage(ctx, dep.VoyageID)
	require.NoError(t, err)
	assert.False(t, v.Active)

	history, err := reports.BunkerHistory(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, history)
}
