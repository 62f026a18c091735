/*
store.go - Persistence interface for vessels, voyages, reports and bunker records

PURPOSE:
  Defines the boundary between the engine and the database. The engine only
  needs row-level get/put on six collections and a way to run a group of
  writes atomically; it does not care whether that is SQLite or memory.

KEY INTERFACES:
  Store:   Row-level reads and writes on every collection
  TxStore: Store plus WithTx for all-or-nothing multi-collection writes

IDENTIFIERS:
  Create* methods assign the next integer id for the collection
  (max(existing) + 1, or 1) and write it back into the passed record.

NOT FOUND:
  Single-record getters return (nil, nil) when the row does not exist. The
  engine turns that into a NotFoundError where it matters.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - reporting/store/memory.go: In-memory for tests and dev

SEE ALSO:
  - submit.go, review.go: Run every operation inside WithTx
*/
package reporting

import "context"

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	// Vessels
	GetVessel(ctx context.Context, id VesselID) (*Vessel, error)
	ListVessels(ctx context.Context) ([]Vessel, error)
	CreateVessel(ctx context.Context, v *Vessel) error

	// Voyages
	GetVoyage(ctx context.Context, id VoyageID) (*Voyage, error)
	ActiveVoyage(ctx context.Context, vesselID VesselID) (*Voyage, error)
	ListVoyages(ctx context.Context, filter VoyageFilter) ([]Voyage, error)
	CreateVoyage(ctx context.Context, v *Voyage) error
	UpdateVoyage(ctx context.Context, v Voyage) error

	// Reports
	GetReport(ctx context.Context, id ReportID) (*Report, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]Report, error)
	CreateReport(ctx context.Context, r *Report) error
	UpdateReportReview(ctx context.Context, r Report) error

	// Bunker ledger
	AppendBunkerRecord(ctx context.Context, b *BunkerRecord) error
	// BunkerRecordsByReport returns every record for (reportID, vesselID),
	// ordered by id ascending.
	BunkerRecordsByReport(ctx context.Context, reportID ReportID, vesselID VesselID) ([]BunkerRecord, error)
	LatestBunkerRecord(ctx context.Context, vesselID VesselID) (*BunkerRecord, error)
	ListBunkerRecords(ctx context.Context, vesselID VesselID) ([]BunkerRecord, error)
	DeleteBunkerRecordsByReport(ctx context.Context, reportID ReportID) (int, error)
	HasApprovedBunkerRecords(ctx context.Context, vesselID VesselID) (bool, error)

	// Vessel heads
	GetHead(ctx context.Context, vesselID VesselID) (VesselHead, error)
	SaveHead(ctx context.Context, h VesselHead) error

	// Audit
	AppendAudit(ctx context.Context, e AuditEntry) error
	ListAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, every write made through the passed Store is
	// rolled back. If fn returns nil, the writes are committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// FILTERS
// =============================================================================

// ReportFilter narrows ListReports. Zero fields match everything.
// Results are ordered by id ascending.
type ReportFilter struct {
	VesselID VesselID
	VoyageID VoyageID
	Status   ReportStatus
}

func (f ReportFilter) Match(r Report) bool {
	return (f.VesselID == 0 || r.VesselID == f.VesselID) &&
		(f.VoyageID == 0 || r.VoyageID == f.VoyageID) &&
		(f.Status == "" || r.Status == f.Status)
}

// VoyageFilter narrows ListVoyages. Results are ordered by id ascending.
type VoyageFilter struct {
	VesselID   VesselID
	ActiveOnly bool
}

func (f VoyageFilter) Match(v Voyage) bool {
	return (f.VesselID == 0 || v.VesselID == f.VesselID) &&
		(!f.ActiveOnly || v.Active)
}
