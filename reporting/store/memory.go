// Package store provides an in-memory reporting.TxStore.
package store

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/warp/voyage-ledger/reporting"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is safe for concurrent use. WithTx holds the write lock for the
// whole callback, so transactions are serialized store-wide.
type Memory struct {
	mu sync.RWMutex
	st *state
}

var _ reporting.TxStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{st: newState()}
}

// Reset drops every record.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st = newState()
	return nil
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(reporting.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()
	if err := fn(m.st); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

func read[T any](m *Memory, fn func(*state) (T, error)) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(m.st)
}

func write(m *Memory, fn func(*state) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.st)
}

func (m *Memory) GetVessel(ctx context.Context, id reporting.VesselID) (*reporting.Vessel, error) {
	return read(m, func(s *state) (*reporting.Vessel, error) { return s.GetVessel(ctx, id) })
}

func (m *Memory) ListVessels(ctx context.Context) ([]reporting.Vessel, error) {
	return read(m, func(s *state) ([]reporting.Vessel, error) { return s.ListVessels(ctx) })
}

func (m *Memory) CreateVessel(ctx context.Context, v *reporting.Vessel) error {
	return write(m, func(s *state) error { return s.CreateVessel(ctx, v) })
}

func (m *Memory) GetVoyage(ctx context.Context, id reporting.VoyageID) (*reporting.Voyage, error) {
	return read(m, func(s *state) (*reporting.Voyage, error) { return s.GetVoyage(ctx, id) })
}

func (m *Memory) ActiveVoyage(ctx context.Context, vesselID reporting.VesselID) (*reporting.Voyage, error) {
	return read(m, func(s *state) (*reporting.Voyage, error) { return s.ActiveVoyage(ctx, vesselID) })
}

func (m *Memory) ListVoyages(ctx context.Context, f reporting.VoyageFilter) ([]reporting.Voyage, error) {
	return read(m, func(s *state) ([]reporting.Voyage, error) { return s.ListVoyages(ctx, f) })
}

func (m *Memory) CreateVoyage(ctx context.Context, v *reporting.Voyage) error {
	return write(m, func(s *state) error { return s.CreateVoyage(ctx, v) })
}

func (m *Memory) UpdateVoyage(ctx context.Context, v reporting.Voyage) error {
	return write(m, func(s *state) error { return s.UpdateVoyage(ctx, v) })
}

func (m *Memory) GetReport(ctx context.Context, id reporting.ReportID) (*reporting.Report, error) {
	return read(m, func(s *state) (*reporting.Report, error) { return s.GetReport(ctx, id) })
}

func (m *Memory) ListReports(ctx context.Context, f reporting.ReportFilter) ([]reporting.Report, error) {
	return read(m, func(s *state) ([]reporting.Report, error) { return s.ListReports(ctx, f) })
}

func (m *Memory) CreateReport(ctx context.Context, r *reporting.Report) error {
	return write(m, func(s *state) error { return s.CreateReport(ctx, r) })
}

func (m *Memory) UpdateReportReview(ctx context.Context, r reporting.Report) error {
	return write(m, func(s *state) error { return s.UpdateReportReview(ctx, r) })
}

func (m *Memory) AppendBunkerRecord(ctx context.Context, b *reporting.BunkerRecord) error {
	return write(m, func(s *state) error { return s.AppendBunkerRecord(ctx, b) })
}

func (m *Memory) BunkerRecordsByReport(ctx context.Context, reportID reporting.ReportID, vesselID reporting.VesselID) ([]reporting.BunkerRecord, error) {
	return read(m, func(s *state) ([]reporting.BunkerRecord, error) {
		return s.BunkerRecordsByReport(ctx, reportID, vesselID)
	})
}

func (m *Memory) LatestBunkerRecord(ctx context.Context, vesselID reporting.VesselID) (*reporting.BunkerRecord, error) {
	return read(m, func(s *state) (*reporting.BunkerRecord, error) { return s.LatestBunkerRecord(ctx, vesselID) })
}

func (m *Memory) ListBunkerRecords(ctx context.Context, vesselID reporting.VesselID) ([]reporting.BunkerRecord, error) {
	return read(m, func(s *state) ([]reporting.BunkerRecord, error) { return s.ListBunkerRecords(ctx, vesselID) })
}

func (m *Memory) DeleteBunkerRecordsByReport(ctx context.Context, reportID reporting.ReportID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.DeleteBunkerRecordsByReport(ctx, reportID)
}

func (m *Memory) HasApprovedBunkerRecords(ctx context.Context, vesselID reporting.VesselID) (bool, error) {
	return read(m, func(s *state) (bool, error) { return s.HasApprovedBunkerRecords(ctx, vesselID) })
}

func (m *Memory) GetHead(ctx context.Context, vesselID reporting.VesselID) (reporting.VesselHead, error) {
	return read(m, func(s *state) (reporting.VesselHead, error) { return s.GetHead(ctx, vesselID) })
}

func (m *Memory) SaveHead(ctx context.Context, h reporting.VesselHead) error {
	return write(m, func(s *state) error { return s.SaveHead(ctx, h) })
}

func (m *Memory) AppendAudit(ctx context.Context, e reporting.AuditEntry) error {
	return write(m, func(s *state) error { return s.AppendAudit(ctx, e) })
}

func (m *Memory) ListAudit(ctx context.Context, f reporting.AuditFilter) ([]reporting.AuditEntry, error) {
	return read(m, func(s *state) ([]reporting.AuditEntry, error) { return s.ListAudit(ctx, f) })
}

// =============================================================================
// STATE - Unlocked collections; also serves as the transaction view
// =============================================================================

type state struct {
	vessels map[reporting.VesselID]reporting.Vessel
	voyages map[reporting.VoyageID]reporting.Voyage
	reports map[reporting.ReportID]reporting.Report
	bunkers map[reporting.BunkerRecordID]reporting.BunkerRecord
	heads   map[reporting.VesselID]reporting.VesselHead
	audit   []reporting.AuditEntry
}

var _ reporting.Store = (*state)(nil)

func newState() *state {
	return &state{
		vessels: make(map[reporting.VesselID]reporting.Vessel),
		voyages: make(map[reporting.VoyageID]reporting.Voyage),
		reports: make(map[reporting.ReportID]reporting.Report),
		bunkers: make(map[reporting.BunkerRecordID]reporting.BunkerRecord),
		heads:   make(map[reporting.VesselID]reporting.VesselHead),
	}
}

func (s *state) clone() *state {
	return &state{
		vessels: maps.Clone(s.vessels),
		voyages: maps.Clone(s.voyages),
		reports: maps.Clone(s.reports),
		bunkers: maps.Clone(s.bunkers),
		heads:   maps.Clone(s.heads),
		audit:   slices.Clone(s.audit),
	}
}

// nextID returns max(existing)+1, or 1 for an empty collection.
func nextID[K ~int64, V any](m map[K]V) K {
	var hi K
	for k := range m {
		hi = max(hi, k)
	}
	return hi + 1
}

// sortedValues returns the values whose keys pass keep, ordered by key.
func sortedValues[K ~int64, V any](m map[K]V, keep func(V) bool) []V {
	keys := slices.Sorted(maps.Keys(m))
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		if v := m[k]; keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func (s *state) GetVessel(_ context.Context, id reporting.VesselID) (*reporting.Vessel, error) {
	v, ok := s.vessels[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (s *state) ListVessels(_ context.Context) ([]reporting.Vessel, error) {
	return sortedValues(s.vessels, func(reporting.Vessel) bool { return true }), nil
}

func (s *state) CreateVessel(_ context.Context, v *reporting.Vessel) error {
	if v.ID == 0 {
		v.ID = nextID(s.vessels)
	}
	s.vessels[v.ID] = *v
	return nil
}

func (s *state) GetVoyage(_ context.Context, id reporting.VoyageID) (*reporting.Voyage, error) {
	v, ok := s.voyages[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (s *state) ActiveVoyage(ctx context.Context, vesselID reporting.VesselID) (*reporting.Voyage, error) {
	active, _ := s.ListVoyages(ctx, reporting.VoyageFilter{VesselID: vesselID, ActiveOnly: true})
	if len(active) == 0 {
		return nil, nil
	}
	return &active[len(active)-1], nil
}

func (s *state) ListVoyages(_ context.Context, f reporting.VoyageFilter) ([]reporting.Voyage, error) {
	return sortedValues(s.voyages, f.Match), nil
}

func (s *state) CreateVoyage(_ context.Context, v *reporting.Voyage) error {
	v.ID = nextID(s.voyages)
	s.voyages[v.ID] = *v
	return nil
}

func (s *state) UpdateVoyage(_ context.Context, v reporting.Voyage) error {
	if _, ok := s.voyages[v.ID]; !ok {
		return &reporting.NotFoundError{Kind: "voyage", ID: int64(v.ID)}
	}
	s.voyages[v.ID] = v
	return nil
}

func (s *state) GetReport(_ context.Context, id reporting.ReportID) (*reporting.Report, error) {
	r, ok := s.reports[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *state) ListReports(_ context.Context, f reporting.ReportFilter) ([]reporting.Report, error) {
	return sortedValues(s.reports, f.Match), nil
}

func (s *state) CreateReport(_ context.Context, r *reporting.Report) error {
	r.ID = nextID(s.reports)
	s.reports[r.ID] = *r
	return nil
}

// UpdateReportReview writes only the review fields.
func (s *state) UpdateReportReview(_ context.Context, r reporting.Report) error {
	cur, ok := s.reports[r.ID]
	if !ok {
		return &reporting.NotFoundError{Kind: "report", ID: int64(r.ID)}
	}
	cur.Status = r.Status
	cur.ReviewedBy = r.ReviewedBy
	cur.ReviewedAt = r.ReviewedAt
	cur.RejectionReason = r.RejectionReason
	s.reports[r.ID] = cur
	return nil
}

func (s *state) AppendBunkerRecord(_ context.Context, b *reporting.BunkerRecord) error {
	b.ID = nextID(s.bunkers)
	s.bunkers[b.ID] = *b
	return nil
}

func (s *state) BunkerRecordsByReport(_ context.Context, reportID reporting.ReportID, vesselID reporting.VesselID) ([]reporting.BunkerRecord, error) {
	return sortedValues(s.bunkers, func(b reporting.BunkerRecord) bool {
		return b.ReportID == reportID && b.VesselID == vesselID
	}), nil
}

func (s *state) LatestBunkerRecord(_ context.Context, vesselID reporting.VesselID) (*reporting.BunkerRecord, error) {
	recs := sortedValues(s.bunkers, func(b reporting.BunkerRecord) bool { return b.VesselID == vesselID })
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[len(recs)-1], nil
}

func (s *state) ListBunkerRecords(_ context.Context, vesselID reporting.VesselID) ([]reporting.BunkerRecord, error) {
	recs := sortedValues(s.bunkers, func(b reporting.BunkerRecord) bool { return b.VesselID == vesselID })
	slices.SortStableFunc(recs, func(a, b reporting.BunkerRecord) int {
		return cmp.Compare(a.ReportID, b.ReportID)
	})
	return recs, nil
}

func (s *state) DeleteBunkerRecordsByReport(_ context.Context, reportID reporting.ReportID) (int, error) {
	n := 0
	for id, b := range s.bunkers {
		if b.ReportID == reportID {
			delete(s.bunkers, id)
			n++
		}
	}
	return n, nil
}

func (s *state) HasApprovedBunkerRecords(_ context.Context, vesselID reporting.VesselID) (bool, error) {
	for _, b := range s.bunkers {
		if b.VesselID != vesselID {
			continue
		}
		if r, ok := s.reports[b.ReportID]; ok && r.Status == reporting.StatusApproved {
			return true, nil
		}
	}
	return false, nil
}

func (s *state) GetHead(_ context.Context, vesselID reporting.VesselID) (reporting.VesselHead, error) {
	h, ok := s.heads[vesselID]
	if !ok {
		return reporting.VesselHead{VesselID: vesselID}, nil
	}
	return h, nil
}

func (s *state) SaveHead(_ context.Context, h reporting.VesselHead) error {
	s.heads[h.VesselID] = h
	return nil
}

func (s *state) AppendAudit(_ context.Context, e reporting.AuditEntry) error {
	s.audit = append(s.audit, e)
	return nil
}

func (s *state) ListAudit(_ context.Context, f reporting.AuditFilter) ([]reporting.AuditEntry, error) {
	var out []reporting.AuditEntry
	for _, e := range s.audit {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}
