package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/warp/voyage-ledger/reporting"
)

// DBTX is the subset of database/sql used by queries.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements reporting.Store on top of either the database or an
// open transaction.
type queries struct {
	db DBTX
}

var _ reporting.Store = (*queries)(nil)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// =============================================================================
// VESSELS
// =============================================================================

const vesselColumns = `id, name, imo, flag, captain, bls_limit`

func (q *queries) GetVessel(ctx context.Context, id reporting.VesselID) (*reporting.Vessel, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+vesselColumns+` FROM vessels WHERE id = ?`, id)
	v, err := scanVessel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (q *queries) ListVessels(ctx context.Context) ([]reporting.Vessel, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+vesselColumns+` FROM vessels ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query vessels: %w", err)
	}
	defer rows.Close()

	var out []reporting.Vessel
	for rows.Next() {
		v, err := scanVessel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// CreateVessel keeps a preset ID, otherwise assigns the next one.
func (q *queries) CreateVessel(ctx context.Context, v *reporting.Vessel) error {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO vessels (id, name, imo, flag, captain, bls_limit) VALUES (?, ?, ?, ?, ?, ?)`,
		nullID(int64(v.ID)), v.Name, v.IMO, v.Flag, v.Captain, v.BLSLimit.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert vessel: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = reporting.VesselID(id)
	return nil
}

func scanVessel(s scanner) (reporting.Vessel, error) {
	var (
		v   reporting.Vessel
		bls string
	)
	if err := s.Scan(&v.ID, &v.Name, &v.IMO, &v.Flag, &v.Captain, &bls); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return v, err
		}
		return v, fmt.Errorf("failed to scan vessel: %w", err)
	}
	v.BLSLimit = parseDecimal(bls)
	return v, nil
}

// =============================================================================
// VOYAGES
// =============================================================================

const voyageColumns = `id, vessel_id, voyage_number, departure_port, destination_port,
	cargo_status, cargo_type, cargo_quantity, total_distance, active,
	start_date, end_date, starting_report_id, ending_report_id`

func (q *queries) GetVoyage(ctx context.Context, id reporting.VoyageID) (*reporting.Voyage, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+voyageColumns+` FROM voyages WHERE id = ?`, id)
	v, err := scanVoyage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (q *queries) ActiveVoyage(ctx context.Context, vesselID reporting.VesselID) (*reporting.Voyage, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+voyageColumns+` FROM voyages WHERE vessel_id = ? AND active = 1 ORDER BY id DESC LIMIT 1`,
		vesselID)
	v, err := scanVoyage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (q *queries) ListVoyages(ctx context.Context, f reporting.VoyageFilter) ([]reporting.Voyage, error) {
	var (
		where []string
		args  []any
	)
	if f.VesselID != 0 {
		where = append(where, "vessel_id = ?")
		args = append(args, f.VesselID)
	}
	if f.ActiveOnly {
		where = append(where, "active = 1")
	}

	rows, err := q.db.QueryContext(ctx, `SELECT `+voyageColumns+` FROM voyages`+whereClause(where)+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query voyages: %w", err)
	}
	defer rows.Close()

	var out []reporting.Voyage
	for rows.Next() {
		v, err := scanVoyage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (q *queries) CreateVoyage(ctx context.Context, v *reporting.Voyage) error {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO voyages (id, vessel_id, voyage_number, departure_port, destination_port,
			cargo_status, cargo_type, cargo_quantity, total_distance, active,
			start_date, end_date, starting_report_id, ending_report_id)
		VALUES (NULL, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.VesselID, v.VoyageNumber, v.DeparturePort, v.DestinationPort,
		string(v.CargoStatus), v.CargoType, v.CargoQuantity.String(), v.TotalDistance.String(), v.Active,
		formatTime(v.StartDate), nullTime(v.EndDate), v.StartingReportID, nullReportID(v.EndingReportID),
	)
	if err != nil {
		return fmt.Errorf("failed to insert voyage: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = reporting.VoyageID(id)
	return nil
}

func (q *queries) UpdateVoyage(ctx context.Context, v reporting.Voyage) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE voyages SET voyage_number = ?, departure_port = ?, destination_port = ?,
			cargo_status = ?, cargo_type = ?, cargo_quantity = ?, total_distance = ?, active = ?,
			start_date = ?, end_date = ?, starting_report_id = ?, ending_report_id = ?
		WHERE id = ?`,
		v.VoyageNumber, v.DeparturePort, v.DestinationPort,
		string(v.CargoStatus), v.CargoType, v.CargoQuantity.String(), v.TotalDistance.String(), v.Active,
		formatTime(v.StartDate), nullTime(v.EndDate), v.StartingReportID, nullReportID(v.EndingReportID),
		v.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update voyage: %w", err)
	}
	return expectRow(res, "voyage", int64(v.ID))
}

func scanVoyage(s scanner) (reporting.Voyage, error) {
	var (
		v                      reporting.Voyage
		status                 string
		cargoQty, total, start string
		end                    sql.NullString
		ending                 sql.NullInt64
	)
	err := s.Scan(&v.ID, &v.VesselID, &v.VoyageNumber, &v.DeparturePort, &v.DestinationPort,
		&status, &v.CargoType, &cargoQty, &total, &v.Active,
		&start, &end, &v.StartingReportID, &ending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return v, err
		}
		return v, fmt.Errorf("failed to scan voyage: %w", err)
	}
	v.CargoStatus = reporting.CargoStatus(status)
	v.CargoQuantity = parseDecimal(cargoQty)
	v.TotalDistance = parseDecimal(total)
	v.StartDate = parseTime(start)
	v.EndDate = parseNullTime(end)
	if ending.Valid {
		id := reporting.ReportID(ending.Int64)
		v.EndingReportID = &id
	}
	return v, nil
}

// =============================================================================
// REPORTS
// =============================================================================

const reportColumns = `id, report_type, vessel_id, voyage_id, sequence_number,
	submitted_by, submitted_at, status, reviewed_by, reviewed_at, rejection_reason,
	report_date, distance_traveled, distance_to_go, payload_json`

func (q *queries) GetReport(ctx context.Context, id reporting.ReportID) (*reporting.Report, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (q *queries) ListReports(ctx context.Context, f reporting.ReportFilter) ([]reporting.Report, error) {
	var (
		where []string
		args  []any
	)
	if f.VesselID != 0 {
		where = append(where, "vessel_id = ?")
		args = append(args, f.VesselID)
	}
	if f.VoyageID != 0 {
		where = append(where, "voyage_id = ?")
		args = append(args, f.VoyageID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}

	rows, err := q.db.QueryContext(ctx, `SELECT `+reportColumns+` FROM reports`+whereClause(where)+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var out []reporting.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *queries) CreateReport(ctx context.Context, r *reporting.Report) error {
	payload, err := encodePayload(r.Payload)
	if err != nil {
		return err
	}
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO reports (id, report_type, vessel_id, voyage_id, sequence_number,
			submitted_by, submitted_at, status, reviewed_by, reviewed_at, rejection_reason,
			report_date, distance_traveled, distance_to_go, payload_json)
		VALUES (NULL, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(r.Type), r.VesselID, r.VoyageID, r.SequenceNumber,
		r.SubmittedBy, formatTime(r.SubmittedAt), string(r.Status),
		nullStringPtr(r.ReviewedBy), nullTime(r.ReviewedAt), nullStringPtr(r.RejectionReason),
		formatTime(r.ReportDate), r.DistanceTraveled.String(), r.DistanceToGo.String(), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = reporting.ReportID(id)
	return nil
}

// UpdateReportReview writes only the review fields.
func (q *queries) UpdateReportReview(ctx context.Context, r reporting.Report) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE reports SET status = ?, reviewed_by = ?, reviewed_at = ?, rejection_reason = ?
		WHERE id = ?`,
		string(r.Status), nullStringPtr(r.ReviewedBy), nullTime(r.ReviewedAt), nullStringPtr(r.RejectionReason),
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}
	return expectRow(res, "report", int64(r.ID))
}

func scanReport(s scanner) (reporting.Report, error) {
	var (
		r                                reporting.Report
		typ, status, submittedAt, date   string
		traveled, toGo, payload          string
		reviewedBy, reviewedAt, rejected sql.NullString
	)
	err := s.Scan(&r.ID, &typ, &r.VesselID, &r.VoyageID, &r.SequenceNumber,
		&r.SubmittedBy, &submittedAt, &status, &reviewedBy, &reviewedAt, &rejected,
		&date, &traveled, &toGo, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("failed to scan report: %w", err)
	}

	r.Type = reporting.ReportType(typ)
	r.Status = reporting.ReportStatus(status)
	r.SubmittedAt = parseTime(submittedAt)
	r.ReviewedBy = parseNullString(reviewedBy)
	r.ReviewedAt = parseNullTime(reviewedAt)
	r.RejectionReason = parseNullString(rejected)
	r.ReportDate = parseTime(date)
	r.DistanceTraveled = parseDecimal(traveled)
	r.DistanceToGo = parseDecimal(toGo)

	if r.Payload, err = decodePayload(r.Type, payload); err != nil {
		return r, fmt.Errorf("report %d: %w", r.ID, err)
	}
	return r, nil
}

// =============================================================================
// BUNKER TRACKING
// =============================================================================

var bunkerColumns = `id, vessel_id, report_id, report_date, ` +
	levelColumns("rob") + `, ` + levelColumns("consumed") + `, ` + levelColumns("supplied") +
	`, created_at`

func (q *queries) AppendBunkerRecord(ctx context.Context, b *reporting.BunkerRecord) error {
	args := []any{b.VesselID, b.ReportID, formatTime(b.ReportDate)}
	args = append(args, levelArgs(b.ROB)...)
	args = append(args, levelArgs(b.Consumed)...)
	args = append(args, levelArgs(b.Supplied)...)
	args = append(args, formatTime(b.CreatedAt))

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO bunker_tracking (`+bunkerColumns+`) VALUES (NULL, `+placeholders+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("failed to insert bunker record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = reporting.BunkerRecordID(id)
	return nil
}

func (q *queries) BunkerRecordsByReport(ctx context.Context, reportID reporting.ReportID, vesselID reporting.VesselID) ([]reporting.BunkerRecord, error) {
	return q.queryBunkerRecords(ctx,
		`SELECT `+bunkerColumns+` FROM bunker_tracking WHERE report_id = ? AND vessel_id = ? ORDER BY id`,
		reportID, vesselID)
}

func (q *queries) LatestBunkerRecord(ctx context.Context, vesselID reporting.VesselID) (*reporting.BunkerRecord, error) {
	recs, err := q.queryBunkerRecords(ctx,
		`SELECT `+bunkerColumns+` FROM bunker_tracking WHERE vessel_id = ? ORDER BY id DESC LIMIT 1`,
		vesselID)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return &recs[0], nil
}

func (q *queries) ListBunkerRecords(ctx context.Context, vesselID reporting.VesselID) ([]reporting.BunkerRecord, error) {
	return q.queryBunkerRecords(ctx,
		`SELECT `+bunkerColumns+` FROM bunker_tracking WHERE vessel_id = ? ORDER BY report_id, id`,
		vesselID)
}

func (q *queries) DeleteBunkerRecordsByReport(ctx context.Context, reportID reporting.ReportID) (int, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM bunker_tracking WHERE report_id = ?`, reportID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete bunker records: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (q *queries) HasApprovedBunkerRecords(ctx context.Context, vesselID reporting.VesselID) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bunker_tracking b
			JOIN reports r ON r.id = b.report_id
			WHERE b.vessel_id = ? AND r.status = ?
		)`, vesselID, string(reporting.StatusApproved)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check bunker records: %w", err)
	}
	return exists, nil
}

func (q *queries) queryBunkerRecords(ctx context.Context, query string, args ...any) ([]reporting.BunkerRecord, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bunker records: %w", err)
	}
	defer rows.Close()

	var out []reporting.BunkerRecord
	for rows.Next() {
		b, err := scanBunkerRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBunkerRecord(s scanner) (reporting.BunkerRecord, error) {
	var (
		b                 reporting.BunkerRecord
		date, createdAt   string
		rob, cons, supply levelStrings
	)
	dest := []any{&b.ID, &b.VesselID, &b.ReportID, &date}
	dest = append(dest, rob.targets()...)
	dest = append(dest, cons.targets()...)
	dest = append(dest, supply.targets()...)
	dest = append(dest, &createdAt)

	if err := s.Scan(dest...); err != nil {
		return b, fmt.Errorf("failed to scan bunker record: %w", err)
	}
	b.ReportDate = parseTime(date)
	b.ROB = rob.levels()
	b.Consumed = cons.levels()
	b.Supplied = supply.levels()
	b.CreatedAt = parseTime(createdAt)
	return b, nil
}

// =============================================================================
// VESSEL HEADS
// =============================================================================

func (q *queries) GetHead(ctx context.Context, vesselID reporting.VesselID) (reporting.VesselHead, error) {
	h := reporting.VesselHead{VesselID: vesselID}
	err := q.db.QueryRowContext(ctx,
		`SELECT baseline_report_id, latest_report_id FROM vessel_heads WHERE vessel_id = ?`,
		vesselID,
	).Scan(&h.BaselineReportID, &h.LatestReportID)
	if errors.Is(err, sql.ErrNoRows) {
		return h, nil
	}
	if err != nil {
		return h, fmt.Errorf("failed to get vessel head: %w", err)
	}
	return h, nil
}

func (q *queries) SaveHead(ctx context.Context, h reporting.VesselHead) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO vessel_heads (vessel_id, baseline_report_id, latest_report_id)
		VALUES (?, ?, ?)
		ON CONFLICT(vessel_id) DO UPDATE SET
			baseline_report_id = excluded.baseline_report_id,
			latest_report_id = excluded.latest_report_id`,
		h.VesselID, h.BaselineReportID, h.LatestReportID,
	)
	if err != nil {
		return fmt.Errorf("failed to save vessel head: %w", err)
	}
	return nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (q *queries) AppendAudit(ctx context.Context, e reporting.AuditEntry) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, timestamp, actor_id, action, vessel_id, report_id, voyage_id, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, formatTime(e.Timestamp), e.ActorID, string(e.Action),
		e.VesselID, e.ReportID, e.VoyageID, e.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

func (q *queries) ListAudit(ctx context.Context, f reporting.AuditFilter) ([]reporting.AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	if f.VesselID != 0 {
		where = append(where, "vessel_id = ?")
		args = append(args, f.VesselID)
	}
	if f.ReportID != 0 {
		where = append(where, "report_id = ?")
		args = append(args, f.ReportID)
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT id, timestamp, actor_id, action, vessel_id, report_id, voyage_id, detail
		FROM audit_log`+whereClause(where)+` ORDER BY seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var out []reporting.AuditEntry
	for rows.Next() {
		var (
			e      reporting.AuditEntry
			ts     string
			action string
		)
		if err := rows.Scan(&e.ID, &ts, &e.ActorID, &action, &e.VesselID, &e.ReportID, &e.VoyageID, &e.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Timestamp = parseTime(ts)
		e.Action = reporting.AuditAction(action)
		out = append(out, e)
	}
	return out, rows.Err()
}
