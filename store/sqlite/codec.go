package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/voyage-ledger/reporting"
)

// =============================================================================
// PAYLOAD JSON - The report_type column selects the concrete variant
// =============================================================================

func encodePayload(p reporting.Payload) (string, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s payload: %w", p.ReportType(), err)
	}
	return string(b), nil
}

func decodePayload(t reporting.ReportType, raw string) (reporting.Payload, error) {
	var p reporting.Payload
	switch t {
	case reporting.ReportDeparture:
		p = &reporting.DeparturePayload{}
	case reporting.ReportNoon:
		p = &reporting.NoonPayload{}
	case reporting.ReportArrival:
		p = &reporting.ArrivalPayload{}
	case reporting.ReportBerth:
		p = &reporting.BerthPayload{}
	default:
		return nil, fmt.Errorf("unknown report type %q", t)
	}
	if err := json.Unmarshal([]byte(raw), p); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", t, err)
	}
	return p, nil
}

// =============================================================================
// LEVEL COLUMNS - Six substances per prefix (rob_, consumed_, supplied_)
// =============================================================================

func levelColumns(prefix string) string {
	cols := make([]string, len(reporting.Substances))
	for i, s := range reporting.Substances {
		cols[i] = prefix + "_" + string(s)
	}
	return strings.Join(cols, ", ")
}

func levelArgs(l reporting.Levels) []any {
	args := make([]any, len(reporting.Substances))
	for i, s := range reporting.Substances {
		args[i] = l.Get(s).String()
	}
	return args
}

// levelStrings receives one prefix's columns during a scan.
type levelStrings [6]string

func (ls *levelStrings) targets() []any {
	out := make([]any, len(ls))
	for i := range ls {
		out[i] = &ls[i]
	}
	return out
}

func (ls *levelStrings) levels() reporting.Levels {
	var l reporting.Levels
	for i, s := range reporting.Substances {
		l = l.Set(s, parseDecimal(ls[i]))
	}
	return l
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func parseNullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// nullID turns a zero id into NULL so SQLite assigns the next rowid.
func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func nullReportID(id *reporting.ReportID) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func expectRow(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &reporting.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}
