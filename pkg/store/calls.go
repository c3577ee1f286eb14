package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("record not found")

type Call struct {
	ID              int64      `json:"id"`
	CallSID         string     `json:"call_sid"`
	CallerPhone     string     `json:"caller_phone"`
	OrganizationID  int64      `json:"organization_id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`
	IsEmergency     bool       `json:"is_emergency"`
	Status          string     `json:"status"`
}

type ConversationTurn struct {
	TurnNumber        int    `json:"turn_number"`
	UserInput         string `json:"user_input"`
	AssistantResponse string `json:"assistant_response"`
}

type CallDetails struct {
	Call
	Conversation []ConversationTurn `json:"conversation"`
}

// SaveCallStart inserts the call row, tolerating duplicate start events.
func (db *DB) SaveCallStart(ctx context.Context, callSID, callerPhone string, orgID int64, startTime time.Time) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO calls (call_sid, caller_phone, organization_id, start_time, status)
		VALUES ($1, $2, NULLIF($3, 0), $4, 'in_progress')
		ON CONFLICT (call_sid) DO NOTHING`,
		callSID, callerPhone, orgID, startTime)
	if err != nil {
		return fmt.Errorf("save call start: %w", err)
	}
	return nil
}

func (db *DB) SaveCallEnd(ctx context.Context, callSID string, durationSeconds int) error {
	_, err := db.pool.Exec(ctx, `
		UPDATE calls
		SET end_time = now(), duration_seconds = $2, status = 'completed'
		WHERE call_sid = $1`,
		callSID, durationSeconds)
	if err != nil {
		return fmt.Errorf("save call end: %w", err)
	}
	return nil
}

func (db *DB) SaveConversationTurn(ctx context.Context, callSID string, turnNumber int, userInput, assistantResponse string) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO conversations (call_sid, user_input, assistant_response, turn_number)
		VALUES ($1, $2, $3, $4)`,
		callSID, userInput, assistantResponse, turnNumber)
	if err != nil {
		return fmt.Errorf("save conversation turn: %w", err)
	}
	return nil
}

func (db *DB) MarkCallEmergency(ctx context.Context, callSID string) error {
	_, err := db.pool.Exec(ctx, `UPDATE calls SET is_emergency = true WHERE call_sid = $1`, callSID)
	if err != nil {
		return fmt.Errorf("mark call emergency: %w", err)
	}
	return nil
}

// RecentCalls lists an organization's calls, newest first. A non-empty
// search filters on caller phone or call sid.
func (db *DB) RecentCalls(ctx context.Context, orgID int64, search string, limit int) ([]Call, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx, `
		SELECT id, call_sid, caller_phone, COALESCE(organization_id, 0),
		       start_time, end_time, duration_seconds, is_emergency, status
		FROM calls
		WHERE organization_id = $1
		  AND ($2 = '' OR caller_phone ILIKE '%' || $2 || '%' OR call_sid ILIKE '%' || $2 || '%')
		ORDER BY start_time DESC
		LIMIT $3`,
		orgID, search, limit)
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	defer rows.Close()
	return scanCalls(rows)
}

// CallDetails fetches one call with its ordered transcript.
func (db *DB) CallDetails(ctx context.Context, orgID int64, callSID string) (*CallDetails, error) {
	row := db.pool.QueryRow(ctx, `
		SELECT id, call_sid, caller_phone, COALESCE(organization_id, 0),
		       start_time, end_time, duration_seconds, is_emergency, status
		FROM calls
		WHERE call_sid = $1 AND organization_id = $2`,
		callSID, orgID)

	var c Call
	if err := scanCall(row, &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get call: %w", err)
	}

	rows, err := db.pool.Query(ctx, `
		SELECT COALESCE(turn_number, 0), COALESCE(user_input, ''), COALESCE(assistant_response, '')
		FROM conversations
		WHERE call_sid = $1
		ORDER BY turn_number ASC, id ASC`,
		callSID)
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	defer rows.Close()

	details := &CallDetails{Call: c, Conversation: make([]ConversationTurn, 0, 8)}
	for rows.Next() {
		var t ConversationTurn
		if err := rows.Scan(&t.TurnNumber, &t.UserInput, &t.AssistantResponse); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		details.Conversation = append(details.Conversation, t)
	}
	return details, rows.Err()
}

// CallsForExport returns every call for CSV export.
func (db *DB) CallsForExport(ctx context.Context, orgID int64) ([]Call, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, call_sid, caller_phone, COALESCE(organization_id, 0),
		       start_time, end_time, duration_seconds, is_emergency, status
		FROM calls
		WHERE organization_id = $1
		ORDER BY start_time DESC`,
		orgID)
	if err != nil {
		return nil, fmt.Errorf("export calls: %w", err)
	}
	defer rows.Close()
	return scanCalls(rows)
}

type Stats struct {
	TotalCalls     int     `json:"total_calls"`
	CallsToday     int     `json:"calls_today"`
	TotalOrders    int     `json:"total_orders"`
	OrdersToday    int     `json:"orders_today"`
	EmergencyCalls int     `json:"emergency_calls"`
	AvgDurationSec float64 `json:"avg_duration_seconds"`
}

func (db *DB) Statistics(ctx context.Context, orgID int64) (Stats, error) {
	var s Stats
	err := db.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM calls WHERE organization_id = $1),
			(SELECT COUNT(*) FROM calls WHERE organization_id = $1 AND start_time >= date_trunc('day', now())),
			(SELECT COUNT(*) FROM orders WHERE organization_id = $1),
			(SELECT COUNT(*) FROM orders WHERE organization_id = $1 AND created_at >= date_trunc('day', now())),
			(SELECT COUNT(*) FROM calls WHERE organization_id = $1 AND is_emergency),
			(SELECT COALESCE(AVG(duration_seconds), 0) FROM calls WHERE organization_id = $1 AND duration_seconds IS NOT NULL)`,
		orgID).Scan(&s.TotalCalls, &s.CallsToday, &s.TotalOrders, &s.OrdersToday, &s.EmergencyCalls, &s.AvgDurationSec)
	if err != nil {
		return Stats{}, fmt.Errorf("statistics: %w", err)
	}
	return s, nil
}

type ChartPoint struct {
	Day    string `json:"day"`
	Calls  int    `json:"calls"`
	Orders int    `json:"orders"`
}

// ChartData returns per-day call and order counts for the last N days.
func (db *DB) ChartData(ctx context.Context, orgID int64, days int) ([]ChartPoint, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	rows, err := db.pool.Query(ctx, `
		SELECT to_char(d.day, 'YYYY-MM-DD'),
		       COALESCE(c.n, 0),
		       COALESCE(o.n, 0)
		FROM generate_series(date_trunc('day', now()) - ($2 - 1) * interval '1 day',
		                     date_trunc('day', now()), interval '1 day') AS d(day)
		LEFT JOIN (
			SELECT date_trunc('day', start_time) AS day, COUNT(*) AS n
			FROM calls WHERE organization_id = $1 GROUP BY 1
		) c ON c.day = d.day
		LEFT JOIN (
			SELECT date_trunc('day', created_at) AS day, COUNT(*) AS n
			FROM orders WHERE organization_id = $1 GROUP BY 1
		) o ON o.day = d.day
		ORDER BY d.day`,
		orgID, days)
	if err != nil {
		return nil, fmt.Errorf("chart data: %w", err)
	}
	defer rows.Close()

	points := make([]ChartPoint, 0, days)
	for rows.Next() {
		var p ChartPoint
		if err := rows.Scan(&p.Day, &p.Calls, &p.Orders); err != nil {
			return nil, fmt.Errorf("scan chart point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func scanCalls(rows pgx.Rows) ([]Call, error) {
	calls := make([]Call, 0, 16)
	for rows.Next() {
		var c Call
		if err := scanCall(rows, &c); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

func scanCall(row pgx.Row, c *Call) error {
	var endTime sql.NullTime
	var duration sql.NullInt32
	if err := row.Scan(&c.ID, &c.CallSID, &c.CallerPhone, &c.OrganizationID,
		&c.StartTime, &endTime, &duration, &c.IsEmergency, &c.Status); err != nil {
		return err
	}
	if endTime.Valid {
		t := endTime.Time
		c.EndTime = &t
	}
	if duration.Valid {
		d := int(duration.Int32)
		c.DurationSeconds = &d
	}
	return nil
}
