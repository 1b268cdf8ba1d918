package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/crestron-sim/internal/device"
	"github.com/nerrad567/crestron-sim/internal/engine"
)

const (
	// DefaultLimit is the page size when a Filter leaves Limit unset.
	DefaultLimit = 50

	// MaxLimit caps a single page.
	MaxLimit = 500

	// timeLayout is fixed width so received_at sorts lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// ErrNilDB is returned by NewSQLiteRepository when given no database.
var ErrNilDB = errors.New("journal: nil database")

// Entry is one journalled datagram.
type Entry struct {
	ID          string      `json:"id"`
	ReceivedAt  time.Time   `json:"received_at"`
	Source      string      `json:"source"`
	Command     string      `json:"command"`
	Recognised  bool        `json:"recognised"`
	Kind        device.Kind `json:"kind,omitempty"`
	DeviceID    *int        `json:"device_id,omitempty"`
	Known       bool        `json:"known"`
	Response    string      `json:"response,omitempty"`
	HasResponse bool        `json:"has_response"`
}

// Filter narrows List results.
type Filter struct {
	Kind     device.Kind // optional
	DeviceID *int        // optional, only applied together with Kind
	Limit    int         // default DefaultLimit, max MaxLimit
	Offset   int
}

// ListResult is one page of entries, newest first.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository stores and lists journal entries.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
	Count(ctx context.Context) (int, error)
}

// SQLiteRepository keeps the journal in the command_journal table.
// It satisfies engine.Recorder.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository wraps an open, migrated database.
func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	return &SQLiteRepository{db: db}, nil
}

// RecordExchange journals one engine exchange.
func (r *SQLiteRepository) RecordExchange(ctx context.Context, ex engine.Exchange) error {
	e := FromExchange(ex)
	return r.Create(ctx, &e)
}

// FromExchange converts an engine exchange into a journal entry.
// DeviceID stays nil for unrecognised lines and ids that do not fit an int.
func FromExchange(ex engine.Exchange) Entry {
	var deviceID *int
	if ex.Recognised && ex.DeviceID >= 0 {
		id := ex.DeviceID
		deviceID = &id
	}
	return Entry{
		ID:          ex.ID,
		ReceivedAt:  ex.At,
		Source:      ex.Source,
		Command:     ex.Command,
		Recognised:  ex.Recognised,
		Kind:        ex.Kind,
		DeviceID:    deviceID,
		Known:       ex.Known,
		Response:    ex.Response,
		HasResponse: ex.HasResponse,
	}
}

// Create inserts e. ID and ReceivedAt are filled in when empty.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now().UTC()
	}

	var kind, deviceID any
	if e.Recognised {
		kind = string(e.Kind)
		if e.DeviceID != nil {
			deviceID = *e.DeviceID
		}
	}
	var response any
	if e.HasResponse {
		response = e.Response
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO command_journal
		 (id, received_at, source, command, recognised, kind, device_id, known, response, has_response)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ReceivedAt.UTC().Format(timeLayout), e.Source, e.Command,
		boolInt(e.Recognised), kind, deviceID, boolInt(e.Known),
		response, boolInt(e.HasResponse),
	)
	if err != nil {
		return fmt.Errorf("inserting journal entry: %w", err)
	}
	return nil
}

// List returns entries matching filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	filter = normaliseFilter(filter)

	var conditions []string
	var args []any
	if filter.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(filter.Kind))
		if filter.DeviceID != nil {
			conditions = append(conditions, "device_id = ?")
			args = append(args, *filter.DeviceID)
		}
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM command_journal " + where //nolint:gosec // WHERE built from placeholders
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting journal entries: %w", err)
	}

	query := `SELECT id, received_at, source, command, recognised, kind, device_id, known, response, has_response
		FROM command_journal ` + where + ` ORDER BY received_at DESC, rowid DESC LIMIT ? OFFSET ?` //nolint:gosec // WHERE built from placeholders
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

// Count returns the number of journalled datagrams.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM command_journal").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting journal entries: %w", err)
	}
	return n, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var e Entry
	var receivedAt string
	var kind, response sql.NullString
	var deviceID sql.NullInt64
	var recognised, known, hasResponse int
	if err := rows.Scan(&e.ID, &receivedAt, &e.Source, &e.Command,
		&recognised, &kind, &deviceID, &known, &response, &hasResponse); err != nil {
		return Entry{}, fmt.Errorf("scanning journal entry: %w", err)
	}

	t, err := time.Parse(timeLayout, receivedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing journal timestamp %q: %w", receivedAt, err)
	}
	e.ReceivedAt = t
	e.Recognised = recognised != 0
	e.Known = known != 0
	e.HasResponse = hasResponse != 0
	if kind.Valid {
		e.Kind = device.Kind(kind.String)
	}
	if deviceID.Valid {
		id := int(deviceID.Int64)
		e.DeviceID = &id
	}
	if response.Valid {
		e.Response = response.String
	}
	return e, nil
}

func normaliseFilter(f Filter) Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
