// Package history persists a record of every exchange to SQLite. A Store
// implements the executor's Observer hook, so attaching it to a builder is
// enough to capture each send.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/abdul-hamid-achik/restspec/packages/request"
)

// bodyCap bounds how much of a response body is stored per row.
const bodyCap = 64 * 1024

const schema = `
CREATE TABLE IF NOT EXISTS exchanges (
	id              TEXT PRIMARY KEY,
	method          TEXT NOT NULL,
	url             TEXT NOT NULL,
	status          INTEGER,
	duration_ms     INTEGER NOT NULL,
	request_headers TEXT,
	request_body    TEXT,
	response_body   TEXT,
	transport_error TEXT,
	created_at      TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exchanges_created_at ON exchanges(created_at);
`

// Entry is one stored exchange row.
type Entry struct {
	ID             string
	Method         string
	URL            string
	Status         int
	DurationMs     int64
	RequestHeaders string
	RequestBody    string
	ResponseBody   string
	TransportError string
	CreatedAt      time.Time
}

// Store is a SQLite-backed exchange log.
type Store struct {
	db           *sql.DB
	writeTimeout time.Duration
}

// Open creates or opens the store at path. Use ":memory:" for an ephemeral
// store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect history store: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}

	return &Store{db: db, writeTimeout: 5 * time.Second}, nil
}

// Observe implements request.Observer. Write failures are swallowed: history
// is an observer, and a broken log must not fail the exchange it records.
func (s *Store) Observe(ex request.Exchange) {
	_ = s.Record(ex)
}

// Record inserts one exchange row.
func (s *Store) Record(ex request.Exchange) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	respBody := ex.ResponseBody
	if len(respBody) > bodyCap {
		respBody = respBody[:bodyCap]
	}
	var transportErr string
	if ex.Err != nil {
		transportErr = ex.Err.Error()
	}
	createdAt := ex.StartedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exchanges
			(id, method, url, status, duration_ms, request_headers, request_body, response_body, transport_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.ID,
		ex.Method,
		ex.URL,
		ex.StatusCode,
		ex.Duration.Milliseconds(),
		encodeHeaders(ex.RequestHeaders),
		string(ex.RequestBody),
		string(respBody),
		transportErr,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("record exchange: %w", err)
	}
	return nil
}

// Recent returns the n most recent entries, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, method, url, status, duration_ms, request_headers, request_body, response_body, transport_error, created_at
		FROM exchanges
		ORDER BY created_at DESC, id
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.Method, &e.URL, &e.Status, &e.DurationMs,
			&e.RequestHeaders, &e.RequestBody, &e.ResponseBody,
			&e.TransportError, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func encodeHeaders(headers map[string]string) string {
	if len(headers) == 0 {
		return ""
	}
	out := ""
	for k, v := range headers {
		if out != "" {
			out += "\n"
		}
		out += k + ": " + v
	}
	return out
}
