// Package store records calculation runs for later review.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Kind names the calculation a run performed.
type Kind string

const (
	KindPSV   Kind = "psv"
	KindTRACS Kind = "tracs"
)

// Run is one recorded calculation: the inputs it read and the CSV it
// produced.
type Run struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Sources   []string  `json:"sources"`
	Rows      int       `json:"rows"`
	Output    []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Kind   Kind `json:"kind,omitempty"`
	Limit  int  `json:"limit,omitempty"`
	Offset int  `json:"offset,omitempty"`
}

const defaultListLimit = 100

// ErrNotFound is returned by GetRun for an unknown id.
var ErrNotFound = eris.New("store: run not found")

// Store persists run history.
type Store interface {
	// SaveRun inserts r, assigning ID and CreatedAt when they are unset.
	SaveRun(ctx context.Context, r *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	// ListRuns returns runs newest first without their output.
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Drivers accepted by Open.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultSQLitePath is used when the sqlite driver has no database URL.
const DefaultSQLitePath = "pavement.db"

// Open connects to and migrates the configured store. The none driver
// returns a nil Store and no error.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		st  Store
		err error
	)
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverNone:
		return nil, nil
	case DriverSQLite:
		if dsn == "" {
			dsn = DefaultSQLitePath
		}
		st, err = NewSQLite(dsn)
	case DriverPostgres:
		st, err = NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func prepareRun(r *Run, newID func() string) {
	if r.ID == "" {
		r.ID = newID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.Sources == nil {
		r.Sources = []string{}
	}
}

func listLimit(f RunFilter) int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}
