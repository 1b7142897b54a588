package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ivanivanho-work/template-stamper/internal/domain"
	"github.com/ivanivanho-work/template-stamper/internal/sqlinline"
)

type fakeSQL struct {
	execTag  pgconn.CommandTag
	execErr  error
	lastSQL  string
	lastArgs []any
	scan     func(dest ...any) error
}

func (f *fakeSQL) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	f.lastSQL = query
	f.lastArgs = args
	return f.execTag, f.execErr
}

func (f *fakeSQL) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	f.lastSQL = query
	f.lastArgs = args
	return fakeRow{scan: f.scan}
}

func (f *fakeSQL) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

func TestMarkRenderingConflictWhenNoRowMatches(t *testing.T) {
	sqlx := &fakeSQL{execTag: pgconn.NewCommandTag("UPDATE 0")}
	r := NewJobRepository(sqlx)

	err := r.MarkRendering(context.Background(), "job-1", time.Now())
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if sqlx.lastSQL != sqlinline.QMarkJobRendering {
		t.Fatalf("unexpected query: %s", sqlx.lastSQL)
	}
}

func TestMarkRenderingSucceeds(t *testing.T) {
	sqlx := &fakeSQL{execTag: pgconn.NewCommandTag("UPDATE 1")}
	r := NewJobRepository(sqlx)

	if err := r.MarkRendering(context.Background(), "job-1", time.Now()); err != nil {
		t.Fatalf("MarkRendering returned error: %v", err)
	}
}

func TestMarkFailedKeyedOnPriorStatus(t *testing.T) {
	sqlx := &fakeSQL{execTag: pgconn.NewCommandTag("UPDATE 1")}
	r := NewJobRepository(sqlx)

	jobErr := domain.JobError{Code: domain.ErrCodeRenderFailed, Message: "boom", Timestamp: time.Now()}
	if err := r.MarkFailed(context.Background(), "job-1", domain.JobStatusRendering, jobErr); err != nil {
		t.Fatalf("MarkFailed returned error: %v", err)
	}
	if len(sqlx.lastArgs) != 5 {
		t.Fatalf("unexpected arg count: %d", len(sqlx.lastArgs))
	}
	if got := sqlx.lastArgs[1]; got != domain.JobStatusRendering {
		t.Fatalf("expected prior status arg, got %#v", got)
	}
}

func TestGetByIDMapsNoRowsToNotFound(t *testing.T) {
	r := NewJobRepository(&fakeSQL{})

	if _, err := r.GetByID(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReapStaleReportsSweptCount(t *testing.T) {
	sqlx := &fakeSQL{execTag: pgconn.NewCommandTag("UPDATE 3")}
	r := NewJobRepository(sqlx)

	n, err := r.ReapStale(context.Background(), time.Now().Add(-time.Hour), domain.JobError{Code: domain.ErrCodeRenderTimeout})
	if err != nil {
		t.Fatalf("ReapStale returned error: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 swept jobs, got %d", n)
	}
}
