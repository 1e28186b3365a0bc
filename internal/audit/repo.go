package audit

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo records every inbound request and every invoice run outcome, the
// durable paper trail the bookkeeper asks for when an invoice is missing.
type Repo struct {
	DB *pgxpool.Pool
}

// EnsureSchema creates the audit tables. Called once at startup; the
// schema is small enough that a migration tool would be overhead.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS auth_requests (
			id          BIGSERIAL PRIMARY KEY,
			state_ok    BOOLEAN NOT NULL,
			payload     JSONB NOT NULL,
			received_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS invoice_requests (
			id          BIGSERIAL PRIMARY KEY,
			event_id    TEXT NOT NULL,
			payload     JSONB NOT NULL,
			received_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS invoice_runs (
			id           BIGSERIAL PRIMARY KEY,
			event_id     TEXT NOT NULL,
			increment_id TEXT NOT NULL DEFAULT '',
			invoice_id   TEXT NOT NULL DEFAULT '',
			run_error    TEXT NOT NULL DEFAULT '',
			finished_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	return err
}

func (r *Repo) RecordAuthRequest(ctx context.Context, stateOK bool, payload []byte) error {
	_, err := r.DB.Exec(ctx,
		`INSERT INTO auth_requests(state_ok, payload) VALUES ($1, $2)`,
		stateOK, payload)
	return err
}

func (r *Repo) RecordInvoiceRequest(ctx context.Context, eventID string, payload []byte) error {
	_, err := r.DB.Exec(ctx,
		`INSERT INTO invoice_requests(event_id, payload) VALUES ($1, $2)`,
		eventID, payload)
	return err
}

// RecordRun stores the terminal outcome of one invoicing run; runErr is
// empty on success.
func (r *Repo) RecordRun(ctx context.Context, eventID, incrementID, invoiceID, runErr string) error {
	_, err := r.DB.Exec(ctx,
		`INSERT INTO invoice_runs(event_id, increment_id, invoice_id, run_error)
		 VALUES ($1, $2, $3, $4)`,
		eventID, incrementID, invoiceID, runErr)
	return err
}
