package infra

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

var schemaStatements = []string{
	`create extension if not exists "pgcrypto";`,
	`create table if not exists integration_tokens (
		id uuid primary key default gen_random_uuid(),
		provider text not null unique,
		token text not null,
		properties jsonb not null default '{}'::jsonb,
		created_at timestamptz not null default now(),
		updated_at timestamptz not null default now()
	);`,
	`create table if not exists scenes (
		id uuid primary key,
		position int not null,
		image_prompt text not null,
		video_prompt text not null,
		duration_seconds int not null default 5,
		image_url text,
		image_id_base text,
		image_remote_url text,
		video_url text,
		created_at timestamptz not null default now(),
		updated_at timestamptz not null default now()
	);`,
	`create table if not exists board_assets (
		id uuid primary key,
		type text not null,
		data_url text not null,
		filename text not null,
		locked boolean not null default true,
		created_at timestamptz not null default now()
	);`,
}

// Migrate applies the service schema through database/sql. It is idempotent
// and safe to run on every boot.
func Migrate(ctx context.Context, databaseURL string) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("migrate: open database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("migrate: ping database: %w", err)
	}
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: apply schema: %w", err)
		}
	}
	return nil
}
