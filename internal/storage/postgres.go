package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"

	"zoiner/internal/domain"
)

const Schema = `
CREATE TABLE IF NOT EXISTS launches (
	id               BIGSERIAL PRIMARY KEY,
	cast_hash        TEXT NOT NULL,
	author_fid       BIGINT NOT NULL,
	username         TEXT NOT NULL,
	outcome          TEXT NOT NULL,
	name             TEXT NOT NULL,
	symbol           TEXT NOT NULL,
	image_url        TEXT NOT NULL,
	metadata_uri     TEXT NOT NULL,
	metadata_origin  TEXT NOT NULL,
	tx_hash          TEXT NOT NULL,
	contract_address TEXT NOT NULL,
	reason           TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS launches_cast_hash_idx ON launches (cast_hash);
`

type Postgres struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &Postgres{db: db, now: time.Now}, nil
}

func newWithDB(db *sql.DB, now func() time.Time) *Postgres {
	return &Postgres{db: db, now: now}
}

func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, Schema)
	return err
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) Save(ctx context.Context, o domain.Outcome) error {
	l := LaunchFromOutcome(o, p.now())

	query := `
		INSERT INTO launches (cast_hash, author_fid, username, outcome, name, symbol, image_url,
			metadata_uri, metadata_origin, tx_hash, contract_address, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := p.db.ExecContext(ctx, query,
		l.CastHash,
		l.AuthorFID,
		l.Username,
		l.Outcome,
		l.Name,
		l.Symbol,
		l.ImageURL,
		l.MetadataURI,
		l.MetadataOrigin,
		l.TxHash,
		l.ContractAddress,
		l.Reason,
		l.CreatedAt,
	)

	return err
}

const selectColumns = `cast_hash, author_fid, username, outcome, name, symbol, image_url,
	metadata_uri, metadata_origin, tx_hash, contract_address, reason, created_at`

func (p *Postgres) FindByCast(ctx context.Context, hash string) (*Launch, error) {
	query := `SELECT ` + selectColumns + ` FROM launches WHERE cast_hash = $1 ORDER BY created_at DESC LIMIT 1`

	l, err := scanLaunch(p.db.QueryRowContext(ctx, query, hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &l, nil
}

func (p *Postgres) FindAll(ctx context.Context, limit, offset int) ([]Launch, error) {
	query := `SELECT ` + selectColumns + ` FROM launches ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := p.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var launches []Launch
	for rows.Next() {
		l, err := scanLaunch(rows)
		if err != nil {
			return nil, err
		}
		launches = append(launches, l)
	}

	return launches, rows.Err()
}

func (p *Postgres) GetStats(ctx context.Context) (total, deployed, failed int, err error) {
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE outcome = $1),
			COUNT(*) FILTER (WHERE outcome = $2)
		FROM launches
	`
	err = p.db.QueryRowContext(ctx, query, domain.OutcomeDeployed, domain.OutcomeDeployFailed).
		Scan(&total, &deployed, &failed)
	return total, deployed, failed, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLaunch(s scanner) (Launch, error) {
	var l Launch
	err := s.Scan(
		&l.CastHash,
		&l.AuthorFID,
		&l.Username,
		&l.Outcome,
		&l.Name,
		&l.Symbol,
		&l.ImageURL,
		&l.MetadataURI,
		&l.MetadataOrigin,
		&l.TxHash,
		&l.ContractAddress,
		&l.Reason,
		&l.CreatedAt,
	)
	return l, err
}
