package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/fableweave/fableweave/internal/config"
	"github.com/fableweave/fableweave/internal/game"
)

const saveSlotSchema = `
CREATE TABLE IF NOT EXISTS profile_saves (
	profile_id    TEXT PRIMARY KEY,
	adventure_map JSONB NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps one save slot per profile in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func NewPostgresStore(ctx context.Context, cfg *config.PostgresConfig, log zerolog.Logger) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing postgres config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, saveSlotSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating save slot schema: %w", err)
	}
	return &PostgresStore{pool: pool, log: log}, nil
}

func (s *PostgresStore) Close() { s.pool.Close() }

func (s *PostgresStore) SaveAdventureMap(ctx context.Context, profileID string, m game.AdventureMap) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding adventure map: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO profile_saves (profile_id, adventure_map, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (profile_id)
		DO UPDATE SET adventure_map = EXCLUDED.adventure_map, updated_at = now()`,
		profileID, data,
	)
	if err != nil {
		return fmt.Errorf("saving adventure map: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadAdventureMap(ctx context.Context, profileID string) (*game.AdventureMap, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT adventure_map FROM profile_saves WHERE profile_id = $1`,
		profileID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading adventure map: %w", err)
	}
	var m game.AdventureMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding adventure map: %w", err)
	}
	return &m, nil
}
