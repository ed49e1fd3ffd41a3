package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PocketRelay/Server-sub000/internal/handlers"
	"github.com/PocketRelay/Server-sub000/internal/model"
)

// PlayerRepository implements handlers.PlayerStore and
// router.PlayerDataLoader against PostgreSQL, grounded on the teacher's
// CharacterRepository: one pgxpool.Pool, one QueryRow/Scan per lookup, nil
// (not an error) for a missing row.
type PlayerRepository struct {
	pool *pgxpool.Pool
}

// NewPlayerRepository builds a PlayerRepository over pool.
func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

func scanPlayer(row pgx.Row) (*model.Player, error) {
	var p model.Player
	var role int16
	if err := row.Scan(&p.ID, &p.Email, &p.DisplayName, &p.PasswordHash, &role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.Role = model.Role(role)
	return &p, nil
}

func (r *PlayerRepository) PlayerByID(ctx context.Context, id int32) (*model.Player, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, display_name, password_hash, role FROM players WHERE id = $1`, id)
	p, err := scanPlayer(row)
	if err != nil {
		return nil, fmt.Errorf("querying player %d: %w", id, err)
	}
	return p, nil
}

func (r *PlayerRepository) PlayerByEmail(ctx context.Context, email string) (*model.Player, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, display_name, password_hash, role FROM players WHERE email = $1`,
		strings.ToLower(email))
	p, err := scanPlayer(row)
	if err != nil {
		return nil, fmt.Errorf("querying player %q: %w", email, err)
	}
	return p, nil
}

func (r *PlayerRepository) PlayerCreate(ctx context.Context, email, displayName string, passwordHash *string) (*model.Player, error) {
	email = strings.ToLower(email)
	var id int32
	err := r.pool.QueryRow(ctx,
		`INSERT INTO players (email, display_name, password_hash, role) VALUES ($1, $2, $3, 0) RETURNING id`,
		email, displayName, passwordHash,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("creating player %q: %w", email, err)
	}
	return &model.Player{ID: id, Email: email, DisplayName: displayName, PasswordHash: passwordHash}, nil
}

func (r *PlayerRepository) PlayerSetPassword(ctx context.Context, id int32, passwordHash string) error {
	_, err := r.pool.Exec(ctx, `UPDATE players SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("updating password for player %d: %w", id, err)
	}
	return nil
}

func (r *PlayerRepository) PlayerSetRole(ctx context.Context, id int32, role model.Role) error {
	_, err := r.pool.Exec(ctx, `UPDATE players SET role = $1 WHERE id = $2`, int16(role), id)
	if err != nil {
		return fmt.Errorf("updating role for player %d: %w", id, err)
	}
	return nil
}

func (r *PlayerRepository) PlayerSetDetails(ctx context.Context, id int32, displayName string) error {
	_, err := r.pool.Exec(ctx, `UPDATE players SET display_name = $1 WHERE id = $2`, displayName, id)
	if err != nil {
		return fmt.Errorf("updating display name for player %d: %w", id, err)
	}
	return nil
}

func (r *PlayerRepository) PlayerDataAll(ctx context.Context, id int32) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value FROM player_data WHERE player_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("querying player data for %d: %w", id, err)
	}
	defer rows.Close()

	data := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning player data for %d: %w", id, err)
		}
		data[k] = v
	}
	return data, rows.Err()
}

func (r *PlayerRepository) PlayerDataGet(ctx context.Context, id int32, key string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx,
		`SELECT value FROM player_data WHERE player_id = $1 AND key = $2`, id, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("querying player data %d/%q: %w", id, key, err)
	}
	return value, true, nil
}

func (r *PlayerRepository) PlayerDataSet(ctx context.Context, id int32, key, value string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO player_data (player_id, key, value) VALUES ($1, $2, $3)
		 ON CONFLICT (player_id, key) DO UPDATE SET value = EXCLUDED.value`,
		id, key, value,
	)
	if err != nil {
		return fmt.Errorf("saving player data %d/%q: %w", id, key, err)
	}
	return nil
}

func (r *PlayerRepository) PlayerDataDelete(ctx context.Context, id int32, key string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM player_data WHERE player_id = $1 AND key = $2`, id, key)
	if err != nil {
		return fmt.Errorf("deleting player data %d/%q: %w", id, key, err)
	}
	return nil
}

func (r *PlayerRepository) GalaxyAtWarGet(ctx context.Context, id int32) (handlers.GalaxyAtWar, error) {
	var gaw handlers.GalaxyAtWar
	err := r.pool.QueryRow(ctx,
		`SELECT level, level_decay, football_level, alliance_level, cerberus_level
		 FROM galaxy_at_war WHERE player_id = $1`, id,
	).Scan(&gaw.Level, &gaw.LevelDecay, &gaw.FootballLevel, &gaw.AllianceLevel, &gaw.CerberusLevel)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return handlers.GalaxyAtWar{Level: 5000, FootballLevel: 5000, AllianceLevel: 5000, CerberusLevel: 5000}, nil
		}
		return handlers.GalaxyAtWar{}, fmt.Errorf("querying galaxy-at-war for %d: %w", id, err)
	}
	return gaw, nil
}
