package persistence

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mcdev12/auctionroom/go/internal/auction/protocol"
	"github.com/mcdev12/auctionroom/go/internal/auction/scoring"
	"github.com/mcdev12/auctionroom/go/internal/catalogue"
	"github.com/mcdev12/auctionroom/go/internal/models"
	"github.com/mcdev12/auctionroom/go/internal/sqlutil"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/sqlc-dev/pqtype"
)

// Schema is the DDL for every table the store and the seed tool use
//
//go:embed schema.sql
var Schema string

const uniqueViolation = "23505"

// PostgresStore keeps the latest snapshot per room, every purchase and the
// final standings.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tables if they do not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveRoomSnapshot(ctx context.Context, roomCode string, snapshot protocol.RoomSnapshot) error {
	data, err := jsonColumn(snapshot)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO auction_rooms (code, phase, snapshot, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (code) DO UPDATE
		SET phase = EXCLUDED.phase, snapshot = EXCLUDED.snapshot, updated_at = now()`,
		roomCode, string(snapshot.Phase), data, snapshot.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot for room %s: %w", roomCode, err)
	}
	return nil
}

// RecordPurchase is idempotent per room and item
func (s *PostgresStore) RecordPurchase(ctx context.Context, p PurchaseRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auction_purchases (
			id, room_code, item_id, item_name, category, overseas,
			team_id, team_name, price, remaining_budget, purchased_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.New(), p.RoomCode, p.ItemID, p.ItemName, string(p.Category), p.Overseas,
		p.TeamID, p.TeamName, p.Price, p.Remaining, p.PurchasedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		log.Debug().Str("room_code", p.RoomCode).Str("item_id", p.ItemID).Msg("purchase already recorded")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to record purchase of %s in room %s: %w", p.ItemID, p.RoomCode, err)
	}
	return nil
}

func (s *PostgresStore) SaveFinalResults(ctx context.Context, roomCode string, results []scoring.TeamResult) error {
	data, err := jsonColumn(results)
	if err != nil {
		return err
	}
	var winner *string
	if len(results) > 0 {
		winner = &results[0].TeamID
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO auction_results (room_code, results, winner)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_code) DO NOTHING`,
		roomCode, data, sqlutil.ToSqlString(winner),
	)
	if err != nil {
		return fmt.Errorf("failed to save results for room %s: %w", roomCode, err)
	}
	return nil
}

// Snapshot returns the last snapshot stored for a room
func (s *PostgresStore) Snapshot(ctx context.Context, roomCode string) (protocol.RoomSnapshot, error) {
	var raw pqtype.NullRawMessage
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM auction_rooms WHERE code = $1`, roomCode).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return protocol.RoomSnapshot{}, ErrNotFound
	}
	if err != nil {
		return protocol.RoomSnapshot{}, fmt.Errorf("failed to load snapshot for room %s: %w", roomCode, err)
	}
	var snap protocol.RoomSnapshot
	if !raw.Valid {
		return snap, ErrNotFound
	}
	if err := json.Unmarshal(raw.RawMessage, &snap); err != nil {
		return snap, fmt.Errorf("failed to decode snapshot for room %s: %w", roomCode, err)
	}
	return snap, nil
}

// LoadCatalogue reads franchises and items in auction order. An empty
// catalogue reports ErrNotFound so callers can fall back to the built-in one.
func (s *PostgresStore) LoadCatalogue(ctx context.Context) (catalogue.Catalogue, error) {
	var cat catalogue.Catalogue

	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM catalogue_franchises ORDER BY position, id`)
	if err != nil {
		return cat, fmt.Errorf("failed to query franchises: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var f catalogue.Franchise
		if err := rows.Scan(&f.ID, &f.Name); err != nil {
			return cat, fmt.Errorf("failed to scan franchise: %w", err)
		}
		cat.Franchises = append(cat.Franchises, f)
	}
	if err := rows.Err(); err != nil {
		return cat, fmt.Errorf("failed to read franchises: %w", err)
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, overseas, set_name, base_price
		FROM catalogue_items ORDER BY position, id`)
	if err != nil {
		return cat, fmt.Errorf("failed to query items: %w", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var (
			item     models.Item
			category string
			set      sql.NullString
			price    decimal.Decimal
		)
		if err := itemRows.Scan(&item.ID, &item.Name, &category, &item.Overseas, &set, &price); err != nil {
			return cat, fmt.Errorf("failed to scan item: %w", err)
		}
		item.Category = models.Category(category)
		item.Set = sqlutil.FromSqlString(set, "")
		item.BasePrice = price
		item.Status = models.ItemPending
		cat.Items = append(cat.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return cat, fmt.Errorf("failed to read items: %w", err)
	}

	if len(cat.Franchises) == 0 && len(cat.Items) == 0 {
		return cat, ErrNotFound
	}
	if err := cat.Validate(); err != nil {
		return catalogue.Catalogue{}, err
	}
	return cat, nil
}

// SaveCatalogue replaces the stored catalogue in one transaction
func (s *PostgresStore) SaveCatalogue(ctx context.Context, cat catalogue.Catalogue) error {
	if err := cat.Validate(); err != nil {
		return err
	}
	return sqlutil.Run(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM catalogue_items`); err != nil {
			return fmt.Errorf("failed to clear items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM catalogue_franchises`); err != nil {
			return fmt.Errorf("failed to clear franchises: %w", err)
		}
		for i, f := range cat.Franchises {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO catalogue_franchises (id, name, position) VALUES ($1, $2, $3)`,
				f.ID, f.Name, i,
			); err != nil {
				return fmt.Errorf("failed to insert franchise %s: %w", f.ID, err)
			}
		}
		for i, item := range cat.Items {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO catalogue_items (id, name, category, overseas, set_name, base_price, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				item.ID, item.Name, string(item.Category), item.Overseas,
				sqlutil.NullIfEmpty(item.Set), item.BasePrice, i,
			); err != nil {
				return fmt.Errorf("failed to insert item %s: %w", item.ID, err)
			}
		}
		return nil
	})
}

func jsonColumn(v any) (pqtype.NullRawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return pqtype.NullRawMessage{}, fmt.Errorf("failed to encode json column: %w", err)
	}
	return pqtype.NullRawMessage{RawMessage: data, Valid: true}, nil
}
