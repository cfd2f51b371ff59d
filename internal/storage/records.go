// Package storage persists completed photo/location pairings.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/photogeo/core/logger"
	"github.com/m3rciful/photogeo/internal/intake"
)

// Pairing is a stored record row.
type Pairing struct {
	ID          string    `db:"id"`
	UserID      int64     `db:"user_id"`
	DisplayName string    `db:"display_name"`
	PhotoRef    string    `db:"photo_ref"`
	Latitude    float64   `db:"latitude"`
	Longitude   float64   `db:"longitude"`
	SentAt      time.Time `db:"sent_at"`
	CreatedAt   time.Time `db:"created_at"`
}

// Records appends pairings with one INSERT each, so concurrent writers never
// lose each other's rows.
type Records struct {
	db    *sqlx.DB
	newID func() string
	now   func() time.Time
}

// NewRecords returns a Records writer over db.
func NewRecords(db *sqlx.DB) *Records {
	return &Records{
		db:    db,
		newID: func() string { return uuid.NewString() },
		now:   time.Now,
	}
}

const insertPairing = `INSERT INTO pairings
	(id, user_id, display_name, photo_ref, latitude, longitude, sent_at, created_at)
	VALUES (:id, :user_id, :display_name, :photo_ref, :latitude, :longitude, :sent_at, :created_at)`

// Append stores rec and returns the generated record id.
func (r *Records) Append(ctx context.Context, rec intake.Record) (string, error) {
	p := Pairing{
		ID:          r.newID(),
		UserID:      rec.UserID,
		DisplayName: rec.DisplayName,
		PhotoRef:    rec.LocalPhotoRef,
		Latitude:    rec.Latitude,
		Longitude:   rec.Longitude,
		SentAt:      rec.Timestamp.UTC(),
		CreatedAt:   r.now().UTC(),
	}
	start := time.Now()
	if _, err := r.db.NamedExecContext(ctx, insertPairing, p); err != nil {
		logger.Error(ctx, "store", "store.append",
			slog.String("status", "fail"),
			slog.Int64("user_id", rec.UserID),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("storage: append pairing: %w", err)
	}
	logger.Info(ctx, "store", "store.append",
		slog.String("status", "ok"),
		slog.String("record_id", p.ID),
		slog.Int64("user_id", rec.UserID),
		slog.String("photo_ref", p.PhotoRef),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return p.ID, nil
}

// ByUser returns a user's pairings, oldest first.
func (r *Records) ByUser(ctx context.Context, userID int64) ([]Pairing, error) {
	var out []Pairing
	q := r.db.Rebind(`SELECT id, user_id, display_name, photo_ref, latitude, longitude, sent_at, created_at
		FROM pairings WHERE user_id = ? ORDER BY sent_at, created_at`)
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, fmt.Errorf("storage: list pairings: %w", err)
	}
	return out, nil
}

// Count returns the number of stored pairings.
func (r *Records) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM pairings`); err != nil {
		return 0, fmt.Errorf("storage: count pairings: %w", err)
	}
	return n, nil
}
