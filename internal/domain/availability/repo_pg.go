package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medcore/hms/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type storePG struct{ pool *pgxpool.Pool }

func NewStorePG(pool *pgxpool.Pool) Store { return &storePG{pool: pool} }

func (r *storePG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const slotCols = `id, doctor_id, hospital_id, slot_date, from_time, to_time, is_available, created_at`

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	err := row.Scan(&s.ID, &s.DoctorID, &s.HospitalID, &s.SlotDate, &s.FromTime,
		&s.ToTime, &s.IsAvailable, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	return &s, err
}

func (r *storePG) ReplaceWindow(ctx context.Context, w Window, slots []Slot) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		tx := db.TxFromContext(ctx)

		_, err := tx.Exec(ctx, `
			DELETE FROM availability_slots
			WHERE doctor_id = $1 AND hospital_id = $2
			  AND from_time >= $3 AND to_time <= $4`,
			w.DoctorID, w.HospitalID, w.From, w.To)
		if err != nil {
			return fmt.Errorf("clearing window: %w", err)
		}

		batch := &pgx.Batch{}
		for i := range slots {
			if slots[i].ID == uuid.Nil {
				slots[i].ID = uuid.New()
			}
			batch.Queue(`
				INSERT INTO availability_slots (id, doctor_id, hospital_id, slot_date, from_time, to_time, is_available)
				VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				slots[i].ID, slots[i].DoctorID, slots[i].HospitalID, slots[i].SlotDate,
				slots[i].FromTime, slots[i].ToTime, slots[i].IsAvailable)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting slots: %w", err)
		}

		var persisted int
		err = tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM availability_slots
			WHERE doctor_id = $1 AND hospital_id = $2
			  AND from_time >= $3 AND to_time <= $4`,
			w.DoctorID, w.HospitalID, w.From, w.To).Scan(&persisted)
		if err != nil {
			return fmt.Errorf("verifying window: %w", err)
		}
		if persisted != len(slots) {
			return fmt.Errorf("%w: expected %d slots, found %d", ErrVerificationFailed, len(slots), persisted)
		}
		return nil
	})
}

func (r *storePG) GetByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return scanSlot(r.conn(ctx).QueryRow(ctx,
		`SELECT `+slotCols+` FROM availability_slots WHERE id = $1`, id))
}

func (r *storePG) FindFree(ctx context.Context, doctorID uuid.UUID, hospitalID string, startsAt, dayStart, dayEnd time.Time) (*Slot, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+slotCols+` FROM availability_slots
		WHERE doctor_id = $1 AND hospital_id = $2 AND is_available = true
		  AND from_time = $3 AND from_time >= $4 AND from_time < $5
		LIMIT 2`,
		doctorID, hospitalID, startsAt, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, ErrSlotNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, ErrAmbiguousSlot
	}
}

func (r *storePG) Claim(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE availability_slots SET is_available = false
		WHERE id = $1 AND is_available = true`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrSlotAlreadyBooked
	}
	return nil
}

func (r *storePG) Release(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE availability_slots SET is_available = true
		WHERE id = $1 AND is_available = false`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *storePG) ListAvailable(ctx context.Context, hospitalID string, dayStart, dayEnd time.Time, doctorID *uuid.UUID) ([]*Slot, error) {
	query := `SELECT ` + slotCols + ` FROM availability_slots
		WHERE hospital_id = $1 AND is_available = true
		  AND from_time >= $2 AND from_time < $3`
	args := []interface{}{hospitalID, dayStart, dayEnd}
	if doctorID != nil {
		query += ` AND doctor_id = $4`
		args = append(args, *doctorID)
	}
	query += ` ORDER BY doctor_id, from_time ASC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
