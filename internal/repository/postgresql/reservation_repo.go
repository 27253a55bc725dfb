package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"smart_parking/internal/domain"
	"smart_parking/internal/repository"
	"time"

	"github.com/lib/pq"
)

type pgReservationRepository struct {
	db *sql.DB
}

func NewPgReservationRepository(db *sql.DB) repository.ReservationRepository {
	return &pgReservationRepository{db: db}
}

func (r *pgReservationRepository) Create(ctx context.Context, resv *domain.Reservation) (*domain.Reservation, error) {
	query := `INSERT INTO reservations (reservation_id, lot_id, user_id, first_request, accepted, slot_type, pa_i, tdl_seconds, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP)
	          RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		resv.ReservationID, resv.LotID, resv.UserID, resv.FirstRequest,
		resv.Accepted, string(resv.SlotType), resv.Pa, resv.Tdl,
	).Scan(&resv.ID, &resv.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: reservation '%s' đã tồn tại", repository.ErrDuplicateEntry, resv.ReservationID)
		}
		return nil, fmt.Errorf("ReservationRepository.Create: %w", err)
	}
	resv.CreatedAt = resv.CreatedAt.In(time.UTC)
	return resv, nil
}

func (r *pgReservationRepository) FindByReservationID(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	resv := &domain.Reservation{}
	var slotType string
	query := `SELECT id, reservation_id, lot_id, user_id, first_request, accepted, slot_type, pa_i, tdl_seconds, created_at
	          FROM reservations WHERE reservation_id = $1`
	err := r.db.QueryRowContext(ctx, query, reservationID).Scan(
		&resv.ID, &resv.ReservationID, &resv.LotID, &resv.UserID, &resv.FirstRequest,
		&resv.Accepted, &slotType, &resv.Pa, &resv.Tdl, &resv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ReservationRepository.FindByReservationID: %w", err)
	}
	resv.SlotType = domain.SlotType(slotType)
	resv.CreatedAt = resv.CreatedAt.In(time.UTC)
	return resv, nil
}

func (r *pgReservationRepository) FindByLotID(ctx context.Context, lotID string, limit int) ([]domain.Reservation, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, reservation_id, lot_id, user_id, first_request, accepted, slot_type, pa_i, tdl_seconds, created_at
	          FROM reservations WHERE lot_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, lotID, limit)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.FindByLotID: %w", err)
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		var resv domain.Reservation
		var slotType string
		if err := rows.Scan(
			&resv.ID, &resv.ReservationID, &resv.LotID, &resv.UserID, &resv.FirstRequest,
			&resv.Accepted, &slotType, &resv.Pa, &resv.Tdl, &resv.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ReservationRepository.FindByLotID scan: %w", err)
		}
		resv.SlotType = domain.SlotType(slotType)
		resv.CreatedAt = resv.CreatedAt.In(time.UTC)
		reservations = append(reservations, resv)
	}
	return reservations, rows.Err()
}
