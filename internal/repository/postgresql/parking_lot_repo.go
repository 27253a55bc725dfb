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

type pgParkingLotRepository struct {
	db *sql.DB
}

func NewPgParkingLotRepository(db *sql.DB) repository.ParkingLotRepository {
	return &pgParkingLotRepository{db: db}
}

const lotColumns = `lot_id, name, address, lat, lng, total_slots, reserved_slots,
	occupied_slots, competitive_slots, hourly_rate, pa_i, rs_i, tdl_seconds, available_r, updated_at`

func (r *pgParkingLotRepository) Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	query := `INSERT INTO parking_lots (lot_id, name, address, lat, lng, total_slots, reserved_slots,
	           occupied_slots, competitive_slots, hourly_rate, pa_i, rs_i, tdl_seconds, available_r, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, CURRENT_TIMESTAMP)
	          RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		lot.LotID, lot.Name, lot.Address, lot.Location.Lat, lot.Location.Lng,
		lot.TotalSlots, lot.ReservedSlots, lot.OccupiedSlots, lot.CompetitiveSlots,
		lot.HourlyRate, lot.Pa, lot.Rs, lot.Tdl, lot.AvailableR,
	).Scan(&lot.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: bãi đỗ '%s' đã tồn tại", repository.ErrDuplicateEntry, lot.LotID)
		}
		return nil, fmt.Errorf("ParkingLotRepository.Create: %w", err)
	}
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return lot, nil
}

func (r *pgParkingLotRepository) FindByLotID(ctx context.Context, lotID string) (*domain.ParkingLot, error) {
	query := `SELECT ` + lotColumns + ` FROM parking_lots WHERE lot_id = $1`
	lot, err := r.scanLot(r.db.QueryRowContext(ctx, query, lotID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingLotRepository.FindByLotID: %w", err)
	}
	return lot, nil
}

func (r *pgParkingLotRepository) FindAll(ctx context.Context) ([]domain.ParkingLot, error) {
	query := `SELECT ` + lotColumns + ` FROM parking_lots ORDER BY lot_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var lots []domain.ParkingLot
	for rows.Next() {
		lot, err := r.scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("ParkingLotRepository.FindAll scan: %w", err)
		}
		lots = append(lots, *lot)
	}
	return lots, rows.Err()
}

func (r *pgParkingLotRepository) UpdateCounters(ctx context.Context, lotID string, occupied, reserved, competitive int, updatedAt time.Time) error {
	query := `UPDATE parking_lots
	          SET occupied_slots = $2, reserved_slots = $3, competitive_slots = $4, updated_at = $5
	          WHERE lot_id = $1`
	res, err := r.db.ExecContext(ctx, query, lotID, occupied, reserved, competitive, updatedAt)
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.UpdateCounters: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgParkingLotRepository) UpdateParams(ctx context.Context, lotID string, pa, rs float64) error {
	query := `UPDATE parking_lots SET pa_i = $2, rs_i = $3, updated_at = CURRENT_TIMESTAMP WHERE lot_id = $1`
	res, err := r.db.ExecContext(ctx, query, lotID, pa, rs)
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.UpdateParams: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgParkingLotRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM parking_lots`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ParkingLotRepository.Count: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *pgParkingLotRepository) scanLot(row rowScanner) (*domain.ParkingLot, error) {
	lot := &domain.ParkingLot{}
	err := row.Scan(
		&lot.LotID, &lot.Name, &lot.Address, &lot.Location.Lat, &lot.Location.Lng,
		&lot.TotalSlots, &lot.ReservedSlots, &lot.OccupiedSlots, &lot.CompetitiveSlots,
		&lot.HourlyRate, &lot.Pa, &lot.Rs, &lot.Tdl, &lot.AvailableR, &lot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return lot, nil
}
