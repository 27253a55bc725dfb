package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"smart_parking/internal/domain"
	"smart_parking/internal/repository"
	"time"
)

type pgSensorDataRepository struct {
	db *sql.DB
}

func NewPgSensorDataRepository(db *sql.DB) repository.SensorDataRepository {
	return &pgSensorDataRepository{db: db}
}

func (r *pgSensorDataRepository) Create(ctx context.Context, data *domain.SensorData) error {
	query := `INSERT INTO sensor_data (slot_id, lot_id, distance, status, reading_timestamp)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		data.SlotID, data.LotID, data.Distance, string(data.Status), data.Timestamp,
	).Scan(&data.ID)
	if err != nil {
		return fmt.Errorf("SensorDataRepository.Create: %w", err)
	}
	return nil
}

func (r *pgSensorDataRepository) FindRecentByLotID(ctx context.Context, lotID string, limit int) ([]domain.SensorData, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, slot_id, lot_id, distance, status, reading_timestamp
	          FROM sensor_data WHERE lot_id = $1 ORDER BY reading_timestamp DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, lotID, limit)
	if err != nil {
		return nil, fmt.Errorf("SensorDataRepository.FindRecentByLotID: %w", err)
	}
	defer rows.Close()

	var readings []domain.SensorData
	for rows.Next() {
		var d domain.SensorData
		var status string
		if err := rows.Scan(&d.ID, &d.SlotID, &d.LotID, &d.Distance, &status, &d.Timestamp); err != nil {
			return nil, fmt.Errorf("SensorDataRepository.FindRecentByLotID scan: %w", err)
		}
		d.Status = domain.SensorStatus(status)
		d.Timestamp = d.Timestamp.In(time.UTC)
		readings = append(readings, d)
	}
	return readings, rows.Err()
}
