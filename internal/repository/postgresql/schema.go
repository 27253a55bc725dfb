package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"smart_parking/internal/domain"
	"smart_parking/internal/repository"
)

// EnsureSchema tạo các bảng nếu chưa có. Chạy lúc khởi động, idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS users (
  id SERIAL PRIMARY KEY,
  username VARCHAR(50) NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role VARCHAR(20) NOT NULL DEFAULT 'user',
  created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS parking_lots (
  lot_id VARCHAR(50) PRIMARY KEY,
  name VARCHAR(100) NOT NULL,
  address TEXT NOT NULL DEFAULT '',
  lat DOUBLE PRECISION NOT NULL,
  lng DOUBLE PRECISION NOT NULL,
  total_slots INT NOT NULL,
  reserved_slots INT NOT NULL DEFAULT 0,
  occupied_slots INT NOT NULL DEFAULT 0,
  competitive_slots INT NOT NULL DEFAULT 0,
  hourly_rate DOUBLE PRECISION NOT NULL DEFAULT 40.0,
  pa_i DOUBLE PRECISION NOT NULL DEFAULT 0.7,
  rs_i DOUBLE PRECISION NOT NULL DEFAULT 0.2,
  tdl_seconds INT NOT NULL DEFAULT 5,
  available_r INT NOT NULL DEFAULT 0,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS reservations (
  id BIGSERIAL PRIMARY KEY,
  reservation_id VARCHAR(64) NOT NULL UNIQUE,
  lot_id VARCHAR(50) NOT NULL,
  user_id VARCHAR(64),
  first_request BOOLEAN NOT NULL,
  accepted BOOLEAN NOT NULL,
  slot_type CHAR(1) NOT NULL,
  pa_i DOUBLE PRECISION NOT NULL,
  tdl_seconds INT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_reservations_lot_created ON reservations (lot_id, created_at DESC);

CREATE TABLE IF NOT EXISTS sensor_data (
  id BIGSERIAL PRIMARY KEY,
  slot_id VARCHAR(50) NOT NULL,
  lot_id VARCHAR(50) NOT NULL,
  distance DOUBLE PRECISION NOT NULL DEFAULT 0,
  status VARCHAR(10) NOT NULL,
  reading_timestamp TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sensor_data_lot_ts ON sensor_data (lot_id, reading_timestamp DESC);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("lỗi tạo schema: %w", err)
	}
	return nil
}

// SeedDemoLots chèn bộ bãi đỗ demo (khu vực Bengaluru) khi bảng còn trống.
func SeedDemoLots(ctx context.Context, lotRepo repository.ParkingLotRepository) error {
	count, err := lotRepo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	lots := []domain.ParkingLot{
		{LotID: "lot_001", Name: "MG Road Parking Complex", Address: "MG Road, Bengaluru",
			Location: domain.Location{Lat: 12.9758, Lng: 77.6045},
			TotalSlots: 50, ReservedSlots: 10, OccupiedSlots: 5, HourlyRate: 40.0, Pa: 0.9, Rs: 0.2, Tdl: 5},
		{LotID: "lot_002", Name: "Brigade Road Multi-level", Address: "Brigade Road, Bengaluru",
			Location: domain.Location{Lat: 12.9719, Lng: 77.6080},
			TotalSlots: 80, ReservedSlots: 16, OccupiedSlots: 30, HourlyRate: 50.0, Pa: 0.85, Rs: 0.2, Tdl: 5},
		{LotID: "lot_003", Name: "Cubbon Park Street Parking", Address: "Kasturba Road, Bengaluru",
			Location: domain.Location{Lat: 12.9763, Lng: 77.5929},
			TotalSlots: 30, ReservedSlots: 6, OccupiedSlots: 8, HourlyRate: 30.0, Pa: 0.95, Rs: 0.2, Tdl: 5},
	}

	for i := range lots {
		lot := &lots[i]
		lot.CompetitiveSlots = lot.TotalSlots - lot.ReservedSlots - lot.OccupiedSlots
		lot.AvailableR = lot.ReservedSlots
		if _, err := lotRepo.Create(ctx, lot); err != nil {
			return fmt.Errorf("lỗi seed bãi đỗ %s: %w", lot.LotID, err)
		}
		log.Printf("Đã seed bãi đỗ demo: %s (%s)", lot.LotID, lot.Name)
	}
	return nil
}
