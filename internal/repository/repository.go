package repository

import (
	"context"
	"errors"
	"smart_parking/internal/domain"
	"time"
)

var ErrNotFound = errors.New("không tìm thấy bản ghi")
var ErrDuplicateEntry = errors.New("bản ghi đã tồn tại")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
}

// ParkingLotRepository lưu cấu hình và trạng thái bãi. LotStateStore là nguồn
// sự thật lúc chạy; DB chỉ là persistence để warm-load lại khi khởi động.
type ParkingLotRepository interface {
	Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	FindByLotID(ctx context.Context, lotID string) (*domain.ParkingLot, error)
	FindAll(ctx context.Context) ([]domain.ParkingLot, error)
	UpdateCounters(ctx context.Context, lotID string, occupied, reserved, competitive int, updatedAt time.Time) error
	UpdateParams(ctx context.Context, lotID string, pa, rs float64) error
	Count(ctx context.Context) (int, error)
}

type ReservationRepository interface {
	Create(ctx context.Context, resv *domain.Reservation) (*domain.Reservation, error)
	FindByReservationID(ctx context.Context, reservationID string) (*domain.Reservation, error)
	FindByLotID(ctx context.Context, lotID string, limit int) ([]domain.Reservation, error)
}

type SensorDataRepository interface {
	Create(ctx context.Context, data *domain.SensorData) error
	FindRecentByLotID(ctx context.Context, lotID string, limit int) ([]domain.SensorData, error)
}
