package domain

import "time"

// Location là tọa độ WGS84, lat thuộc [-90,90], lng thuộc [-180,180]
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ParkingLot là bản ghi trạng thái sống của một bãi đỗ.
// Bất biến: OccupiedSlots + ReservedSlots + CompetitiveSlots == TotalSlots
// sau mọi mutation; LotStateStore là nơi duy nhất được ghi các counter này.
type ParkingLot struct {
	LotID            string    `json:"lot_id"`
	Name             string    `json:"name"`
	Address          string    `json:"address,omitempty"`
	Location         Location  `json:"location"`
	TotalSlots       int       `json:"total_slots"`
	ReservedSlots    int       `json:"reserved_slots"`
	OccupiedSlots    int       `json:"occupied_slots"`
	CompetitiveSlots int       `json:"competitive_slots"`
	HourlyRate       float64   `json:"hourly_rate"`
	Pa               float64   `json:"pa_i"` // Xác suất chấp nhận first-chance, thuộc [0,1]
	Rs               float64   `json:"rs_i"` // Tỉ lệ slot dành riêng do optimizer đề xuất
	Tdl              int       `json:"tdl"`  // Deadline second request, tính bằng giây
	AvailableR       int       `json:"available_r"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Utilization = (occupied + reserved) / total. Caller phải đảm bảo TotalSlots > 0.
func (l *ParkingLot) Utilization() float64 {
	return float64(l.OccupiedSlots+l.ReservedSlots) / float64(l.TotalSlots)
}

type ParkingLotDTO struct {
	LotID         string   `json:"lot_id" binding:"required"`
	Name          string   `json:"name" binding:"required"`
	Address       string   `json:"address"`
	Location      Location `json:"location"`
	TotalSlots    int      `json:"total_slots" binding:"required,gt=0"`
	ReservedSlots int      `json:"reserved_slots"`
	HourlyRate    float64  `json:"hourly_rate"`
	Pa            float64  `json:"pa_i"`
	Tdl           int      `json:"tdl"`
}
