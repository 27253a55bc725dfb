package domain

import "time"

type SensorStatus string

const (
	SensorStatusFree     SensorStatus = "free"
	SensorStatusOccupied SensorStatus = "occupied"
)

// SensorReading là một lần đo của cảm biến gầm xe, đến từ SQS hoặc API.
// Distance là khoảng cách đo được (cm); simulator đã quy nó ra Status nên
// backend chỉ lưu lại để đối soát, không dùng để suy trạng thái.
type SensorReading struct {
	SlotID    string       `json:"slot_id" binding:"required"`
	LotID     string       `json:"lot_id" binding:"required"`
	Distance  float64      `json:"distance"`
	Timestamp string       `json:"timestamp"` // ISO 8601 từ thiết bị
	Status    SensorStatus `json:"status" binding:"required"`
}

// SensorData là bản ghi đã chuẩn hóa timestamp để lưu DB.
type SensorData struct {
	ID        int64        `json:"id"`
	SlotID    string       `json:"slot_id"`
	LotID     string       `json:"lot_id"`
	Distance  float64      `json:"distance"`
	Status    SensorStatus `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
}
