package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type SlotType string

const (
	SlotTypeReserved    SlotType = "R"
	SlotTypeCompetitive SlotType = "C"
)

// ReservationOutcome là kết quả một lần chạy giao thức CRPark cho một request.
// Pa và Tdl là giá trị tại thời điểm quyết định để caller báo deadline cho người dùng.
type ReservationOutcome struct {
	Accepted bool     `json:"accepted"`
	SlotType SlotType `json:"slot_type"`
	Pa       float64  `json:"Pa"`
	Tdl      int      `json:"Tdl"`
}

type ReservationRequestDTO struct {
	LotID        string `json:"lot_id"`
	FirstRequest *bool  `json:"first_request"` // nil được hiểu là true
	UserID       string `json:"user_id,omitempty"`
}

func (d ReservationRequestDTO) IsFirstRequest() bool {
	return d.FirstRequest == nil || *d.FirstRequest
}

// Reservation là bản ghi lưu lại một outcome, phục vụ tra cứu và analytics.
// Core không phụ thuộc vào việc lưu có thành công hay không.
type Reservation struct {
	ID            int64       `json:"id"`
	ReservationID string      `json:"reservation_id"`
	LotID         string      `json:"lot_id"`
	UserID        null.String `json:"user_id,omitempty"`
	FirstRequest  bool        `json:"first_request"`
	Accepted      bool        `json:"accepted"`
	SlotType      SlotType    `json:"slot_type"`
	Pa            float64     `json:"Pa"`
	Tdl           int         `json:"Tdl"`
	CreatedAt     time.Time   `json:"created_at"`
}

type ReservationResponse struct {
	ReservationID string             `json:"reservation_id"`
	LotID         string             `json:"lot_id"`
	Outcome       ReservationOutcome `json:"outcome"`
	Timestamp     time.Time          `json:"timestamp"`
}
