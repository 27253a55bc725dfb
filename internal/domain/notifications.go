package domain

// Các payload bắn qua WebSocket cho dashboard. Type giúp client phân loại message.

type ReservationUpdateNotification struct {
	Type          string   `json:"type"` // luôn là "reservation_update"
	ReservationID string   `json:"reservation_id"`
	LotID         string   `json:"lot_id"`
	Accepted      bool     `json:"accepted"`
	SlotType      SlotType `json:"slot_type"`
	Pa            float64  `json:"Pa"`
	Tdl           int      `json:"Tdl"`
	Timestamp     string   `json:"timestamp"`
}

type SensorUpdateNotification struct {
	Type             string `json:"type"` // luôn là "sensor_update"
	LotID            string `json:"lot_id"`
	OccupiedSlots    int    `json:"occupied_slots"`
	CompetitiveSlots int    `json:"competitive_slots"`
	Timestamp        string `json:"timestamp"`
}

// LotDisplayState là payload đẩy xuống bảng LED của bãi qua AWS IoT.
type LotDisplayState struct {
	LotID            string `json:"lot_id"`
	TotalSlots       int    `json:"total_slots"`
	OccupiedSlots    int    `json:"occupied_slots"`
	ReservedSlots    int    `json:"reserved_slots"`
	CompetitiveSlots int    `json:"competitive_slots"`
	UpdatedAt        string `json:"updated_at"`
}

// LotAnalytics là một dòng của báo cáo /analytics.
type LotAnalytics struct {
	Name        string  `json:"name"`
	Utilization float64 `json:"utilization"`
	Efficiency  float64 `json:"efficiency"`
	Pa          float64 `json:"pa_i"`
	Rs          float64 `json:"rs_i"`
	HourlyRate  float64 `json:"hourly_rate"`
}
