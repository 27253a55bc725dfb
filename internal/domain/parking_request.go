package domain

// ParkingRequest là yêu cầu tìm bãi đỗ của người dùng: đang ở đâu, muốn đến đâu.
type ParkingRequest struct {
	UserID          string   `json:"user_id"`
	CurrentLocation Location `json:"current_location" binding:"required"`
	Destination     Location `json:"destination" binding:"required"`
	ArrivalTime     string   `json:"arrival_time,omitempty"` // ISO 8601, tùy chọn
	DurationMinutes int      `json:"duration"`               // Mặc định 60 phút
}

// CostBreakdown là kết quả tính chi phí cho một bãi, mọi giá trị đã làm tròn 2 chữ số.
type CostBreakdown struct {
	TotalCost          float64 `json:"total_cost"`
	DrivingTime        float64 `json:"driving_time"` // phút
	WalkingTime        float64 `json:"walking_time"` // phút
	WaitingTime        float64 `json:"waiting_time"` // phút
	ReservationCost    float64 `json:"reservation_cost"`
	CompetitionCost    float64 `json:"competition_cost"`
	SuccessProbability float64 `json:"success_probability"`
}

type PredictCostResponse struct {
	OptimalLot     string                   `json:"optimal_lot"`
	Currency       string                   `json:"currency"`
	Costs          map[string]CostBreakdown `json:"costs"`
	Recommendation LotRecommendation        `json:"recommendation"`
}

type LotRecommendation struct {
	LotID         string  `json:"lot_id"`
	LotName       string  `json:"lot_name"`
	EstimatedCost float64 `json:"estimated_cost"`
}
