package iot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"smart_parking/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
)

// DisplayPublisher đẩy trạng thái occupancy xuống bảng hiển thị của bãi qua
// AWS IoT Data Plane. Best-effort: caller (ParkingService) log lỗi rồi bỏ qua.
type DisplayPublisher struct {
	iotDataClient *iotdataplane.Client
}

func NewDisplayPublisher(client *iotdataplane.Client) *DisplayPublisher {
	return &DisplayPublisher{iotDataClient: client}
}

func (p *DisplayPublisher) PublishDisplayState(ctx context.Context, state domain.LotDisplayState) error {
	topic := fmt.Sprintf("smart_parking/lots/%s/display", state.LotID)

	payloadBytes, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("lỗi marshal display state: %w", err)
	}

	_, err = p.iotDataClient.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(topic),
		Qos:     1,
		Payload: payloadBytes,
	})
	if err != nil {
		return fmt.Errorf("lỗi publish display state MQTT: %w", err)
	}

	log.Printf("Đã publish display state cho bãi %s tới topic %s", state.LotID, topic)
	return nil
}
