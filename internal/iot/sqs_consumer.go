package iot

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"smart_parking/internal/config"
	"smart_parking/internal/domain"
	"smart_parking/internal/service"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQSConsumer kéo các bản đo từ queue của simulator cảm biến và đẩy vào
// ParkingService. Message hỏng hoặc bãi lạ thì xóa luôn (retry không cứu được);
// lỗi tạm thời thì giữ lại cho visibility timeout xử lý.
type SQSConsumer struct {
	sqsClient      *sqs.Client
	queueURL       string
	parkingService *service.ParkingService
}

func NewSQSConsumer(client *sqs.Client, cfg *config.Config, parkingService *service.ParkingService) *SQSConsumer {
	return &SQSConsumer{
		sqsClient:      client,
		queueURL:       cfg.SQSSensorQueueURL,
		parkingService: parkingService,
	}
}

func (c *SQSConsumer) Start(ctx context.Context) {
	log.Printf("SQS Consumer đang bắt đầu lắng nghe queue: %s", c.queueURL)
	for {
		select {
		case <-ctx.Done():
			log.Println("SQS Consumer: context cancelled, stopping.")
			return
		default:
			receiveInput := &sqs.ReceiveMessageInput{
				QueueUrl:            &c.queueURL,
				MaxNumberOfMessages: 10,
				WaitTimeSeconds:     20,
				VisibilityTimeout:   60,
			}

			result, err := c.sqsClient.ReceiveMessage(ctx, receiveInput)
			if err != nil {
				log.Printf("SQS Consumer: Lỗi khi nhận message: %v", err)
				select {
				case <-time.After(5 * time.Second):
				case <-ctx.Done():
					log.Println("SQS Consumer: context cancelled while waiting for retry.")
					return
				}
				continue
			}

			for _, message := range result.Messages {
				if message.Body == nil {
					log.Println("SQS Consumer: Nhận được message với body rỗng. Đang xóa...")
					c.deleteMessage(ctx, message.ReceiptHandle)
					continue
				}

				if c.handleMessage(ctx, *message.Body) {
					c.deleteMessage(ctx, message.ReceiptHandle)
				} else {
					log.Printf("SQS Consumer: Message ID %s sẽ được xử lý lại sau visibility timeout.", *message.MessageId)
				}
			}
		}
	}
}

// handleMessage trả về true nếu message nên bị xóa khỏi queue.
func (c *SQSConsumer) handleMessage(ctx context.Context, body string) bool {
	var reading domain.SensorReading
	if err := json.Unmarshal([]byte(body), &reading); err != nil {
		log.Printf("SQS Consumer: Lỗi unmarshal sensor reading, xóa message: %v. Body: %s", err, body)
		return true
	}

	_, err := c.parkingService.ApplySensorReading(ctx, reading)
	if err != nil {
		if errors.Is(err, service.ErrLotNotFound) {
			log.Printf("SQS Consumer: Bãi '%s' không tồn tại, xóa message.", reading.LotID)
			return true
		}
		log.Printf("SQS Consumer: Lỗi xử lý sensor reading cho bãi %s: %v", reading.LotID, err)
		return false
	}
	return true
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		log.Println("SQS Consumer: Receipt handle rỗng, không thể xóa message.")
		return
	}
	_, delErr := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &c.queueURL,
		ReceiptHandle: receiptHandle,
	})
	if delErr != nil {
		log.Printf("SQS Consumer: Lỗi khi xóa message: %v", delErr)
	}
}
