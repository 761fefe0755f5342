package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
)

func TestKafkaDispatcher_PublishKeysByRecipient(t *testing.T) {
	recipient := uuid.New()
	bookingID := uuid.New()
	n := NewNotificationBuilder(NotificationTypeBookingConfirmed).
		WithRecipient(recipient).
		WithBooking(bookingID).
		With("booking_code", "TB202601010001").
		Build()

	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "tour-notifications" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != recipient.String() {
			return errors.New("message not keyed by recipient")
		}
		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var decoded Notification
		if err := json.Unmarshal(value, &decoded); err != nil {
			return err
		}
		if decoded.Type != NotificationTypeBookingConfirmed || decoded.Data["booking_code"] != "TB202601010001" {
			return errors.New("payload mismatch")
		}
		return nil
	})

	d := NewKafkaDispatcherWithProducer(producer, "tour-notifications")
	if err := d.Publish(context.Background(), n); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestKafkaDispatcher_DispatchSwallowsBrokerErrors(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	d := NewKafkaDispatcherWithProducer(producer, "tour-notifications")
	n := NewNotificationBuilder(NotificationTypeBookingCancelled).WithRecipient(uuid.New()).Build()

	if err := d.Publish(context.Background(), n); !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("Publish() error = %v, want ErrOutOfBrokers", err)
	}

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	d.Dispatch(context.Background(), n)
	_ = d.Close()
}

func TestHeaders(t *testing.T) {
	refundID := uuid.New()
	n := NewNotificationBuilder(NotificationTypeRefundApproved).WithRecipient(uuid.New()).WithRefund(refundID).Build()

	headers := createHeaders(n)
	found := false
	for _, h := range headers {
		if string(h.Key) == "refund_id" && string(h.Value) == refundID.String() {
			found = true
		}
		if string(h.Key) == "booking_id" {
			t.Error("booking_id header present without booking context")
		}
	}
	if !found {
		t.Error("refund_id header missing")
	}
}

func TestDefaultPriority(t *testing.T) {
	tests := []struct {
		notType NotificationType
		want    NotificationPriority
	}{
		{NotificationTypeDepartureCancelled, NotificationPriorityHigh},
		{NotificationTypePaymentLate, NotificationPriorityHigh},
		{NotificationTypeBookingCreated, NotificationPriorityLow},
		{NotificationTypeRefundApproved, NotificationPriorityMedium},
	}
	for _, tt := range tests {
		if got := GetDefaultPriority(tt.notType); got != tt.want {
			t.Errorf("GetDefaultPriority(%s) = %s, want %s", tt.notType, got, tt.want)
		}
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.Dispatch(context.Background(), NewNotificationBuilder(NotificationTypeBookingCreated).Build())
	r.Dispatch(context.Background(), NewNotificationBuilder(NotificationTypeBookingConfirmed).Build())

	if len(r.Sent()) != 2 {
		t.Fatalf("Sent() = %d, want 2", len(r.Sent()))
	}
	if len(r.OfType(NotificationTypeBookingConfirmed)) != 1 {
		t.Fatal("OfType() should find the confirmation")
	}
}
