package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeBookingCreated     NotificationType = "BOOKING_CREATED"
	NotificationTypeBookingConfirmed   NotificationType = "BOOKING_CONFIRMED"
	NotificationTypeBookingCancelled   NotificationType = "BOOKING_CANCELLED"
	NotificationTypeBookingCompleted   NotificationType = "BOOKING_COMPLETED"
	NotificationTypePaymentLate        NotificationType = "PAYMENT_LATE"
	NotificationTypeDepartureCancelled NotificationType = "DEPARTURE_CANCELLED"
	NotificationTypeRefundRequested    NotificationType = "REFUND_REQUESTED"
	NotificationTypeRefundApproved     NotificationType = "REFUND_APPROVED"
	NotificationTypeRefundRejected     NotificationType = "REFUND_REJECTED"
	NotificationTypeRefundCompleted    NotificationType = "REFUND_COMPLETED"
	NotificationTypeRefundCancelled    NotificationType = "REFUND_CANCELLED"
)

type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "LOW"
	NotificationPriorityMedium NotificationPriority = "MEDIUM"
	NotificationPriorityHigh   NotificationPriority = "HIGH"
)

// Notification carries what happened and to whom. Rendering and delivery
// belong to the consumers of the topic.
type Notification struct {
	ID          uuid.UUID            `json:"id"`
	Type        NotificationType     `json:"type"`
	Priority    NotificationPriority `json:"priority"`
	RecipientID uuid.UUID            `json:"recipient_id"`
	Subject     string               `json:"subject"`
	Data        map[string]any       `json:"data"`

	BookingID *uuid.UUID `json:"booking_id,omitempty"`
	RefundID  *uuid.UUID `json:"refund_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type NotificationBuilder struct {
	notification *Notification
}

func NewNotificationBuilder(notType NotificationType) *NotificationBuilder {
	return &NotificationBuilder{
		notification: &Notification{
			ID:        uuid.New(),
			Type:      notType,
			Priority:  GetDefaultPriority(notType),
			Subject:   DefaultSubject(notType),
			Data:      make(map[string]any),
			CreatedAt: time.Now(),
		},
	}
}

func (nb *NotificationBuilder) WithRecipient(userID uuid.UUID) *NotificationBuilder {
	nb.notification.RecipientID = userID
	return nb
}

func (nb *NotificationBuilder) WithBooking(bookingID uuid.UUID) *NotificationBuilder {
	nb.notification.BookingID = &bookingID
	return nb
}

func (nb *NotificationBuilder) WithRefund(refundID uuid.UUID) *NotificationBuilder {
	nb.notification.RefundID = &refundID
	return nb
}

func (nb *NotificationBuilder) With(key string, value any) *NotificationBuilder {
	nb.notification.Data[key] = value
	return nb
}

func (nb *NotificationBuilder) Build() Notification {
	return *nb.notification
}

func GetDefaultPriority(notType NotificationType) NotificationPriority {
	switch notType {
	case NotificationTypeDepartureCancelled, NotificationTypePaymentLate:
		return NotificationPriorityHigh
	case NotificationTypeBookingCreated, NotificationTypeBookingCompleted:
		return NotificationPriorityLow
	default:
		return NotificationPriorityMedium
	}
}

func DefaultSubject(notType NotificationType) string {
	switch notType {
	case NotificationTypeBookingCreated:
		return "Your booking is reserved, complete payment to confirm it"
	case NotificationTypeBookingConfirmed:
		return "Your booking is confirmed"
	case NotificationTypeBookingCancelled:
		return "Your booking has been cancelled"
	case NotificationTypeBookingCompleted:
		return "Thanks for travelling with us"
	case NotificationTypePaymentLate:
		return "Your payment arrived after the booking closed, a refund is on its way"
	case NotificationTypeDepartureCancelled:
		return "Your departure has been cancelled"
	case NotificationTypeRefundRequested:
		return "We received your refund request"
	case NotificationTypeRefundApproved:
		return "Your refund was approved"
	case NotificationTypeRefundRejected:
		return "Your refund request was rejected"
	case NotificationTypeRefundCompleted:
		return "Your refund has been paid out"
	case NotificationTypeRefundCancelled:
		return "Your refund request was withdrawn"
	default:
		return "Update on your booking"
	}
}

func (n *Notification) GetPartitionKey() string {
	return n.RecipientID.String()
}

func (n *Notification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}
