package models

import (
	"time"

	"gorm.io/datatypes"
)

type PaymentNotificationLogStatus string

const (
	PaymentNotificationLogStatusReceived     PaymentNotificationLogStatus = "received"
	PaymentNotificationLogStatusHandled      PaymentNotificationLogStatus = "handled"
	PaymentNotificationLogStatusHandleFailed PaymentNotificationLogStatus = "handle_failed"
)

// PaymentNotificationLog keeps every inbound gateway callback, matched or not.
type PaymentNotificationLog struct {
	ID             string                       `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Provider       string                       `gorm:"column:provider;type:varchar(64);not null" json:"provider"`
	CorrelationID  string                       `gorm:"column:correlation_id;type:varchar(128);index" json:"correlation_id"`
	SubscriptionID *string                      `gorm:"column:subscription_id;type:uuid;default:null" json:"subscription_id"`
	TraceID        string                       `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	TransactionID  string                       `gorm:"column:transaction_id;type:varchar(128)" json:"transaction_id"`
	ReceivedAt     time.Time                    `gorm:"column:received_at" json:"received_at"`
	Data           datatypes.JSON               `gorm:"column:data;type:jsonb" json:"data"`
	Result         datatypes.JSONMap            `gorm:"column:result;type:jsonb;default:'{}'" json:"result"`
	Status         PaymentNotificationLogStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CreatedAt      time.Time                    `json:"created_at"`
	UpdatedAt      time.Time                    `json:"updated_at"`
}

func (PaymentNotificationLog) TableName() string { return "payment_notification_log" }
