package models

import (
	"time"

	"github.com/fatflowers/dukabill/pkg/types"
	"gorm.io/datatypes"
)

// SubscriptionLog is an append-only record of one lifecycle action.
type SubscriptionLog struct {
	ID             string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	SubscriptionID string                   `gorm:"column:subscription_id;type:uuid;not null;index:idx_subscription_log_sub_created,priority:1" json:"subscription_id"`
	Action         types.SubscriptionAction `gorm:"column:action;type:varchar(32);not null" json:"action"`
	// AdminID is set for administrative actions only.
	AdminID *string `gorm:"column:admin_id;type:varchar(64);default:null" json:"admin_id"`
	Reason  *string `gorm:"column:reason;type:text;default:null" json:"reason"`
	// Details holds action specific data, e.g. the extension kind or previous end date.
	Details   datatypes.JSONMap                 `gorm:"column:details;type:jsonb;default:'{}'" json:"details"`
	Before    datatypes.JSONType[*Subscription] `gorm:"column:before;type:jsonb;default:'null'" json:"before"`
	After     datatypes.JSONType[*Subscription] `gorm:"column:after;type:jsonb;default:'null'" json:"after"`
	CreatedAt time.Time                         `gorm:"index:idx_subscription_log_sub_created,priority:2,sort:desc;index" json:"created_at"`
}

func (SubscriptionLog) TableName() string {
	return "subscription_log"
}
