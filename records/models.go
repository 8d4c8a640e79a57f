package records

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Status is the repair job state. Any transition is allowed.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
	StatusDelivered  Status = "Delivered"
)

var statuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusCompleted,
	StatusDelivered,
}

func (s Status) Valid() bool {
	for _, v := range statuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseStatus accepts the canonical values in any case, plus the spaced
// form "In Progress".
func ParseStatus(raw string) (Status, error) {
	compact := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	for _, v := range statuses {
		if strings.EqualFold(compact, string(v)) {
			return v, nil
		}
	}
	return "", ErrInvalidStatus
}

// ServiceRecord is a watch repair job keyed by bill number
type ServiceRecord struct {
	bun.BaseModel     `bun:"table:service_records,alias:sr"`
	ID                uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	BillNo            string     `bun:"bill_no,notnull,unique" json:"bill_no"`
	OwnerEmail        string     `bun:"owner_email,notnull" json:"owner_email"`
	CustomerName      string     `bun:"customer_name,notnull" json:"customer_name"`
	CustomerPhone     string     `bun:"customer_phone,notnull" json:"customer_phone"`
	Brand             string     `bun:"brand,notnull" json:"brand"`
	Model             string     `bun:"model,notnull" json:"model"`
	Complaint         string     `bun:"complaint,notnull" json:"complaint"`
	WatchType         *string    `bun:"watch_type" json:"watch_type,omitempty"`
	ServiceType       *string    `bun:"service_type" json:"service_type,omitempty"`
	Cost              *float64   `bun:"cost" json:"cost,omitempty"`
	Status            Status     `bun:"status,notnull" json:"status"`
	EstimatedDelivery *time.Time `bun:"estimated_delivery,nullzero" json:"estimated_delivery,omitempty"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
