package records

import (
	"context"

	auth "github.com/goliatone/go-service-auth"
	"github.com/goliatone/go-service-auth/activitymap"
)

const (
	ActivityRecordCreated       auth.ActivityEventType = "records.created"
	ActivityRecordStatusChanged auth.ActivityEventType = "records.status_changed"
	ActivityRecordDeleted       auth.ActivityEventType = "records.deleted"
)

const metadataKeyBillNo = "bill_no"

// WithActivitySink receives an event for every record write
func WithActivitySink(sink auth.ActivitySink) Option {
	return func(s *Service) {
		if sink != nil {
			s.activity = sink
		}
	}
}

// NormalizeOptions maps record events onto the records channel, keyed by
// bill number.
func NormalizeOptions() []activitymap.Option {
	return []activitymap.Option{
		activitymap.WithDefaultChannel("records"),
		activitymap.WithDefaultObjectType("service_record"),
		activitymap.WithObjectIDResolver(func(event auth.ActivityEvent) string {
			return activitymap.MetadataString(event, metadataKeyBillNo)
		}),
	}
}

// IsRecordEvent reports whether event was emitted by this package
func IsRecordEvent(event auth.ActivityEvent) bool {
	switch event.EventType {
	case ActivityRecordCreated, ActivityRecordStatusChanged, ActivityRecordDeleted:
		return true
	}
	return false
}

func (s *Service) record(ctx context.Context, p auth.Principal, eventType auth.ActivityEventType, metadata map[string]any) {
	if s.activity == nil {
		return
	}

	event := auth.ActivityEvent{
		EventType:  eventType,
		Metadata:   metadata,
		OccurredAt: s.clock().UTC(),
	}
	if identity, ok := auth.AsIdentity(p); ok {
		event.UserID = identity.ID.String()
		event.Email = identity.Email
	}

	if err := s.activity.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink error recording %s: %v", eventType, err)
	}
}
