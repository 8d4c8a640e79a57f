package records

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"

	auth "github.com/goliatone/go-service-auth"
	"github.com/goliatone/go-service-auth/activitymap"
)

const maxBillNoLength = 64

// CreateInput describes a new service record
type CreateInput struct {
	BillNo            string     `json:"bill_no" form:"bill_no"`
	OwnerEmail        string     `json:"owner_email" form:"owner_email"`
	CustomerName      string     `json:"customer_name" form:"customer_name"`
	CustomerPhone     string     `json:"customer_phone" form:"customer_phone"`
	Brand             string     `json:"brand" form:"brand"`
	Model             string     `json:"model" form:"model"`
	Complaint         string     `json:"complaint" form:"complaint"`
	WatchType         string     `json:"watch_type" form:"watch_type"`
	ServiceType       string     `json:"service_type" form:"service_type"`
	Cost              *float64   `json:"cost" form:"cost"`
	EstimatedDelivery *time.Time `json:"estimated_delivery" form:"estimated_delivery"`
}

func (c CreateInput) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BillNo, validation.Required, validation.Length(1, maxBillNoLength)),
		validation.Field(&c.OwnerEmail, validation.Required, is.Email),
		validation.Field(&c.CustomerName, validation.Required, validation.Length(1, 120)),
		validation.Field(&c.CustomerPhone, validation.Required),
		validation.Field(&c.WatchType, validation.Length(0, 60)),
		validation.Field(&c.ServiceType, validation.Length(0, 60)),
		validation.Field(&c.Cost, validation.Min(0.0)),
	)
}

// Service exposes service records to callers identified by a Principal.
// Every method authorizes before touching storage and every listing is
// narrowed with auth.OwnerFilter.
type Service struct {
	repo     Repository
	logger   auth.Logger
	clock    func() time.Time
	region   string
	timeout  time.Duration
	activity auth.ActivitySink
}

type Option func(*Service)

func WithLogger(logger auth.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithPhoneRegion sets the region used for numbers without a country code
func WithPhoneRegion(region string) Option {
	return func(s *Service) {
		if region != "" {
			s.region = strings.ToUpper(region)
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		logger:  nopLogger{},
		clock:   time.Now,
		region:  DefaultRegion,
		timeout: auth.DefaultCommandTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every visible record, optionally narrowed to one status
func (s *Service) List(ctx context.Context, p auth.Principal, status *Status) ([]*ServiceRecord, error) {
	if err := auth.Authorize(p, auth.OpListRecords, "").Err(); err != nil {
		return nil, err
	}

	q := s.scoped(p)
	if status != nil {
		if !status.Valid() {
			return nil, ErrInvalidStatus
		}
		q.Statuses = []Status{*status}
	}

	return s.list(ctx, q)
}

// GetByBillNo returns the record to its owner or an admin. A missing record
// is reported before ownership is checked.
func (s *Service) GetByBillNo(ctx context.Context, p auth.Principal, billNo string) (*ServiceRecord, error) {
	if _, ok := auth.AsIdentity(p); !ok {
		return nil, auth.ErrUnauthenticated
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	record, err := s.repo.FindByBillNo(ctx, strings.TrimSpace(billNo))
	if err != nil {
		return nil, s.classify(ctx, err, "failed to load service record")
	}

	if err := auth.Authorize(p, auth.OpReadRecord, record.OwnerEmail).Err(); err != nil {
		return nil, err
	}

	return record, nil
}

// FindByPhone returns the visible records for a customer phone number.
// An empty result is ErrNotFound.
func (s *Service) FindByPhone(ctx context.Context, p auth.Principal, phone string) ([]*ServiceRecord, error) {
	if err := auth.Authorize(p, auth.OpListRecords, "").Err(); err != nil {
		return nil, err
	}

	normalized, err := NormalizePhone(phone, s.region)
	if err != nil {
		return nil, err
	}

	q := s.scoped(p)
	q.Phone = normalized

	found, err := s.list(ctx, q)
	if err != nil {
		return nil, err
	}

	if len(found) == 0 {
		return nil, auth.WrapAs(auth.ErrNotFound, "no service record found for this phone number")
	}

	return found, nil
}

func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*ServiceRecord, error) {
	if err := auth.Authorize(p, auth.OpCreateRecord, "").Err(); err != nil {
		return nil, err
	}

	in.BillNo = strings.TrimSpace(in.BillNo)
	in.OwnerEmail = auth.NormalizeEmail(in.OwnerEmail)
	in.CustomerName = strings.TrimSpace(in.CustomerName)

	if err := in.Validate(); err != nil {
		return nil, auth.WrapAs(auth.ErrValidationFailed, err.Error())
	}

	phone, err := NormalizePhone(in.CustomerPhone, s.region)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.repo.FindByBillNo(ctx, in.BillNo); err == nil {
		return nil, ErrDuplicateBillNo
	} else if !repository.IsRecordNotFound(err) {
		return nil, s.classify(ctx, err, "failed to check bill number")
	}

	now := s.clock().UTC()
	record, err := s.repo.Insert(ctx, &ServiceRecord{
		BillNo:            in.BillNo,
		OwnerEmail:        in.OwnerEmail,
		CustomerName:      in.CustomerName,
		CustomerPhone:     phone,
		Brand:             strings.TrimSpace(in.Brand),
		Model:             strings.TrimSpace(in.Model),
		Complaint:         strings.TrimSpace(in.Complaint),
		WatchType:         optional(in.WatchType),
		ServiceType:       optional(in.ServiceType),
		Cost:              in.Cost,
		Status:            StatusPending,
		EstimatedDelivery: in.EstimatedDelivery,
		CreatedAt:         &now,
		UpdatedAt:         &now,
	})
	if err != nil {
		return nil, s.classify(ctx, err, "failed to create service record")
	}

	s.logger.Info("service record created: bill_no=%s", record.BillNo)
	s.record(ctx, p, ActivityRecordCreated, map[string]any{
		metadataKeyBillNo: record.BillNo,
		"owner_email":     record.OwnerEmail,
	})

	return record, nil
}

// optional maps a blank value to NULL
func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// UpdateStatus moves the record to status. Any transition is allowed.
func (s *Service) UpdateStatus(ctx context.Context, p auth.Principal, billNo, status string) (*ServiceRecord, error) {
	if err := auth.Authorize(p, auth.OpUpdateRecordStatus, "").Err(); err != nil {
		return nil, err
	}

	next, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	record, previous, err := s.repo.UpdateStatus(ctx, strings.TrimSpace(billNo), next, s.clock().UTC())
	if err != nil {
		return nil, s.classify(ctx, err, "failed to update service record")
	}

	s.logger.Info("service record status updated: bill_no=%s from=%s to=%s", record.BillNo, previous, record.Status)
	s.record(ctx, p, ActivityRecordStatusChanged, map[string]any{
		metadataKeyBillNo:                 record.BillNo,
		activitymap.MetadataKeyFromStatus: string(previous),
		activitymap.MetadataKeyToStatus:   string(record.Status),
	})

	return record, nil
}

func (s *Service) Delete(ctx context.Context, p auth.Principal, billNo string) error {
	if err := auth.Authorize(p, auth.OpDeleteRecord, "").Err(); err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.DeleteByBillNo(ctx, strings.TrimSpace(billNo)); err != nil {
		return s.classify(ctx, err, "failed to delete service record")
	}

	s.logger.Info("service record deleted: bill_no=%s", billNo)
	s.record(ctx, p, ActivityRecordDeleted, map[string]any{
		metadataKeyBillNo: strings.TrimSpace(billNo),
	})

	return nil
}

// UpcomingEstimations lists open jobs, soonest estimated delivery first
func (s *Service) UpcomingEstimations(ctx context.Context, p auth.Principal) ([]*ServiceRecord, error) {
	if err := auth.Authorize(p, auth.OpListRecords, "").Err(); err != nil {
		return nil, err
	}

	q := s.scoped(p)
	q.Statuses = []Status{StatusPending, StatusInProgress}
	q.ByEstimate = true

	return s.list(ctx, q)
}

// DeliveredReport lists delivered jobs for the report. Nothing delivered
// is ErrNotFound.
func (s *Service) DeliveredReport(ctx context.Context, p auth.Principal) ([]*ServiceRecord, error) {
	if err := auth.Authorize(p, auth.OpGenerateReport, "").Err(); err != nil {
		return nil, err
	}

	delivered, err := s.list(ctx, ListQuery{Statuses: []Status{StatusDelivered}})
	if err != nil {
		return nil, err
	}

	if len(delivered) == 0 {
		return nil, auth.WrapAs(auth.ErrNotFound, "no delivered service records")
	}

	return delivered, nil
}

func (s *Service) scoped(p auth.Principal) ListQuery {
	email, scoped := auth.OwnerFilter(p)
	return ListQuery{OwnerEmail: email, Scoped: scoped}
}

func (s *Service) list(ctx context.Context, q ListQuery) ([]*ServiceRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	found, err := s.repo.Search(ctx, q)
	if err != nil {
		return nil, s.classify(ctx, err, "failed to list service records")
	}
	return found, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Service) classify(ctx context.Context, err error, message string) error {
	switch {
	case errors.Is(err, ErrDuplicateBillNo):
		return err
	case repository.IsRecordNotFound(err):
		return auth.WrapAs(auth.ErrNotFound, "service record not found")
	case auth.IsUniqueViolation(err):
		return ErrDuplicateBillNo
	}

	err = auth.ClassifyError(ctx, err, message)
	if !errors.Is(err, auth.ErrTemporaryFailure) && !errors.Is(err, auth.ErrNotFound) {
		s.logger.Error("%s: %v", message, err)
	}
	return err
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
