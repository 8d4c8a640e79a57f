package records

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ListQuery narrows a record listing. An empty OwnerEmail with Scoped set
// matches nothing.
type ListQuery struct {
	OwnerEmail string
	Scoped     bool
	Statuses   []Status
	Phone      string
	// ByEstimate orders by estimated delivery, soonest first, instead of
	// newest first
	ByEstimate bool
}

type Repository interface {
	repository.Repository[*ServiceRecord]

	FindByBillNo(ctx context.Context, billNo string) (*ServiceRecord, error)
	Search(ctx context.Context, q ListQuery) ([]*ServiceRecord, error)
	Insert(ctx context.Context, record *ServiceRecord) (*ServiceRecord, error)
	UpdateStatus(ctx context.Context, billNo string, status Status, at time.Time) (*ServiceRecord, Status, error)
	DeleteByBillNo(ctx context.Context, billNo string) error
}

type serviceRecords struct {
	repository.Repository[*ServiceRecord]
	db *bun.DB
}

var _ Repository = (*serviceRecords)(nil)

func NewRepository(db *bun.DB) Repository {
	repo := repository.NewRepository[*ServiceRecord](db, repository.ModelHandlers[*ServiceRecord]{
		NewRecord: func() *ServiceRecord { return &ServiceRecord{} },
		GetID: func(r *ServiceRecord) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *ServiceRecord, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "bill_no"
		},
	})

	return &serviceRecords{
		Repository: repo,
		db:         db,
	}
}

func (r *serviceRecords) FindByBillNo(ctx context.Context, billNo string) (*ServiceRecord, error) {
	return r.findByBillNoTx(ctx, r.db, billNo)
}

func (r *serviceRecords) findByBillNoTx(ctx context.Context, tx bun.IDB, billNo string) (*ServiceRecord, error) {
	record := &ServiceRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.bill_no = ?", billNo).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"bill_no": billNo,
				})
		}
		return nil, err
	}
	return record, nil
}

func (r *serviceRecords) Search(ctx context.Context, q ListQuery) ([]*ServiceRecord, error) {
	out := make([]*ServiceRecord, 0)
	if q.Scoped && q.OwnerEmail == "" {
		return out, nil
	}

	sel := r.db.NewSelect().Model(&out)

	if q.Scoped {
		sel = sel.Where("?TableAlias.owner_email = ?", q.OwnerEmail)
	}

	if len(q.Statuses) > 0 {
		sel = sel.Where("?TableAlias.status IN (?)", bun.In(q.Statuses))
	}

	if q.Phone != "" {
		sel = sel.Where("?TableAlias.customer_phone = ?", q.Phone)
	}

	if q.ByEstimate {
		sel = sel.OrderExpr("?TableAlias.estimated_delivery ASC").
			OrderExpr("?TableAlias.bill_no ASC")
	} else {
		sel = sel.OrderExpr("?TableAlias.created_at DESC").
			OrderExpr("?TableAlias.bill_no ASC")
	}

	if err := sel.Scan(ctx); err != nil && !repository.IsRecordNotFound(err) {
		return nil, err
	}
	return out, nil
}

func (r *serviceRecords) Insert(ctx context.Context, record *ServiceRecord) (*ServiceRecord, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Status == "" {
		record.Status = StatusPending
	}
	return r.Repository.CreateTx(ctx, r.db, record)
}

// UpdateStatus sets the status and returns the updated record together with
// the status it had before, read in the same transaction.
func (r *serviceRecords) UpdateStatus(ctx context.Context, billNo string, status Status, at time.Time) (*ServiceRecord, Status, error) {
	var (
		record   *ServiceRecord
		previous Status
	)

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := r.findByBillNoTx(ctx, tx, billNo)
		if err != nil {
			return err
		}
		previous = current.Status

		res, err := tx.NewUpdate().
			Model((*ServiceRecord)(nil)).
			Set("status = ?", status).
			Set("updated_at = ?", at).
			Where("bill_no = ?", billNo).
			Exec(ctx)
		if err != nil {
			return err
		}

		if err := requireAffected(res, billNo); err != nil {
			return err
		}

		record, err = r.findByBillNoTx(ctx, tx, billNo)
		return err
	})
	if err != nil {
		return nil, "", err
	}

	return record, previous, nil
}

func (r *serviceRecords) DeleteByBillNo(ctx context.Context, billNo string) error {
	res, err := r.db.NewDelete().
		Model((*ServiceRecord)(nil)).
		Where("bill_no = ?", billNo).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, billNo)
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func requireAffected(res rowsAffected, billNo string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"bill_no": billNo,
			})
	}
	return nil
}
