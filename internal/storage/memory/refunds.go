package memory

import (
	"context"
	"sort"
	"time"

	"tourly/internal/refundpolicy"
	"tourly/internal/refunds"

	"github.com/google/uuid"
)

type policyRepo struct {
	s *Store
}

func (r *policyRepo) Create(ctx context.Context, policy *refundpolicy.RefundPolicy) error {
	return r.s.do(ctx, func() error {
		if policy.ID == uuid.Nil {
			policy.ID = uuid.New()
		}
		now := time.Now()
		policy.CreatedAt, policy.UpdatedAt = now, now
		r.s.policies[policy.ID] = *policy
		return nil
	})
}

func (r *policyRepo) Update(ctx context.Context, policy *refundpolicy.RefundPolicy) error {
	return r.s.do(ctx, func() error {
		policy.UpdatedAt = time.Now()
		r.s.policies[policy.ID] = *policy
		return nil
	})
}

func (r *policyRepo) GetByID(ctx context.Context, id uuid.UUID) (*refundpolicy.RefundPolicy, error) {
	var policy refundpolicy.RefundPolicy
	err := r.s.do(ctx, func() error {
		stored, ok := r.s.policies[id]
		if !ok {
			return refundpolicy.ErrNotFound
		}
		policy = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *policyRepo) List(ctx context.Context, filter refundpolicy.ListFilter) ([]refundpolicy.RefundPolicy, error) {
	var out []refundpolicy.RefundPolicy
	_ = r.s.do(ctx, func() error {
		for _, p := range r.s.policies {
			if filter.TriggerType != "" && p.TriggerType != filter.TriggerType {
				continue
			}
			if filter.ActiveOnly && !p.IsActive {
				continue
			}
			if !filter.IncludeDeleted && p.DeletedAt != nil {
				continue
			}
			out = append(out, p)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.TriggerType != b.TriggerType {
			return a.TriggerType < b.TriggerType
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.MinDaysBeforeEvent > b.MinDaysBeforeEvent
	})
	return out, nil
}

func (r *policyRepo) ListActiveByTrigger(ctx context.Context, trigger refundpolicy.TriggerType) ([]refundpolicy.RefundPolicy, error) {
	return r.List(ctx, refundpolicy.ListFilter{TriggerType: trigger, ActiveOnly: true})
}

// LockTrigger is satisfied by the store lock held for the whole transaction.
func (r *policyRepo) LockTrigger(ctx context.Context, trigger refundpolicy.TriggerType) error {
	return r.s.do(ctx, func() error { return nil })
}

type refundRepo struct {
	s *Store
}

func (r *refundRepo) Create(ctx context.Context, refund *refunds.TourBookingRefund) error {
	return r.s.do(ctx, func() error {
		if refund.ID == uuid.Nil {
			refund.ID = uuid.New()
		}
		if refund.Version == 0 {
			refund.Version = 1
		}
		now := time.Now()
		refund.CreatedAt, refund.UpdatedAt = now, now
		r.s.refunds[refund.ID] = *refund
		return nil
	})
}

func (r *refundRepo) GetByID(ctx context.Context, id uuid.UUID) (*refunds.TourBookingRefund, error) {
	var refund refunds.TourBookingRefund
	err := r.s.do(ctx, func() error {
		stored, ok := r.s.refunds[id]
		if !ok {
			return refunds.ErrNotFound
		}
		refund = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

// Update leaves the snapshotted amounts untouched, like the SQL update.
func (r *refundRepo) Update(ctx context.Context, refund *refunds.TourBookingRefund) error {
	return r.s.do(ctx, func() error {
		stored, ok := r.s.refunds[refund.ID]
		if !ok || stored.Version != refund.Version {
			return refunds.ErrVersionConflict
		}
		now := time.Now()
		stored.Status = refund.Status
		stored.ApprovedAmount = refund.ApprovedAmount
		stored.AdminNote = refund.AdminNote
		stored.ProcessedBy = refund.ProcessedBy
		stored.TransactionReference = refund.TransactionReference
		stored.ProcessedAt = refund.ProcessedAt
		stored.CompletedAt = refund.CompletedAt
		stored.CancelledAt = refund.CancelledAt
		stored.Version++
		stored.UpdatedAt = now
		r.s.refunds[refund.ID] = stored

		refund.Version = stored.Version
		refund.UpdatedAt = now
		return nil
	})
}

func (r *refundRepo) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]refunds.TourBookingRefund, error) {
	out := r.filter(ctx, func(rf *refunds.TourBookingRefund) bool { return rf.BookingID == bookingID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

func (r *refundRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, query refunds.RefundListQuery) ([]refunds.TourBookingRefund, int64, error) {
	return r.page(ctx, query, func(rf *refunds.TourBookingRefund) bool { return rf.CustomerID == customerID })
}

func (r *refundRepo) List(ctx context.Context, query refunds.RefundListQuery) ([]refunds.TourBookingRefund, int64, error) {
	return r.page(ctx, query, func(*refunds.TourBookingRefund) bool { return true })
}

func (r *refundRepo) page(ctx context.Context, query refunds.RefundListQuery, match func(rf *refunds.TourBookingRefund) bool) ([]refunds.TourBookingRefund, int64, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 10
	}
	matched := r.filter(ctx, func(rf *refunds.TourBookingRefund) bool {
		return match(rf) && (query.Status == "" || rf.Status == query.Status)
	})
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].RequestedAt.After(matched[j].RequestedAt) })
	return page(matched, query.Page, query.Limit), int64(len(matched)), nil
}

func (r *refundRepo) filter(ctx context.Context, match func(rf *refunds.TourBookingRefund) bool) []refunds.TourBookingRefund {
	var out []refunds.TourBookingRefund
	_ = r.s.do(ctx, func() error {
		for _, rf := range r.s.refunds {
			if match(&rf) {
				out = append(out, rf)
			}
		}
		return nil
	})
	return out
}

func (r *refundRepo) AddTimeline(ctx context.Context, entry *refunds.RefundTimelineEntry) error {
	return r.s.do(ctx, func() error {
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now()
		}
		r.s.timeline = append(r.s.timeline, *entry)
		return nil
	})
}

func (r *refundRepo) ListTimeline(ctx context.Context, refundID uuid.UUID) ([]refunds.RefundTimelineEntry, error) {
	var out []refunds.RefundTimelineEntry
	err := r.s.do(ctx, func() error {
		for _, e := range r.s.timeline {
			if e.RefundID == refundID {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}
