package entity

import (
	"time"
)

type DisputeAction string

const (
	DisputeRefund DisputeAction = "refund"
	DisputeReject DisputeAction = "reject"
)

func (a DisputeAction) Valid() bool {
	return a == DisputeRefund || a == DisputeReject
}

// IsDisputable holds while the transaction is pending or completed and the
// dispute window opened at creation has not closed.
func (t *Transaction) IsDisputable(now time.Time, window time.Duration) bool {
	if t.Status != TransactionPending && t.Status != TransactionCompleted {
		return false
	}
	return now.Before(t.CreatedAt.Add(window))
}

func (t *Transaction) OpenDispute(reason string, now time.Time) {
	t.Status = TransactionDisputed
	t.DisputeReason = reason
	t.DisputedAt = &now
	t.UpdatedAt = now
}

// ResolveDispute applies an admin decision. Refund ends the transaction,
// reject returns it to completed.
func (t *Transaction) ResolveDispute(action DisputeAction, now time.Time) {
	switch action {
	case DisputeRefund:
		t.Status = TransactionRefunded
	case DisputeReject:
		t.Status = TransactionCompleted
	}
	t.Resolution = string(action)
	t.ResolvedAt = &now
	t.UpdatedAt = now
}
