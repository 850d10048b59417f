package cache

import (
	"context"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/billing"
	"github.com/hms/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// BalanceInvalidationHandler evicts cached patient totals when billing
// events change the underlying figures. Subscribed on the event bus so the
// cache never serves a stale total longer than one event dispatch.
type BalanceInvalidationHandler struct {
	cache  BalanceCache
	logger *zap.Logger
}

// NewBalanceInvalidationHandler creates a new invalidation handler
func NewBalanceInvalidationHandler(cache BalanceCache, logger *zap.Logger) *BalanceInvalidationHandler {
	return &BalanceInvalidationHandler{cache: cache, logger: logger}
}

// EventTypes returns the billing events that move a patient's total due
func (h *BalanceInvalidationHandler) EventTypes() []string {
	return []string{"BillCreated", "PaymentApplied", "BillCancelled"}
}

// Handle invalidates the cached total for the affected patient
func (h *BalanceInvalidationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var patientID uuid.UUID
	switch e := event.(type) {
	case *billing.BillCreatedEvent:
		patientID = e.PatientID
	case *billing.PaymentAppliedEvent:
		patientID = e.PatientID
	case *billing.BillCancelledEvent:
		patientID = e.PatientID
	default:
		return nil
	}

	if err := h.cache.Invalidate(ctx, patientID); err != nil {
		h.logger.Warn("failed to invalidate balance cache",
			zap.String("patient_id", patientID.String()),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

var _ shared.EventHandler = (*BalanceInvalidationHandler)(nil)
