package risk

import (
	"context"
	"fmt"

	drepo "github.com/YoByron/trading-sub013/internal/domain/repository"
	domsvc "github.com/YoByron/trading-sub013/internal/domain/service"
)

// HaltSwitch is the emergency stop backed by a persistent store, settable
// from outside the process and checked before any other risk logic.
type HaltSwitch struct {
	store drepo.HaltStore
}

func NewHaltSwitch(store drepo.HaltStore) *HaltSwitch {
	return &HaltSwitch{store: store}
}

var _ domsvc.HaltController = (*HaltSwitch)(nil)

func (h *HaltSwitch) IsHalted(ctx context.Context) (bool, string, error) {
	halted, reason, err := h.store.Get(ctx)
	if err != nil {
		return true, "", fmt.Errorf("halt store: %w", err)
	}
	return halted, reason, nil
}

func (h *HaltSwitch) SetHalted(ctx context.Context, halted bool, reason string) error {
	if halted && reason == "" {
		return fmt.Errorf("halting requires a reason")
	}
	if err := h.store.Set(ctx, halted, reason); err != nil {
		return fmt.Errorf("halt store: %w", err)
	}
	return nil
}
