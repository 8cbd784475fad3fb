package marketplace

import (
	"context"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/entity"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/event"
	"go.uber.org/zap"
)

func (m *Marketplace) requireOperator(caller entity.Address) error {
	if caller.IsNull() || caller != m.operator {
		return ErrNotOperator
	}
	return nil
}

// Pause disables List, Buy and Cancel. Pausing a paused marketplace fails with ErrNoOpTransition.
func (m *Marketplace) Pause(ctx context.Context, caller entity.Address) error {
	return m.setPaused(ctx, caller, true)
}

// Unpause re-enables List, Buy and Cancel. Unpausing a running marketplace fails with ErrNoOpTransition.
func (m *Marketplace) Unpause(ctx context.Context, caller entity.Address) error {
	return m.setPaused(ctx, caller, false)
}

func (m *Marketplace) setPaused(ctx context.Context, caller entity.Address, paused bool) error {
	name, eventType, action := "unpause", event.UnpausedEvent, entity.UnpauseAction
	if paused {
		name, eventType, action = "pause", event.PausedEvent, entity.PauseAction
	}

	return m.execute(ctx, name, caller, func(ctx context.Context, f *frame) error {
		if err := m.requireOperator(caller); err != nil {
			return err
		}
		if m.paused == paused {
			return ErrNoOpTransition
		}

		f.setPaused(paused)

		zap.L().With(zap.String("operationId", f.id), zap.Bool("paused", paused)).Info("Marketplace: Pause state changed")

		f.notify(eventType, createGateAction(action, caller, entity.NullAddress))

		return nil
	})
}

// TransferOperator hands every operator capability to newOperator.
func (m *Marketplace) TransferOperator(ctx context.Context, caller entity.Address, newOperator entity.Address) error {
	return m.execute(ctx, "transferOperator", caller, func(ctx context.Context, f *frame) error {
		if err := m.requireOperator(caller); err != nil {
			return err
		}
		if newOperator.IsNull() {
			return ErrInvalidOperator
		}

		f.setOperator(newOperator)

		zap.L().With(
			zap.String("operationId", f.id),
			zap.String("from", caller.String()),
			zap.String("to", newOperator.String()),
		).Info("Marketplace: Operator transferred")

		f.notify(event.OperatorTransferredEvent, createGateAction(entity.OperatorAction, caller, newOperator))

		return nil
	})
}
