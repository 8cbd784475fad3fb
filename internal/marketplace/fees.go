package marketplace

import (
	"context"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/entity"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/event"
	"go.uber.org/zap"
)

// WithdrawFees sends the whole fee ledger to the operator. The ledger is zeroed before the
// transfer is issued.
func (m *Marketplace) WithdrawFees(ctx context.Context, caller entity.Address) error {
	return m.execute(ctx, "withdrawFees", caller, func(ctx context.Context, f *frame) error {
		if err := m.requireOperator(caller); err != nil {
			return err
		}
		if m.collectedFees == 0 {
			return ErrNothingToWithdraw
		}

		amount := f.drainFees()
		if err := f.pay(ctx, m.operator, amount); err != nil {
			return err
		}

		zap.L().With(
			zap.String("operationId", f.id),
			zap.String("operator", m.operator.String()),
			zap.Uint64("amount", amount),
		).Info("Marketplace: Fees withdrawn")

		f.notify(event.FeesWithdrawnEvent, createWithdrawalAction(m.address, m.operator, amount))

		return nil
	})
}

func (m *Marketplace) SetListFeeRate(ctx context.Context, caller entity.Address, rate uint) error {
	return m.setFeeRate(ctx, caller, SettingListFeeRate, rate, (*frame).setListFeeRate)
}

func (m *Marketplace) SetBuyFeeRate(ctx context.Context, caller entity.Address, rate uint) error {
	return m.setFeeRate(ctx, caller, SettingBuyFeeRate, rate, (*frame).setBuyFeeRate)
}

func (m *Marketplace) setFeeRate(ctx context.Context, caller entity.Address, setting string, rate uint, set func(*frame, uint)) error {
	return m.execute(ctx, "set"+setting, caller, func(ctx context.Context, f *frame) error {
		if err := m.requireOperator(caller); err != nil {
			return err
		}
		if rate > MaxFeeRate {
			return ErrRateTooHigh
		}

		set(f, rate)

		zap.L().With(
			zap.String("operationId", f.id),
			zap.String("setting", setting),
			zap.Uint("rate", rate),
		).Info("Marketplace: Fee rate updated")

		f.notify(event.FeeRateUpdatedEvent, createConfigAction(caller, setting, rate))

		return nil
	})
}
