package marketplace

import (
	"context"
	"fmt"
	"time"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/entity"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/event"
	uuid "github.com/nu7hatch/gouuid"
	"go.uber.org/zap"
)

const DefaultReentryWait = time.Second

type operationKey struct{}

// operation is one top-level call holding the marketplace lock. Calls that re-enter the
// marketplace through a collaborator run as nested frames of the same operation.
type operation struct {
	id            string
	marketplace   *Marketplace
	journal       journal
	frames        int
	notifications []notification
	rejections    []entity.OperationError
}

type notification struct {
	eventType event.Type
	msg       interface{}
}

type frame struct {
	id string
	op *operation
}

func newOperationId() string {
	u, err := uuid.NewV4()
	if err != nil {
		zap.L().With(zap.Error(err)).Error("Marketplace: Failed to generate operation id")
		return ""
	}
	return u.String()
}

func operationFrom(ctx context.Context, m *Marketplace) (*operation, bool) {
	op, ok := ctx.Value(operationKey{}).(*operation)
	if !ok || op.marketplace != m {
		return nil, false
	}
	return op, true
}

// acquire takes the operation lock for a call made outside any running operation.
// While the holder is blocked on a collaborator, the call waits at most reentryWait for the
// collaborator to return. Past that it is treated as coming from inside the collaborator.
func (m *Marketplace) acquire(ctx context.Context) error {
	for {
		select {
		case m.lock <- struct{}{}:
			return nil
		default:
		}

		returned := m.outboundCall()
		if returned == nil {
			select {
			case m.lock <- struct{}{}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		timer := time.NewTimer(m.reentryWait)
		select {
		case m.lock <- struct{}{}:
			timer.Stop()
			return nil
		case <-returned:
			timer.Stop()
		case <-timer.C:
			return ErrReentrantCall
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func (m *Marketplace) release() {
	<-m.lock
}

func (m *Marketplace) outboundCall() chan struct{} {
	m.outboundMu.RLock()
	defer m.outboundMu.RUnlock()
	return m.outbound
}

// execute runs fn atomically. On error every mutation fn made is reverted.
func (m *Marketplace) execute(ctx context.Context, name string, caller entity.Address, fn func(ctx context.Context, f *frame) error) error {
	if op, ok := operationFrom(ctx, m); ok {
		return m.executeNested(ctx, op, name, caller, fn)
	}

	op := &operation{id: newOperationId(), marketplace: m}

	err := m.acquire(ctx)
	if err == nil {
		err = m.executeLocked(context.WithValue(ctx, operationKey{}, op), op, name, caller, fn)
	} else {
		op.reject(op.id, name, caller, err)
	}

	for _, rejection := range op.rejections {
		m.emit(event.OperationRejectedEvent, rejection)
	}
	if err != nil {
		return err
	}
	for _, n := range op.notifications {
		m.emit(n.eventType, n.msg)
	}

	return nil
}

func (m *Marketplace) executeLocked(ctx context.Context, op *operation, name string, caller entity.Address, fn func(ctx context.Context, f *frame) error) (err error) {
	defer m.release()

	defer func() {
		if r := recover(); r != nil {
			op.journal.revert(ctx, 0)
			panic(r)
		}
	}()

	f := &frame{id: op.id, op: op}
	if err = fn(ctx, f); err != nil {
		if failures := op.journal.revert(ctx, 0); len(failures) != 0 {
			err = &RollbackError{Err: err, Failures: failures}
		}
		op.notifications = nil
		op.reject(f.id, name, caller, err)
	}

	return err
}

func (m *Marketplace) executeNested(ctx context.Context, op *operation, name string, caller entity.Address, fn func(ctx context.Context, f *frame) error) error {
	op.frames++
	f := &frame{id: fmt.Sprintf("%s.%d", op.id, op.frames), op: op}

	// the collaborator that re-entered is still running, but state changes again from here on
	m.outboundMu.Lock()
	suspended := m.outbound
	m.outbound = nil
	m.outboundMu.Unlock()

	defer func() {
		m.outboundMu.Lock()
		m.outbound = suspended
		m.outboundMu.Unlock()
	}()

	mark := op.journal.length()
	notes := len(op.notifications)

	if err := fn(ctx, f); err != nil {
		if failures := op.journal.revert(ctx, mark); len(failures) != 0 {
			err = &RollbackError{Err: err, Failures: failures}
		}
		op.notifications = op.notifications[:notes]
		op.reject(f.id, name, caller, err)
		return err
	}

	return nil
}

// callOut runs a collaborator call. State stays untouched until it returns, so queries
// that cannot take the lock may read it meanwhile.
func (f *frame) callOut(call func() error) error {
	m := f.op.marketplace
	returned := make(chan struct{})

	m.outboundMu.Lock()
	m.outbound = returned
	m.outboundMu.Unlock()

	defer func() {
		m.outboundMu.Lock()
		m.outbound = nil
		m.outboundMu.Unlock()
		close(returned)
	}()

	return call()
}

func (op *operation) reject(frameId, name string, caller entity.Address, err error) {
	code := Code(err)

	logger := zap.L().With(
		zap.String("operationId", frameId),
		zap.String("operation", name),
		zap.String("caller", caller.String()),
		zap.String("code", code),
		zap.Error(err),
	)
	if code == "RollbackIncomplete" {
		logger.Error("Marketplace: Operation rejected, state not fully restored")
	} else {
		logger.Warn("Marketplace: Operation rejected")
	}

	op.rejections = append(op.rejections, entity.NewOperationError(frameId, name, caller, code, err, nil))
}

func (f *frame) notify(eventType event.Type, action entity.MarketplaceAction) {
	action.OperationId = f.id
	f.op.notifications = append(f.op.notifications, notification{eventType, action})
}

func (f *frame) onRevert(u undo) {
	f.op.journal.append(u)
}
