package chat

import (
	"context"

	"go.uber.org/zap"

	"DevChat/logger"
)

// Relay forwards ephemeral signals (typing, read receipts) to live sessions
// only. Unlike Send there is no persistence and no offline notice: losing a
// typing indicator is inconsequential, so every miss is a silent no-op.
type Relay struct {
	reg *Registry
	dir Directory
}

func NewRelay(reg *Registry, dir Directory) *Relay {
	return &Relay{reg: reg, dir: dir}
}

// Typing tells toUserID that the sender is typing.
func (r *Relay) Typing(ctx context.Context, from UserRef, toUserID string) {
	r.push(ctx, toUserID, NewTypingEvent(from))
}

// ReadReceipt tells toUserID (the original message author) that `by` has read
// their message.
func (r *Relay) ReadReceipt(ctx context.Context, by UserRef, toUserID string) {
	r.push(ctx, toUserID, NewReadReceiptEvent(by))
}

func (r *Relay) push(ctx context.Context, toUserID string, ev *Event) {
	_, found, err := r.dir.Resolve(ctx, toUserID)
	if err != nil || !found {
		return
	}
	t, ok := r.reg.Lookup(toUserID)
	if !ok || !t.Alive() {
		return
	}
	if err := t.Push(ev); err != nil {
		logger.Debug("signal dropped", zap.String("to", toUserID), zap.Error(err))
	}
}
