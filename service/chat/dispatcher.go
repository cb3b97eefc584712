package chat

import (
	"context"

	"go.uber.org/zap"

	"DevChat/logger"
	"DevChat/tools/decode"
	"DevChat/tools/errs"
)

// Dispatcher routes authenticated inbound frames to the router and relay.
// The switch is exhaustive over the closed inbound event set; anything else
// is answered with an error frame.
type Dispatcher struct {
	router *Router
	relay  *Relay
}

func NewDispatcher(router *Router, relay *Relay) *Dispatcher {
	return &Dispatcher{router: router, relay: relay}
}

// Dispatch handles one frame from sender's live session.
func (d *Dispatcher) Dispatch(ctx context.Context, sender UserRef, env *Envelope, t Transport) {
	switch env.Type {
	case EvtSendMessage:
		p, err := decode.DecodeRaw[SendMessagePayload](env.Data)
		if err != nil || p.ToUserID == "" || p.Text == "" {
			d.pushError(t, errs.ErrBadRequest)
			return
		}
		if _, err := d.router.Send(ctx, sender, p.ToUserID, p.Text); err != nil {
			logger.Error("send failed", zap.String("from", sender.UserID), zap.String("to", p.ToUserID), zap.Error(err))
			d.pushError(t, err)
		}

	case EvtTyping:
		p, err := decode.DecodeRaw[TypingPayload](env.Data)
		if err != nil || p.ToUserID == "" {
			return
		}
		d.relay.Typing(ctx, sender, p.ToUserID)

	case EvtMessageDelivered:
		p, err := decode.DecodeRaw[MessageDeliveredPayload](env.Data)
		if err != nil || p.FromUserID == "" {
			return
		}
		d.relay.ReadReceipt(ctx, sender, p.FromUserID)

	case EvtAuth:
		// Auth is a one-shot gate at connection establishment; a repeat is
		// ignored rather than re-verified.
		logger.Debug("auth frame after handshake ignored", zap.String("user", sender.UserID))

	default:
		d.pushError(t, errs.ErrBadRequest.WithDetail("unknown event type: "+string(env.Type)))
	}
}

func (d *Dispatcher) pushError(t Transport, err error) {
	code := errs.Code(err)
	msg := "server error"
	if ce, ok := err.(*errs.CodeError); ok {
		msg = ce.Msg
	}
	if perr := t.Push(NewErrorEvent(code, msg)); perr != nil {
		logger.Debug("error frame dropped", zap.Error(perr))
	}
}
