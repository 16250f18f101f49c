package channel

import (
	"fmt"

	"github.com/danmuck/framelink/internal/observability"
	"github.com/danmuck/framelink/transport"
	"github.com/danmuck/framelink/value"
	"github.com/danmuck/framelink/wire"
)

// route consumes one transport event. The return value reports whether the
// event was claimed, so environments sharing a transport can stop
// propagation after successful routing. Every reject is a silent drop:
// nothing goes back to the peer.
func (c *Channel) route(ev transport.Event) bool {
	if c.isClosed() {
		return false
	}
	if !wire.OriginAllowed(c.cfg.PeerOrigin, ev.Origin) {
		c.drop("origin", fmt.Sprintf("origin=%s", ev.Origin))
		return false
	}
	m, err := wire.Decode([]byte(ev.Payload))
	if err != nil {
		c.drop("parse", fmt.Sprintf("err=%v", err))
		return false
	}
	if m.Method != "" && c.cfg.Scope != "" {
		scope, name := wire.SplitScope(m.Method)
		if scope != c.cfg.Scope || name == "" {
			c.drop("scope", fmt.Sprintf("method=%s", m.Method))
			return false
		}
		m.Method = name
	}
	switch m.Kind() {
	case wire.KindRequest:
		return c.handleRequest(m)
	case wire.KindCallbackInvocation:
		return c.handleCallbackInvocation(m)
	case wire.KindResponse:
		return c.handleResponse(m)
	case wire.KindNotification:
		return c.handleNotification(m)
	}
	c.drop("unclassified", "")
	return false
}

func (c *Channel) drop(reason, detail string) {
	if detail != "" {
		c.log.Debug().Msgf("channel.route drop reason=%s %s", reason, detail)
	} else {
		c.log.Debug().Msgf("channel.route drop reason=%s", reason)
	}
	observability.RecordChannelDrop(reason)
}

func (c *Channel) handleRequest(m wire.Message) bool {
	h, ok := c.reg.lookup(m.Method)
	if !ok {
		c.drop("request_unbound", fmt.Sprintf("method=%s id=%d", m.Method, m.ID))
		return false
	}
	c.table.createInbound(m.ID, m.Callbacks)
	tr := &Trans{ch: c, id: m.ID}
	params := value.SpliceFuncs(m.Params, m.Callbacks, func(path string) value.Func {
		return func(v value.Value) {
			if err := tr.Invoke(path, v); err != nil {
				c.log.Debug().Msgf("channel.callback stub dropped id=%d path=%s err=%v", tr.id, path, err)
			}
		}
	})
	observability.RecordChannelRouted(wire.KindRequest.String())
	c.log.Debug().Msgf("channel.request method=%s id=%d callbacks=%d", m.Method, m.ID, len(m.Callbacks))

	ret, err := safeCall(h, tr, params)
	if err != nil {
		code, msg := classifyError(err)
		observability.RecordHandlerFault()
		c.log.Debug().Msgf("channel.request fault method=%s id=%d code=%s", m.Method, m.ID, code)
		if ferr := tr.Fail(code, msg); ferr != nil {
			c.log.Debug().Msgf("channel.request fault not delivered id=%d err=%v", m.ID, ferr)
		}
		return true
	}
	if !tr.DelayReturn() && !tr.Completed() {
		if cerr := tr.Complete(ret); cerr != nil {
			c.log.Debug().Msgf("channel.request autocomplete skipped id=%d err=%v", m.ID, cerr)
		}
	}
	return true
}

// safeCall shields the dispatcher from handler panics, folding them into
// the fault path.
func safeCall(h Handler, tr *Trans, params value.Value) (ret value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			code, msg := classifyFault(r)
			err = &Fault{Code: code, Message: msg}
		}
	}()
	return h(tr, params)
}

func (c *Channel) handleCallbackInvocation(m wire.Message) bool {
	fn, reason := c.table.callbackFunc(m.ID, m.Callback)
	if fn == nil {
		c.drop("callback_"+reason, fmt.Sprintf("id=%d path=%s", m.ID, m.Callback))
		return false
	}
	observability.RecordChannelRouted(wire.KindCallbackInvocation.String())
	c.log.Debug().Msgf("channel.callback id=%d path=%s", m.ID, m.Callback)
	fn(m.Params)
	return true
}

func (c *Channel) handleResponse(m wire.Message) bool {
	e, reason := c.table.takeOutbound(m.ID)
	if e == nil {
		c.drop("response_"+reason, fmt.Sprintf("id=%d", m.ID))
		return false
	}
	observability.RecordChannelRouted(wire.KindResponse.String())
	if m.HasResult {
		c.log.Debug().Msgf("channel.response id=%d outcome=result", m.ID)
		if e.success != nil {
			e.success(m.Result)
		}
		return true
	}
	c.log.Debug().Msgf("channel.response id=%d outcome=error code=%s", m.ID, m.Error)
	if e.failure != nil {
		e.failure(m.Error, m.ErrMessage)
	}
	return true
}

func (c *Channel) handleNotification(m wire.Message) bool {
	if m.Method == readyMethod {
		return c.handleReady(m.Params)
	}
	h, ok := c.reg.lookup(m.Method)
	if !ok {
		c.drop("notify_unbound", fmt.Sprintf("method=%s", m.Method))
		return false
	}
	observability.RecordChannelRouted(wire.KindNotification.String())
	c.log.Debug().Msgf("channel.notification method=%s", m.Method)
	// no transaction exists to answer, so a panicking notification handler
	// propagates to the dispatching transport
	if _, err := h(nil, m.Params); err != nil {
		c.log.Warn().Msgf("channel.notification handler error method=%s err=%v", m.Method, err)
	}
	return true
}
