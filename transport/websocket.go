package transport

import (
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketPort adapts one client WebSocket connection to the Port contract.
// Inbound text frames reach the receiver from a dedicated read goroutine;
// writes are serialized. Every inbound event is stamped with the peer origin
// given at dial time, since the relay carries no origin of its own.
type WebSocketPort struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	origin  string
	recv    Receiver
	backlog []Event
	closed  bool
	done    chan struct{}
}

// DialWebSocket connects to a relay endpoint and starts the read pump.
func DialWebSocket(url, peerOrigin string) (*WebSocketPort, error) {
	return dialWebSocket(websocket.DefaultDialer, url, peerOrigin)
}

// DialWebSocketTLS dials a wss endpoint with the given TLS client settings.
func DialWebSocketTLS(url, peerOrigin string, tlsCfg *tls.Config) (*WebSocketPort, error) {
	dialer := &websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: websocket.DefaultDialer.HandshakeTimeout,
		TLSClientConfig:  tlsCfg,
	}
	return dialWebSocket(dialer, url, peerOrigin)
}

func dialWebSocket(dialer *websocket.Dialer, url, peerOrigin string) (*WebSocketPort, error) {
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", url, err)
	}
	p := &WebSocketPort{
		conn:   conn,
		origin: peerOrigin,
		done:   make(chan struct{}),
	}
	go p.readPump()
	return p, nil
}

func (p *WebSocketPort) readPump() {
	defer close(p.done)
	for {
		kind, data, err := p.conn.ReadMessage()
		if err != nil {
			log.Debug().Msgf("transport.websocket pump stopped err=%v", err)
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		p.deliver(Event{Origin: p.origin, Payload: string(data)})
	}
}

func (p *WebSocketPort) deliver(ev Event) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if p.recv == nil {
		p.backlog = append(p.backlog, ev)
		p.mu.Unlock()
		return
	}
	recv := p.recv
	p.mu.Unlock()
	recv(ev)
}

func (p *WebSocketPort) Send(payload string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPortClosed
	}
	if err := p.conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

// SetReceiver attaches the consumer and replays, in arrival order, frames
// pumped before a receiver was attached.
func (p *WebSocketPort) SetReceiver(r Receiver) {
	p.mu.Lock()
	p.recv = r
	backlog := p.backlog
	p.backlog = nil
	p.mu.Unlock()
	if r == nil {
		return
	}
	for _, ev := range backlog {
		r(ev)
	}
}

// Close sends a best-effort close frame, tears down the connection, and
// waits for the read pump to stop.
func (p *WebSocketPort) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.recv = nil
	p.backlog = nil
	conn := p.conn
	p.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	err := conn.Close()
	<-p.done
	return err
}
