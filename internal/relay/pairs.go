package relay

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/danmuck/framelink/internal/observability"
)

// pairBacklogMax bounds frames held for a pair while its second peer is
// still joining. Overflow drops the newest frame.
const pairBacklogMax = 64

// hub tracks live pairs. A pair id admits two sockets; text frames relay
// verbatim between them.
type hub struct {
	cfg ServiceConfig
	log zerolog.Logger

	mu    sync.Mutex
	pairs map[string]*pairState

	upgrader websocket.Upgrader
}

type pairState struct {
	peers [2]*peer
	// frames received before both peers attached; flushed to the joiner
	backlog [][]byte
}

type peer struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (p *peer) write(payload []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteMessage(websocket.TextMessage, payload)
}

func newHub(cfg ServiceConfig, logger zerolog.Logger) *hub {
	h := &hub{
		cfg:   cfg,
		log:   logger,
		pairs: make(map[string]*pairState),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.originAllowed,
	}
	return h
}

func (h *hub) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.cfg.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// handleLink upgrades the request and joins the socket to its pair. The
// handler blocks relaying frames until the socket goes away.
func (h *hub) handleLink(c *gin.Context) {
	pairID := strings.TrimSpace(c.Param("pair"))
	if pairID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pair id required"})
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Msgf("relay.link upgrade failed pair=%s err=%v", pairID, err)
		return
	}

	pr, backlog, joined := h.join(pairID, conn)
	if !joined {
		h.log.Debug().Msgf("relay.link pair full pair=%s remote=%s", pairID, conn.RemoteAddr())
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "pair is full")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}
	observability.RecordRelayPeer(pairID, 1)
	h.log.Debug().Msgf("relay.link joined pair=%s remote=%s backlog=%d", pairID, conn.RemoteAddr(), len(backlog))
	for _, payload := range backlog {
		if err := pr.write(payload); err != nil {
			h.log.Debug().Msgf("relay.link backlog flush failed pair=%s err=%v", pairID, err)
			break
		}
		observability.RecordRelayFrame(pairID, false)
	}
	h.forward(pairID, pr)
}

// join attaches conn to the pair, handing back any frames buffered while
// the pair was half-formed. A full pair refuses the socket.
func (h *hub) join(pairID string, conn *websocket.Conn) (*peer, [][]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p := h.pairs[pairID]
	if p == nil {
		p = &pairState{}
		h.pairs[pairID] = p
	}
	for i := range p.peers {
		if p.peers[i] == nil {
			pr := &peer{conn: conn}
			p.peers[i] = pr
			backlog := p.backlog
			p.backlog = nil
			return pr, backlog, true
		}
	}
	return nil, nil, false
}

// forward relays text frames from pr until the socket errors or idles out.
// Over-limit frames are dropped and counted; the transport is allowed to
// be lossy.
func (h *hub) forward(pairID string, pr *peer) {
	limiter := rate.NewLimiter(rate.Limit(h.cfg.FrameRate), h.cfg.FrameBurst)
	defer h.teardown(pairID)
	for {
		_ = pr.conn.SetReadDeadline(time.Now().Add(h.cfg.IdleTimeout))
		kind, payload, err := pr.conn.ReadMessage()
		if err != nil {
			h.log.Debug().Msgf("relay.forward read ended pair=%s err=%v", pairID, err)
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		if !limiter.Allow() {
			observability.RecordRelayFrame(pairID, true)
			continue
		}
		other, buffered := h.dispatch(pairID, pr, payload)
		if other == nil {
			if !buffered {
				h.log.Debug().Msgf("relay.forward frame dropped pair=%s bytes=%d", pairID, len(payload))
			}
			continue
		}
		if err := other.write(payload); err != nil {
			h.log.Debug().Msgf("relay.forward write failed pair=%s err=%v", pairID, err)
			return
		}
		observability.RecordRelayFrame(pairID, false)
	}
}

// dispatch resolves the counterpart for a frame, or buffers the frame when
// the pair is still half-formed.
func (h *hub) dispatch(pairID string, self *peer, payload []byte) (*peer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p := h.pairs[pairID]
	if p == nil {
		return nil, false
	}
	for i := range p.peers {
		if other := p.peers[i]; other != nil && other != self {
			return other, false
		}
	}
	if len(p.backlog) >= pairBacklogMax {
		return nil, false
	}
	p.backlog = append(p.backlog, payload)
	return nil, true
}

// teardown removes the whole pair; a broken pair never half-survives.
func (h *hub) teardown(pairID string) {
	h.mu.Lock()
	p := h.pairs[pairID]
	if p == nil {
		h.mu.Unlock()
		return
	}
	var conns []*websocket.Conn
	for i := range p.peers {
		if p.peers[i] != nil {
			conns = append(conns, p.peers[i].conn)
			p.peers[i] = nil
		}
	}
	delete(h.pairs, pairID)
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
	observability.RecordRelayPeer(pairID, -len(conns))
	h.log.Debug().Msgf("relay.teardown pair=%s peers=%d", pairID, len(conns))
}
