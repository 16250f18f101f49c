package channel

import "sync"

// pendingQueue gates outbound payloads on the readiness handshake.
type pendingQueue struct {
	mu      sync.Mutex
	ready   bool
	pending []string
}

func newPendingQueue(startReady bool) *pendingQueue {
	return &pendingQueue{ready: startReady}
}

// offer holds payload while the gate is armed. It reports whether the
// payload was queued; false means the caller owns transmission.
func (q *pendingQueue) offer(payload string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ready {
		return false
	}
	q.pending = append(q.pending, payload)
	return true
}

// markNotReady arms the gate. The ready ping is transmitted before this
// flips, so the ping itself never queues.
func (q *pendingQueue) markNotReady() {
	q.mu.Lock()
	q.ready = false
	q.mu.Unlock()
}

// drain flushes the backlog newest-first and flips to ready the moment the
// backlog reads empty. Payloads posted by the flush itself join the
// backlog and flush too, still ahead of the ready flip.
func (q *pendingQueue) drain(send func(payload string)) {
	for {
		q.mu.Lock()
		n := len(q.pending)
		if n == 0 {
			q.ready = true
			q.mu.Unlock()
			return
		}
		payload := q.pending[n-1]
		q.pending = q.pending[:n-1]
		q.mu.Unlock()
		send(payload)
	}
}

func (q *pendingQueue) isReady() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ready
}

func (q *pendingQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
