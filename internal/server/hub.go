package server

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"

	"github.com/ayusman/podium/internal/session"
	"gocv.io/x/gocv"
)

// eventBuffer is the number of undelivered events kept per subscriber.
const eventBuffer = 16

// Hub collects processed frames from the session and fans them out to the
// stream and event handlers. It implements session.Observer.
type Hub struct {
	mu     sync.RWMutex
	result session.Result
	have   bool
	jpeg   []byte
	seq    uint64

	viewers atomic.Int32

	subMu sync.Mutex
	subs  map[chan []byte]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan []byte]struct{})}
}

// Observe records r and, while stream viewers are connected, a JPEG copy of
// frame. Events are delivered to subscribers without blocking; a slow
// subscriber misses events.
func (h *Hub) Observe(r session.Result, frame *gocv.Mat) {
	var jpeg []byte
	if h.viewers.Load() > 0 && frame != nil && !frame.Empty() {
		buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
		if err != nil {
			log.Printf("Stream encode error: %v", err)
		} else {
			jpeg = append([]byte(nil), buf.GetBytes()...)
			buf.Close()
		}
	}

	h.mu.Lock()
	h.result = r
	h.have = true
	if jpeg != nil {
		h.jpeg = jpeg
		h.seq++
	}
	h.mu.Unlock()

	h.publish(r)
}

// Latest returns the most recent result.
func (h *Hub) Latest() (session.Result, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.result, h.have
}

// Frame returns the latest encoded frame and its sequence number. The
// sequence advances each time a new frame is stored.
func (h *Hub) Frame() ([]byte, uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.jpeg, h.seq
}

// Watch registers a stream viewer. Frames are only encoded while at least
// one viewer is registered. Call the returned function when done.
func (h *Hub) Watch() func() {
	h.viewers.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { h.viewers.Add(-1) })
	}
}

// Subscribe returns a channel of JSON-encoded results and a cancel function.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, eventBuffer)

	h.subMu.Lock()
	h.subs[ch] = struct{}{}
	h.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.subMu.Lock()
			delete(h.subs, ch)
			h.subMu.Unlock()
		})
	}
}

// Subscribers returns the number of active event subscribers.
func (h *Hub) Subscribers() int {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	return len(h.subs)
}

func (h *Hub) publish(r session.Result) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	if len(h.subs) == 0 {
		return
	}

	msg, err := json.Marshal(r)
	if err != nil {
		log.Printf("Event encode error: %v", err)
		return
	}
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}
