package transport

import (
	"sync"
	"time"
)

// recorder collects callback invocations
type recorder struct {
	mu          sync.Mutex
	chunks      [][]byte
	peers       []string
	codes       []int
	messages    []string
	disconnects []string
}

func (r *recorder) bind(t Transport) {
	t.SetOnReceive(func(peer string, data []byte) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.peers = append(r.peers, peer)
		r.chunks = append(r.chunks, data)
	})
	t.SetOnError(func(code int, msg string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.codes = append(r.codes, code)
		r.messages = append(r.messages, msg)
	})
	t.SetOnDisconnected(func(reason string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.disconnects = append(r.disconnects, reason)
	})
}

func (r *recorder) received() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []byte
	for _, c := range r.chunks {
		out = append(out, c...)
	}
	return out
}

func (r *recorder) errorCodes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.codes...)
}

func (r *recorder) errorMessages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func (r *recorder) disconnectReasons() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.disconnects...)
}

func (r *recorder) firstPeer() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.peers) == 0 {
		return ""
	}
	return r.peers[0]
}

func testOptions() Options {
	return Options{
		ConnectTimeout: time.Second,
		ReadTimeout:    20 * time.Millisecond,
		WriteTimeout:   time.Second,
		IdleBackoff:    10 * time.Millisecond,
		ReadBufferSize: 4096,
	}
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)
