package estado

import (
	"context"
	"sync"
	"time"
)

const bufferSuscriptor = 16

// Memoria is a single-process Hub. Slow subscribers lose events instead of
// blocking writers; they still see the latest version on their next read.
type Memoria struct {
	mu      sync.Mutex
	version int64
	next    int
	subs    map[int]chan Evento
}

func NewMemoria() *Memoria {
	return &Memoria{subs: make(map[int]chan Evento)}
}

func (m *Memoria) Publicar(_ context.Context, ev Evento) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version++
	ev.Version = m.version
	if ev.Fecha.IsZero() {
		ev.Fecha = time.Now()
	}
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return m.version, nil
}

func (m *Memoria) Version(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version, nil
}

func (m *Memoria) Suscribir(ctx context.Context) (<-chan Evento, func()) {
	ch := make(chan Evento, bufferSuscriptor)
	m.mu.Lock()
	id := m.next
	m.next++
	m.subs[id] = ch
	m.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
			close(ch)
			close(done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return ch, cancel
}
