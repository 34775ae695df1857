package infra

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ── Circuit Breaker ───────────────────────────────────────────────────────────
// Guards calls to external collaborators (blob storage, SMTP) so an outage
// fails fast instead of tying up request goroutines.
//
// States:
//   - Closed:    normal operation, requests pass through
//   - Open:      all requests fail immediately
//   - Half-Open: probe requests allowed through to test recovery

// CBState represents the current circuit breaker state.
type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen
)

func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when Execute is called while the CB is open.
var ErrCircuitOpen = errors.New("servicio externo no disponible (circuit breaker abierto)")

type CircuitBreakerConfig struct {
	Nombre           string        // used in logs and /health
	FailureThreshold int           // consecutive failures to trip open (default: 5)
	SuccessThreshold int           // consecutive half-open successes to close (default: 2)
	OpenTimeout      time.Duration // time spent open before probing (default: 30s)
}

func DefaultCBConfig(nombre string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Nombre:           nombre,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
	}
}

// CircuitBreaker is safe for concurrent use.
type CircuitBreaker struct {
	mu       sync.Mutex
	cfg      CircuitBreakerConfig
	state    CBState
	fallas   int
	exitos   int
	abiertoA time.Time
	now      func() time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	return &CircuitBreaker{cfg: cfg, state: CBClosed, now: time.Now}
}

// State returns the current state, moving open → half-open once the timeout
// has elapsed.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

func (cb *CircuitBreaker) stateLocked() CBState {
	if cb.state == CBOpen && cb.now().Sub(cb.abiertoA) >= cb.cfg.OpenTimeout {
		cb.transicion(CBHalfOpen)
	}
	return cb.state
}

// Execute runs fn unless the breaker is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	if cb.stateLocked() == CBOpen {
		cb.mu.Unlock()
		return ErrCircuitOpen
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.fallo()
		return err
	}
	cb.exito()
	return nil
}

func (cb *CircuitBreaker) fallo() {
	cb.fallas++
	switch cb.state {
	case CBClosed:
		if cb.fallas >= cb.cfg.FailureThreshold {
			cb.transicion(CBOpen)
		}
	case CBHalfOpen:
		cb.transicion(CBOpen)
	}
}

func (cb *CircuitBreaker) exito() {
	switch cb.state {
	case CBClosed:
		cb.fallas = 0
	case CBHalfOpen:
		cb.exitos++
		if cb.exitos >= cb.cfg.SuccessThreshold {
			cb.transicion(CBClosed)
		}
	}
}

// transicion must be called under lock.
func (cb *CircuitBreaker) transicion(to CBState) {
	from := cb.state
	cb.state = to
	cb.fallas = 0
	cb.exitos = 0
	if to == CBOpen {
		cb.abiertoA = cb.now()
	}
	log.Warn().Str("circuit", cb.cfg.Nombre).Str("from", from.String()).Str("to", to.String()).
		Msg("circuit breaker: cambio de estado")
}
