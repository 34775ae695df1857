package infra

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errFalla = errors.New("falla")

func TestCircuitBreaker_AbreTrasFallas(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Nombre: "test", FailureThreshold: 3, OpenTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errFalla }), errFalla)
	}
	assert.Equal(t, CBOpen, cb.State())

	llamado := false
	err := cb.Execute(func() error { llamado = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, llamado)
}

func TestCircuitBreaker_ExitoReiniciaContador(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2})
	_ = cb.Execute(func() error { return errFalla })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errFalla })
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_SemiAbiertoCierra(t *testing.T) {
	ahora := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, OpenTimeout: time.Second})
	cb.now = func() time.Time { return ahora }

	_ = cb.Execute(func() error { return errFalla })
	assert.Equal(t, CBOpen, cb.State())

	ahora = ahora.Add(2 * time.Second)
	assert.Equal(t, CBHalfOpen, cb.State())

	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBHalfOpen, cb.State())
	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_SondaFallidaReabre(t *testing.T) {
	ahora := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Second})
	cb.now = func() time.Time { return ahora }

	_ = cb.Execute(func() error { return errFalla })
	ahora = ahora.Add(2 * time.Second)
	_ = cb.Execute(func() error { return errFalla })
	assert.Equal(t, CBOpen, cb.State())
}
