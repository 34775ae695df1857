package infra

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrBloqueado is returned when another request already holds the lock.
var ErrBloqueado = errors.New("recurso bloqueado por otra operación")

// Bloqueo hands out short-lived locks keyed by name. The returned func
// releases the lock and is safe to call once.
type Bloqueo struct {
	locker *redislock.Client
	ttl    time.Duration
}

// NewBloqueo returns a redis-backed lock. With a nil client every Bloquear
// call succeeds immediately, which is what single-instance development runs
// and unit tests want.
func NewBloqueo(rdb *redis.Client, ttl time.Duration) *Bloqueo {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	b := &Bloqueo{ttl: ttl}
	if rdb != nil {
		b.locker = redislock.New(rdb)
	}
	return b
}

func (b *Bloqueo) Bloquear(ctx context.Context, clave string) (func(), error) {
	if b == nil || b.locker == nil {
		return func() {}, nil
	}
	lock, err := b.locker.Obtain(ctx, clave, b.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrBloqueado
	}
	if err != nil {
		return nil, err
	}
	return func() { _ = lock.Release(context.Background()) }, nil
}
