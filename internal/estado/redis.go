package estado

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	claveVersion = "lasmarias:ventas:version"
	canalCambios = "lasmarias:ventas:cambios"
)

// Redis is a Hub shared by every API instance: the version is an INCR
// counter and events travel over pub/sub.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis { return &Redis{rdb: rdb} }

func (r *Redis) Publicar(ctx context.Context, ev Evento) (int64, error) {
	v, err := r.rdb.Incr(ctx, claveVersion).Result()
	if err != nil {
		return 0, err
	}
	ev.Version = v
	if ev.Fecha.IsZero() {
		ev.Fecha = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return v, err
	}
	return v, r.rdb.Publish(ctx, canalCambios, data).Err()
}

func (r *Redis) Version(ctx context.Context) (int64, error) {
	v, err := r.rdb.Get(ctx, claveVersion).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (r *Redis) Suscribir(ctx context.Context) (<-chan Evento, func()) {
	ctx, stop := context.WithCancel(ctx)
	sub := r.rdb.Subscribe(ctx, canalCambios)
	out := make(chan Evento, bufferSuscriptor)

	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Evento
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Warn().Err(err).Msg("estado: evento ilegible")
					continue
				}
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()

	var once sync.Once
	return out, func() { once.Do(stop) }
}
