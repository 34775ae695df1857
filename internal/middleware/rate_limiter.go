package middleware

import (
	"net/http"
	"sync"
	"time"

	"lasmarias/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ventana counts requests per IP in fixed windows.
type ventana struct {
	count     int
	windowEnd time.Time
}

// limitador is one independent rate limit (login, general API).
type limitador struct {
	nombre string
	limit  int
	window time.Duration
	now    func() time.Time

	mu  sync.Mutex
	ips map[string]*ventana
}

var (
	limitadores   []*limitador
	limitadoresMu sync.Mutex
	purgaOnce     sync.Once
)

func nuevoLimitador(nombre string, limit int, window time.Duration) *limitador {
	l := &limitador{nombre: nombre, limit: limit, window: window, now: time.Now, ips: make(map[string]*ventana)}
	limitadoresMu.Lock()
	limitadores = append(limitadores, l)
	limitadoresMu.Unlock()
	purgaOnce.Do(func() { go purgarPeriodicamente() })
	return l
}

// permitir registers one hit for ip and reports whether it is within the
// limit, plus the end of the current window.
func (l *limitador) permitir(ip string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	v, ok := l.ips[ip]
	if !ok || now.After(v.windowEnd) {
		v = &ventana{windowEnd: now.Add(l.window)}
		l.ips[ip] = v
	}
	v.count++
	return v.count <= l.limit, v.windowEnd
}

func (l *limitador) purgar() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	n := 0
	for ip, v := range l.ips {
		if now.After(v.windowEnd) {
			delete(l.ips, ip)
			n++
		}
	}
	return n
}

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	l := nuevoLimitador("login", 20, time.Minute)
	return func(c *gin.Context) {
		if ok, _ := l.permitir(c.ClientIP()); !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiados intentos de login. Intente en 1 minuto."))
			return
		}
		c.Next()
	}
}

// RateLimiter returns a general-purpose per-IP limiter.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	l := nuevoLimitador("api", limit, window)
	return func(c *gin.Context) {
		ok, fin := l.permitir(c.ClientIP())
		if !ok {
			c.Header("Retry-After", fin.UTC().Format(http.TimeFormat))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiadas solicitudes. Intente nuevamente en un momento."))
			return
		}
		c.Next()
	}
}

// ── Purge goroutine ───────────────────────────────────────────────────────────
// Drops expired windows so IPs that never return do not accumulate.

const purgeInterval = 5 * time.Minute

func purgarPeriodicamente() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for range ticker.C {
		limitadoresMu.Lock()
		ls := append([]*limitador(nil), limitadores...)
		limitadoresMu.Unlock()
		for _, l := range ls {
			if n := l.purgar(); n > 0 {
				log.Debug().Str("limitador", l.nombre).Int("purged", n).Msg("rate limiter purged")
			}
		}
	}
}
