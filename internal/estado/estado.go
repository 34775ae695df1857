// Package estado is the shared view of the sales data. Every write bumps a
// version number and broadcasts an Evento; readers compare versions to know
// whether what they hold is current, and caches key on the version so they
// can never outlive a write.
package estado

import (
	"context"
	"time"
)

type Tipo string

const (
	VentaCreada     Tipo = "venta_creada"
	PagoRegistrado  Tipo = "pago_registrado"
	VentaEditada    Tipo = "venta_editada"
	VentaEliminada  Tipo = "venta_eliminada"
	JoyaActualizada Tipo = "joya_actualizada"
)

type Evento struct {
	Tipo    Tipo      `json:"tipo"`
	VentaID string    `json:"venta_id,omitempty"`
	JoyaID  string    `json:"joya_id,omitempty"`
	Version int64     `json:"version"`
	Fecha   time.Time `json:"fecha"`
}

// Hub publishes change events. Suscribir returns a channel that is closed
// when cancel is called or ctx ends.
type Hub interface {
	Publicar(ctx context.Context, ev Evento) (int64, error)
	Version(ctx context.Context) (int64, error)
	Suscribir(ctx context.Context) (<-chan Evento, func())
}
