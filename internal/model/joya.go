package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Joya is one catalog entry with its stock count.
// Cantidad is guarded by a CHECK (cantidad >= 0) constraint; sales only
// decrement it through the conditional UPDATE in JoyaRepository.
type Joya struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nombre       string          `gorm:"index;not null"`
	Tipo         string          `gorm:"not null;default:'Sin tipo'"`
	PrecioCompra decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PrecioVenta  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Cantidad     int             `gorm:"not null;default:0"`
	ImagenURL    *string
	// ImagenObjeto is the blob key, kept so the image can be deleted later.
	ImagenObjeto    *string
	MiniaturaURL    *string
	MiniaturaObjeto *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
