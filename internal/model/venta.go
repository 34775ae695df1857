package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Venta is a confirmed sale of one or more units.
//
// Cuotas holds the plan as persisted: n >= 1 installments, -1 flexible.
// CuotasRestantes is only meaningful for fixed plans and SaldoRestante only
// for flexible ones; they are separate columns so a count and an amount are
// never stored in the same field.
type Venta struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Articulos         string           `gorm:"not null"` // ", "-joined item names, in sale order
	JoyaID            *uuid.UUID       `gorm:"type:uuid;index"`
	Comprador         string           `gorm:"not null"`
	Telefono          string           `gorm:"not null;default:''"`
	PrecioVentaTotal  decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	PrecioCompraTotal decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	Cuotas            int              `gorm:"not null"`
	MontoCuota        *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CuotasRestantes   int              `gorm:"not null;default:0"`
	SaldoRestante     decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt         time.Time        `gorm:"index"`
	UpdatedAt         time.Time

	Items []VentaItem `gorm:"foreignKey:VentaID;constraint:OnDelete:CASCADE"`
	Pagos []PagoVenta `gorm:"foreignKey:VentaID;constraint:OnDelete:CASCADE"`
}

// VentaItem is one unit sold, with the prices it had at the time of sale.
type VentaItem struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID      uuid.UUID       `gorm:"type:uuid;index;not null"`
	JoyaID       uuid.UUID       `gorm:"type:uuid;not null"`
	Orden        int             `gorm:"not null"`
	Nombre       string          `gorm:"not null"`
	PrecioVenta  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PrecioCompra decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

// PagoVenta is one entry of the payment history. Amount and date live in the
// same row, so they are always paired.
type PagoVenta struct {
	ID      uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Numero  int             `gorm:"not null"` // 1-based position in the history
	Monto   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Fecha   time.Time       `gorm:"not null"`
}

func (VentaItem) TableName() string { return "venta_items" }
func (PagoVenta) TableName() string { return "venta_pagos" }
