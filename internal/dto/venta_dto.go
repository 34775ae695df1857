package dto

import (
	"lasmarias/internal/notificacion"

	"github.com/shopspring/decimal"
)

// NoAplica is shown as the purchase price of a sale bundling several items.
const NoAplica = "N/A"

// ─── Filter / List ──────────────────────────────────────────────────────────

// VentaFilter is bound from query string of GET /v1/ventas.
type VentaFilter struct {
	Desde string `form:"desde"` // YYYY-MM-DD, inclusive
	Hasta string `form:"hasta"` // YYYY-MM-DD, inclusive
	Page  int    `form:"page,default=1"   validate:"min=1"`
	Limit int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type VentaListResponse struct {
	Data  []VentaResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

// RegistrarVentaRequest sells one unit per entry of JoyaIDs; repeat an id to
// sell several units of the same piece.
type RegistrarVentaRequest struct {
	JoyaIDs   []string `json:"joya_ids"  validate:"required,min=1,dive,uuid"`
	Comprador string   `json:"comprador" validate:"max=120"`
	Telefono  string   `json:"telefono"  validate:"max=40"`
	// Cuotas: number of installments, or -1 for a flexible plan.
	Cuotas int `json:"cuotas" validate:"required"`
}

// RegistrarPagoRequest: Monto is ignored for fixed plans and required for
// flexible ones.
type RegistrarPagoRequest struct {
	Monto *decimal.Decimal `json:"monto"`
}

type EditarCompradorRequest struct {
	Comprador string `json:"comprador" validate:"required,min=1,max=120"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ItemVentaResponse struct {
	JoyaID      string          `json:"joya_id"`
	Nombre      string          `json:"nombre"`
	PrecioVenta decimal.Decimal `json:"precio_venta"`
}

type PagoResponse struct {
	Numero int             `json:"numero"`
	Monto  decimal.Decimal `json:"monto"`
	Fecha  string          `json:"fecha"`
}

// EstadoPagoResponse flattens the plan state; only the fields of the active
// variant are set.
type EstadoPagoResponse struct {
	Plan            string           `json:"plan"` // "fijo" | "flexible"
	Completa        bool             `json:"completa"`
	Cuotas          *int             `json:"cuotas,omitempty"`
	CuotasPagadas   *int             `json:"cuotas_pagadas,omitempty"`
	CuotasRestantes *int             `json:"cuotas_restantes,omitempty"`
	MontoCuota      *decimal.Decimal `json:"monto_cuota,omitempty"`
	SaldoRestante   *decimal.Decimal `json:"saldo_restante,omitempty"`
	TotalPagado     decimal.Decimal  `json:"total_pagado"`
}

type VentaResponse struct {
	ID                string              `json:"id"`
	Articulos         string              `json:"articulos"`
	JoyaID            *string             `json:"joya_id"`
	Items             []ItemVentaResponse `json:"items"`
	Comprador         string              `json:"comprador"`
	Telefono          string              `json:"telefono"`
	PrecioVentaTotal  decimal.Decimal     `json:"precio_venta_total"`
	PrecioCompraTotal string              `json:"precio_compra_total"` // "N/A" for bundles
	Ganancia          decimal.Decimal     `json:"ganancia"`
	Cuotas            int                 `json:"cuotas"`
	Estado            EstadoPagoResponse  `json:"estado"`
	Pagos             []PagoResponse      `json:"pagos"`
	CreatedAt         string              `json:"created_at"`
}

// ItemRechazado is a unit left out of a sale because it had no stock.
type ItemRechazado struct {
	JoyaID     string `json:"joya_id"`
	Nombre     string `json:"nombre"`
	Disponible int    `json:"disponible"`
	Motivo     string `json:"motivo"`
}

type RegistrarVentaResponse struct {
	Venta      VentaResponse   `json:"venta"`
	Rechazados []ItemRechazado `json:"rechazados"`
}

type RegistrarPagoResponse struct {
	Venta     VentaResponse        `json:"venta"`
	Pago      PagoResponse         `json:"pago"`
	Excedente decimal.Decimal      `json:"excedente"`
	Mensaje   notificacion.Mensaje `json:"mensaje"`
}
