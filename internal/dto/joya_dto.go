package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearJoyaRequest struct {
	Nombre       string          `json:"nombre"        validate:"required,min=1,max=120"`
	Tipo         string          `json:"tipo"          validate:"max=60"`
	PrecioCompra decimal.Decimal `json:"precio_compra" validate:"min=0"`
	PrecioVenta  decimal.Decimal `json:"precio_venta"  validate:"min=0"`
	Cantidad     int             `json:"cantidad"      validate:"min=0"`
}

type ActualizarJoyaRequest struct {
	Nombre       *string          `json:"nombre"        validate:"omitempty,min=1,max=120"`
	Tipo         *string          `json:"tipo"          validate:"omitempty,max=60"`
	PrecioCompra *decimal.Decimal `json:"precio_compra"`
	PrecioVenta  *decimal.Decimal `json:"precio_venta"`
}

// AjusteStockRequest applies a manual delta; the result can never be negative.
type AjusteStockRequest struct {
	Delta  int    `json:"delta"  validate:"required"`
	Motivo string `json:"motivo" validate:"required,min=3"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type JoyaFilter struct {
	Nombre string `form:"nombre"`
	Tipo   string `form:"tipo"`
	Page   int    `form:"page,default=1"  validate:"min=1"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type JoyaResponse struct {
	ID           string          `json:"id"`
	Nombre       string          `json:"nombre"`
	Tipo         string          `json:"tipo"`
	PrecioCompra decimal.Decimal `json:"precio_compra"`
	PrecioVenta  decimal.Decimal `json:"precio_venta"`
	Cantidad     int             `json:"cantidad"`
	ImagenURL    *string         `json:"imagen_url"`
	MiniaturaURL *string         `json:"miniatura_url"`
	CreatedAt    string          `json:"created_at"`
}

type JoyaListResponse struct {
	Data  []JoyaResponse `json:"data"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

type MovimientoStockResponse struct {
	ID            string  `json:"id"`
	Tipo          string  `json:"tipo"`
	Cantidad      int     `json:"cantidad"`
	StockAnterior int     `json:"stock_anterior"`
	StockNuevo    int     `json:"stock_nuevo"`
	Motivo        string  `json:"motivo,omitempty"`
	ReferenciaID  *string `json:"referencia_id,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

type MovimientoStockListResponse struct {
	Data  []MovimientoStockResponse `json:"data"`
	Total int64                     `json:"total"`
}
