package dto

import "github.com/shopspring/decimal"

// GananciaMensual is the cash collected in one month, by payment date.
type GananciaMensual struct {
	Periodo  string          `json:"periodo"` // YYYY-MM
	Ganancia decimal.Decimal `json:"ganancia"`
	Pagos    int             `json:"pagos"`
}

// ReporteGananciasResponse exposes both profit rules with explicit labels:
// GananciaMesActual is margin by sale date, Meses is cash by payment date.
type ReporteGananciasResponse struct {
	Periodo           string            `json:"periodo"`
	GananciaMesActual decimal.Decimal   `json:"ganancia_mes_actual"`
	Meses             []GananciaMensual `json:"meses"`
	TotalCobrado      decimal.Decimal   `json:"total_cobrado"`
	CantidadPagos     int               `json:"cantidad_pagos"`
	Version           int64             `json:"version"`
}
