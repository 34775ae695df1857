// Package ganancias projects persisted sales into profit figures. Two rules
// coexist and are labelled separately:
//
//   - monthly buckets recognise cash when it is collected, keyed by the
//     month of each payment date;
//   - the current-month figure recognises margin (sale minus purchase
//     price) in the month the sale was created.
package ganancias

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Periodo is a calendar month.
type Periodo struct {
	Anio int
	Mes  time.Month
}

func PeriodoDe(t time.Time) Periodo {
	return Periodo{Anio: t.Year(), Mes: t.Month()}
}

func (p Periodo) String() string { return fmt.Sprintf("%04d-%02d", p.Anio, int(p.Mes)) }

func (p Periodo) Antes(o Periodo) bool {
	if p.Anio != o.Anio {
		return p.Anio < o.Anio
	}
	return p.Mes < o.Mes
}

type Pago struct {
	Monto decimal.Decimal
	Fecha time.Time
}

// Venta is the read-only view of a sale this package needs.
type Venta struct {
	Creada       time.Time
	PrecioVenta  decimal.Decimal
	PrecioCompra decimal.Decimal
	Pagos        []Pago
}

// Bucket accumulates the payments dated in one month.
type Bucket struct {
	Periodo  Periodo
	Ganancia decimal.Decimal
	Pagos    int
}

// AgregarMensual groups every payment of every sale by the month of its date,
// evaluated in loc. Payments are attributed to their own month, not to the
// month the sale was created.
func AgregarMensual(ventas []Venta, loc *time.Location) map[Periodo]Bucket {
	if loc == nil {
		loc = time.UTC
	}
	buckets := make(map[Periodo]Bucket)
	for _, v := range ventas {
		for _, p := range v.Pagos {
			key := PeriodoDe(p.Fecha.In(loc))
			b := buckets[key]
			b.Periodo = key
			b.Ganancia = b.Ganancia.Add(p.Monto)
			b.Pagos++
			buckets[key] = b
		}
	}
	return buckets
}

// Ordenar returns the buckets oldest first.
func Ordenar(buckets map[Periodo]Bucket) []Bucket {
	out := make([]Bucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Periodo.Antes(out[j].Periodo) })
	return out
}

// Margen is the profit of one sale.
func Margen(precioVenta, precioCompra decimal.Decimal) decimal.Decimal {
	return precioVenta.Sub(precioCompra)
}

// GananciaMesActual sums sale price minus purchase price over the sales
// created in the same year and month as ahora, in ahora's location.
func GananciaMesActual(ventas []Venta, ahora time.Time) decimal.Decimal {
	actual := PeriodoDe(ahora)
	total := decimal.Zero
	for _, v := range ventas {
		if PeriodoDe(v.Creada.In(ahora.Location())) != actual {
			continue
		}
		total = total.Add(Margen(v.PrecioVenta, v.PrecioCompra))
	}
	return total
}

type Reporte struct {
	Periodo           Periodo
	GananciaMesActual decimal.Decimal
	Meses             []Bucket
	TotalCobrado      decimal.Decimal
	CantidadPagos     int
}

// Calcular builds the full report as of ahora.
func Calcular(ventas []Venta, ahora time.Time) Reporte {
	meses := Ordenar(AgregarMensual(ventas, ahora.Location()))
	r := Reporte{
		Periodo:           PeriodoDe(ahora),
		GananciaMesActual: GananciaMesActual(ventas, ahora),
		Meses:             meses,
		TotalCobrado:      decimal.Zero,
	}
	for _, b := range meses {
		r.TotalCobrado = r.TotalCobrado.Add(b.Ganancia)
		r.CantidadPagos += b.Pagos
	}
	return r
}
