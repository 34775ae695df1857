package cuotas

import (
	"github.com/shopspring/decimal"
)

// Estado is the remaining-payment state of a sale. It is either EstadoFijo or
// EstadoFlexible; the unexported method closes the set.
type Estado interface {
	Completa() bool
	Plan() Plan
	estado()
}

// EstadoFijo counts installments. Restantes lives in [0, Cuotas] and only
// goes down.
type EstadoFijo struct {
	Cuotas     int
	Restantes  int
	MontoCuota decimal.Decimal
}

func (EstadoFijo) estado() {}

func (e EstadoFijo) Completa() bool { return e.Restantes <= 0 }

func (e EstadoFijo) Plan() Plan { return Plan{cuotas: e.Cuotas} }

// Pagadas is the number of installments already paid.
func (e EstadoFijo) Pagadas() int { return e.Cuotas - e.Restantes }

func (e EstadoFijo) TotalPagado() decimal.Decimal {
	return e.MontoCuota.Mul(decimal.NewFromInt(int64(e.Pagadas())))
}

// Pendiente is the money still owed, computed from the installments left.
func (e EstadoFijo) Pendiente() decimal.Decimal {
	return e.MontoCuota.Mul(decimal.NewFromInt(int64(e.Restantes)))
}

// EstadoFlexible tracks the money remainder of a flexible plan. Saldo never
// drops below zero.
type EstadoFlexible struct {
	Total decimal.Decimal
	Saldo decimal.Decimal
}

func (EstadoFlexible) estado() {}

func (e EstadoFlexible) Completa() bool { return !e.Saldo.IsPositive() }

func (e EstadoFlexible) Plan() Plan { return PlanFlexible() }

func (e EstadoFlexible) TotalPagado() decimal.Decimal { return e.Total.Sub(e.Saldo) }

// Resultado describes one accepted payment.
type Resultado struct {
	Estado Estado
	// Monto is the amount recorded in the payment history.
	Monto decimal.Decimal
	// Excedente is the part of a flexible payment above the balance it covered.
	Excedente decimal.Decimal
}

// Aplicar applies one payment to the state. For fixed plans monto is ignored
// and the installment amount is charged. A complete state accepts nothing.
func Aplicar(e Estado, monto decimal.Decimal) (Resultado, error) {
	if e.Completa() {
		return Resultado{}, ErrVentaCompleta
	}
	switch s := e.(type) {
	case EstadoFijo:
		s.Restantes--
		if s.Restantes < 0 {
			s.Restantes = 0
		}
		return Resultado{Estado: s, Monto: s.MontoCuota}, nil
	case EstadoFlexible:
		if !monto.IsPositive() {
			return Resultado{}, ErrMontoInvalido
		}
		excedente := decimal.Zero
		saldo := s.Saldo.Sub(monto)
		if saldo.IsNegative() {
			excedente = saldo.Neg()
			saldo = decimal.Zero
		}
		s.Saldo = saldo
		return Resultado{Estado: s, Monto: monto, Excedente: excedente}, nil
	}
	return Resultado{}, ErrCuotasInvalidas
}

// Reconstruir derives the state from the payment history alone. It is how a
// stored sale is checked against its counters.
func Reconstruir(p Plan, total decimal.Decimal, pagos []decimal.Decimal) Estado {
	if p.EsFlexible() {
		saldo := total
		for _, m := range pagos {
			saldo = saldo.Sub(m)
		}
		if saldo.IsNegative() {
			saldo = decimal.Zero
		}
		return EstadoFlexible{Total: total, Saldo: saldo}
	}
	restantes := p.cuotas - len(pagos)
	if restantes < 0 {
		restantes = 0
	}
	return EstadoFijo{Cuotas: p.cuotas, Restantes: restantes, MontoCuota: p.MontoCuota(total)}
}
