// Package cuotas models how a sale is paid: a fixed number of equal
// installments or a flexible plan where any amount can be paid until the
// total is covered. It holds no I/O and no clock.
package cuotas

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Flexible is how a flexible plan is stored and sent over the wire.
const Flexible = -1

var (
	ErrCuotasInvalidas = errors.New("la cantidad de cuotas debe ser 1 o mayor, o -1 para pago flexible")
	ErrMontoInvalido   = errors.New("el monto del pago debe ser mayor a cero")
	ErrVentaCompleta   = errors.New("la venta ya está pagada en su totalidad")
)

// Plan is the purchase term chosen when the sale is created.
type Plan struct {
	cuotas int
}

// NuevoPlan parses the persisted representation: n >= 1 is a fixed plan of n
// installments and -1 is flexible.
func NuevoPlan(cuotas int) (Plan, error) {
	if cuotas == Flexible || cuotas >= 1 {
		return Plan{cuotas: cuotas}, nil
	}
	return Plan{}, fmt.Errorf("%w: %d", ErrCuotasInvalidas, cuotas)
}

func PlanFlexible() Plan { return Plan{cuotas: Flexible} }

func (p Plan) EsFlexible() bool { return p.cuotas == Flexible }

// Cuotas returns the persisted value (-1 for flexible).
func (p Plan) Cuotas() int { return p.cuotas }

// MontoCuota is total/n rounded to cents. Zero for flexible plans.
func (p Plan) MontoCuota(total decimal.Decimal) decimal.Decimal {
	if p.EsFlexible() || p.cuotas < 1 {
		return decimal.Zero
	}
	return total.DivRound(decimal.NewFromInt(int64(p.cuotas)), 2)
}

// EstadoInicial is the payment state of a freshly created sale.
func (p Plan) EstadoInicial(total decimal.Decimal) Estado {
	if p.EsFlexible() {
		return EstadoFlexible{Total: total, Saldo: total}
	}
	return EstadoFijo{Cuotas: p.cuotas, Restantes: p.cuotas, MontoCuota: p.MontoCuota(total)}
}

func (p Plan) String() string {
	if p.EsFlexible() {
		return "flexible"
	}
	return fmt.Sprintf("%d cuotas", p.cuotas)
}
