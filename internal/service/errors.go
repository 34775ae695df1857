package service

import (
	"errors"
	"fmt"
	"strings"

	"lasmarias/internal/cuotas"

	"github.com/google/uuid"
)

// Error kinds. Handlers map them to HTTP status codes with errors.Is, so every
// error a service returns wraps exactly one of these (or a cuotas sentinel).
var (
	ErrValidacion        = errors.New("datos inválidos")
	ErrStockInsuficiente = errors.New("stock insuficiente")
	ErrNoEncontrado      = errors.New("no encontrado")
	ErrPersistencia      = errors.New("error de persistencia")
	ErrPagoEnCurso       = errors.New("ya hay un pago en curso para esta venta")
	ErrCredenciales      = errors.New("credenciales inválidas")
)

// ValidacionError reports a bad input field.
type ValidacionError struct {
	Campo string
	Err   error
}

func (e *ValidacionError) Error() string {
	if e.Campo == "" {
		return e.Err.Error()
	}
	return e.Campo + ": " + e.Err.Error()
}

func (e *ValidacionError) Unwrap() error { return e.Err }

func (e *ValidacionError) Is(target error) bool { return target == ErrValidacion }

func validacion(campo, msg string) error {
	return &ValidacionError{Campo: campo, Err: errors.New(msg)}
}

// StockInsuficienteError is returned for an item whose quantity cannot cover
// the requested units.
type StockInsuficienteError struct {
	JoyaID     uuid.UUID
	Nombre     string
	Disponible int
}

func (e *StockInsuficienteError) Error() string {
	return fmt.Sprintf("stock insuficiente para %q (disponible: %d)", e.Nombre, e.Disponible)
}

func (e *StockInsuficienteError) Is(target error) bool { return target == ErrStockInsuficiente }

// SinStockError is returned when every item of a sale was rejected.
type SinStockError struct {
	Items []*StockInsuficienteError
}

func (e *SinStockError) Error() string {
	nombres := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		nombres = append(nombres, it.Nombre)
	}
	return "ningún artículo tiene stock disponible: " + strings.Join(nombres, ", ")
}

func (e *SinStockError) Is(target error) bool { return target == ErrStockInsuficiente }

// PersistenciaError wraps a storage failure. The operation name is logged,
// never shown to clients.
type PersistenciaError struct {
	Op  string
	Err error
}

func (e *PersistenciaError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *PersistenciaError) Unwrap() error { return e.Err }

func (e *PersistenciaError) Is(target error) bool { return target == ErrPersistencia }

var conocidos = []error{
	ErrValidacion, ErrStockInsuficiente, ErrNoEncontrado, ErrPersistencia, ErrPagoEnCurso,
	cuotas.ErrVentaCompleta, cuotas.ErrMontoInvalido, cuotas.ErrCuotasInvalidas,
}

// persistencia wraps err unless it already carries a known kind.
func persistencia(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, k := range conocidos {
		if errors.Is(err, k) {
			return err
		}
	}
	return &PersistenciaError{Op: op, Err: err}
}

func noEncontrado(que string, id uuid.UUID) error {
	return fmt.Errorf("%s %s: %w", que, id, ErrNoEncontrado)
}
