package service

import (
	"context"
	"errors"
	"strings"

	"lasmarias/internal/model"
	"lasmarias/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MovimientoVenta  = "venta"
	MovimientoAlta   = "alta"
	MovimientoAjuste = "ajuste"
)

// InventarioService owns every change to joyas.cantidad.
type InventarioService interface {
	// DescontarStockTx removes n units inside the transaction of sale ventaID
	// and records the movement. It returns *StockInsuficienteError when fewer
	// than n units remain; nothing is written in that case.
	DescontarStockTx(ctx context.Context, tx *gorm.DB, joyaID uuid.UUID, n int, ventaID uuid.UUID) (*model.Joya, error)
	RegistrarMovimientoTx(tx *gorm.DB, m *model.MovimientoStock) error
	AjustarStock(ctx context.Context, joyaID uuid.UUID, delta int, motivo string) (*model.Joya, error)
	ListarMovimientos(ctx context.Context, filter repository.MovimientoStockFilter) ([]model.MovimientoStock, int64, error)
}

type inventarioService struct {
	joyas       repository.JoyaRepository
	movimientos repository.MovimientoStockRepository
}

func NewInventarioService(joyas repository.JoyaRepository, movimientos repository.MovimientoStockRepository) InventarioService {
	return &inventarioService{joyas: joyas, movimientos: movimientos}
}

func (s *inventarioService) DescontarStockTx(ctx context.Context, tx *gorm.DB, joyaID uuid.UUID, n int, ventaID uuid.UUID) (*model.Joya, error) {
	j, err := s.joyas.FindByIDTx(tx, joyaID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, noEncontrado("joya", joyaID)
	}
	if err != nil {
		return nil, persistencia("buscar joya", err)
	}

	nuevo, ok, err := s.joyas.DecrementarStockTx(tx, joyaID, n)
	if err != nil {
		return nil, persistencia("descontar stock", err)
	}
	if !ok {
		return nil, &StockInsuficienteError{JoyaID: joyaID, Nombre: j.Nombre, Disponible: j.Cantidad}
	}
	// The earlier read is unlocked; the movement uses what the update wrote.
	j.Cantidad = nuevo
	err = s.RegistrarMovimientoTx(tx, &model.MovimientoStock{
		JoyaID:        joyaID,
		Tipo:          MovimientoVenta,
		Cantidad:      -n,
		StockAnterior: nuevo + n,
		StockNuevo:    nuevo,
		ReferenciaID:  &ventaID,
	})
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (s *inventarioService) RegistrarMovimientoTx(tx *gorm.DB, m *model.MovimientoStock) error {
	return persistencia("registrar movimiento", s.movimientos.CreateTx(tx, m))
}

func (s *inventarioService) AjustarStock(ctx context.Context, joyaID uuid.UUID, delta int, motivo string) (*model.Joya, error) {
	if delta == 0 {
		return nil, validacion("delta", "el ajuste no puede ser cero")
	}
	motivo = strings.TrimSpace(motivo)
	if motivo == "" {
		return nil, validacion("motivo", "el motivo es obligatorio")
	}

	var out *model.Joya
	err := runTx(ctx, s.joyas.DB(), func(tx *gorm.DB) error {
		j, err := s.joyas.FindByIDTx(tx, joyaID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return noEncontrado("joya", joyaID)
		}
		if err != nil {
			return persistencia("buscar joya", err)
		}
		nuevo, ok, err := s.joyas.AjustarStockTx(tx, joyaID, delta)
		if err != nil {
			return persistencia("ajustar stock", err)
		}
		if !ok {
			return &StockInsuficienteError{JoyaID: joyaID, Nombre: j.Nombre, Disponible: j.Cantidad}
		}
		j.Cantidad = nuevo
		out = j
		return s.RegistrarMovimientoTx(tx, &model.MovimientoStock{
			JoyaID:        joyaID,
			Tipo:          MovimientoAjuste,
			Cantidad:      delta,
			StockAnterior: nuevo - delta,
			StockNuevo:    nuevo,
			Motivo:        motivo,
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *inventarioService) ListarMovimientos(ctx context.Context, filter repository.MovimientoStockFilter) ([]model.MovimientoStock, int64, error) {
	movs, total, err := s.movimientos.List(ctx, filter)
	if err != nil {
		return nil, 0, persistencia("listar movimientos", err)
	}
	return movs, total, nil
}
