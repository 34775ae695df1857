package repository

import (
	"context"
	"time"

	"lasmarias/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VentaFilter narrows GET /v1/ventas by creation time, [Desde, Hasta).
type VentaFilter struct {
	Desde *time.Time
	Hasta *time.Time
	Page  int
	Limit int
}

type VentaRepository interface {
	Create(ctx context.Context, tx *gorm.DB, v *model.Venta) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error)
	// FindByIDForUpdateTx locks the sale row until tx ends.
	FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Venta, error)
	// RegistrarPagoTx appends p to the history and stores the new remaining
	// state of the sale in the same transaction.
	RegistrarPagoTx(tx *gorm.DB, p *model.PagoVenta, cuotasRestantes int, saldo decimal.Decimal) error
	UpdateComprador(ctx context.Context, id uuid.UUID, comprador string) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	List(ctx context.Context, filter VentaFilter) ([]model.Venta, int64, error)
	// ListConPagos loads every sale with its payment history for reporting.
	ListConPagos(ctx context.Context) ([]model.Venta, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

func (r *ventaRepo) DB() *gorm.DB { return r.db }

func porOrden(db *gorm.DB) *gorm.DB  { return db.Order("orden ASC") }
func porNumero(db *gorm.DB) *gorm.DB { return db.Order("numero ASC") }

func (r *ventaRepo) Create(ctx context.Context, tx *gorm.DB, v *model.Venta) error {
	return tx.WithContext(ctx).Create(v).Error
}

func (r *ventaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).
		Preload("Items", porOrden).
		Preload("Pagos", porNumero).
		First(&v, "id = ?", id).Error
	return &v, err
}

func (r *ventaRepo) FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&v, "id = ?", id).Error
	if err != nil {
		return &v, err
	}
	err = tx.Where("venta_id = ?", id).Order("numero ASC").Find(&v.Pagos).Error
	if err != nil {
		return &v, err
	}
	err = tx.Where("venta_id = ?", id).Order("orden ASC").Find(&v.Items).Error
	return &v, err
}

func (r *ventaRepo) RegistrarPagoTx(tx *gorm.DB, p *model.PagoVenta, cuotasRestantes int, saldo decimal.Decimal) error {
	if err := tx.Create(p).Error; err != nil {
		return err
	}
	res := tx.Model(&model.Venta{}).Where("id = ?", p.VentaID).Updates(map[string]interface{}{
		"cuotas_restantes": cuotasRestantes,
		"saldo_restante":   saldo,
		"updated_at":       time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ventaRepo) UpdateComprador(ctx context.Context, id uuid.UUID, comprador string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Venta{}).Where("id = ?", id).
		Updates(map[string]interface{}{"comprador": comprador, "updated_at": time.Now()})
	return res.RowsAffected, res.Error
}

// Delete removes the sale; items and payments go with it (ON DELETE CASCADE).
func (r *ventaRepo) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&model.Venta{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

func (r *ventaRepo) List(ctx context.Context, filter VentaFilter) ([]model.Venta, int64, error) {
	var ventas []model.Venta
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Venta{})
	if filter.Desde != nil {
		q = q.Where("created_at >= ?", *filter.Desde)
	}
	if filter.Hasta != nil {
		q = q.Where("created_at < ?", *filter.Hasta)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Preload("Items", porOrden).Preload("Pagos", porNumero).
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&ventas).Error
	return ventas, total, err
}

func (r *ventaRepo) ListConPagos(ctx context.Context) ([]model.Venta, error) {
	var ventas []model.Venta
	err := r.db.WithContext(ctx).Preload("Pagos", porNumero).Order("created_at ASC").Find(&ventas).Error
	return ventas, err
}
