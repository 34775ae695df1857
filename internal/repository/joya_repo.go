package repository

import (
	"context"

	"lasmarias/internal/dto"
	"lasmarias/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JoyaRepository defines the data access contract for the jewelry catalog.
// Services depend on this interface, not on the concrete GORM implementation.
type JoyaRepository interface {
	CreateTx(tx *gorm.DB, j *model.Joya) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Joya, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Joya, error)
	List(ctx context.Context, filter dto.JoyaFilter) ([]model.Joya, int64, error)
	// Update writes the catalog columns of j. Cantidad is never written here,
	// it is reloaded into j from the row.
	Update(ctx context.Context, j *model.Joya) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)

	// DecrementarStockTx subtracts n units only when at least n remain and
	// returns the quantity left by this update. It reports false, without
	// error, when the condition did not hold.
	DecrementarStockTx(tx *gorm.DB, id uuid.UUID, n int) (int, bool, error)

	// AjustarStockTx adds delta (possibly negative) unless the result would
	// drop below zero.
	AjustarStockTx(tx *gorm.DB, id uuid.UUID, delta int) (int, bool, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type joyaRepo struct{ db *gorm.DB }

func NewJoyaRepository(db *gorm.DB) JoyaRepository { return &joyaRepo{db: db} }

func (r *joyaRepo) DB() *gorm.DB { return r.db }

func (r *joyaRepo) CreateTx(tx *gorm.DB, j *model.Joya) error {
	return tx.Create(j).Error
}

func (r *joyaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Joya, error) {
	var j model.Joya
	err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error
	return &j, err
}

func (r *joyaRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Joya, error) {
	var j model.Joya
	err := tx.First(&j, "id = ?", id).Error
	return &j, err
}

func (r *joyaRepo) List(ctx context.Context, filter dto.JoyaFilter) ([]model.Joya, int64, error) {
	var joyas []model.Joya
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Joya{})
	if filter.Nombre != "" {
		q = q.Where("nombre ILIKE ?", "%"+filter.Nombre+"%")
	}
	if filter.Tipo != "" {
		q = q.Where("tipo = ?", filter.Tipo)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Order("nombre ASC").Offset(offset).Limit(filter.Limit).Find(&joyas).Error
	return joyas, total, err
}

// columnasCatalogo are the columns a catalog edit may touch.
var columnasCatalogo = []string{
	"nombre", "tipo", "precio_compra", "precio_venta",
	"imagen_url", "imagen_objeto", "miniatura_url", "miniatura_objeto", "updated_at",
}

func (r *joyaRepo) Update(ctx context.Context, j *model.Joya) error {
	res := r.db.WithContext(ctx).Model(j).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "cantidad"}}}).
		Select(columnasCatalogo).
		Updates(j)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *joyaRepo) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&model.Joya{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

func (r *joyaRepo) DecrementarStockTx(tx *gorm.DB, id uuid.UUID, n int) (int, bool, error) {
	return moverStock(tx.Where("id = ? AND cantidad >= ?", id, n), -n)
}

func (r *joyaRepo) AjustarStockTx(tx *gorm.DB, id uuid.UUID, delta int) (int, bool, error) {
	return moverStock(tx.Where("id = ? AND cantidad + ? >= 0", id, delta), delta)
}

// moverStock applies delta to the rows matched by q and returns the value
// the database wrote, so concurrent movements each see their own result.
func moverStock(q *gorm.DB, delta int) (int, bool, error) {
	var j model.Joya
	res := q.Model(&j).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "cantidad"}}}).
		Update("cantidad", gorm.Expr("cantidad + ?", delta))
	if res.Error != nil || res.RowsAffected != 1 {
		return 0, false, res.Error
	}
	return j.Cantidad, true, nil
}
