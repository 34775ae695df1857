//go:build integration

package repository

// Runs against a real Postgres started with testcontainers.
// Run with: go test -tags integration ./internal/repository/... -v

import (
	"context"
	"sync"
	"testing"
	"time"

	"lasmarias/internal/infra"
	"lasmarias/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("lasmarias_test"),
		tcPostgres.WithUsername("lasmarias"),
		tcPostgres.WithPassword("lasmarias"),
		testcontainers.WithWaitStrategy(tcPostgres.BasicWaitStrategies()...),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := infra.NewDatabase(dsn)
	require.NoError(t, err)
	return db
}

func crearJoya(t *testing.T, repo JoyaRepository, cantidad int) *model.Joya {
	t.Helper()
	j := &model.Joya{
		Nombre:       "Anillo",
		Tipo:         "Anillos",
		PrecioCompra: decimal.NewFromInt(100),
		PrecioVenta:  decimal.NewFromInt(300),
		Cantidad:     cantidad,
	}
	require.NoError(t, repo.CreateTx(repo.DB(), j))
	return j
}

func TestIntegration_DecrementoCondicional(t *testing.T) {
	db := setupDB(t)
	repo := NewJoyaRepository(db)
	j := crearJoya(t, repo, 3)

	// Ten concurrent buyers for three units: exactly three succeed.
	// Each success sees the value its own update wrote.
	var wg sync.WaitGroup
	var mu sync.Mutex
	restantes := []int{}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			nuevo, ok, err := repo.DecrementarStockTx(db, j.ID, 1)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				restantes = append(restantes, nuevo)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{2, 1, 0}, restantes)
	got, err := repo.FindByID(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Cantidad)

	_, ok, err := repo.AjustarStockTx(db, j.ID, -1)
	require.NoError(t, err)
	assert.False(t, ok, "stock never goes below zero")

	nuevo, ok, err := repo.AjustarStockTx(db, j.ID, 4)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, nuevo)
}

func TestIntegration_UpdateNoPisaCantidad(t *testing.T) {
	db := setupDB(t)
	repo := NewJoyaRepository(db)
	ctx := context.Background()
	j := crearJoya(t, repo, 1)

	leida, err := repo.FindByID(ctx, j.ID)
	require.NoError(t, err)
	_, ok, err := repo.DecrementarStockTx(db, j.ID, 1)
	require.NoError(t, err)
	require.True(t, ok)

	leida.PrecioVenta = decimal.NewFromInt(350)
	require.NoError(t, repo.Update(ctx, leida))
	assert.Equal(t, 0, leida.Cantidad)

	got, err := repo.FindByID(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Cantidad)
	assert.True(t, got.PrecioVenta.Equal(decimal.NewFromInt(350)))

	assert.ErrorIs(t, repo.Update(ctx, &model.Joya{ID: uuid.New(), Nombre: "x"}), gorm.ErrRecordNotFound)
}

func TestIntegration_RegistrarPagoAtomico(t *testing.T) {
	db := setupDB(t)
	ventas := NewVentaRepository(db)
	ctx := context.Background()

	monto := decimal.NewFromInt(100)
	v := &model.Venta{
		ID:                uuid.New(),
		Articulos:         "Anillo",
		Comprador:         "Ana",
		PrecioVentaTotal:  decimal.NewFromInt(300),
		PrecioCompraTotal: decimal.NewFromInt(100),
		Cuotas:            3,
		MontoCuota:        &monto,
		CuotasRestantes:   3,
		Items: []model.VentaItem{{
			JoyaID: uuid.New(), Orden: 0, Nombre: "Anillo",
			PrecioVenta: decimal.NewFromInt(300), PrecioCompra: decimal.NewFromInt(100),
		}},
	}
	require.NoError(t, ventas.Create(ctx, db, v))

	pago := func(numero int) *model.PagoVenta {
		return &model.PagoVenta{VentaID: v.ID, Numero: numero, Monto: monto, Fecha: time.Now()}
	}

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return ventas.RegistrarPagoTx(tx, pago(1), 2, decimal.Zero)
	}))

	// A duplicate numero violates UNIQUE (venta_id, numero); the counter
	// update in the same transaction must roll back with it.
	err := db.Transaction(func(tx *gorm.DB) error {
		return ventas.RegistrarPagoTx(tx, pago(1), 1, decimal.Zero)
	})
	require.Error(t, err)

	got, err := ventas.FindByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CuotasRestantes)
	require.Len(t, got.Pagos, 1)
	assert.True(t, got.Pagos[0].Monto.Equal(monto))

	n, err := ventas.Delete(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var pagos int64
	require.NoError(t, db.Model(&model.PagoVenta{}).Where("venta_id = ?", v.ID).Count(&pagos).Error)
	assert.Zero(t, pagos, "payments are deleted with the sale")
}

func TestIntegration_MovimientosPorJoya(t *testing.T) {
	db := setupDB(t)
	joyas := NewJoyaRepository(db)
	movs := NewMovimientoStockRepository(db)
	j := crearJoya(t, joyas, 2)

	require.NoError(t, movs.CreateTx(db, &model.MovimientoStock{
		JoyaID: j.ID, Tipo: "alta", Cantidad: 2, StockAnterior: 0, StockNuevo: 2,
	}))
	require.NoError(t, movs.CreateTx(db, &model.MovimientoStock{
		JoyaID: j.ID, Tipo: "ajuste", Cantidad: -1, StockAnterior: 2, StockNuevo: 1, Motivo: "rotura",
	}))

	list, total, err := movs.List(context.Background(), MovimientoStockFilter{JoyaID: &j.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)
}
