package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"lasmarias/internal/dto"
	"lasmarias/internal/model"
	"lasmarias/internal/repository"
	"lasmarias/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────
// In-memory repositories. DB() returns nil so runTx calls fn(nil) directly.

type stubJoyaRepo struct {
	mu    sync.Mutex
	joyas map[uuid.UUID]*model.Joya
	// antesDeUpdate runs at the start of Update, outside the lock, to let a
	// test commit a sale between the service's read and its write.
	antesDeUpdate func()
	// antesDeMover runs before each stock change, outside the lock.
	antesDeMover func()
}

func newStubJoyaRepo() *stubJoyaRepo {
	return &stubJoyaRepo{joyas: make(map[uuid.UUID]*model.Joya)}
}

func (r *stubJoyaRepo) add(nombre string, venta, compra string, cantidad int) *model.Joya {
	j := &model.Joya{
		ID:           uuid.New(),
		Nombre:       nombre,
		Tipo:         tipoPorDefecto,
		PrecioVenta:  decimal.RequireFromString(venta),
		PrecioCompra: decimal.RequireFromString(compra),
		Cantidad:     cantidad,
	}
	r.joyas[j.ID] = j
	return j
}

func (r *stubJoyaRepo) cantidad(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.joyas[id].Cantidad
}

func (r *stubJoyaRepo) CreateTx(_ *gorm.DB, j *model.Joya) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	cp := *j
	r.joyas[j.ID] = &cp
	return nil
}

func (r *stubJoyaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Joya, error) {
	return r.FindByIDTx(nil, id)
}

func (r *stubJoyaRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Joya, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.joyas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *j
	return &cp, nil
}

func (r *stubJoyaRepo) List(_ context.Context, f dto.JoyaFilter) ([]model.Joya, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Joya
	for _, j := range r.joyas {
		if f.Nombre != "" && !strings.Contains(strings.ToLower(j.Nombre), strings.ToLower(f.Nombre)) {
			continue
		}
		out = append(out, *j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Nombre < out[k].Nombre })
	return out, int64(len(out)), nil
}

func (r *stubJoyaRepo) Update(_ context.Context, j *model.Joya) error {
	if r.antesDeUpdate != nil {
		r.antesDeUpdate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	actual, ok := r.joyas[j.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	j.Cantidad = actual.Cantidad
	cp := *j
	r.joyas[j.ID] = &cp
	return nil
}

func (r *stubJoyaRepo) Delete(_ context.Context, id uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.joyas[id]; !ok {
		return 0, nil
	}
	delete(r.joyas, id)
	return 1, nil
}

func (r *stubJoyaRepo) DecrementarStockTx(_ *gorm.DB, id uuid.UUID, n int) (int, bool, error) {
	return r.mover(id, -n)
}

func (r *stubJoyaRepo) AjustarStockTx(_ *gorm.DB, id uuid.UUID, delta int) (int, bool, error) {
	return r.mover(id, delta)
}

func (r *stubJoyaRepo) mover(id uuid.UUID, delta int) (int, bool, error) {
	if r.antesDeMover != nil {
		r.antesDeMover()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.joyas[id]
	if !ok || j.Cantidad+delta < 0 {
		return 0, false, nil
	}
	j.Cantidad += delta
	return j.Cantidad, true, nil
}

func (r *stubJoyaRepo) DB() *gorm.DB { return nil }

var _ repository.JoyaRepository = (*stubJoyaRepo)(nil)

type stubMovimientoRepo struct {
	mu          sync.Mutex
	movimientos []model.MovimientoStock
}

func (r *stubMovimientoRepo) CreateTx(_ *gorm.DB, m *model.MovimientoStock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	r.movimientos = append(r.movimientos, *m)
	return nil
}

func (r *stubMovimientoRepo) List(_ context.Context, f repository.MovimientoStockFilter) ([]model.MovimientoStock, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MovimientoStock
	for _, m := range r.movimientos {
		if f.JoyaID != nil && m.JoyaID != *f.JoyaID {
			continue
		}
		if f.Tipo != "" && m.Tipo != f.Tipo {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

var _ repository.MovimientoStockRepository = (*stubMovimientoRepo)(nil)

type stubVentaRepo struct {
	mu     sync.Mutex
	ventas map[uuid.UUID]*model.Venta
	// failPago makes RegistrarPagoTx fail before writing anything.
	failPago error
}

func newStubVentaRepo() *stubVentaRepo {
	return &stubVentaRepo{ventas: make(map[uuid.UUID]*model.Venta)}
}

func copiarVenta(v *model.Venta) *model.Venta {
	cp := *v
	cp.Items = append([]model.VentaItem(nil), v.Items...)
	cp.Pagos = append([]model.PagoVenta(nil), v.Pagos...)
	return &cp
}

func (r *stubVentaRepo) Create(_ context.Context, _ *gorm.DB, v *model.Venta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	r.ventas[v.ID] = copiarVenta(v)
	return nil
}

func (r *stubVentaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Venta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.ventas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copiarVenta(v), nil
}

func (r *stubVentaRepo) FindByIDForUpdateTx(_ *gorm.DB, id uuid.UUID) (*model.Venta, error) {
	return r.FindByID(context.Background(), id)
}

func (r *stubVentaRepo) RegistrarPagoTx(_ *gorm.DB, p *model.PagoVenta, restantes int, saldo decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failPago != nil {
		return r.failPago
	}
	v, ok := r.ventas[p.VentaID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	v.Pagos = append(v.Pagos, *p)
	v.CuotasRestantes = restantes
	v.SaldoRestante = saldo
	return nil
}

func (r *stubVentaRepo) UpdateComprador(_ context.Context, id uuid.UUID, comprador string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.ventas[id]
	if !ok {
		return 0, nil
	}
	v.Comprador = comprador
	return 1, nil
}

func (r *stubVentaRepo) Delete(_ context.Context, id uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ventas[id]; !ok {
		return 0, nil
	}
	delete(r.ventas, id)
	return 1, nil
}

func (r *stubVentaRepo) List(_ context.Context, f repository.VentaFilter) ([]model.Venta, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Venta
	for _, v := range r.ventas {
		if f.Desde != nil && v.CreatedAt.Before(*f.Desde) {
			continue
		}
		if f.Hasta != nil && !v.CreatedAt.Before(*f.Hasta) {
			continue
		}
		out = append(out, *copiarVenta(v))
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out, int64(len(out)), nil
}

func (r *stubVentaRepo) ListConPagos(ctx context.Context) ([]model.Venta, error) {
	out, _, err := r.List(ctx, repository.VentaFilter{})
	return out, err
}

func (r *stubVentaRepo) DB() *gorm.DB { return nil }

var _ repository.VentaRepository = (*stubVentaRepo)(nil)

type stubAvisos struct {
	mu    sync.Mutex
	jobs  []worker.AvisoPagoPayload
	falla error
}

func (a *stubAvisos) EnqueueAvisoPago(_ context.Context, p worker.AvisoPagoPayload) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.falla != nil {
		return a.falla
	}
	a.jobs = append(a.jobs, p)
	return nil
}

type stubBloqueo struct{ err error }

func (b stubBloqueo) Bloquear(context.Context, string) (func(), error) {
	if b.err != nil {
		return nil, b.err
	}
	return func() {}, nil
}

type stubBlobs struct {
	mu         sync.Mutex
	objetos    map[string][]byte
	eliminados []string
	falla      error
}

func newStubBlobs() *stubBlobs { return &stubBlobs{objetos: make(map[string][]byte)} }

func (b *stubBlobs) Subir(_ context.Context, nombre, _ string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.falla != nil {
		return "", b.falla
	}
	b.objetos[nombre] = data
	return "https://blobs.test/" + nombre, nil
}

func (b *stubBlobs) Eliminar(_ context.Context, nombre string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objetos, nombre)
	b.eliminados = append(b.eliminados, nombre)
	return nil
}
