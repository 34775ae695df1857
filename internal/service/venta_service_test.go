package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lasmarias/internal/cuotas"
	"lasmarias/internal/dto"
	"lasmarias/internal/estado"
	"lasmarias/internal/infra"
	"lasmarias/internal/notificacion"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

type ventaFixture struct {
	joyas  *stubJoyaRepo
	movs   *stubMovimientoRepo
	ventas *stubVentaRepo
	hub    *estado.Memoria
	avisos *stubAvisos
	svc    VentaService
	ahora  time.Time
}

func newVentaFixture(t *testing.T) *ventaFixture {
	t.Helper()
	f := &ventaFixture{
		joyas:  newStubJoyaRepo(),
		movs:   &stubMovimientoRepo{},
		ventas: newStubVentaRepo(),
		hub:    estado.NewMemoria(),
		avisos: &stubAvisos{},
		ahora:  time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC),
	}
	f.svc = NewVentaService(VentaDeps{
		Repo:       f.ventas,
		Inventario: NewInventarioService(f.joyas, f.movs),
		Hub:        f.hub,
		Avisos:     f.avisos,
		Mensajes:   notificacion.NuevoConstructor("Las Marias", ""),
		Now:        func() time.Time { return f.ahora },
	})
	return f
}

func (f *ventaFixture) vender(t *testing.T, cuotas int, ids ...uuid.UUID) *dto.RegistrarVentaResponse {
	t.Helper()
	req := dto.RegistrarVentaRequest{Comprador: "Ana", Telefono: "11 1234 5678", Cuotas: cuotas}
	for _, id := range ids {
		req.JoyaIDs = append(req.JoyaIDs, id.String())
	}
	resp, err := f.svc.RegistrarVenta(context.Background(), req)
	require.NoError(t, err)
	return resp
}

// ── RegistrarVenta ────────────────────────────────────────────────────────────

func TestRegistrarVenta_CuotasFijas(t *testing.T) {
	f := newVentaFixture(t)
	anillo := f.joyas.add("Anillo", "300", "120", 2)

	resp := f.vender(t, 3, anillo.ID)

	v := resp.Venta
	assert.Equal(t, "Anillo", v.Articulos)
	require.NotNil(t, v.JoyaID)
	assert.Equal(t, anillo.ID.String(), *v.JoyaID)
	assert.True(t, v.PrecioVentaTotal.Equal(dec("300")))
	assert.Equal(t, "120.00", v.PrecioCompraTotal)
	assert.Equal(t, "fijo", v.Estado.Plan)
	assert.Equal(t, 3, *v.Estado.CuotasRestantes)
	assert.True(t, v.Estado.MontoCuota.Equal(dec("100")))
	assert.Empty(t, resp.Rechazados)
	assert.Equal(t, 1, f.joyas.cantidad(anillo.ID))

	require.Len(t, f.movs.movimientos, 1)
	m := f.movs.movimientos[0]
	assert.Equal(t, MovimientoVenta, m.Tipo)
	assert.Equal(t, -1, m.Cantidad)
	assert.Equal(t, 2, m.StockAnterior)
	assert.Equal(t, 1, m.StockNuevo)
	require.NotNil(t, m.ReferenciaID)
	assert.Equal(t, v.ID, m.ReferenciaID.String())
}

func TestRegistrarVenta_FlexibleVariosArticulos(t *testing.T) {
	f := newVentaFixture(t)
	anillo := f.joyas.add("Anillo", "300", "120", 1)
	collar := f.joyas.add("Collar", "200", "80", 1)

	resp := f.vender(t, cuotas.Flexible, anillo.ID, collar.ID)

	v := resp.Venta
	assert.Equal(t, "Anillo, Collar", v.Articulos)
	assert.Nil(t, v.JoyaID)
	assert.Equal(t, dto.NoAplica, v.PrecioCompraTotal)
	assert.True(t, v.Ganancia.Equal(dec("300")))
	assert.Equal(t, "flexible", v.Estado.Plan)
	assert.True(t, v.Estado.SaldoRestante.Equal(dec("500")))
	assert.Nil(t, v.Estado.CuotasRestantes)

	guardada := f.ventas.ventas[uuid.MustParse(v.ID)]
	assert.True(t, guardada.PrecioCompraTotal.Equal(dec("200")))
}

func TestRegistrarVenta_RechazaArticuloSinStock(t *testing.T) {
	f := newVentaFixture(t)
	anillo := f.joyas.add("Anillo", "300", "120", 1)
	agotado := f.joyas.add("Aros", "90", "30", 0)

	resp := f.vender(t, 1, anillo.ID, agotado.ID)

	assert.Equal(t, "Anillo", resp.Venta.Articulos)
	assert.True(t, resp.Venta.PrecioVentaTotal.Equal(dec("300")))
	require.Len(t, resp.Rechazados, 1)
	assert.Equal(t, agotado.ID.String(), resp.Rechazados[0].JoyaID)
	assert.Equal(t, 0, resp.Rechazados[0].Disponible)
	assert.Equal(t, 0, f.joyas.cantidad(agotado.ID))
}

func TestRegistrarVenta_MismaJoyaDosUnidades(t *testing.T) {
	f := newVentaFixture(t)
	anillo := f.joyas.add("Anillo", "100", "40", 1)

	resp := f.vender(t, 1, anillo.ID, anillo.ID)

	assert.Len(t, resp.Venta.Items, 1)
	assert.Len(t, resp.Rechazados, 1)
	assert.Equal(t, 0, f.joyas.cantidad(anillo.ID))
}

func TestRegistrarVenta_TodoSinStock(t *testing.T) {
	f := newVentaFixture(t)
	agotado := f.joyas.add("Aros", "90", "30", 0)

	_, err := f.svc.RegistrarVenta(context.Background(), dto.RegistrarVentaRequest{
		JoyaIDs: []string{agotado.ID.String()}, Cuotas: 1,
	})

	assert.ErrorIs(t, err, ErrStockInsuficiente)
	var sinStock *SinStockError
	require.ErrorAs(t, err, &sinStock)
	assert.Len(t, sinStock.Items, 1)
	assert.Empty(t, f.ventas.ventas)
}

func TestRegistrarVenta_Validaciones(t *testing.T) {
	f := newVentaFixture(t)
	anillo := f.joyas.add("Anillo", "100", "40", 5)

	tests := []struct {
		name string
		req  dto.RegistrarVentaRequest
		want error
	}{
		{"sin artículos", dto.RegistrarVentaRequest{Cuotas: 1}, ErrValidacion},
		{"cuotas cero", dto.RegistrarVentaRequest{JoyaIDs: []string{anillo.ID.String()}, Cuotas: 0}, ErrValidacion},
		{"cuotas negativas", dto.RegistrarVentaRequest{JoyaIDs: []string{anillo.ID.String()}, Cuotas: -2}, cuotas.ErrCuotasInvalidas},
		{"id inválido", dto.RegistrarVentaRequest{JoyaIDs: []string{"no-es-uuid"}, Cuotas: 1}, ErrValidacion},
		{"joya inexistente", dto.RegistrarVentaRequest{JoyaIDs: []string{uuid.NewString()}, Cuotas: 1}, ErrNoEncontrado},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RegistrarVenta(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 5, f.joyas.cantidad(anillo.ID))
}

func TestRegistrarVenta_CompradorPorDefecto(t *testing.T) {
	f := newVentaFixture(t)
	anillo := f.joyas.add("Anillo", "100", "40", 1)

	resp, err := f.svc.RegistrarVenta(context.Background(), dto.RegistrarVentaRequest{
		JoyaIDs: []string{anillo.ID.String()}, Comprador: "  ", Cuotas: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, CompradorPorDefecto, resp.Venta.Comprador)
}

func TestRegistrarVenta_UltimaUnidadConcurrente(t *testing.T) {
	f := newVentaFixture(t)
	anillo := f.joyas.add("Anillo", "100", "40", 1)

	const n = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, sinStock := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RegistrarVenta(context.Background(), dto.RegistrarVentaRequest{
				JoyaIDs: []string{anillo.ID.String()}, Cuotas: 1,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, ErrStockInsuficiente) {
				sinStock++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, sinStock)
	assert.Equal(t, 0, f.joyas.cantidad(anillo.ID))
}

func TestRegistrarVenta_PublicaEvento(t *testing.T) {
	f := newVentaFixture(t)
	anillo := f.joyas.add("Anillo", "100", "40", 1)
	ch, cancel := f.hub.Suscribir(context.Background())
	defer cancel()

	resp := f.vender(t, 1, anillo.ID)

	select {
	case ev := <-ch:
		assert.Equal(t, estado.VentaCreada, ev.Tipo)
		assert.Equal(t, resp.Venta.ID, ev.VentaID)
		assert.EqualValues(t, 1, ev.Version)
	case <-time.After(time.Second):
		t.Fatal("no llegó el evento")
	}
}

// ── RegistrarPago ─────────────────────────────────────────────────────────────

func TestRegistrarPago_FijoHastaCompletar(t *testing.T) {
	f := newVentaFixture(t)
	anillo := f.joyas.add("Anillo", "100", "40", 1)
	id := uuid.MustParse(f.vender(t, 3, anillo.ID).Venta.ID)

	for i, restantes := range []int{2, 1, 0} {
		// amount is ignored on fixed plans
		resp, err := f.svc.RegistrarPago(context.Background(), id, dto.RegistrarPagoRequest{Monto: decPtr("999")})
		require.NoError(t, err)
		assert.Equal(t, restantes, *resp.Venta.Estado.CuotasRestantes)
		assert.True(t, resp.Pago.Monto.Equal(dec("33.33")))
		assert.Equal(t, i+1, resp.Pago.Numero)
		assert.Len(t, resp.Venta.Pagos, i+1)
	}

	_, err := f.svc.RegistrarPago(context.Background(), id, dto.RegistrarPagoRequest{})
	assert.ErrorIs(t, err, cuotas.ErrVentaCompleta)

	v := f.ventas.ventas[id]
	assert.Len(t, v.Pagos, 3)
	assert.Equal(t, 0, v.CuotasRestantes)
}

func TestRegistrarPago_MensajeYAviso(t *testing.T) {
	f := newVentaFixture(t)
	anillo := f.joyas.add("Anillo", "300", "100", 1)
	id := uuid.MustParse(f.vender(t, 3, anillo.ID).Venta.ID)

	resp, err := f.svc.RegistrarPago(context.Background(), id, dto.RegistrarPagoRequest{})
	require.NoError(t, err)

	assert.Equal(t, notificacion.PlantillaCuotaPagada, resp.Mensaje.Plantilla)
	assert.Equal(t, "5491112345678", resp.Mensaje.Telefono)
	assert.Contains(t, resp.Mensaje.Texto, "Te quedan 2 cuotas por pagar")

	require.Len(t, f.avisos.jobs, 1)
	assert.Equal(t, id.String(), f.avisos.jobs[0].VentaID)
	assert.Equal(t, "100.00", f.avisos.jobs[0].Monto)
	assert.False(t, f.avisos.jobs[0].Completa)
}

func TestRegistrarPago_FlexibleConExcedente(t *testing.T) {
	f := newVentaFixture(t)
	collar := f.joyas.add("Collar", "500", "200", 1)
	id := uuid.MustParse(f.vender(t, cuotas.Flexible, collar.ID).Venta.ID)

	resp, err := f.svc.RegistrarPago(context.Background(), id, dto.RegistrarPagoRequest{Monto: decPtr("200")})
	require.NoError(t, err)
	assert.True(t, resp.Venta.Estado.SaldoRestante.Equal(dec("300")))
	assert.Equal(t, notificacion.PlantillaPagoFlexible, resp.Mensaje.Plantilla)
	assert.True(t, resp.Excedente.IsZero())

	resp, err = f.svc.RegistrarPago(context.Background(), id, dto.RegistrarPagoRequest{Monto: decPtr("350")})
	require.NoError(t, err)
	assert.True(t, resp.Venta.Estado.SaldoRestante.IsZero())
	assert.True(t, resp.Excedente.Equal(dec("50")))
	assert.True(t, resp.Venta.Estado.Completa)
	assert.Equal(t, notificacion.PlantillaPagoCompleto, resp.Mensaje.Plantilla)
	assert.True(t, resp.Venta.Estado.TotalPagado.Equal(dec("550")))

	_, err = f.svc.RegistrarPago(context.Background(), id, dto.RegistrarPagoRequest{Monto: decPtr("10")})
	assert.ErrorIs(t, err, cuotas.ErrVentaCompleta)
}

func TestRegistrarPago_FlexibleMontoInvalido(t *testing.T) {
	f := newVentaFixture(t)
	collar := f.joyas.add("Collar", "500", "200", 1)
	id := uuid.MustParse(f.vender(t, cuotas.Flexible, collar.ID).Venta.ID)

	for _, req := range []dto.RegistrarPagoRequest{{}, {Monto: decPtr("0")}, {Monto: decPtr("-5")}} {
		_, err := f.svc.RegistrarPago(context.Background(), id, req)
		assert.ErrorIs(t, err, ErrValidacion)
	}
	assert.Empty(t, f.ventas.ventas[id].Pagos)
}

func TestRegistrarPago_ErrorDePersistenciaNoDejaCambios(t *testing.T) {
	f := newVentaFixture(t)
	collar := f.joyas.add("Collar", "500", "200", 1)
	id := uuid.MustParse(f.vender(t, cuotas.Flexible, collar.ID).Venta.ID)
	f.ventas.failPago = errors.New("connection reset")

	_, err := f.svc.RegistrarPago(context.Background(), id, dto.RegistrarPagoRequest{Monto: decPtr("100")})

	assert.ErrorIs(t, err, ErrPersistencia)
	v := f.ventas.ventas[id]
	assert.Empty(t, v.Pagos)
	assert.True(t, v.SaldoRestante.Equal(dec("500")))
	assert.Empty(t, f.avisos.jobs)
}

func TestRegistrarPago_VentaInexistente(t *testing.T) {
	f := newVentaFixture(t)
	_, err := f.svc.RegistrarPago(context.Background(), uuid.New(), dto.RegistrarPagoRequest{})
	assert.ErrorIs(t, err, ErrNoEncontrado)
}

func TestRegistrarPago_Bloqueado(t *testing.T) {
	f := newVentaFixture(t)
	svc := NewVentaService(VentaDeps{
		Repo:       f.ventas,
		Inventario: NewInventarioService(f.joyas, f.movs),
		Bloqueo:    stubBloqueo{err: infra.ErrBloqueado},
	})
	_, err := svc.RegistrarPago(context.Background(), uuid.New(), dto.RegistrarPagoRequest{})
	assert.ErrorIs(t, err, ErrPagoEnCurso)
}

func TestRegistrarPago_RedisCaidoNoImpidePago(t *testing.T) {
	f := newVentaFixture(t)
	anillo := f.joyas.add("Anillo", "100", "40", 1)
	id := uuid.MustParse(f.vender(t, 1, anillo.ID).Venta.ID)
	svc := NewVentaService(VentaDeps{
		Repo:       f.ventas,
		Inventario: NewInventarioService(f.joyas, f.movs),
		Bloqueo:    stubBloqueo{err: errors.New("dial tcp: connection refused")},
	})

	resp, err := svc.RegistrarPago(context.Background(), id, dto.RegistrarPagoRequest{})
	require.NoError(t, err)
	assert.True(t, resp.Venta.Estado.Completa)
}

func TestRegistrarPago_FallaEncolarNoFallaPago(t *testing.T) {
	f := newVentaFixture(t)
	f.avisos.falla = errors.New("redis down")
	anillo := f.joyas.add("Anillo", "100", "40", 1)
	id := uuid.MustParse(f.vender(t, 2, anillo.ID).Venta.ID)

	_, err := f.svc.RegistrarPago(context.Background(), id, dto.RegistrarPagoRequest{})
	assert.NoError(t, err)
}

// The stored counters always match what the payment history implies.
func TestRegistrarPago_ContadoresCoincidenConHistorial(t *testing.T) {
	f := newVentaFixture(t)
	collar := f.joyas.add("Collar", "1000", "400", 1)
	id := uuid.MustParse(f.vender(t, cuotas.Flexible, collar.ID).Venta.ID)

	for _, m := range []string{"100", "250.50", "49.50"} {
		_, err := f.svc.RegistrarPago(context.Background(), id, dto.RegistrarPagoRequest{Monto: decPtr(m)})
		require.NoError(t, err)
	}

	v := f.ventas.ventas[id]
	montos := make([]decimal.Decimal, len(v.Pagos))
	for i, p := range v.Pagos {
		montos[i] = p.Monto
	}
	e := cuotas.Reconstruir(cuotas.PlanFlexible(), v.PrecioVentaTotal, montos).(cuotas.EstadoFlexible)
	assert.True(t, e.Saldo.Equal(v.SaldoRestante))
	assert.True(t, v.SaldoRestante.Equal(dec("600")))
}

// Amounts below a cent are rounded before the balance is computed, so the
// history and the stored balance agree.
func TestRegistrarPago_FlexibleRedondeaACentavos(t *testing.T) {
	f := newVentaFixture(t)
	collar := f.joyas.add("Collar", "500", "200", 1)
	id := uuid.MustParse(f.vender(t, cuotas.Flexible, collar.ID).Venta.ID)

	resp, err := f.svc.RegistrarPago(context.Background(), id, dto.RegistrarPagoRequest{Monto: decPtr("200.555")})
	require.NoError(t, err)
	assert.True(t, resp.Venta.Estado.SaldoRestante.Equal(dec("299.44")))

	_, err = f.svc.RegistrarPago(context.Background(), id, dto.RegistrarPagoRequest{Monto: decPtr("0.004")})
	assert.ErrorIs(t, err, ErrValidacion)

	resp, err = f.svc.RegistrarPago(context.Background(), id, dto.RegistrarPagoRequest{Monto: decPtr("299.435")})
	require.NoError(t, err)
	assert.True(t, resp.Venta.Estado.Completa)

	v := f.ventas.ventas[id]
	require.Len(t, v.Pagos, 2)
	assert.True(t, v.Pagos[0].Monto.Equal(dec("200.56")))
	assert.True(t, v.Pagos[1].Monto.Equal(dec("299.44")))
	montos := []decimal.Decimal{v.Pagos[0].Monto, v.Pagos[1].Monto}
	e := cuotas.Reconstruir(cuotas.PlanFlexible(), v.PrecioVentaTotal, montos).(cuotas.EstadoFlexible)
	assert.True(t, e.Saldo.Equal(v.SaldoRestante))
}

// A sale committed between the stock read and the decrement is reflected in
// the recorded movement.
func TestRegistrarVenta_MovimientoUsaStockEscrito(t *testing.T) {
	f := newVentaFixture(t)
	anillo := f.joyas.add("Anillo", "100", "40", 2)
	f.joyas.antesDeMover = func() {
		f.joyas.antesDeMover = nil
		_, ok, _ := f.joyas.mover(anillo.ID, -1)
		require.True(t, ok)
	}

	f.vender(t, 1, anillo.ID)

	require.Len(t, f.movs.movimientos, 1)
	m := f.movs.movimientos[0]
	assert.Equal(t, 1, m.StockAnterior)
	assert.Equal(t, 0, m.StockNuevo)
	assert.Equal(t, 0, f.joyas.cantidad(anillo.ID))
}

// ── Metadata / delete ─────────────────────────────────────────────────────────

func TestEliminarVenta(t *testing.T) {
	f := newVentaFixture(t)
	anillo := f.joyas.add("Anillo", "100", "40", 1)
	id := uuid.MustParse(f.vender(t, 1, anillo.ID).Venta.ID)

	require.NoError(t, f.svc.EliminarVenta(context.Background(), id))
	assert.Empty(t, f.ventas.ventas)
	// stock is not restored
	assert.Equal(t, 0, f.joyas.cantidad(anillo.ID))

	assert.ErrorIs(t, f.svc.EliminarVenta(context.Background(), id), ErrNoEncontrado)
}

func TestEditarComprador(t *testing.T) {
	f := newVentaFixture(t)
	anillo := f.joyas.add("Anillo", "100", "40", 1)
	id := uuid.MustParse(f.vender(t, 2, anillo.ID).Venta.ID)

	resp, err := f.svc.EditarComprador(context.Background(), id, "  María López ")
	require.NoError(t, err)
	assert.Equal(t, "María López", resp.Comprador)
	assert.Equal(t, 2, *resp.Estado.CuotasRestantes)

	_, err = f.svc.EditarComprador(context.Background(), id, " ")
	assert.ErrorIs(t, err, ErrValidacion)

	_, err = f.svc.EditarComprador(context.Background(), uuid.New(), "Luz")
	assert.ErrorIs(t, err, ErrNoEncontrado)
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func TestListarVentas_RangoDeFechas(t *testing.T) {
	f := newVentaFixture(t)
	anillo := f.joyas.add("Anillo", "100", "40", 3)

	for _, dia := range []int{1, 15, 30} {
		f.ahora = time.Date(2024, 4, dia, 12, 0, 0, 0, time.UTC)
		f.vender(t, 1, anillo.ID)
	}

	resp, err := f.svc.ListarVentas(context.Background(), dto.VentaFilter{Desde: "2024-04-10", Hasta: "2024-04-30"})
	require.NoError(t, err)
	require.Len(t, resp.Data, 2)
	assert.EqualValues(t, 2, resp.Total)
	assert.Equal(t, "2024-04-30T12:00:00Z", resp.Data[0].CreatedAt)

	_, err = f.svc.ListarVentas(context.Background(), dto.VentaFilter{Desde: "2024-05-01", Hasta: "2024-04-01"})
	assert.ErrorIs(t, err, ErrValidacion)

	_, err = f.svc.ListarVentas(context.Background(), dto.VentaFilter{Desde: "01/04/2024"})
	assert.ErrorIs(t, err, ErrValidacion)
}

func TestComprobantePDF(t *testing.T) {
	f := newVentaFixture(t)
	anillo := f.joyas.add("Anillo", "100", "40", 1)
	id := uuid.MustParse(f.vender(t, 2, anillo.ID).Venta.ID)
	_, err := f.svc.RegistrarPago(context.Background(), id, dto.RegistrarPagoRequest{})
	require.NoError(t, err)

	pdf, err := f.svc.ComprobantePDF(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(pdf[:5]))

	_, err = f.svc.ComprobantePDF(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNoEncontrado)
}
