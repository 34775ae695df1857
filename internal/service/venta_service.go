package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"lasmarias/internal/cuotas"
	"lasmarias/internal/dto"
	"lasmarias/internal/estado"
	"lasmarias/internal/ganancias"
	"lasmarias/internal/infra"
	"lasmarias/internal/metrics"
	"lasmarias/internal/model"
	"lasmarias/internal/notificacion"
	"lasmarias/internal/repository"
	"lasmarias/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CompradorPorDefecto is stored when a sale is confirmed without a buyer name.
const CompradorPorDefecto = "Desconocido"

type VentaService interface {
	RegistrarVenta(ctx context.Context, req dto.RegistrarVentaRequest) (*dto.RegistrarVentaResponse, error)
	RegistrarPago(ctx context.Context, id uuid.UUID, req dto.RegistrarPagoRequest) (*dto.RegistrarPagoResponse, error)
	EliminarVenta(ctx context.Context, id uuid.UUID) error
	EditarComprador(ctx context.Context, id uuid.UUID, comprador string) (*dto.VentaResponse, error)
	ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error)
	ListarVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error)
	ComprobantePDF(ctx context.Context, id uuid.UUID) ([]byte, error)
}

// Bloqueador guards a sale against two payments submitted at once.
type Bloqueador interface {
	Bloquear(ctx context.Context, clave string) (func(), error)
}

// Avisos enqueues the e-mail notice sent to the shop after a payment.
type Avisos interface {
	EnqueueAvisoPago(ctx context.Context, p worker.AvisoPagoPayload) error
}

// VentaDeps groups what the sale service needs. Hub, Bloqueo and Avisos are
// optional.
type VentaDeps struct {
	Repo       repository.VentaRepository
	Inventario InventarioService
	Hub        estado.Hub
	Bloqueo    Bloqueador
	Avisos     Avisos
	Mensajes   *notificacion.Constructor
	Negocio    string
	Loc        *time.Location
	Now        func() time.Time
}

type ventaService struct {
	repo       repository.VentaRepository
	inventario InventarioService
	hub        estado.Hub
	bloqueo    Bloqueador
	avisos     Avisos
	mensajes   *notificacion.Constructor
	negocio    string
	loc        *time.Location
	now        func() time.Time
}

func NewVentaService(d VentaDeps) VentaService {
	s := &ventaService{
		repo:       d.Repo,
		inventario: d.Inventario,
		hub:        d.Hub,
		bloqueo:    d.Bloqueo,
		avisos:     d.Avisos,
		mensajes:   d.Mensajes,
		negocio:    d.Negocio,
		loc:        d.Loc,
		now:        d.Now,
	}
	if s.mensajes == nil {
		s.mensajes = notificacion.NuevoConstructor(s.negocio, "")
	}
	if s.negocio == "" {
		s.negocio = notificacion.NegocioPorDefecto
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── RegistrarVenta ────────────────────────────────────────────────────────────
// One transaction:
//   1. For each unit: conditional decrement of joyas.cantidad + movimiento
//   2. Units without stock are rejected one by one; the rest are sold
//   3. Totals and plan state are computed over the accepted units
//   4. Create venta + items
// If no unit is accepted the transaction rolls back.

func (s *ventaService) RegistrarVenta(ctx context.Context, req dto.RegistrarVentaRequest) (*dto.RegistrarVentaResponse, error) {
	if len(req.JoyaIDs) == 0 {
		return nil, validacion("joya_ids", "la venta debe tener al menos un artículo")
	}
	plan, err := cuotas.NuevoPlan(req.Cuotas)
	if err != nil {
		return nil, &ValidacionError{Campo: "cuotas", Err: err}
	}
	ids := make([]uuid.UUID, len(req.JoyaIDs))
	for i, raw := range req.JoyaIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, validacion("joya_ids", "id de joya inválido: "+raw)
		}
		ids[i] = id
	}
	comprador := strings.TrimSpace(req.Comprador)
	if comprador == "" {
		comprador = CompradorPorDefecto
	}

	venta := &model.Venta{
		ID:        uuid.New(),
		Comprador: comprador,
		Telefono:  strings.TrimSpace(req.Telefono),
		Cuotas:    plan.Cuotas(),
		CreatedAt: s.now(),
	}
	var rechazados []*StockInsuficienteError

	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		rechazados = rechazados[:0]
		venta.Items = venta.Items[:0]

		for _, id := range ids {
			j, err := s.inventario.DescontarStockTx(ctx, tx, id, 1, venta.ID)
			var sinStock *StockInsuficienteError
			if errors.As(err, &sinStock) {
				rechazados = append(rechazados, sinStock)
				continue
			}
			if err != nil {
				return err
			}
			venta.Items = append(venta.Items, model.VentaItem{
				VentaID:      venta.ID,
				JoyaID:       j.ID,
				Orden:        len(venta.Items) + 1,
				Nombre:       j.Nombre,
				PrecioVenta:  j.PrecioVenta,
				PrecioCompra: j.PrecioCompra,
			})
		}
		if len(venta.Items) == 0 {
			return &SinStockError{Items: rechazados}
		}

		armarVenta(venta, plan)
		return persistencia("crear venta", s.repo.Create(ctx, tx, venta))
	})
	if err != nil {
		return nil, err
	}

	s.publicar(ctx, estado.VentaCreada, venta.ID)
	metrics.VentasRegistradas.WithLabelValues(metrics.Plan(plan.EsFlexible())).Inc()

	resp := &dto.RegistrarVentaResponse{
		Venta:      *ventaToResponse(venta, s.loc),
		Rechazados: make([]dto.ItemRechazado, 0, len(rechazados)),
	}
	for _, r := range rechazados {
		metrics.ItemsRechazados.Inc()
		log.Warn().
			Str("venta_id", venta.ID.String()).
			Str("joya_id", r.JoyaID.String()).
			Int("disponible", r.Disponible).
			Msg("artículo sin stock, se omite de la venta")
		resp.Rechazados = append(resp.Rechazados, dto.ItemRechazado{
			JoyaID:     r.JoyaID.String(),
			Nombre:     r.Nombre,
			Disponible: r.Disponible,
			Motivo:     r.Error(),
		})
	}
	return resp, nil
}

// armarVenta fills totals, display fields and the initial plan state from
// the accepted items.
func armarVenta(v *model.Venta, plan cuotas.Plan) {
	nombres := make([]string, len(v.Items))
	v.PrecioVentaTotal = decimal.Zero
	v.PrecioCompraTotal = decimal.Zero
	for i, it := range v.Items {
		nombres[i] = it.Nombre
		v.PrecioVentaTotal = v.PrecioVentaTotal.Add(it.PrecioVenta)
		v.PrecioCompraTotal = v.PrecioCompraTotal.Add(it.PrecioCompra)
	}
	v.Articulos = strings.Join(nombres, ", ")
	v.JoyaID = nil
	if len(v.Items) == 1 {
		id := v.Items[0].JoyaID
		v.JoyaID = &id
	}

	switch e := plan.EstadoInicial(v.PrecioVentaTotal).(type) {
	case cuotas.EstadoFijo:
		monto := e.MontoCuota
		v.MontoCuota = &monto
		v.CuotasRestantes = e.Restantes
		v.SaldoRestante = decimal.Zero
	case cuotas.EstadoFlexible:
		v.MontoCuota = nil
		v.CuotasRestantes = 0
		v.SaldoRestante = e.Saldo
	}
}

// ── RegistrarPago ─────────────────────────────────────────────────────────────
// The sale row is locked FOR UPDATE; the payment row and the new remaining
// state are written in the same transaction. A redis lock in front of it
// turns a double click into a 409 instead of a queued second payment.

func (s *ventaService) RegistrarPago(ctx context.Context, id uuid.UUID, req dto.RegistrarPagoRequest) (*dto.RegistrarPagoResponse, error) {
	// Payments are stored in cents, so the balance is computed from the
	// rounded amount too.
	monto := decimal.Zero
	if req.Monto != nil {
		monto = req.Monto.Round(2)
		if req.Monto.IsPositive() && !monto.IsPositive() {
			return nil, validacion("monto", "el monto mínimo es 0.01")
		}
	}

	if s.bloqueo != nil {
		liberar, err := s.bloqueo.Bloquear(ctx, "lasmarias:pago:"+id.String())
		switch {
		case errors.Is(err, infra.ErrBloqueado):
			return nil, ErrPagoEnCurso
		case err != nil:
			// The row lock below still serializes payments.
			log.Warn().Err(err).Str("venta_id", id.String()).Msg("no se pudo obtener el bloqueo de pago")
		default:
			defer liberar()
		}
	}

	var (
		venta *model.Venta
		res   cuotas.Resultado
		pago  *model.PagoVenta
	)
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		v, err := s.repo.FindByIDForUpdateTx(tx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return noEncontrado("venta", id)
		}
		if err != nil {
			return persistencia("buscar venta", err)
		}
		e, err := estadoDeVenta(v)
		if err != nil {
			return err
		}
		if _, flexible := e.(cuotas.EstadoFlexible); flexible && req.Monto == nil && !e.Completa() {
			return validacion("monto", "el monto es obligatorio en el pago flexible")
		}

		res, err = cuotas.Aplicar(e, monto)
		if errors.Is(err, cuotas.ErrMontoInvalido) {
			return &ValidacionError{Campo: "monto", Err: err}
		}
		if err != nil {
			return err
		}

		pago = &model.PagoVenta{
			ID:      uuid.New(),
			VentaID: v.ID,
			Numero:  len(v.Pagos) + 1,
			Monto:   res.Monto,
			Fecha:   s.now(),
		}
		restantes, saldo := columnasEstado(res.Estado)
		if err := s.repo.RegistrarPagoTx(tx, pago, restantes, saldo); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return noEncontrado("venta", id)
			}
			return persistencia("registrar pago", err)
		}
		v.CuotasRestantes, v.SaldoRestante = restantes, saldo
		v.Pagos = append(v.Pagos, *pago)
		venta = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	flexible := res.Estado.Plan().EsFlexible()
	if res.Excedente.IsPositive() {
		log.Warn().
			Str("venta_id", id.String()).
			Str("excedente", res.Excedente.StringFixed(2)).
			Msg("pago flexible mayor al saldo; el saldo queda en cero")
	}

	mensaje := s.mensajes.Construir(notificacion.Datos{
		Comprador:  venta.Comprador,
		Telefono:   venta.Telefono,
		Articulos:  venta.Articulos,
		Total:      venta.PrecioVentaTotal,
		Estado:     res.Estado,
		UltimoPago: pago.Monto,
	})

	s.publicar(ctx, estado.PagoRegistrado, id)
	metrics.PagosRegistrados.WithLabelValues(metrics.Plan(flexible)).Inc()
	if res.Estado.Completa() {
		metrics.VentasCompletadas.Inc()
	}
	s.encolarAviso(ctx, venta, pago, res.Estado.Completa(), mensaje.Texto)

	return &dto.RegistrarPagoResponse{
		Venta:     *ventaToResponse(venta, s.loc),
		Pago:      pagoToResponse(*pago, s.loc),
		Excedente: res.Excedente,
		Mensaje:   mensaje,
	}, nil
}

func (s *ventaService) encolarAviso(ctx context.Context, v *model.Venta, p *model.PagoVenta, completa bool, texto string) {
	if s.avisos == nil {
		return
	}
	err := s.avisos.EnqueueAvisoPago(ctx, worker.AvisoPagoPayload{
		VentaID:   v.ID.String(),
		Comprador: v.Comprador,
		Monto:     p.Monto.StringFixed(2),
		Completa:  completa,
		Mensaje:   texto,
	})
	if err != nil {
		log.Warn().Err(err).Str("venta_id", v.ID.String()).Msg("no se pudo encolar el aviso de pago")
	}
}

// estadoDeVenta reads the plan state from the stored columns.
func estadoDeVenta(v *model.Venta) (cuotas.Estado, error) {
	plan, err := cuotas.NuevoPlan(v.Cuotas)
	if err != nil {
		return nil, persistencia("leer plan", err)
	}
	if plan.EsFlexible() {
		return cuotas.EstadoFlexible{Total: v.PrecioVentaTotal, Saldo: v.SaldoRestante}, nil
	}
	monto := plan.MontoCuota(v.PrecioVentaTotal)
	if v.MontoCuota != nil {
		monto = *v.MontoCuota
	}
	return cuotas.EstadoFijo{Cuotas: plan.Cuotas(), Restantes: v.CuotasRestantes, MontoCuota: monto}, nil
}

func columnasEstado(e cuotas.Estado) (int, decimal.Decimal) {
	switch s := e.(type) {
	case cuotas.EstadoFijo:
		return s.Restantes, decimal.Zero
	case cuotas.EstadoFlexible:
		return 0, s.Saldo
	}
	return 0, decimal.Zero
}

// ── Metadata / delete ─────────────────────────────────────────────────────────

// EliminarVenta is a hard delete. Stock taken by the sale is not restored.
func (s *ventaService) EliminarVenta(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return persistencia("eliminar venta", err)
	}
	if n == 0 {
		return noEncontrado("venta", id)
	}
	s.publicar(ctx, estado.VentaEliminada, id)
	return nil
}

func (s *ventaService) EditarComprador(ctx context.Context, id uuid.UUID, comprador string) (*dto.VentaResponse, error) {
	comprador = strings.TrimSpace(comprador)
	if comprador == "" {
		return nil, validacion("comprador", "el nombre del comprador no puede estar vacío")
	}
	n, err := s.repo.UpdateComprador(ctx, id, comprador)
	if err != nil {
		return nil, persistencia("editar comprador", err)
	}
	if n == 0 {
		return nil, noEncontrado("venta", id)
	}
	s.publicar(ctx, estado.VentaEditada, id)
	return s.ObtenerVenta(ctx, id)
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *ventaService) ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error) {
	v, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	return ventaToResponse(v, s.loc), nil
}

func (s *ventaService) ListarVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 200 {
		filter.Limit = 50
	}
	f := repository.VentaFilter{Page: filter.Page, Limit: filter.Limit}
	if filter.Desde != "" {
		d, err := time.ParseInLocation("2006-01-02", filter.Desde, s.loc)
		if err != nil {
			return nil, validacion("desde", "fecha inválida, se espera AAAA-MM-DD")
		}
		f.Desde = &d
	}
	if filter.Hasta != "" {
		h, err := time.ParseInLocation("2006-01-02", filter.Hasta, s.loc)
		if err != nil {
			return nil, validacion("hasta", "fecha inválida, se espera AAAA-MM-DD")
		}
		// inclusive: everything before the next midnight
		h = h.AddDate(0, 0, 1)
		f.Hasta = &h
	}
	if f.Desde != nil && f.Hasta != nil && !f.Desde.Before(*f.Hasta) {
		return nil, validacion("desde", "la fecha desde es posterior a hasta")
	}

	ventas, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, persistencia("listar ventas", err)
	}
	data := make([]dto.VentaResponse, len(ventas))
	for i := range ventas {
		data[i] = *ventaToResponse(&ventas[i], s.loc)
	}
	return &dto.VentaListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *ventaService) ComprobantePDF(ctx context.Context, id uuid.UUID) ([]byte, error) {
	v, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	e, err := estadoDeVenta(v)
	if err != nil {
		return nil, err
	}
	pagado := totalPagado(v)
	var buf bytes.Buffer
	err = infra.GenerarComprobantePDF(&buf, infra.Comprobante{
		Negocio:     s.negocio,
		Venta:       v,
		Plan:        e.Plan().String(),
		TotalPagado: pagado,
		Pendiente:   pendiente(v, e, pagado),
		Completa:    e.Completa(),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *ventaService) buscar(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	v, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, noEncontrado("venta", id)
	}
	if err != nil {
		return nil, persistencia("buscar venta", err)
	}
	return v, nil
}

func (s *ventaService) publicar(ctx context.Context, tipo estado.Tipo, id uuid.UUID) {
	if s.hub == nil {
		return
	}
	ev := estado.Evento{Tipo: tipo, VentaID: id.String(), Fecha: s.now()}
	if _, err := s.hub.Publicar(ctx, ev); err != nil {
		log.Warn().Err(err).Str("tipo", string(tipo)).Str("venta_id", id.String()).Msg("no se pudo publicar el cambio")
	}
}

// ── Mapping ───────────────────────────────────────────────────────────────────

func totalPagado(v *model.Venta) decimal.Decimal {
	t := decimal.Zero
	for _, p := range v.Pagos {
		t = t.Add(p.Monto)
	}
	return t
}

// pendiente is what the buyer still owes. A complete sale owes nothing even
// when installment rounding left a few cents uncollected.
func pendiente(v *model.Venta, e cuotas.Estado, pagado decimal.Decimal) decimal.Decimal {
	if e.Completa() {
		return decimal.Zero
	}
	if f, ok := e.(cuotas.EstadoFlexible); ok {
		return f.Saldo
	}
	p := v.PrecioVentaTotal.Sub(pagado)
	if p.IsNegative() {
		return decimal.Zero
	}
	return p
}

func pagoToResponse(p model.PagoVenta, loc *time.Location) dto.PagoResponse {
	return dto.PagoResponse{Numero: p.Numero, Monto: p.Monto, Fecha: p.Fecha.In(loc).Format(time.RFC3339)}
}

func ventaToResponse(v *model.Venta, loc *time.Location) *dto.VentaResponse {
	resp := &dto.VentaResponse{
		ID:                v.ID.String(),
		Articulos:         v.Articulos,
		Items:             make([]dto.ItemVentaResponse, len(v.Items)),
		Comprador:         v.Comprador,
		Telefono:          v.Telefono,
		PrecioVentaTotal:  v.PrecioVentaTotal,
		PrecioCompraTotal: v.PrecioCompraTotal.StringFixed(2),
		Ganancia:          ganancias.Margen(v.PrecioVentaTotal, v.PrecioCompraTotal),
		Cuotas:            v.Cuotas,
		Pagos:             make([]dto.PagoResponse, len(v.Pagos)),
		CreatedAt:         v.CreatedAt.In(loc).Format(time.RFC3339),
	}
	if v.JoyaID != nil {
		id := v.JoyaID.String()
		resp.JoyaID = &id
	}
	if len(v.Items) > 1 {
		resp.PrecioCompraTotal = dto.NoAplica
	}
	for i, it := range v.Items {
		resp.Items[i] = dto.ItemVentaResponse{JoyaID: it.JoyaID.String(), Nombre: it.Nombre, PrecioVenta: it.PrecioVenta}
	}
	for i, p := range v.Pagos {
		resp.Pagos[i] = pagoToResponse(p, loc)
	}

	pagado := totalPagado(v)
	e, err := estadoDeVenta(v)
	if err != nil {
		resp.Estado = dto.EstadoPagoResponse{Plan: "desconocido", TotalPagado: pagado}
		return resp
	}
	resp.Estado = estadoToResponse(e, pagado)
	return resp
}

func estadoToResponse(e cuotas.Estado, pagado decimal.Decimal) dto.EstadoPagoResponse {
	out := dto.EstadoPagoResponse{Completa: e.Completa(), TotalPagado: pagado}
	switch s := e.(type) {
	case cuotas.EstadoFijo:
		n, pagadas, restantes, monto := s.Cuotas, s.Pagadas(), s.Restantes, s.MontoCuota
		out.Plan = "fijo"
		out.Cuotas, out.CuotasPagadas, out.CuotasRestantes, out.MontoCuota = &n, &pagadas, &restantes, &monto
	case cuotas.EstadoFlexible:
		saldo := s.Saldo
		out.Plan = "flexible"
		out.SaldoRestante = &saldo
	}
	return out
}
