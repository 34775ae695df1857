package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"lasmarias/internal/dto"
	"lasmarias/internal/estado"
	"lasmarias/internal/ganancias"
	"lasmarias/internal/infra"
	"lasmarias/internal/model"
	"lasmarias/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const reporteCacheTTL = 10 * time.Minute

type GananciasService interface {
	Reporte(ctx context.Context) (*dto.ReporteGananciasResponse, error)
	ExportarExcel(ctx context.Context, w io.Writer) error
}

type gananciasService struct {
	ventas repository.VentaRepository
	hub    estado.Hub
	rdb    *redis.Client
	loc    *time.Location
	now    func() time.Time
}

// NewGananciasService caches reports in rdb when it is not nil. The cache key
// carries the shared-state version, so any write makes old entries unreachable.
func NewGananciasService(ventas repository.VentaRepository, hub estado.Hub, rdb *redis.Client, loc *time.Location) GananciasService {
	if loc == nil {
		loc = time.UTC
	}
	return &gananciasService{ventas: ventas, hub: hub, rdb: rdb, loc: loc, now: time.Now}
}

func (s *gananciasService) Reporte(ctx context.Context) (*dto.ReporteGananciasResponse, error) {
	ahora := s.now().In(s.loc)
	version := s.version(ctx)
	key := fmt.Sprintf("lasmarias:ganancias:%d:%s", version, ganancias.PeriodoDe(ahora))

	if s.rdb != nil && version > 0 {
		if cached, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
			var resp dto.ReporteGananciasResponse
			if json.Unmarshal(cached, &resp) == nil {
				return &resp, nil
			}
		}
	}

	r, err := s.calcular(ctx, ahora)
	if err != nil {
		return nil, err
	}
	resp := reporteToResponse(r, version)

	if s.rdb != nil && version > 0 {
		if b, err := json.Marshal(resp); err == nil {
			_ = s.rdb.Set(context.Background(), key, b, reporteCacheTTL).Err()
		}
	}
	return resp, nil
}

func (s *gananciasService) ExportarExcel(ctx context.Context, w io.Writer) error {
	r, err := s.calcular(ctx, s.now().In(s.loc))
	if err != nil {
		return err
	}
	return infra.EscribirReporteExcel(w, r)
}

func (s *gananciasService) calcular(ctx context.Context, ahora time.Time) (ganancias.Reporte, error) {
	ventas, err := s.ventas.ListConPagos(ctx)
	if err != nil {
		return ganancias.Reporte{}, persistencia("listar ventas", err)
	}
	return ganancias.Calcular(aVistaGanancias(ventas), ahora), nil
}

// version is 0 when there is no hub or it cannot be read; the report is then
// computed fresh and not cached.
func (s *gananciasService) version(ctx context.Context) int64 {
	if s.hub == nil {
		return 0
	}
	v, err := s.hub.Version(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("no se pudo leer la versión de ventas")
		return 0
	}
	return v
}

func aVistaGanancias(ventas []model.Venta) []ganancias.Venta {
	out := make([]ganancias.Venta, len(ventas))
	for i, v := range ventas {
		gv := ganancias.Venta{
			Creada:       v.CreatedAt,
			PrecioVenta:  v.PrecioVentaTotal,
			PrecioCompra: v.PrecioCompraTotal,
			Pagos:        make([]ganancias.Pago, len(v.Pagos)),
		}
		for j, p := range v.Pagos {
			gv.Pagos[j] = ganancias.Pago{Monto: p.Monto, Fecha: p.Fecha}
		}
		out[i] = gv
	}
	return out
}

func reporteToResponse(r ganancias.Reporte, version int64) *dto.ReporteGananciasResponse {
	resp := &dto.ReporteGananciasResponse{
		Periodo:           r.Periodo.String(),
		GananciaMesActual: r.GananciaMesActual,
		Meses:             make([]dto.GananciaMensual, len(r.Meses)),
		TotalCobrado:      r.TotalCobrado,
		CantidadPagos:     r.CantidadPagos,
		Version:           version,
	}
	for i, b := range r.Meses {
		resp.Meses[i] = dto.GananciaMensual{Periodo: b.Periodo.String(), Ganancia: b.Ganancia, Pagos: b.Pagos}
	}
	return resp
}
