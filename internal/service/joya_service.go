package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"lasmarias/internal/dto"
	"lasmarias/internal/estado"
	"lasmarias/internal/infra"
	"lasmarias/internal/model"
	"lasmarias/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const tipoPorDefecto = "Sin tipo"

// JoyaService defines the business logic contract for the jewelry catalog.
type JoyaService interface {
	Crear(ctx context.Context, req dto.CrearJoyaRequest) (*dto.JoyaResponse, error)
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.JoyaResponse, error)
	Listar(ctx context.Context, filter dto.JoyaFilter) (*dto.JoyaListResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarJoyaRequest) (*dto.JoyaResponse, error)
	Eliminar(ctx context.Context, id uuid.UUID) error
	// SubirImagen stores the image and a thumbnail, replacing any previous one.
	SubirImagen(ctx context.Context, id uuid.UUID, archivo, contentType string, data []byte) (*dto.JoyaResponse, error)
	AjustarStock(ctx context.Context, id uuid.UUID, req dto.AjusteStockRequest) (*dto.JoyaResponse, error)
	ListarMovimientos(ctx context.Context, id uuid.UUID, page, limit int) (*dto.MovimientoStockListResponse, error)
}

type joyaService struct {
	repo       repository.JoyaRepository
	inventario InventarioService
	blobs      infra.BlobStore
	hub        estado.Hub
}

// NewJoyaService accepts a nil blob store; image uploads then fail with
// infra.ErrBlobNoConfigurado and everything else works.
func NewJoyaService(repo repository.JoyaRepository, inventario InventarioService, blobs infra.BlobStore, hub estado.Hub) JoyaService {
	return &joyaService{repo: repo, inventario: inventario, blobs: blobs, hub: hub}
}

func (s *joyaService) Crear(ctx context.Context, req dto.CrearJoyaRequest) (*dto.JoyaResponse, error) {
	nombre := strings.TrimSpace(req.Nombre)
	if nombre == "" {
		return nil, validacion("nombre", "el nombre es obligatorio")
	}
	if err := preciosValidos(req.PrecioCompra, req.PrecioVenta); err != nil {
		return nil, err
	}
	if req.Cantidad < 0 {
		return nil, validacion("cantidad", "la cantidad no puede ser negativa")
	}
	tipo := strings.TrimSpace(req.Tipo)
	if tipo == "" {
		tipo = tipoPorDefecto
	}

	j := &model.Joya{
		ID:           uuid.New(),
		Nombre:       nombre,
		Tipo:         tipo,
		PrecioCompra: req.PrecioCompra.Round(2),
		PrecioVenta:  req.PrecioVenta.Round(2),
		Cantidad:     req.Cantidad,
	}
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, j); err != nil {
			return persistencia("crear joya", err)
		}
		if j.Cantidad == 0 {
			return nil
		}
		return s.inventario.RegistrarMovimientoTx(tx, &model.MovimientoStock{
			JoyaID:     j.ID,
			Tipo:       MovimientoAlta,
			Cantidad:   j.Cantidad,
			StockNuevo: j.Cantidad,
			Motivo:     "alta de joya",
		})
	})
	if err != nil {
		return nil, err
	}
	s.publicar(ctx, j.ID)
	return joyaToResponse(j), nil
}

func (s *joyaService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.JoyaResponse, error) {
	j, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	return joyaToResponse(j), nil
}

func (s *joyaService) Listar(ctx context.Context, filter dto.JoyaFilter) (*dto.JoyaListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 200 {
		filter.Limit = 50
	}
	joyas, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, persistencia("listar joyas", err)
	}
	data := make([]dto.JoyaResponse, len(joyas))
	for i := range joyas {
		data[i] = *joyaToResponse(&joyas[i])
	}
	return &dto.JoyaListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *joyaService) Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarJoyaRequest) (*dto.JoyaResponse, error) {
	j, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Nombre != nil {
		n := strings.TrimSpace(*req.Nombre)
		if n == "" {
			return nil, validacion("nombre", "el nombre es obligatorio")
		}
		j.Nombre = n
	}
	if req.Tipo != nil {
		j.Tipo = strings.TrimSpace(*req.Tipo)
		if j.Tipo == "" {
			j.Tipo = tipoPorDefecto
		}
	}
	if req.PrecioCompra != nil {
		j.PrecioCompra = req.PrecioCompra.Round(2)
	}
	if req.PrecioVenta != nil {
		j.PrecioVenta = req.PrecioVenta.Round(2)
	}
	if err := preciosValidos(j.PrecioCompra, j.PrecioVenta); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, j); err != nil {
		return nil, persistencia("actualizar joya", err)
	}
	s.publicar(ctx, j.ID)
	return joyaToResponse(j), nil
}

// Eliminar removes the catalog entry. Sales keep their own copy of names and
// prices, so they are unaffected.
func (s *joyaService) Eliminar(ctx context.Context, id uuid.UUID) error {
	j, err := s.buscar(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return persistencia("eliminar joya", err)
	}
	if n == 0 {
		return noEncontrado("joya", id)
	}
	s.borrarObjetos(ctx, j.ImagenObjeto, j.MiniaturaObjeto)
	s.publicar(ctx, id)
	return nil
}

func (s *joyaService) SubirImagen(ctx context.Context, id uuid.UUID, archivo, contentType string, data []byte) (*dto.JoyaResponse, error) {
	if s.blobs == nil {
		return nil, infra.ErrBlobNoConfigurado
	}
	if len(data) == 0 {
		return nil, validacion("imagen", "el archivo está vacío")
	}
	j, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	mini, err := infra.GenerarMiniatura(data)
	if err != nil {
		return nil, &ValidacionError{Campo: "imagen", Err: err}
	}

	original, miniatura := infra.NombresObjeto(archivo)
	url, err := s.blobs.Subir(ctx, original, contentType, data)
	if err != nil {
		return nil, persistencia("subir imagen", err)
	}
	urlMini, err := s.blobs.Subir(ctx, miniatura, "image/jpeg", mini)
	if err != nil {
		s.borrarObjetos(ctx, &original)
		return nil, persistencia("subir miniatura", err)
	}

	anterior, anteriorMini := j.ImagenObjeto, j.MiniaturaObjeto
	j.ImagenURL, j.ImagenObjeto = &url, &original
	j.MiniaturaURL, j.MiniaturaObjeto = &urlMini, &miniatura
	if err := s.repo.Update(ctx, j); err != nil {
		s.borrarObjetos(ctx, &original, &miniatura)
		return nil, persistencia("guardar imagen", err)
	}
	s.borrarObjetos(ctx, anterior, anteriorMini)
	s.publicar(ctx, j.ID)
	return joyaToResponse(j), nil
}

func (s *joyaService) AjustarStock(ctx context.Context, id uuid.UUID, req dto.AjusteStockRequest) (*dto.JoyaResponse, error) {
	j, err := s.inventario.AjustarStock(ctx, id, req.Delta, req.Motivo)
	if err != nil {
		return nil, err
	}
	s.publicar(ctx, id)
	return joyaToResponse(j), nil
}

func (s *joyaService) ListarMovimientos(ctx context.Context, id uuid.UUID, page, limit int) (*dto.MovimientoStockListResponse, error) {
	if _, err := s.buscar(ctx, id); err != nil {
		return nil, err
	}
	movs, total, err := s.inventario.ListarMovimientos(ctx, repository.MovimientoStockFilter{JoyaID: &id, Page: page, Limit: limit})
	if err != nil {
		return nil, err
	}
	data := make([]dto.MovimientoStockResponse, len(movs))
	for i, m := range movs {
		data[i] = dto.MovimientoStockResponse{
			ID:            m.ID.String(),
			Tipo:          m.Tipo,
			Cantidad:      m.Cantidad,
			StockAnterior: m.StockAnterior,
			StockNuevo:    m.StockNuevo,
			Motivo:        m.Motivo,
			CreatedAt:     m.CreatedAt.Format(time.RFC3339),
		}
		if m.ReferenciaID != nil {
			ref := m.ReferenciaID.String()
			data[i].ReferenciaID = &ref
		}
	}
	return &dto.MovimientoStockListResponse{Data: data, Total: total}, nil
}

func (s *joyaService) buscar(ctx context.Context, id uuid.UUID) (*model.Joya, error) {
	j, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, noEncontrado("joya", id)
	}
	if err != nil {
		return nil, persistencia("buscar joya", err)
	}
	return j, nil
}

// borrarObjetos is best effort: an orphan blob is harmless.
func (s *joyaService) borrarObjetos(ctx context.Context, nombres ...*string) {
	if s.blobs == nil {
		return
	}
	for _, n := range nombres {
		if n == nil || *n == "" {
			continue
		}
		if err := s.blobs.Eliminar(ctx, *n); err != nil {
			log.Warn().Err(err).Str("objeto", *n).Msg("no se pudo eliminar la imagen")
		}
	}
}

func (s *joyaService) publicar(ctx context.Context, id uuid.UUID) {
	if s.hub == nil {
		return
	}
	if _, err := s.hub.Publicar(ctx, estado.Evento{Tipo: estado.JoyaActualizada, JoyaID: id.String()}); err != nil {
		log.Warn().Err(err).Str("joya_id", id.String()).Msg("no se pudo publicar el cambio")
	}
}

func preciosValidos(compra, venta decimal.Decimal) error {
	if compra.IsNegative() {
		return validacion("precio_compra", "el precio no puede ser negativo")
	}
	if venta.IsNegative() {
		return validacion("precio_venta", "el precio no puede ser negativo")
	}
	return nil
}

func joyaToResponse(j *model.Joya) *dto.JoyaResponse {
	return &dto.JoyaResponse{
		ID:           j.ID.String(),
		Nombre:       j.Nombre,
		Tipo:         j.Tipo,
		PrecioCompra: j.PrecioCompra,
		PrecioVenta:  j.PrecioVenta,
		Cantidad:     j.Cantidad,
		ImagenURL:    j.ImagenURL,
		MiniaturaURL: j.MiniaturaURL,
		CreatedAt:    j.CreatedAt.Format(time.RFC3339),
	}
}
