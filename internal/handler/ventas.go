package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"lasmarias/internal/dto"
	"lasmarias/internal/estado"
	"lasmarias/internal/middleware"
	"lasmarias/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// keepAlive is how often an idle event stream sends a ping.
const keepAlive = 25 * time.Second

type VentasHandler struct {
	svc service.VentaService
	hub estado.Hub
}

func NewVentasHandler(svc service.VentaService, hub estado.Hub) *VentasHandler {
	return &VentasHandler{svc: svc, hub: hub}
}

// RegistrarVenta godoc
// @Summary      Registrar una nueva venta
// @Description  Descuenta una unidad por cada joya en una sola transacción. Las joyas sin stock quedan fuera de la venta y se informan en "rechazados"; si ninguna tiene stock no se crea la venta.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.RegistrarVentaRequest true "Detalle de la venta"
// @Success      201  {object} dto.RegistrarVentaResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/ventas [post]
func (h *VentasHandler) RegistrarVenta(c *gin.Context) {
	var req dto.RegistrarVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarVenta(c.Request.Context(), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListarVentas godoc
// @Summary      Listar ventas
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        desde query string false "Fecha desde (YYYY-MM-DD)"
// @Param        hasta query string false "Fecha hasta (YYYY-MM-DD)"
// @Param        page  query int    false "Página"
// @Param        limit query int    false "Tamaño de página"
// @Success      200 {object} dto.VentaListResponse
// @Router       /v1/ventas [get]
func (h *VentasHandler) ListarVentas(c *gin.Context) {
	var filter dto.VentaFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListarVentas(c.Request.Context(), filter)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *VentasHandler) ObtenerVenta(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerVenta(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegistrarPago godoc
// @Summary      Registrar un pago
// @Description  En planes fijos cobra una cuota (monto se ignora). En planes flexibles monto es obligatorio y puede superar el saldo.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                   true "UUID de la venta"
// @Param        body body     dto.RegistrarPagoRequest true "Monto (sólo plan flexible)"
// @Success      201  {object} dto.RegistrarPagoResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/ventas/{id}/pagos [post]
func (h *VentasHandler) RegistrarPago(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.RegistrarPagoRequest
	// An empty body is a valid fixed-plan payment.
	if c.Request.ContentLength != 0 && !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarPago(c.Request.Context(), id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *VentasHandler) EditarComprador(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.EditarCompradorRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.EditarComprador(c.Request.Context(), id, req.Comprador)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// EliminarVenta godoc
// @Summary      Eliminar venta
// @Description  Borra la venta y su historial de pagos. No repone stock.
// @Tags         ventas
// @Security     BearerAuth
// @Param        id path string true "UUID de la venta"
// @Success      204
// @Failure      404 {object} apierror.APIError
// @Router       /v1/ventas/{id} [delete]
func (h *VentasHandler) EliminarVenta(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.svc.EliminarVenta(c.Request.Context(), id); err != nil {
		responderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Comprobante godoc
// @Summary      Comprobante PDF de una venta
// @Tags         ventas
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id path string true "UUID de la venta"
// @Success      200 {file} binary
// @Failure      404 {object} apierror.APIError
// @Router       /v1/ventas/{id}/comprobante [get]
func (h *VentasHandler) Comprobante(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	pdf, err := h.svc.ComprobantePDF(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="comprobante-%s.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// Eventos godoc
// @Summary      Stream de cambios (SSE)
// @Description  Emite un evento "version" al conectar y luego uno por cada venta, pago o joya modificada. Cada evento lleva la versión del estado compartido.
// @Tags         ventas
// @Produce      text/event-stream
// @Security     BearerAuth
// @Router       /v1/ventas/eventos [get]
func (h *VentasHandler) Eventos(c *gin.Context) {
	ctx := c.Request.Context()
	version, err := h.hub.Version(ctx)
	if err != nil {
		responderError(c, err)
		return
	}
	eventos, cancel := h.hub.Suscribir(ctx)
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("version", gin.H{"version": version})
	c.Writer.Flush()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	log.Debug().Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("event stream opened")
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-eventos:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Tipo), ev)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"t": time.Now().Unix()})
			return true
		case <-ctx.Done():
			return false
		}
	})
	log.Debug().Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("event stream closed")
}
