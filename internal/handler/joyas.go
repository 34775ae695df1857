package handler

import (
	"io"
	"net/http"
	"strconv"

	"lasmarias/internal/apierror"
	"lasmarias/internal/dto"
	"lasmarias/internal/service"

	"github.com/gin-gonic/gin"
)

// maxImagen caps uploaded image size.
const maxImagen = 8 << 20

type JoyasHandler struct{ svc service.JoyaService }

func NewJoyasHandler(svc service.JoyaService) *JoyasHandler { return &JoyasHandler{svc: svc} }

// Crear godoc
// @Summary      Alta de joya
// @Tags         joyas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearJoyaRequest true "Joya"
// @Success      201  {object} dto.JoyaResponse
// @Failure      422  {object} apierror.APIError
// @Router       /v1/joyas [post]
func (h *JoyasHandler) Crear(c *gin.Context) {
	var req dto.CrearJoyaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Listar godoc
// @Summary      Listar joyas
// @Tags         joyas
// @Produce      json
// @Security     BearerAuth
// @Param        nombre query string false "Filtro por nombre"
// @Param        tipo   query string false "Filtro por tipo"
// @Param        page   query int    false "Página"
// @Param        limit  query int    false "Tamaño de página"
// @Success      200 {object} dto.JoyaListResponse
// @Router       /v1/joyas [get]
func (h *JoyasHandler) Listar(c *gin.Context) {
	var filter dto.JoyaFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *JoyasHandler) ObtenerPorID(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerPorID(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *JoyasHandler) Actualizar(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.ActualizarJoyaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Actualizar(c.Request.Context(), id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *JoyasHandler) Eliminar(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.svc.Eliminar(c.Request.Context(), id); err != nil {
		responderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SubirImagen godoc
// @Summary      Subir imagen de una joya
// @Description  Guarda la imagen y una miniatura; reemplaza la imagen anterior.
// @Tags         joyas
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id     path     string true "UUID de la joya"
// @Param        imagen formData file   true "Imagen JPEG o PNG"
// @Success      200 {object} dto.JoyaResponse
// @Failure      422 {object} apierror.APIError
// @Failure      503 {object} apierror.APIError
// @Router       /v1/joyas/{id}/imagen [post]
func (h *JoyasHandler) SubirImagen(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("imagen")
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Falta el archivo 'imagen'"))
		return
	}
	if fh.Size > maxImagen {
		c.JSON(http.StatusRequestEntityTooLarge, apierror.New("La imagen supera los 8 MB"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("No se pudo leer la imagen"))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxImagen))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("No se pudo leer la imagen"))
		return
	}

	resp, err := h.svc.SubirImagen(c.Request.Context(), id, fh.Filename, fh.Header.Get("Content-Type"), data)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AjustarStock godoc
// @Summary      Ajuste manual de stock
// @Tags         joyas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                 true "UUID de la joya"
// @Param        body body dto.AjusteStockRequest true "Delta y motivo"
// @Success      200 {object} dto.JoyaResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/joyas/{id}/stock [patch]
func (h *JoyasHandler) AjustarStock(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.AjusteStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AjustarStock(c.Request.Context(), id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *JoyasHandler) ListarMovimientos(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	resp, err := h.svc.ListarMovimientos(c.Request.Context(), id, page, limit)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
