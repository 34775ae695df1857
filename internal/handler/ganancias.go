package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"lasmarias/internal/service"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type GananciasHandler struct{ svc service.GananciasService }

func NewGananciasHandler(svc service.GananciasService) *GananciasHandler {
	return &GananciasHandler{svc: svc}
}

// Reporte godoc
// @Summary      Reporte de ganancias
// @Description  Ganancia por mes según los pagos cobrados, más el margen de las ventas creadas en el mes actual.
// @Tags         ganancias
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.ReporteGananciasResponse
// @Router       /v1/ganancias [get]
func (h *GananciasHandler) Reporte(c *gin.Context) {
	resp, err := h.svc.Reporte(c.Request.Context())
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Exportar godoc
// @Summary      Exportar ganancias a Excel
// @Tags         ganancias
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Success      200 {file} binary
// @Router       /v1/ganancias/export [get]
func (h *GananciasHandler) Exportar(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.svc.ExportarExcel(c.Request.Context(), &buf); err != nil {
		responderError(c, err)
		return
	}
	nombre := fmt.Sprintf("ganancias-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, nombre))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
