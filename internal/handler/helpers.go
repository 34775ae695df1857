package handler

import (
	"errors"
	"net/http"
	"reflect"

	"lasmarias/internal/apierror"
	"lasmarias/internal/cuotas"
	"lasmarias/internal/dto"
	"lasmarias/internal/infra"
	"lasmarias/internal/middleware"
	"lasmarias/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	return validar(c, req)
}

func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("parámetros inválidos: "+err.Error()))
		return false
	}
	return validar(c, req)
}

func validar(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// paramID parses the :id path parameter, writing a 400 when it is not a uuid.
func paramID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return uuid.Nil, false
	}
	return id, true
}

// statusDe maps service error kinds to HTTP status codes.
func statusDe(err error) int {
	switch {
	case errors.Is(err, service.ErrValidacion),
		errors.Is(err, cuotas.ErrMontoInvalido),
		errors.Is(err, cuotas.ErrCuotasInvalidas):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrNoEncontrado):
		return http.StatusNotFound
	case errors.Is(err, service.ErrStockInsuficiente),
		errors.Is(err, cuotas.ErrVentaCompleta),
		errors.Is(err, service.ErrPagoEnCurso):
		return http.StatusConflict
	case errors.Is(err, service.ErrCredenciales):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrPersistencia),
		errors.Is(err, infra.ErrBlobNoConfigurado),
		errors.Is(err, infra.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// responderError writes the error envelope. Storage and unexpected errors are
// logged in full and answered with a generic message.
func responderError(c *gin.Context, err error) {
	status := statusDe(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Msg("request failed")
		msg := "Error interno"
		switch {
		case errors.Is(err, infra.ErrBlobNoConfigurado):
			msg = infra.ErrBlobNoConfigurado.Error()
		case status == http.StatusServiceUnavailable:
			msg = "Servicio no disponible, intente nuevamente"
		}
		c.JSON(status, apierror.New(msg))
		return
	}

	var sinStock *service.SinStockError
	if errors.As(err, &sinStock) {
		rechazados := make([]dto.ItemRechazado, len(sinStock.Items))
		for i, it := range sinStock.Items {
			rechazados[i] = dto.ItemRechazado{
				JoyaID: it.JoyaID.String(), Nombre: it.Nombre, Disponible: it.Disponible, Motivo: it.Error(),
			}
		}
		c.JSON(status, gin.H{"detail": err.Error(), "rechazados": rechazados})
		return
	}
	c.JSON(status, apierror.New(err.Error()))
}
