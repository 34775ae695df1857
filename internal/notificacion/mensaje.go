// Package notificacion builds the WhatsApp message sent to a buyer after each
// payment. It only formats text and a wa.me link; delivery is left to the
// client that opens the link.
package notificacion

import (
	"fmt"
	"net/url"
	"strings"

	"lasmarias/internal/cuotas"

	"github.com/shopspring/decimal"
)

const (
	NegocioPorDefecto = "Las Marias"
	BaseURLPorDefecto = "https://wa.me/"
)

type Plantilla string

const (
	PlantillaCuotaPagada  Plantilla = "cuota_pagada"
	PlantillaPagoCompleto Plantilla = "pago_completo"
	PlantillaPagoFlexible Plantilla = "pago_flexible"
)

// Datos is what the builder needs from a sale right after a payment.
type Datos struct {
	Comprador  string
	Telefono   string
	Articulos  string
	Total      decimal.Decimal
	Estado     cuotas.Estado
	UltimoPago decimal.Decimal
}

type Mensaje struct {
	Plantilla Plantilla `json:"plantilla"`
	Telefono  string    `json:"telefono"`
	Texto     string    `json:"texto"`
	Enlace    string    `json:"enlace"`
}

type Constructor struct {
	negocio string
	baseURL string
}

func NuevoConstructor(negocio, baseURL string) *Constructor {
	if strings.TrimSpace(negocio) == "" {
		negocio = NegocioPorDefecto
	}
	if baseURL == "" {
		baseURL = BaseURLPorDefecto
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Constructor{negocio: negocio, baseURL: baseURL}
}

// ElegirPlantilla picks the template for the state reached after a payment.
func ElegirPlantilla(e cuotas.Estado) Plantilla {
	if e.Completa() {
		return PlantillaPagoCompleto
	}
	if _, ok := e.(cuotas.EstadoFlexible); ok {
		return PlantillaPagoFlexible
	}
	return PlantillaCuotaPagada
}

func (c *Constructor) Construir(d Datos) Mensaje {
	tel := NormalizarTelefono(d.Telefono)
	p := ElegirPlantilla(d.Estado)

	var texto string
	switch p {
	case PlantillaPagoCompleto:
		texto = c.textoCompleto(d)
	case PlantillaPagoFlexible:
		texto = c.textoFlexible(d, d.Estado.(cuotas.EstadoFlexible))
	default:
		texto = c.textoCuota(d, d.Estado.(cuotas.EstadoFijo))
	}

	return Mensaje{
		Plantilla: p,
		Telefono:  tel,
		Texto:     texto,
		Enlace:    c.baseURL + tel + "?text=" + codificar(texto),
	}
}

func (c *Constructor) saludo(d Datos) string {
	return fmt.Sprintf("Hola %s, somos %s.", d.Comprador, c.negocio)
}

func (c *Constructor) textoCuota(d Datos, e cuotas.EstadoFijo) string {
	pagadas := e.Pagadas()
	pagoWord := fmt.Sprintf("%d cuotas", pagadas)
	if pagadas == 1 {
		pagoWord = "una cuota"
	}
	cuotaWord := "cuotas"
	if e.Restantes == 1 {
		cuotaWord = "cuota"
	}
	abonado := e.TotalPagado()
	falta := d.Total.Sub(abonado)

	var b strings.Builder
	b.WriteString(c.saludo(d))
	fmt.Fprintf(&b, "\n\nQueremos agradecerte por tu compra de \"%s\".", d.Articulos)
	fmt.Fprintf(&b, "\n\nHas pagado %s de $%s cada una. El valor total de tu compra es de $%s.",
		pagoWord, e.MontoCuota.StringFixed(2), d.Total.StringFixed(2))
	fmt.Fprintf(&b, "\n\nHasta el momento, has abonado $%s, y te faltan $%s para completar el pago.",
		abonado.StringFixed(2), falta.StringFixed(2))
	fmt.Fprintf(&b, "\n\nTe quedan %d %s por pagar. Si tienes alguna duda, no dudes en contactarnos. ¡Gracias por confiar en nosotros!",
		e.Restantes, cuotaWord)
	return b.String()
}

func (c *Constructor) textoFlexible(d Datos, e cuotas.EstadoFlexible) string {
	var b strings.Builder
	b.WriteString(c.saludo(d))
	fmt.Fprintf(&b, "\n\nRecibimos tu pago de $%s por tu compra de \"%s\".", d.UltimoPago.StringFixed(2), d.Articulos)
	fmt.Fprintf(&b, "\n\nEl valor total de tu compra es de $%s. Hasta el momento, has abonado $%s, y te faltan $%s para completar el pago.",
		d.Total.StringFixed(2), e.TotalPagado().StringFixed(2), e.Saldo.StringFixed(2))
	b.WriteString("\n\nSi tienes alguna duda, no dudes en contactarnos. ¡Gracias por confiar en nosotros!")
	return b.String()
}

func (c *Constructor) textoCompleto(d Datos) string {
	var b strings.Builder
	b.WriteString(c.saludo(d))
	fmt.Fprintf(&b, "\n\n¡Felicidades! Has completado el pago total de tu compra de \"%s\". Valor total: $%s.",
		d.Articulos, d.Total.StringFixed(2))
	b.WriteString("\n\nGracias por confiar en nosotros. Si necesitas más información o asistencia, no dudes en contactarnos. ¡Esperamos verte pronto!")
	return b.String()
}

// uriComponent undoes the QueryEscape choices encodeURIComponent does not make.
var uriComponent = strings.NewReplacer(
	"+", "%20",
	"%21", "!", "%27", "'", "%28", "(", "%29", ")", "%2A", "*",
)

// codificar escapes like encodeURIComponent.
func codificar(s string) string {
	return uriComponent.Replace(url.QueryEscape(s))
}
