package worker

// aviso_worker.go
// Mails the shop owner a notice after each payment, with the sale receipt
// attached as PDF.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"lasmarias/internal/infra"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AvisoPagoPayload is the job envelope sent to QueueAvisos.
type AvisoPagoPayload struct {
	VentaID   string `json:"venta_id"`
	Comprador string `json:"comprador"`
	Monto     string `json:"monto"`
	Completa  bool   `json:"completa"`
	Mensaje   string `json:"mensaje"` // text sent to the buyer
}

// Enviador sends one e-mail.
type Enviador interface {
	Enviar(to, subject, body string, adjuntos ...infra.Adjunto) error
}

// FuenteComprobante renders the receipt PDF of a sale.
type FuenteComprobante interface {
	ComprobantePDF(ctx context.Context, id uuid.UUID) ([]byte, error)
}

type AvisoWorker struct {
	mailer       Enviador
	comprobantes FuenteComprobante
	destino      string
}

func NewAvisoWorker(mailer Enviador, comprobantes FuenteComprobante, destino string) *AvisoWorker {
	return &AvisoWorker{mailer: mailer, comprobantes: comprobantes, destino: destino}
}

// Process satisfies Handler.
func (w *AvisoWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var p AvisoPagoPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		// Retrying cannot fix a bad payload.
		log.Error().Err(err).Msg("aviso_worker: invalid payload")
		return nil
	}
	if w.destino == "" {
		log.Warn().Msg("aviso_worker: AVISO_EMAIL vacío, se omite")
		return nil
	}
	id, err := uuid.Parse(p.VentaID)
	if err != nil {
		log.Error().Str("venta_id", p.VentaID).Msg("aviso_worker: venta_id inválido")
		return nil
	}

	pdf, err := w.comprobantes.ComprobantePDF(ctx, id)
	if err != nil {
		return fmt.Errorf("comprobante %s: %w", id, err)
	}

	subject := fmt.Sprintf("Pago registrado: %s ($%s)", p.Comprador, p.Monto)
	if p.Completa {
		subject = fmt.Sprintf("Venta pagada en su totalidad: %s", p.Comprador)
	}
	adj := infra.Adjunto{Nombre: "comprobante-" + id.String() + ".pdf", ContentType: "application/pdf", Datos: pdf}
	if err := w.mailer.Enviar(w.destino, subject, p.Mensaje, adj); err != nil {
		if errors.Is(err, infra.ErrCircuitOpen) {
			log.Warn().Str("venta_id", p.VentaID).Msg("aviso_worker: smtp no disponible")
		}
		return err
	}
	log.Info().Str("venta_id", p.VentaID).Str("to", w.destino).Msg("aviso_worker: aviso enviado")
	return nil
}
