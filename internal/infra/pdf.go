package infra

// pdf.go: payment receipt for one sale, rendered with go-pdf/fpdf.
// A5 portrait page with:
//   - business name header and sale date
//   - buyer and item table
//   - plan summary (installments or flexible balance)
//   - payment history

import (
	"fmt"
	"io"

	"lasmarias/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// Comprobante is everything the receipt prints besides the sale itself.
type Comprobante struct {
	Negocio     string
	Venta       *model.Venta
	Plan        string // "3 cuotas", "flexible"
	TotalPagado decimal.Decimal
	Pendiente   decimal.Decimal
	Completa    bool
}

// GenerarComprobantePDF writes the receipt to w.
func GenerarComprobantePDF(w io.Writer, c Comprobante) error {
	v := c.Venta
	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 20

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 8, tr(c.Negocio), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, "Comprobante de pagos", "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, tr("Cliente: "+v.Comprador), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, "Fecha de compra: "+v.CreatedAt.Format("02/01/2006"), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, tr("Plan: "+c.Plan), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	// ── Items ─────────────────────────────────────────────────────────────────
	col1 := contentW * 0.70
	col2 := contentW * 0.30
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 6, tr("Artículo"), "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, "Precio", "B", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	if len(v.Items) == 0 {
		pdf.CellFormat(col1, 5, tr(v.Articulos), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, "$"+v.PrecioVentaTotal.StringFixed(2), "", 1, "R", false, 0, "")
	}
	for _, it := range v.Items {
		pdf.CellFormat(col1, 5, tr(it.Nombre), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, "$"+it.PrecioVenta.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(col1, 7, "TOTAL", "T", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 7, "$"+v.PrecioVentaTotal.StringFixed(2), "T", 1, "R", false, 0, "")
	pdf.Ln(3)

	// ── Payments ──────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(contentW*0.15, 6, "#", "B", 0, "L", false, 0, "")
	pdf.CellFormat(contentW*0.55, 6, "Fecha", "B", 0, "L", false, 0, "")
	pdf.CellFormat(contentW*0.30, 6, "Monto", "B", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, p := range v.Pagos {
		pdf.CellFormat(contentW*0.15, 5, fmt.Sprintf("%d", p.Numero), "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.55, 5, p.Fecha.Format("02/01/2006 15:04"), "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.30, 5, "$"+p.Monto.StringFixed(2), "", 1, "R", false, 0, "")
	}
	if len(v.Pagos) == 0 {
		pdf.CellFormat(contentW, 5, "Sin pagos registrados", "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(col1, 5, "Abonado", "", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "$"+c.TotalPagado.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.CellFormat(col1, 5, "Pendiente", "", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "$"+c.Pendiente.StringFixed(2), "", 1, "R", false, 0, "")

	// ── Footer ────────────────────────────────────────────────────────────────
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 9)
	pie := "¡Gracias por confiar en nosotros!"
	if c.Completa {
		pie = "Compra pagada en su totalidad. ¡Gracias por confiar en nosotros!"
	}
	pdf.CellFormat(contentW, 5, tr(pie), "", 1, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: %w", err)
	}
	return nil
}
