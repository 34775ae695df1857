package infra

import (
	"fmt"
	"io"

	"lasmarias/internal/ganancias"

	"github.com/xuri/excelize/v2"
)

const hojaMensual = "Ganancias"

// EscribirReporteExcel writes the profit report as an .xlsx workbook: one row
// per month collected, a total row, and the current-month margin below.
func EscribirReporteExcel(w io.Writer, r ganancias.Reporte) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", hojaMensual); err != nil {
		return err
	}
	negrita, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	moneda, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return err
	}

	encabezado := []string{"Mes", "Cobrado", "Pagos"}
	for i, h := range encabezado {
		celda, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(hojaMensual, celda, h); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(hojaMensual, "A1", "C1", negrita); err != nil {
		return err
	}

	fila := 2
	for _, b := range r.Meses {
		monto, _ := b.Ganancia.Float64()
		vals := []interface{}{b.Periodo.String(), monto, b.Pagos}
		if err := f.SetSheetRow(hojaMensual, fmt.Sprintf("A%d", fila), &vals); err != nil {
			return err
		}
		fila++
	}

	total, _ := r.TotalCobrado.Float64()
	totales := []interface{}{"Total", total, r.CantidadPagos}
	if err := f.SetSheetRow(hojaMensual, fmt.Sprintf("A%d", fila), &totales); err != nil {
		return err
	}
	_ = f.SetCellStyle(hojaMensual, fmt.Sprintf("A%d", fila), fmt.Sprintf("C%d", fila), negrita)
	_ = f.SetCellStyle(hojaMensual, "B2", fmt.Sprintf("B%d", fila), moneda)

	fila += 2
	margen, _ := r.GananciaMesActual.Float64()
	resumen := []interface{}{"Ganancia " + r.Periodo.String() + " (por fecha de venta)", margen}
	if err := f.SetSheetRow(hojaMensual, fmt.Sprintf("A%d", fila), &resumen); err != nil {
		return err
	}
	_ = f.SetCellStyle(hojaMensual, fmt.Sprintf("B%d", fila), fmt.Sprintf("B%d", fila), moneda)
	_ = f.SetColWidth(hojaMensual, "A", "A", 38)
	_ = f.SetColWidth(hojaMensual, "B", "C", 14)

	return f.Write(w)
}
