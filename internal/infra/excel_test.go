package infra

import (
	"bytes"
	"testing"
	"time"

	"lasmarias/internal/ganancias"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestEscribirReporteExcel(t *testing.T) {
	r := ganancias.Reporte{
		Periodo:           ganancias.Periodo{Anio: 2024, Mes: time.May},
		GananciaMesActual: decimal.NewFromInt(130),
		Meses: []ganancias.Bucket{
			{Periodo: ganancias.Periodo{Anio: 2024, Mes: time.April}, Ganancia: decimal.NewFromInt(100), Pagos: 1},
			{Periodo: ganancias.Periodo{Anio: 2024, Mes: time.May}, Ganancia: decimal.NewFromInt(250), Pagos: 3},
		},
		TotalCobrado:  decimal.NewFromInt(350),
		CantidadPagos: 4,
	}

	var buf bytes.Buffer
	require.NoError(t, EscribirReporteExcel(&buf, r))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(hojaMensual, "A2")
	require.NoError(t, err)
	assert.Equal(t, "2024-04", v)

	v, err = f.GetCellValue(hojaMensual, "A4")
	require.NoError(t, err)
	assert.Equal(t, "Total", v)

	v, err = f.GetCellValue(hojaMensual, "C4")
	require.NoError(t, err)
	assert.Equal(t, "4", v)
}
