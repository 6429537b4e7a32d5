package infra

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"elixir/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResumen() model.ResumenVentas {
	return model.ResumenVentas{
		CantidadPedidos: 2,
		TotalVentas:     decimal.NewFromInt(25980),
		TicketPromedio:  decimal.NewFromInt(12990),
		ItemsVendidos:   4,
	}
}

func TestRenderReporteWritesFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC)
	datos := model.DatosReporte{
		Titulo:      "Ventas de mayo",
		TipoReporte: model.ReporteResumenCompleto,
		Desde:       now.AddDate(0, -1, 0),
		Hasta:       now,
		Categoria:   "Vinos",
		Ventas:      sampleResumen(),
		TopProductos: []model.ProductoRanking{
			{Nombre: "Pisco Reservado 35°", SKU: "PIS-1", CantidadTotal: 3, VentasTotal: decimal.NewFromInt(17970)},
		},
		IngresosCategoria: []model.IngresoCategoria{
			{Categoria: "Piscos", Cantidad: 3, Total: decimal.NewFromInt(17970), Porcentaje: decimal.NewFromInt(100)},
		},
		Analisis: model.AnalisisPeriodo{
			Dias:           31,
			PromedioDiario: decimal.NewFromInt(838),
			PorMetodoPago:  []model.ResumenMetodoPago{{MetodoPago: "efectivo", Cantidad: 2, Total: decimal.NewFromInt(25980)}},
		},
		Comparativa: &model.Comparativa{CrecimientoVentas: decimal.NewFromInt(10)},
		GeneradoEn:  now,
	}

	path, err := RenderReporte(datos, dir, "reporte.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "reporte.pdf"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")))
}

func TestRenderAnalisisInMemory(t *testing.T) {
	out, err := RenderAnalisis(model.AnalisisVentas{
		Periodo: "diario",
		Desde:   time.Now().AddDate(0, 0, -7),
		Hasta:   time.Now(),
		Resumen: sampleResumen(),
		Serie:   []model.PuntoSerie{{Periodo: "2024-05-01", Cantidad: 1, Total: decimal.NewFromInt(12990)}},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
