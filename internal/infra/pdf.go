package infra

// pdf.go renders financial reports and sales analyses with go-pdf/fpdf.

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"elixir/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

type pdfDoc struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
	w   float64
}

func newPDFDoc(titulo string) *pdfDoc {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetTitle(titulo, true)
	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()
	d := &pdfDoc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), w: pageW - 30}

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(d.w, 9, "Elixir", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(d.w, 7, d.tr(titulo), "", 1, "C", false, 0, "")
	pdf.Ln(3)
	return d
}

func (d *pdfDoc) section(title string) {
	d.pdf.Ln(3)
	d.pdf.SetFont("Helvetica", "B", 11)
	d.pdf.CellFormat(d.w, 7, d.tr(title), "B", 1, "L", false, 0, "")
	d.pdf.Ln(1)
}

func (d *pdfDoc) kv(label, value string) {
	d.pdf.SetFont("Helvetica", "", 9)
	d.pdf.CellFormat(d.w*0.5, 5, d.tr(label), "", 0, "L", false, 0, "")
	d.pdf.SetFont("Helvetica", "B", 9)
	d.pdf.CellFormat(d.w*0.5, 5, d.tr(value), "", 1, "R", false, 0, "")
}

// table writes a header row and body rows; widths are fractions of the content width.
func (d *pdfDoc) table(widths []float64, header []string, rows [][]string) {
	d.pdf.SetFont("Helvetica", "B", 8)
	for i, h := range header {
		d.pdf.CellFormat(d.w*widths[i], 6, d.tr(h), "1", 0, "C", false, 0, "")
	}
	d.pdf.Ln(-1)
	d.pdf.SetFont("Helvetica", "", 8)
	for _, row := range rows {
		for i, cell := range row {
			align := "R"
			if i == 0 {
				align = "L"
			}
			d.pdf.CellFormat(d.w*widths[i], 5, d.tr(cell), "1", 0, align, false, 0, "")
		}
		d.pdf.Ln(-1)
	}
}

func money(v decimal.Decimal) string {
	return "$" + v.StringFixed(0)
}

func (d *pdfDoc) resumen(r model.ResumenVentas) {
	d.kv("Pedidos", fmt.Sprintf("%d", r.CantidadPedidos))
	d.kv("Total ventas", money(r.TotalVentas))
	d.kv("Ticket promedio", money(r.TicketPromedio))
	d.kv("Unidades vendidas", fmt.Sprintf("%d", r.ItemsVendidos))
}

func (d *pdfDoc) topProductos(items []model.ProductoRanking) {
	rows := make([][]string, 0, len(items))
	for _, p := range items {
		rows = append(rows, []string{p.Nombre, p.SKU, fmt.Sprintf("%d", p.CantidadTotal), money(p.VentasTotal)})
	}
	d.table([]float64{0.45, 0.2, 0.15, 0.2}, []string{"Producto", "SKU", "Unidades", "Ventas"}, rows)
}

func (d *pdfDoc) categorias(items []model.IngresoCategoria) {
	rows := make([][]string, 0, len(items))
	for _, c := range items {
		rows = append(rows, []string{c.Categoria, fmt.Sprintf("%d", c.Cantidad), money(c.Total), c.Porcentaje.StringFixed(2) + "%"})
	}
	d.table([]float64{0.4, 0.2, 0.2, 0.2}, []string{"Categoría", "Unidades", "Total", "%"}, rows)
}

func (d *pdfDoc) metodosPago(items []model.ResumenMetodoPago) {
	rows := make([][]string, 0, len(items))
	for _, m := range items {
		rows = append(rows, []string{m.MetodoPago, fmt.Sprintf("%d", m.Cantidad), money(m.Total)})
	}
	d.table([]float64{0.4, 0.3, 0.3}, []string{"Método de pago", "Pedidos", "Total"}, rows)
}

func (d *pdfDoc) comparativa(c *model.Comparativa) {
	if c == nil {
		return
	}
	d.section("Comparativa con período anterior")
	d.kv("Período anterior", c.AnteriorDesde.Format("02/01/2006")+" - "+c.AnteriorHasta.Format("02/01/2006"))
	d.kv("Ventas período anterior", money(c.Anterior.TotalVentas))
	d.kv("Crecimiento ventas", c.CrecimientoVentas.StringFixed(2)+"%")
	d.kv("Crecimiento pedidos", c.CrecimientoPedidos.StringFixed(2)+"%")
}

// RenderReporte writes the PDF of a financial report into dir and returns its path.
func RenderReporte(datos model.DatosReporte, dir, fileName string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	path := filepath.Join(dir, fileName)

	d := newPDFDoc(datos.Titulo)
	d.pdf.SetFont("Helvetica", "", 9)
	periodo := "Período: " + datos.Desde.Format("02/01/2006") + " - " + datos.Hasta.Format("02/01/2006")
	d.pdf.CellFormat(d.w, 5, d.tr(periodo), "", 1, "C", false, 0, "")
	if datos.Categoria != "" {
		d.pdf.CellFormat(d.w, 5, d.tr("Categoría: "+datos.Categoria), "", 1, "C", false, 0, "")
	}

	d.section("Resumen de ventas")
	d.resumen(datos.Ventas)

	if len(datos.TopProductos) > 0 {
		d.section("Productos más vendidos")
		d.topProductos(datos.TopProductos)
	}
	if len(datos.IngresosCategoria) > 0 {
		d.section("Ingresos por categoría")
		d.categorias(datos.IngresosCategoria)
	}

	d.section("Análisis del período")
	d.kv("Días", fmt.Sprintf("%d", datos.Analisis.Dias))
	d.kv("Promedio diario", money(datos.Analisis.PromedioDiario))
	if len(datos.Analisis.PorMetodoPago) > 0 {
		d.pdf.Ln(2)
		d.metodosPago(datos.Analisis.PorMetodoPago)
	}
	d.comparativa(datos.Comparativa)

	d.pdf.Ln(4)
	d.pdf.SetFont("Helvetica", "I", 7)
	d.pdf.CellFormat(d.w, 4, "Generado el "+datos.GeneradoEn.Format("02/01/2006 15:04"), "", 1, "R", false, 0, "")

	if err := d.pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return path, nil
}

// RenderAnalisis renders a sales analysis into memory for direct download.
func RenderAnalisis(a model.AnalisisVentas) ([]byte, error) {
	d := newPDFDoc("Análisis de ventas (" + a.Periodo + ")")
	d.pdf.SetFont("Helvetica", "", 9)
	d.pdf.CellFormat(d.w, 5, d.tr("Período: "+a.Desde.Format("02/01/2006")+" - "+a.Hasta.Format("02/01/2006")), "", 1, "C", false, 0, "")

	d.section("Resumen")
	d.resumen(a.Resumen)

	if len(a.Serie) > 0 {
		d.section("Serie temporal")
		rows := make([][]string, 0, len(a.Serie))
		for _, p := range a.Serie {
			rows = append(rows, []string{p.Periodo, fmt.Sprintf("%d", p.Cantidad), money(p.Total)})
		}
		d.table([]float64{0.4, 0.3, 0.3}, []string{"Período", "Pedidos", "Total"}, rows)
	}
	if len(a.PorCategoria) > 0 {
		d.section("Ventas por categoría")
		d.categorias(a.PorCategoria)
	}
	if len(a.TopProductos) > 0 {
		d.section("Productos más vendidos")
		d.topProductos(a.TopProductos)
	}
	if len(a.PorMetodoPago) > 0 {
		d.section("Métodos de pago")
		d.metodosPago(a.PorMetodoPago)
	}
	d.comparativa(a.Comparativa)

	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render: %w", err)
	}
	return buf.Bytes(), nil
}
