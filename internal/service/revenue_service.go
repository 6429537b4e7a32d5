package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"elixir/internal/apperror"
	"elixir/internal/infra"
	"elixir/internal/model"
	"elixir/internal/repository"

	"github.com/shopspring/decimal"
)

// Series granularities
const (
	PeriodoDiario  = "diario"
	PeriodoSemanal = "semanal"
	PeriodoMensual = "mensual"
	PeriodoAnual   = "anual"
)

const diasRangoDefecto = 30

// --- DTOs ---

type VentasFilter struct {
	Desde      string
	Hasta      string
	Estado     string
	MetodoPago string
	VendedorID string
	Page       int
	Limit      int
}

type AnaliticaFilter struct {
	Periodo string
	Desde   string
	Hasta   string
}

// --- Interface ---

type VentasService interface {
	Filtradas(ctx context.Context, f VentasFilter) ([]model.Pedido, int64, error)
	Analiticas(ctx context.Context, f AnaliticaFilter) (*model.AnalisisVentas, error)
	ExportarPDF(ctx context.Context, actor Actor, f AnaliticaFilter) ([]byte, string, error)
}

type ventasService struct {
	pedidos repository.PedidoRepository
	auditor Auditor
	loc     *time.Location
	now     func() time.Time
}

func NewVentasService(pedidos repository.PedidoRepository, auditor Auditor, loc *time.Location) VentasService {
	if loc == nil {
		loc = time.UTC
	}
	return &ventasService{pedidos: pedidos, auditor: auditor, loc: loc, now: time.Now}
}

// rango parses local YYYY-MM-DD bounds into a half-open [desde, hasta) interval.
// hasta is inclusive as a date. Missing bounds default to the last 30 days.
func rango(desdeRaw, hastaRaw string, loc *time.Location, now time.Time) (time.Time, time.Time, error) {
	hasta := inicioDelDia(now, loc).AddDate(0, 0, 1)
	if strings.TrimSpace(hastaRaw) != "" {
		h, err := parseFecha(hastaRaw, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		hasta = h.AddDate(0, 0, 1)
	}
	desde := hasta.AddDate(0, 0, -diasRangoDefecto)
	if strings.TrimSpace(desdeRaw) != "" {
		d, err := parseFecha(desdeRaw, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		desde = d
	}
	if !desde.Before(hasta) {
		return time.Time{}, time.Time{}, apperror.Validation("La fecha inicial debe ser anterior a la fecha final")
	}
	return desde, hasta, nil
}

func (s *ventasService) Filtradas(ctx context.Context, f VentasFilter) ([]model.Pedido, int64, error) {
	page, limit := pageOrDefault(f.Page, f.Limit)
	filter := repository.PedidoFilter{Estado: f.Estado, MetodoPago: f.MetodoPago, Page: page, Limit: limit}
	if strings.TrimSpace(f.Desde) != "" || strings.TrimSpace(f.Hasta) != "" {
		desde, hasta, err := rango(f.Desde, f.Hasta, s.loc, s.now())
		if err != nil {
			return nil, 0, err
		}
		filter.Desde, filter.Hasta = &desde, &hasta
	}
	vendedor, err := parseOptionalID(f.VendedorID, "vendedor")
	if err != nil {
		return nil, 0, err
	}
	filter.VendedorID = vendedor
	return s.pedidos.List(ctx, filter)
}

func (s *ventasService) Analiticas(ctx context.Context, f AnaliticaFilter) (*model.AnalisisVentas, error) {
	periodo := f.Periodo
	switch periodo {
	case PeriodoDiario, PeriodoSemanal, PeriodoMensual, PeriodoAnual:
	case "":
		periodo = PeriodoDiario
	default:
		return nil, apperror.Validation("Periodo inválido, use diario, semanal, mensual o anual")
	}
	desde, hasta, err := rango(f.Desde, f.Hasta, s.loc, s.now())
	if err != nil {
		return nil, err
	}

	actuales, err := s.pedidos.ListConDetalles(ctx, repository.PedidoFilter{Estados: model.EstadosConIngreso, Desde: &desde, Hasta: &hasta})
	if err != nil {
		return nil, err
	}
	antDesde, antHasta := periodoAnterior(desde, hasta)
	anteriores, err := s.pedidos.ListConDetalles(ctx, repository.PedidoFilter{Estados: model.EstadosConIngreso, Desde: &antDesde, Hasta: &antHasta})
	if err != nil {
		return nil, err
	}

	resumen := resumirVentas(actuales)
	return &model.AnalisisVentas{
		Periodo:       periodo,
		Desde:         desde,
		Hasta:         hasta,
		Resumen:       resumen,
		Serie:         serieVentas(actuales, periodo, s.loc),
		PorCategoria:  ingresosPorCategoria(actuales),
		TopProductos:  topProductos(actuales, 10),
		PorMetodoPago: porMetodoPago(actuales),
		Comparativa:   comparar(resumen, resumirVentas(anteriores), antDesde, antHasta),
	}, nil
}

func (s *ventasService) ExportarPDF(ctx context.Context, actor Actor, f AnaliticaFilter) ([]byte, string, error) {
	a, err := s.Analiticas(ctx, f)
	if err != nil {
		return nil, "", err
	}
	pdf, err := infra.RenderAnalisis(*a)
	if err != nil {
		return nil, "", fmt.Errorf("failed to render sales pdf: %w", err)
	}
	nombre := fmt.Sprintf("ventas_%s_%s.pdf", a.Desde.In(s.loc).Format("20060102"), a.Hasta.AddDate(0, 0, -1).In(s.loc).Format("20060102"))
	if err := s.auditor.Record(ctx, actor, AuditEntry{
		Accion:      model.AccionExportar,
		Modelo:      "Pedido",
		Descripcion: "Exportación de análisis de ventas " + nombre,
	}); err != nil {
		return nil, "", err
	}
	return pdf, nombre, nil
}

// --- Analysis builders, shared with financial reports ---

func periodoAnterior(desde, hasta time.Time) (time.Time, time.Time) {
	return desde.Add(-hasta.Sub(desde)), desde
}

func resumirVentas(pedidos []model.Pedido) model.ResumenVentas {
	r := model.ResumenVentas{CantidadPedidos: len(pedidos)}
	for _, p := range pedidos {
		r.TotalVentas = r.TotalVentas.Add(p.Total)
		for _, d := range p.Detalles {
			r.ItemsVendidos += int64(d.Cantidad)
		}
	}
	if r.CantidadPedidos > 0 {
		r.TicketPromedio = r.TotalVentas.Div(decimal.NewFromInt(int64(r.CantidadPedidos))).Round(2)
	}
	return r
}

func claveSerie(t time.Time, periodo string, loc *time.Location) string {
	t = t.In(loc)
	switch periodo {
	case PeriodoSemanal:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	case PeriodoMensual:
		return t.Format("2006-01")
	case PeriodoAnual:
		return t.Format("2006")
	default:
		return t.Format("2006-01-02")
	}
}

func serieVentas(pedidos []model.Pedido, periodo string, loc *time.Location) []model.PuntoSerie {
	buckets := map[string]*model.PuntoSerie{}
	for _, p := range pedidos {
		k := claveSerie(p.FechaCreacion, periodo, loc)
		b, ok := buckets[k]
		if !ok {
			b = &model.PuntoSerie{Periodo: k}
			buckets[k] = b
		}
		b.Cantidad++
		b.Total = b.Total.Add(p.Total)
	}
	out := make([]model.PuntoSerie, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Periodo < out[j].Periodo })
	return out
}

func ingresosPorCategoria(pedidos []model.Pedido) []model.IngresoCategoria {
	porNombre := map[string]*model.IngresoCategoria{}
	total := decimal.Zero
	for _, p := range pedidos {
		for _, d := range p.Detalles {
			nombre := "Sin categoría"
			if d.Producto != nil && d.Producto.Categoria != nil {
				nombre = d.Producto.Categoria.Nombre
			}
			c, ok := porNombre[nombre]
			if !ok {
				c = &model.IngresoCategoria{Categoria: nombre}
				porNombre[nombre] = c
			}
			c.Cantidad += int64(d.Cantidad)
			c.Total = c.Total.Add(d.Subtotal)
			total = total.Add(d.Subtotal)
		}
	}
	out := make([]model.IngresoCategoria, 0, len(porNombre))
	for _, c := range porNombre {
		if total.IsPositive() {
			c.Porcentaje = c.Total.Div(total).Mul(decimal.NewFromInt(100)).Round(2)
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].Categoria < out[j].Categoria
	})
	return out
}

func topProductos(pedidos []model.Pedido, n int) []model.ProductoRanking {
	porID := map[string]*model.ProductoRanking{}
	for _, p := range pedidos {
		for _, d := range p.Detalles {
			id := d.ProductoID.String()
			r, ok := porID[id]
			if !ok {
				r = &model.ProductoRanking{ProductoID: id}
				if d.Producto != nil {
					r.Nombre, r.SKU = d.Producto.Nombre, d.Producto.SKU
				}
				porID[id] = r
			}
			r.CantidadTotal += int64(d.Cantidad)
			r.VentasTotal = r.VentasTotal.Add(d.Subtotal)
		}
	}
	out := make([]model.ProductoRanking, 0, len(porID))
	for _, r := range porID {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CantidadTotal != out[j].CantidadTotal {
			return out[i].CantidadTotal > out[j].CantidadTotal
		}
		return out[i].Nombre < out[j].Nombre
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func porMetodoPago(pedidos []model.Pedido) []model.ResumenMetodoPago {
	porMetodo := map[string]*model.ResumenMetodoPago{}
	for _, p := range pedidos {
		m, ok := porMetodo[p.MetodoPago]
		if !ok {
			m = &model.ResumenMetodoPago{MetodoPago: p.MetodoPago}
			porMetodo[p.MetodoPago] = m
		}
		m.Cantidad++
		m.Total = m.Total.Add(p.Total)
	}
	out := make([]model.ResumenMetodoPago, 0, len(porMetodo))
	for _, m := range porMetodo {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MetodoPago < out[j].MetodoPago })
	return out
}

func comparar(actual, anterior model.ResumenVentas, desde, hasta time.Time) *model.Comparativa {
	return &model.Comparativa{
		Anterior:           anterior,
		AnteriorDesde:      desde,
		AnteriorHasta:      hasta,
		CrecimientoVentas:  model.Crecimiento(actual.TotalVentas, anterior.TotalVentas),
		CrecimientoPedidos: model.Crecimiento(decimal.NewFromInt(int64(actual.CantidadPedidos)), decimal.NewFromInt(int64(anterior.CantidadPedidos))),
	}
}

// analizarPeriodo computes the daily average over [desde, hasta) and the payment split.
func analizarPeriodo(pedidos []model.Pedido, desde, hasta time.Time) model.AnalisisPeriodo {
	dias := int(hasta.Sub(desde).Hours()/24 + 0.5)
	if dias < 1 {
		dias = 1
	}
	total := resumirVentas(pedidos).TotalVentas
	return model.AnalisisPeriodo{
		Dias:           dias,
		PromedioDiario: total.Div(decimal.NewFromInt(int64(dias))).Round(2),
		PorMetodoPago:  porMetodoPago(pedidos),
	}
}
