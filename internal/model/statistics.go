package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductoRanking represents a ranked product based on accumulated sales
type ProductoRanking struct {
	ProductoID    string          `json:"producto_id"`
	Nombre        string          `json:"nombre"`
	SKU           string          `json:"sku"`
	CantidadTotal int64           `json:"cantidad_total"`
	VentasTotal   decimal.Decimal `json:"ventas_total"`
}

// DashboardGerente aggregates the manager dashboard figures
type DashboardGerente struct {
	TotalVentas       decimal.Decimal            `json:"total_ventas"`
	TotalPedidos      int64                      `json:"total_pedidos"`
	TotalClientes     int64                      `json:"total_clientes"`
	PedidosPagados    int64                      `json:"pedidos_pagados"`
	ProductosVendidos []ProductoRanking          `json:"productos_vendidos"`
	IngresosPorEstado map[string]decimal.Decimal `json:"ingresos_por_estado"`
}

type VentasTotales struct {
	TotalVentas  decimal.Decimal `json:"total_ventas"`
	TotalPedidos int64           `json:"total_pedidos"`
}

// DashboardAdmin aggregates the system administrator dashboard figures
type DashboardAdmin struct {
	UsuariosPorRol           map[string]int64 `json:"usuarios_por_rol"`
	TotalProductos           int64            `json:"total_productos"`
	ProductosActivos         int64            `json:"productos_activos"`
	ProductosStockBajo       int64            `json:"productos_stock_bajo"`
	PedidosPorEstado         map[string]int64 `json:"pedidos_por_estado"`
	AutorizacionesPendientes int64            `json:"autorizaciones_pendientes"`
	ReclamosAbiertos         int64            `json:"reclamos_abiertos"`
	VentasHoy                decimal.Decimal  `json:"ventas_hoy"`
	PedidosHoy               int64            `json:"pedidos_hoy"`
	AuditoriaUltimas24h      int64            `json:"auditoria_ultimas_24h"`
	ErroresSistemaUltimas24h int64            `json:"errores_sistema_ultimas_24h"`
}

// PuntoSerie is one bucket of a sales time series
type PuntoSerie struct {
	Periodo  string          `json:"periodo"`
	Cantidad int             `json:"cantidad"`
	Total    decimal.Decimal `json:"total"`
}

type IngresoCategoria struct {
	Categoria  string          `json:"categoria"`
	Cantidad   int64           `json:"cantidad"`
	Total      decimal.Decimal `json:"total"`
	Porcentaje decimal.Decimal `json:"porcentaje"`
}

type ResumenMetodoPago struct {
	MetodoPago string          `json:"metodo_pago"`
	Cantidad   int             `json:"cantidad"`
	Total      decimal.Decimal `json:"total"`
}

// ResumenVentas summarizes the orders of a period
type ResumenVentas struct {
	CantidadPedidos int             `json:"cantidad_pedidos"`
	TotalVentas     decimal.Decimal `json:"total_ventas"`
	TicketPromedio  decimal.Decimal `json:"ticket_promedio"`
	ItemsVendidos   int64           `json:"items_vendidos"`
}

// Comparativa contrasts a period with the previous one of equal length
type Comparativa struct {
	Anterior           ResumenVentas   `json:"anterior"`
	AnteriorDesde      time.Time       `json:"anterior_desde"`
	AnteriorHasta      time.Time       `json:"anterior_hasta"`
	CrecimientoVentas  decimal.Decimal `json:"crecimiento_ventas"`  // percent
	CrecimientoPedidos decimal.Decimal `json:"crecimiento_pedidos"` // percent
}

// AnalisisPeriodo holds daily averages and the payment method split
type AnalisisPeriodo struct {
	Dias           int                 `json:"dias"`
	PromedioDiario decimal.Decimal     `json:"promedio_diario"`
	PorMetodoPago  []ResumenMetodoPago `json:"por_metodo_pago"`
}

// AnalisisVentas is the sales analytics payload, also rendered as PDF
type AnalisisVentas struct {
	Periodo       string              `json:"periodo"`
	Desde         time.Time           `json:"desde"`
	Hasta         time.Time           `json:"hasta"`
	Resumen       ResumenVentas       `json:"resumen"`
	Serie         []PuntoSerie        `json:"serie"`
	PorCategoria  []IngresoCategoria  `json:"por_categoria"`
	TopProductos  []ProductoRanking   `json:"top_productos"`
	PorMetodoPago []ResumenMetodoPago `json:"por_metodo_pago"`
	Comparativa   *Comparativa        `json:"comparativa,omitempty"`
}

// DatosReporte is the data behind a ReporteFinanciero
type DatosReporte struct {
	Titulo            string             `json:"titulo"`
	TipoReporte       string             `json:"tipo_reporte"`
	Desde             time.Time          `json:"desde"`
	Hasta             time.Time          `json:"hasta"`
	Categoria         string             `json:"categoria,omitempty"`
	Ventas            ResumenVentas      `json:"ventas"`
	TopProductos      []ProductoRanking  `json:"top_productos"`
	IngresosCategoria []IngresoCategoria `json:"ingresos_categoria"`
	Analisis          AnalisisPeriodo    `json:"analisis"`
	Comparativa       *Comparativa       `json:"comparativa,omitempty"`
	GeneradoEn        time.Time          `json:"generado_en"`
}

// Crecimiento returns the percentage change from anterior to actual, 0 when anterior is zero.
func Crecimiento(actual, anterior decimal.Decimal) decimal.Decimal {
	if anterior.IsZero() {
		if actual.IsPositive() {
			return decimal.NewFromInt(100)
		}
		return decimal.Zero
	}
	return actual.Sub(anterior).Div(anterior).Mul(decimal.NewFromInt(100)).Round(2)
}
