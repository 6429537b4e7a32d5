package service

import (
	"context"
	"os"
	"testing"
	"time"

	"elixir/internal/apperror"
	"elixir/internal/model"
	"elixir/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ventasDeEjemplo records two delivered POS sales and one pending web order.
func ventasDeEjemplo(t *testing.T, e *env) (vino, cerveza *model.Producto) {
	t.Helper()
	ctx := context.Background()
	vendedor := testutil.CreateUsuario(t, e.db, "vendedor@test.cl", model.RolVendedor)
	cliente := testutil.CreateUsuario(t, e.db, "cliente@test.cl", model.RolCliente)
	vinos := testutil.CreateCategoria(t, e.db, "Vinos")
	cervezas := testutil.CreateCategoria(t, e.db, "Cervezas")
	vino = testutil.CreateProducto(t, e.db, "VIN-1", "10000", 50, vinos)
	cerveza = testutil.CreateProducto(t, e.db, "CER-1", "2000", 50, cervezas)

	pos := e.posService()
	_, err := pos.Venta(ctx, e.actor(vendedor), VentaPOSRequest{
		Items:      []ItemRequest{{ProductoID: vino.ID.String(), Cantidad: 3}},
		MetodoPago: model.PagoTarjeta,
	})
	require.NoError(t, err)
	_, err = pos.Venta(ctx, e.actor(vendedor), VentaPOSRequest{
		Items:      []ItemRequest{{ProductoID: cerveza.ID.String(), Cantidad: 5}},
		MetodoPago: model.PagoTransferencia,
	})
	require.NoError(t, err)

	_, err = e.pedidoService().Crear(ctx, e.actor(cliente), CrearPedidoRequest{
		Items:       []ItemRequest{{ProductoID: cerveza.ID.String(), Cantidad: 1}},
		MetodoPago:  model.PagoTarjeta,
		MetodoEnvio: model.EnvioRetiroTienda,
	})
	require.NoError(t, err)
	return vino, cerveza
}

func TestAnaliticasVentas(t *testing.T) {
	e := newEnv(t)
	ventasDeEjemplo(t, e)
	svc := NewVentasService(e.pedidos, e.audit, time.UTC)

	a, err := svc.Analiticas(context.Background(), AnaliticaFilter{Periodo: PeriodoMensual})
	require.NoError(t, err)

	// the pending web order is not realized revenue
	assert.Equal(t, 2, a.Resumen.CantidadPedidos)
	assert.True(t, dec("40000").Equal(a.Resumen.TotalVentas))
	assert.True(t, dec("20000").Equal(a.Resumen.TicketPromedio))
	assert.Equal(t, int64(8), a.Resumen.ItemsVendidos)

	require.Len(t, a.Serie, 1)
	assert.Equal(t, time.Now().UTC().Format("2006-01"), a.Serie[0].Periodo)

	require.Len(t, a.PorCategoria, 2)
	assert.Equal(t, "Vinos", a.PorCategoria[0].Categoria)
	assert.True(t, dec("75").Equal(a.PorCategoria[0].Porcentaje))

	require.NotEmpty(t, a.TopProductos)
	assert.Equal(t, "CER-1", a.TopProductos[0].SKU)
	assert.Len(t, a.PorMetodoPago, 2)

	require.NotNil(t, a.Comparativa)
	assert.Zero(t, a.Comparativa.Anterior.CantidadPedidos)
	assert.True(t, dec("100").Equal(a.Comparativa.CrecimientoVentas))
}

func TestAnaliticasValidaParametros(t *testing.T) {
	e := newEnv(t)
	svc := NewVentasService(e.pedidos, e.audit, time.UTC)

	_, err := svc.Analiticas(context.Background(), AnaliticaFilter{Periodo: "horario"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = svc.Analiticas(context.Background(), AnaliticaFilter{Desde: "2026-02-01", Hasta: "2026-01-01"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestExportarAnaliticasPDF(t *testing.T) {
	e := newEnv(t)
	ventasDeEjemplo(t, e)
	gerente := testutil.CreateUsuario(t, e.db, "gerente@test.cl", model.RolGerente)
	svc := NewVentasService(e.pedidos, e.audit, time.UTC)

	pdf, nombre, err := svc.ExportarPDF(context.Background(), e.actor(gerente), AnaliticaFilter{})
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf[:4]))
	assert.Contains(t, nombre, "ventas_")
	assert.Equal(t, int64(1), e.countAudit(t, model.AccionExportar, "Pedido"))
}

func TestDashboardGerenteSeCachea(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ventasDeEjemplo(t, e)
	svc := NewStatisticsService(e.stats, e.revenue, e.solicitudes, e.auditRepo, e.cache, time.UTC)

	d, err := svc.DashboardGerente(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), d.TotalPedidos)
	assert.True(t, dec("42000").Equal(d.TotalVentas))
	assert.Equal(t, int64(1), d.TotalClientes)
	assert.True(t, dec("40000").Equal(d.IngresosPorEstado[model.EstadoEntregado]))
	require.NotEmpty(t, d.ProductosVendidos)
	assert.Equal(t, "CER-1", d.ProductosVendidos[0].SKU)

	var cached model.DashboardGerente
	found, err := e.cache.Get(ctx, dashboardGerenteKey, &cached)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, d.TotalVentas.Equal(cached.TotalVentas))
}

func TestDashboardAdmin(t *testing.T) {
	e := newEnv(t)
	ventasDeEjemplo(t, e)
	svc := NewStatisticsService(e.stats, e.revenue, e.solicitudes, e.auditRepo, e.cache, time.UTC)

	d, err := svc.DashboardAdmin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), d.TotalProductos)
	assert.Equal(t, int64(3), d.PedidosHoy)
	assert.True(t, dec("42000").Equal(d.VentasHoy))
	assert.Equal(t, int64(1), d.PedidosPorEstado[model.EstadoPendiente])
	assert.Equal(t, int64(3), d.AuditoriaUltimas24h)
}

func TestReporteGeneraPDFYEnviaCorreo(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ventasDeEjemplo(t, e)
	gerente := testutil.CreateUsuario(t, e.db, "gerente@test.cl", model.RolGerente)
	dir := t.TempDir()
	svc := NewReporteService(e.reportes, e.pedidos, e.categorias, e.tx, e.audit, e.email, dir, time.UTC)

	hoy := time.Now().UTC().Format("2006-01-02")
	r, err := svc.Crear(ctx, e.actor(gerente), ReporteRequest{
		Nombre:               "Ventas del día",
		TipoReporte:          model.ReporteComparativaPeriodos,
		FechaInicio:          hoy,
		FechaFin:             hoy,
		EmailsDestino:        "Gerencia@Elixir.cl, ",
		FrecuenciaAutomatica: model.FrecuenciaSemanal,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ReporteEnviadoEmail, r.Estado, r.MensajeError)
	assert.Equal(t, "gerencia@elixir.cl", r.EmailsDestino)
	assert.True(t, r.Activo)
	require.NotNil(t, r.ProximaEjecucion)
	assert.Contains(t, e.sender.tipos(), MailReporte)

	path, err := svc.ArchivoPDF(ctx, r.ID)
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)

	var datos model.DatosReporte
	require.NoError(t, toStruct(r.DatosJSON, &datos))
	assert.Equal(t, 2, datos.Ventas.CantidadPedidos)
	assert.NotNil(t, datos.Comparativa)

	require.NoError(t, svc.Eliminar(ctx, e.actor(gerente), r.ID))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = svc.Obtener(ctx, r.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestReporteFiltraPorCategoria(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vino, _ := ventasDeEjemplo(t, e)
	gerente := testutil.CreateUsuario(t, e.db, "gerente@test.cl", model.RolGerente)
	svc := NewReporteService(e.reportes, e.pedidos, e.categorias, e.tx, e.audit, e.email, t.TempDir(), time.UTC)

	hoy := time.Now().UTC().Format("2006-01-02")
	r, err := svc.Crear(ctx, e.actor(gerente), ReporteRequest{
		Nombre:      "Solo vinos",
		TipoReporte: model.ReporteVentasGeneral,
		FechaInicio: hoy,
		FechaFin:    hoy,
		CategoriaID: vino.CategoriaID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, model.ReporteGenerado, r.Estado)
	assert.False(t, r.Activo)
	assert.Nil(t, r.ProximaEjecucion)

	var datos model.DatosReporte
	require.NoError(t, toStruct(r.DatosJSON, &datos))
	assert.Equal(t, "Vinos", datos.Categoria)
	assert.Equal(t, 1, datos.Ventas.CantidadPedidos)
	assert.True(t, dec("30000").Equal(datos.Ventas.TotalVentas))
}

func TestReporteValidaEntrada(t *testing.T) {
	e := newEnv(t)
	gerente := testutil.CreateUsuario(t, e.db, "gerente@test.cl", model.RolGerente)
	svc := NewReporteService(e.reportes, e.pedidos, e.categorias, e.tx, e.audit, e.email, t.TempDir(), time.UTC)

	_, err := svc.Crear(context.Background(), e.actor(gerente), ReporteRequest{
		Nombre: "X", TipoReporte: model.ReporteVentasGeneral, FechaInicio: "2026-02-01", FechaFin: "2026-01-01",
	})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = svc.Crear(context.Background(), e.actor(gerente), ReporteRequest{
		Nombre: "X", TipoReporte: model.ReporteVentasGeneral, FechaInicio: "2026-01-01", FechaFin: "2026-01-31",
		EmailsDestino: "no-es-correo",
	})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestEjecutarProgramadosAvanzaPeriodo(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	gerente := testutil.CreateUsuario(t, e.db, "gerente@test.cl", model.RolGerente)
	svc := NewReporteService(e.reportes, e.pedidos, e.categorias, e.tx, e.audit, e.email, t.TempDir(), time.UTC)

	r, err := svc.Crear(ctx, e.actor(gerente), ReporteRequest{
		Nombre:               "Diario",
		TipoReporte:          model.ReporteVentasGeneral,
		FechaInicio:          "2026-01-01",
		FechaFin:             "2026-01-01",
		FrecuenciaAutomatica: model.FrecuenciaDiario,
	})
	require.NoError(t, err)

	later := r.ProximaEjecucion.Add(time.Minute)
	n, err := svc.EjecutarProgramados(ctx, later)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	fresh, err := svc.Obtener(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-02", fresh.FechaInicio.UTC().Format("2006-01-02"))
	assert.True(t, fresh.ProximaEjecucion.After(later))

	n, err = svc.EjecutarProgramados(ctx, later)
	require.NoError(t, err)
	assert.Zero(t, n)
}
