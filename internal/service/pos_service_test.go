package service

import (
	"context"
	"testing"

	"elixir/internal/apperror"
	"elixir/internal/model"
	"elixir/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVentaPOSEfectivoCalculaVuelto(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vendedor := testutil.CreateUsuario(t, e.db, "vendedor@test.cl", model.RolVendedor)
	cliente := testutil.CreateUsuario(t, e.db, "cliente@test.cl", model.RolCliente)
	p := testutil.CreateProducto(t, e.db, "POS-1", "4500", 10, nil)
	svc := e.posService()

	monto := dec("10000")
	venta, err := svc.Venta(ctx, e.actor(vendedor), VentaPOSRequest{
		Items:         []ItemRequest{{ProductoID: p.ID.String(), Cantidad: 2}},
		MetodoPago:    model.PagoEfectivo,
		ClienteEmail:  "Cliente@Test.cl",
		MontoRecibido: &monto,
	})
	require.NoError(t, err)
	assert.True(t, dec("9000").Equal(venta.Total))
	require.NotNil(t, venta.Vuelto)
	assert.True(t, dec("1000").Equal(*venta.Vuelto))
	assert.Equal(t, 8, e.stock(t, p))

	pedido, err := e.pedidos.FindByID(ctx, venta.PedidoID)
	require.NoError(t, err)
	assert.Equal(t, model.EstadoEntregado, pedido.Estado)
	assert.Equal(t, model.OrigenPOS, pedido.Origen)
	assert.Equal(t, cliente.ID, pedido.ClienteID)
	require.NotNil(t, pedido.VendedorID)
	assert.Equal(t, vendedor.ID, *pedido.VendedorID)

	cierre, err := svc.CierreCaja(ctx, e.actor(vendedor), "")
	require.NoError(t, err)
	assert.Equal(t, 1, cierre.CantidadVentas)
	assert.True(t, dec("9000").Equal(cierre.Total))
	assert.True(t, dec("9000").Equal(cierre.PorMetodoPago[model.PagoEfectivo]))
}

func TestVentaPOSEfectivoInsuficiente(t *testing.T) {
	e := newEnv(t)
	vendedor := testutil.CreateUsuario(t, e.db, "vendedor@test.cl", model.RolVendedor)
	p := testutil.CreateProducto(t, e.db, "POS-2", "4500", 10, nil)

	monto := dec("4000")
	_, err := e.posService().Venta(context.Background(), e.actor(vendedor), VentaPOSRequest{
		Items:         []ItemRequest{{ProductoID: p.ID.String(), Cantidad: 1}},
		MetodoPago:    model.PagoEfectivo,
		MontoRecibido: &monto,
	})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.Equal(t, 10, e.stock(t, p))
}

func TestBuscarProductoPorSKUoNombre(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testutil.CreateProducto(t, e.db, "CER-99", "1500", 10, nil)
	testutil.CreateProducto(t, e.db, "VIN-10", "8000", 10, nil)
	svc := e.posService()

	porSKU, err := svc.BuscarProducto(ctx, "cer-99")
	require.NoError(t, err)
	require.Len(t, porSKU, 1)
	assert.Equal(t, "CER-99", porSKU[0].SKU)

	porNombre, err := svc.BuscarProducto(ctx, "producto")
	require.NoError(t, err)
	assert.Len(t, porNombre, 2)
}

func TestAutorizacionAjusteStockAprobada(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vendedor := testutil.CreateUsuario(t, e.db, "vendedor@test.cl", model.RolVendedor)
	gerente := testutil.CreateUsuario(t, e.db, "gerente@test.cl", model.RolGerente)
	p := testutil.CreateProducto(t, e.db, "AJ-1", "1000", 10, nil)

	nuevo := 25
	res, err := e.productoService().ActualizarStock(ctx, e.actor(vendedor), p.ID, StockRequest{NuevoStock: &nuevo, Motivo: "Conteo"})
	require.NoError(t, err)
	assert.False(t, res.Aplicado)
	require.NotNil(t, res.Solicitud)
	assert.Equal(t, 10, e.stock(t, p))

	auth := e.autorizacionService()
	notif, err := auth.Notificaciones(ctx, e.actor(gerente))
	require.NoError(t, err)
	assert.Equal(t, int64(1), notif.Pendientes)

	sol, err := auth.Gestionar(ctx, e.actor(gerente), res.Solicitud.ID, GestionarRequest{Accion: "aprobar", Respuesta: "ok"})
	require.NoError(t, err)
	assert.Equal(t, model.SolicitudAprobada, sol.Estado)
	assert.Equal(t, 25, e.stock(t, p))
	assert.Equal(t, int64(1), e.countAudit(t, model.AccionAprobar, "SolicitudAutorizacion"))
	assert.Equal(t, 1, e.notifier.count(EventSolicitudResuelta))

	_, err = auth.Gestionar(ctx, e.actor(gerente), res.Solicitud.ID, GestionarRequest{Accion: "rechazar"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	// the vendedor sees the resolution once
	vistas, err := auth.Notificaciones(ctx, e.actor(vendedor))
	require.NoError(t, err)
	assert.Len(t, vistas.Solicitudes, 1)
	vistas, err = auth.Notificaciones(ctx, e.actor(vendedor))
	require.NoError(t, err)
	assert.Empty(t, vistas.Solicitudes)
}

func TestAutorizacionRechazadaNoAplica(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vendedor := testutil.CreateUsuario(t, e.db, "vendedor@test.cl", model.RolVendedor)
	gerente := testutil.CreateUsuario(t, e.db, "gerente@test.cl", model.RolGerente)
	p := testutil.CreateProducto(t, e.db, "CP-1", "1000", 10, nil)
	auth := e.autorizacionService()

	sol, err := auth.Solicitar(ctx, e.actor(vendedor), SolicitudRequest{
		Tipo:       model.SolicitudCambioPrecio,
		ProductoID: p.ID.String(),
		Datos:      map[string]interface{}{"nuevo_precio": "1500"},
	})
	require.NoError(t, err)

	_, err = auth.Gestionar(ctx, e.actor(gerente), sol.ID, GestionarRequest{Accion: "rechazar", Respuesta: "no"})
	require.NoError(t, err)

	fresh, err := e.productos.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, dec("1000").Equal(fresh.Precio))
	assert.Equal(t, int64(1), e.countAudit(t, model.AccionRechazar, "SolicitudAutorizacion"))
}

func TestActualizarStockGerenteDirecto(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	gerente := testutil.CreateUsuario(t, e.db, "gerente@test.cl", model.RolGerente)
	p := testutil.CreateProducto(t, e.db, "ST-1", "1000", 10, nil)

	nuevo := 2
	res, err := e.productoService().ActualizarStock(ctx, e.actor(gerente), p.ID, StockRequest{NuevoStock: &nuevo})
	require.NoError(t, err)
	assert.True(t, res.Aplicado)
	assert.Equal(t, 2, e.stock(t, p))
	assert.Equal(t, 1, e.notifier.count(EventStockBajo))

	movs, err := e.movimientos.ListByProducto(ctx, p.ID, 10)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, -8, movs[0].Cantidad)
	assert.Equal(t, 2, movs[0].StockResultante)
}
