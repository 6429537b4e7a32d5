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

func TestActualizarProductoNoPisaUnaVentaConcurrente(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := testutil.CreateProducto(t, e.db, "RACE-1", "5000", 10, nil)

	copia, err := e.productos.FindByID(ctx, p.ID)
	require.NoError(t, err)

	// a sale of 3 lands after the copy was read
	require.NoError(t, e.productos.UpdateStock(ctx, p.ID, 7))

	copia.Nombre = "Pisco Reservado"
	require.NoError(t, e.productos.Update(ctx, copia))
	assert.Equal(t, 7, e.stock(t, p))

	var fresh model.Producto
	require.NoError(t, e.db.First(&fresh, "id = ?", p.ID).Error)
	assert.Equal(t, "Pisco Reservado", fresh.Nombre)
}

func TestActualizarProductoSoloNombreConservaStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	gerente := testutil.CreateUsuario(t, e.db, "gerente@test.cl", model.RolGerente)
	p := testutil.CreateProducto(t, e.db, "RACE-2", "5000", 10, nil)
	require.NoError(t, e.productos.UpdateStock(ctx, p.ID, 7))

	nombre := "Ron Añejo"
	out, err := e.productoService().Actualizar(ctx, e.actor(gerente), p.ID, ProductoRequest{Nombre: &nombre})
	require.NoError(t, err)
	assert.Equal(t, nombre, out.Nombre)
	assert.Equal(t, 7, e.stock(t, p))

	movs, err := e.movimientos.ListByProducto(ctx, p.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, movs)
}

func TestActualizarProductoStockDeGerenteSeAplica(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	gerente := testutil.CreateUsuario(t, e.db, "gerente@test.cl", model.RolGerente)
	p := testutil.CreateProducto(t, e.db, "EDIT-1", "5000", 10, nil)

	stock := 25
	_, err := e.productoService().Actualizar(ctx, e.actor(gerente), p.ID, ProductoRequest{Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, 25, e.stock(t, p))

	movs, err := e.movimientos.ListByProducto(ctx, p.ID, 10)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, 15, movs[0].Cantidad)
	assert.Equal(t, model.MovimientoAjuste, movs[0].Tipo)
}

func TestActualizarProductoStockDeVendedorPideAutorizacion(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vendedor := testutil.CreateUsuario(t, e.db, "vendedor@test.cl", model.RolVendedor)
	p := testutil.CreateProducto(t, e.db, "EDIT-2", "5000", 10, nil)
	svc := e.productoService()

	stock, nombre := 500, "Vodka Premium"
	out, err := svc.Actualizar(ctx, e.actor(vendedor), p.ID, ProductoRequest{Nombre: &nombre, Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, nombre, out.Nombre)
	assert.Equal(t, 10, e.stock(t, p))

	pendientes, total, err := e.solicitudes.List(ctx, model.SolicitudPendiente, &vendedor.ID, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, model.SolicitudAjusteStock, pendientes[0].Tipo)
	var datos datosSolicitud
	require.NoError(t, toStruct(pendientes[0].Datos, &datos))
	require.NotNil(t, datos.NuevoStock)
	assert.Equal(t, 500, *datos.NuevoStock)
	assert.Equal(t, 1, e.notifier.count(EventNuevaSolicitud))

	negativo := -1
	_, err = svc.Actualizar(ctx, e.actor(vendedor), p.ID, ProductoRequest{Stock: &negativo})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}
