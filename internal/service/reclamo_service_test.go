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

func (e *env) reclamoService() ReclamoService {
	return NewReclamoService(e.reclamos, e.pedidos, e.usuarios, e.tx, e.audit, e.email)
}

func strPtr(s string) *string { return &s }

func TestReclamoReabiertoLimpiaFechaResolucion(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	cliente := testutil.CreateUsuario(t, e.db, "cliente@test.cl", model.RolCliente)
	gerente := testutil.CreateUsuario(t, e.db, "gerente@test.cl", model.RolGerente)
	svc := e.reclamoService()

	r, err := svc.Crear(ctx, e.actor(cliente), CrearReclamoRequest{
		Tipo:        model.ReclamoEnvioRetrasado,
		Titulo:      "Pedido atrasado",
		Descripcion: "Lleva una semana sin llegar",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PrioridadMedia, r.Prioridad)

	// closing needs a resolution
	_, err = svc.Actualizar(ctx, e.actor(gerente), r.ID, ActualizarReclamoRequest{Estado: strPtr(model.ReclamoResuelto)})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	resuelto, err := svc.Actualizar(ctx, e.actor(gerente), r.ID, ActualizarReclamoRequest{
		Estado:     strPtr(model.ReclamoResuelto),
		Resolucion: strPtr("Reenviado por courier"),
	})
	require.NoError(t, err)
	require.NotNil(t, resuelto.FechaResolucion)
	assert.NotNil(t, resuelto.TiempoResolucionHoras)

	reabierto, err := svc.Actualizar(ctx, e.actor(gerente), r.ID, ActualizarReclamoRequest{Estado: strPtr(model.ReclamoAbierto)})
	require.NoError(t, err)
	assert.Nil(t, reabierto.FechaResolucion)
	assert.Nil(t, reabierto.TiempoResolucionHoras)

	stored, err := e.reclamos.FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.FechaResolucion)
}

func TestReclamoAjenoNoVisibleParaOtroCliente(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	duenio := testutil.CreateUsuario(t, e.db, "duenio@test.cl", model.RolCliente)
	otro := testutil.CreateUsuario(t, e.db, "otro@test.cl", model.RolCliente)
	svc := e.reclamoService()

	r, err := svc.Crear(ctx, e.actor(duenio), CrearReclamoRequest{
		Tipo:        model.ReclamoCobroIncorrecto,
		Titulo:      "Cobro doble",
		Descripcion: "Me cobraron dos veces",
	})
	require.NoError(t, err)

	_, err = svc.Detalle(ctx, e.actor(otro), r.ID)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
}
