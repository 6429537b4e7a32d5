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

func TestProveedorRutUnico(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	gerente := testutil.CreateUsuario(t, e.db, "gerente@test.cl", model.RolGerente)
	svc := NewProveedorService(e.proveedores, e.tx, e.audit)
	actor := e.actor(gerente)

	vina, err := svc.Crear(ctx, actor, ProveedorRequest{Nombre: "Viña del Valle", Rut: "76.123.456-k"})
	require.NoError(t, err)
	assert.Equal(t, "76123456-K", vina.Rut)

	// same RUT written differently
	_, err = svc.Crear(ctx, actor, ProveedorRequest{Nombre: "Otra Viña", Rut: "76123456-K"})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	cerveceria, err := svc.Crear(ctx, actor, ProveedorRequest{Nombre: "Cervecería Sur", Rut: "77.000.111-2"})
	require.NoError(t, err)
	_, err = svc.Actualizar(ctx, actor, cerveceria.ID, ProveedorRequest{Nombre: "Cervecería Sur", Rut: "76.123.456-K"})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	// keeping its own RUT is fine
	_, err = svc.Actualizar(ctx, actor, vina.ID, ProveedorRequest{Nombre: "Viña del Valle Ltda", Rut: "76123456-K"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), e.countAudit(t, model.AccionCrear, "Proveedor"))
}
