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

func (e *env) usuarioService() UsuarioService {
	return NewUsuarioService(e.usuarios, e.pedidos, e.tx, e.audit, e.notifier)
}

func TestCambiarRolAvisaAlUsuarioAfectado(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUsuario(t, e.db, "admin@test.cl", model.RolAdminSistema)
	vendedor := testutil.CreateUsuario(t, e.db, "vendedor@test.cl", model.RolVendedor)

	u, err := e.usuarioService().CambiarRol(ctx, e.actor(admin), vendedor.ID, model.RolGerente)
	require.NoError(t, err)
	assert.Equal(t, model.RolGerente, u.Rol)

	stored, err := e.usuarios.GetByID(ctx, vendedor.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RolGerente, stored.Rol)
	assert.Equal(t, int64(1), e.countAudit(t, model.AccionActualizar, "Usuario"))

	assert.Equal(t, []string{EventRolActualizado}, e.notifier.paraUsuario(vendedor.ID))
	var paraAdmins bool
	for _, ev := range e.notifier.eventos {
		if ev.nombre == EventRolActualizado && len(ev.roles) == 1 && ev.roles[0] == model.RolAdminSistema {
			paraAdmins = true
		}
	}
	assert.True(t, paraAdmins)
}

func TestCambiarRolRechazos(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUsuario(t, e.db, "admin@test.cl", model.RolAdminSistema)
	cliente := testutil.CreateUsuario(t, e.db, "cliente@test.cl", model.RolCliente)
	svc := e.usuarioService()

	_, err := svc.CambiarRol(ctx, e.actor(admin), cliente.ID, "superusuario")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = svc.CambiarRol(ctx, e.actor(admin), admin.ID, model.RolGerente)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	stored, err := e.usuarios.GetByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RolAdminSistema, stored.Rol)
	assert.Zero(t, e.notifier.count(EventRolActualizado))

	// same role is a no-op
	_, err = svc.CambiarRol(ctx, e.actor(admin), cliente.ID, model.RolCliente)
	require.NoError(t, err)
	assert.Zero(t, e.countAudit(t, model.AccionActualizar, "Usuario"))
}
