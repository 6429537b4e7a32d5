package service

import (
	"context"
	"testing"
	"time"

	"elixir/internal/apperror"
	"elixir/internal/model"
	"elixir/internal/repository"
	"elixir/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *env) sistemaService() SistemaService {
	return NewSistemaService(e.sistema, e.stats, e.cache, nil, e.audit)
}

func (e *env) authService() AuthService {
	return NewAuthService(e.usuarios, repository.NewRoleRepository(e.db), e.tx, e.audit, e.sistemaService(), e.email, TokenConfig{
		Secret:     []byte("auth-test-secret"),
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	})
}

func login(t *testing.T, svc AuthService, email string) *LoginResponse {
	t.Helper()
	res, err := svc.Login(context.Background(), LoginRequest{Email: email, Password: "secreto123"}, Actor{IP: "127.0.0.1"})
	require.NoError(t, err)
	return res
}

func TestRefreshRotaElToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testutil.CreateUsuario(t, e.db, "vendedor@test.cl", model.RolVendedor)
	svc := e.authService()

	primero := login(t, svc, "vendedor@test.cl")
	segundo, err := svc.Refresh(ctx, primero.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, primero.RefreshToken, segundo.RefreshToken)
	assert.NotEmpty(t, segundo.AccessToken)

	// the presented token is single use
	_, err = svc.Refresh(ctx, primero.RefreshToken)
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	_, err = svc.Refresh(ctx, segundo.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshTomaElRolVigente(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUsuario(t, e.db, "admin@test.cl", model.RolAdminSistema)
	vendedor := testutil.CreateUsuario(t, e.db, "vendedor@test.cl", model.RolVendedor)
	svc := e.authService()

	sesion := login(t, svc, "vendedor@test.cl")
	assert.Equal(t, model.RolVendedor, sesion.Usuario.Rol)

	_, err := e.usuarioService().CambiarRol(ctx, e.actor(admin), vendedor.ID, model.RolGerente)
	require.NoError(t, err)

	renovada, err := svc.Refresh(ctx, sesion.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, model.RolGerente, renovada.Usuario.Rol)
}

func TestLogoutRevocaElRefreshToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := testutil.CreateUsuario(t, e.db, "cliente@test.cl", model.RolCliente)
	svc := e.authService()

	sesion := login(t, svc, "cliente@test.cl")
	require.NoError(t, svc.Logout(ctx, sesion.RefreshToken, e.actor(u)))

	_, err := svc.Refresh(ctx, sesion.RefreshToken)
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))
	assert.Equal(t, int64(1), e.countAudit(t, model.AccionLogout, "Usuario"))

	// logging out twice is harmless
	require.NoError(t, svc.Logout(ctx, sesion.RefreshToken, Actor{}))
}

func TestLoginFallidoQuedaEnLogSistema(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testutil.CreateUsuario(t, e.db, "cliente@test.cl", model.RolCliente)

	_, err := e.authService().Login(ctx, LoginRequest{Email: "cliente@test.cl", Password: "incorrecta"}, Actor{IP: "10.0.0.9"})
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	logs, total, err := e.sistemaService().ListLogs(ctx, repository.LogFilter{Categoria: model.CategoriaSeguridad})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, model.NivelWarning, logs[0].Nivel)
	assert.Equal(t, "10.0.0.9", logs[0].IPAddress)
	assert.Zero(t, e.countAudit(t, model.AccionLogin, "Usuario"))
}
