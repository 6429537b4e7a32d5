package service

import (
	"context"
	"testing"

	"elixir/internal/model"
	"elixir/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificacionesMarcanVistasSoloLasPropias(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ana := testutil.CreateUsuario(t, e.db, "ana@test.cl", model.RolVendedor)
	luis := testutil.CreateUsuario(t, e.db, "luis@test.cl", model.RolVendedor)
	gerente := testutil.CreateUsuario(t, e.db, "gerente@test.cl", model.RolGerente)
	p := testutil.CreateProducto(t, e.db, "NOT-1", "1000", 10, nil)
	auth := e.autorizacionService()

	solicitar := func(u *model.Usuario, stock int) *model.SolicitudAutorizacion {
		s, err := auth.Solicitar(ctx, e.actor(u), SolicitudRequest{
			Tipo:       model.SolicitudAjusteStock,
			ProductoID: p.ID.String(),
			Datos:      map[string]interface{}{"nuevo_stock": stock},
		})
		require.NoError(t, err)
		return s
	}
	deAna := solicitar(ana, 12)
	deLuis := solicitar(luis, 14)

	_, err := auth.Gestionar(ctx, e.actor(gerente), deAna.ID, GestionarRequest{Accion: "rechazar", Respuesta: "Conteo no cuadra"})
	require.NoError(t, err)

	// luis's request is still pending, so he has nothing to see
	vistas, err := auth.Notificaciones(ctx, e.actor(luis))
	require.NoError(t, err)
	assert.Empty(t, vistas.Solicitudes)

	vistas, err = auth.Notificaciones(ctx, e.actor(ana))
	require.NoError(t, err)
	require.Len(t, vistas.Solicitudes, 1)
	assert.Equal(t, model.SolicitudRechazada, vistas.Solicitudes[0].Estado)

	_, err = auth.Gestionar(ctx, e.actor(gerente), deLuis.ID, GestionarRequest{Accion: "aprobar"})
	require.NoError(t, err)

	vistas, err = auth.Notificaciones(ctx, e.actor(luis))
	require.NoError(t, err)
	assert.Len(t, vistas.Solicitudes, 1)
	vistas, err = auth.Notificaciones(ctx, e.actor(ana))
	require.NoError(t, err)
	assert.Empty(t, vistas.Solicitudes)

	var sinVer int64
	require.NoError(t, e.db.Model(&model.SolicitudAutorizacion{}).Where("vista_por_solicitante = ?", false).Count(&sinVer).Error)
	assert.Zero(t, sinVer)
}
