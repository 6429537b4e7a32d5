package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"elixir/internal/apperror"
	"elixir/internal/model"
	"elixir/internal/repository"
	"elixir/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registrarAuditoria(t *testing.T, e *env, actor Actor) {
	t.Helper()
	ctx := context.Background()
	entries := []AuditEntry{
		{Accion: model.AccionCrear, Modelo: "Producto", IDObjeto: "p-1", Descripcion: "Creación de producto Pisco", Despues: map[string]int{"stock": 10}},
		{Accion: model.AccionActualizar, Modelo: "Producto", IDObjeto: "p-1", Descripcion: "Actualización de producto Pisco", Antes: map[string]int{"stock": 10}, Despues: map[string]int{"stock": 8}},
		{Accion: model.AccionCrear, Modelo: "Cupon", IDObjeto: "c-1", Descripcion: "Creación de cupón VERANO"},
	}
	for _, entry := range entries {
		require.NoError(t, e.audit.Record(ctx, actor, entry))
	}
}

func TestAuditListFiltraPorModeloYAccion(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUsuario(t, e.db, "admin@test.cl", model.RolAdminSistema)
	registrarAuditoria(t, e, e.actor(admin))

	logs, total, err := e.audit.List(ctx, repository.AuditFilter{Modelo: "Producto"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, logs, 2)

	logs, total, err = e.audit.List(ctx, repository.AuditFilter{TipoAccion: model.AccionCrear, Modelo: "Cupon"})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "c-1", logs[0].IDObjeto)

	otro := uuid.New()
	_, total, err = e.audit.List(ctx, repository.AuditFilter{UsuarioID: &otro})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestAuditDetalleDetectaAlteraciones(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUsuario(t, e.db, "admin@test.cl", model.RolAdminSistema)
	registrarAuditoria(t, e, e.actor(admin))

	logs, _, err := e.audit.List(ctx, repository.AuditFilter{Modelo: "Cupon"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	id := logs[0].ID

	detalle, err := e.audit.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, detalle.IntegridadValida)

	require.NoError(t, e.db.Model(&model.AuditLog{}).Where("id = ?", id).Update("descripcion", "Creación de cupón INVIERNO").Error)
	detalle, err = e.audit.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, detalle.IntegridadValida)

	_, err = e.audit.Get(ctx, uuid.New())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestAuditEstadisticas(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUsuario(t, e.db, "admin@test.cl", model.RolAdminSistema)
	registrarAuditoria(t, e, e.actor(admin))

	stats, err := e.audit.Estadisticas(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	require.Len(t, stats.UltimosDias, 7)
	assert.Equal(t, int64(3), stats.UltimosDias[6].Cantidad)

	porModelo := map[string]int64{}
	for _, c := range stats.PorModelo {
		porModelo[c.Clave] = c.Cantidad
	}
	assert.Equal(t, int64(2), porModelo["Producto"])
	assert.Equal(t, int64(1), porModelo["Cupon"])
	require.NotEmpty(t, stats.TopUsuarios)
	assert.Equal(t, int64(3), stats.TopUsuarios[0].Cantidad)
}

func TestAuditExportCSV(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUsuario(t, e.db, "admin@test.cl", model.RolAdminSistema)
	registrarAuditoria(t, e, e.actor(admin))

	var buf bytes.Buffer
	require.NoError(t, e.audit.ExportCSV(ctx, e.actor(admin), repository.AuditFilter{Modelo: "Producto"}, &buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "tipo_accion", rows[0][3])
	for _, row := range rows[1:] {
		assert.Equal(t, "admin@test.cl", row[2])
		assert.Equal(t, "Producto", row[4])
		assert.Equal(t, "si", row[9])
	}

	// the export itself is audited
	assert.Equal(t, int64(1), e.countAudit(t, model.AccionExportar, "AuditLog"))
}
