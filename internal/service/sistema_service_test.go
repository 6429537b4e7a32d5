package service

import (
	"context"
	"testing"

	"elixir/internal/model"
	"elixir/internal/repository"
	"elixir/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDLQ int64

func (f fakeDLQ) DLQLength(context.Context) (int64, error) { return int64(f), nil }

func TestSistemaEstadisticas(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testutil.CreateUsuario(t, e.db, "admin@test.cl", model.RolAdminSistema)
	testutil.CreateUsuario(t, e.db, "cliente@test.cl", model.RolCliente)
	testutil.CreateProducto(t, e.db, "SYS-1", "1000", 10, nil)
	svc := NewSistemaService(e.sistema, e.stats, e.cache, fakeDLQ(2), e.audit)

	svc.Registrar(ctx, EventoSistema{Nivel: model.NivelError, Categoria: model.CategoriaEmail, Mensaje: "Envío de correo fallido"})
	svc.Registrar(ctx, EventoSistema{Mensaje: "Arranque"})

	stats, err := svc.Estadisticas(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalUsuarios)
	assert.Equal(t, int64(1), stats.TotalProductos)
	assert.Zero(t, stats.TotalPedidos)
	assert.True(t, stats.BaseDatos.OK)
	assert.True(t, stats.Cache.OK)
	assert.Equal(t, int64(2), stats.EmailsFallidos)

	niveles := map[string]int64{}
	for _, c := range stats.LogsPorNivel24h {
		niveles[c.Clave] = c.Cantidad
	}
	assert.Equal(t, int64(1), niveles[model.NivelError])
	assert.Equal(t, int64(1), niveles[model.NivelInfo])

	logs, total, err := svc.ListLogs(ctx, repository.LogFilter{Nivel: model.NivelInfo})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, model.CategoriaSistema, logs[0].Categoria)
}

func TestSistemaBackupQuedaAuditado(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUsuario(t, e.db, "admin@test.cl", model.RolAdminSistema)
	cat := testutil.CreateCategoria(t, e.db, "Destilados")
	testutil.CreateProducto(t, e.db, "BK-2", "5000", 3, cat)
	testutil.CreateProducto(t, e.db, "BK-1", "4000", 7, cat)

	backup, err := e.sistemaService().Backup(ctx, e.actor(admin))
	require.NoError(t, err)
	require.Len(t, backup.Productos, 2)
	assert.Equal(t, "BK-1", backup.Productos[0].SKU)
	assert.False(t, backup.GeneradoEn.IsZero())

	var nombres []string
	for _, c := range backup.Categorias {
		nombres = append(nombres, c.Nombre)
	}
	assert.Contains(t, nombres, "Destilados")
	assert.Equal(t, int64(1), e.countAudit(t, model.AccionExportar, "Backup"))
}
