package database_test

import (
	"context"
	"testing"

	"elixir/internal/database"
	"elixir/internal/model"
	"elixir/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, database.Seed(context.Background(), db))

	var roles int64
	require.NoError(t, db.Model(&model.Role{}).Count(&roles).Error)
	assert.Equal(t, int64(len(model.Roles)), roles)

	var admin model.Role
	require.NoError(t, db.Preload("Permissions").First(&admin, "name = ?", model.RolAdminSistema).Error)
	assert.Len(t, admin.Permissions, len(model.DefaultRolePermissions[model.RolAdminSistema]))

	var tasas int64
	require.NoError(t, db.Model(&model.TasaImpuesto{}).Count(&tasas).Error)
	assert.Equal(t, int64(1), tasas)
}

func TestStockCheckConstraint(t *testing.T) {
	db := testutil.NewDB(t)
	p := testutil.CreateProducto(t, db, "SKU-1", "1000", 1, nil)

	err := db.Model(&model.Producto{}).Where("id = ?", p.ID).Update("stock", -1).Error
	assert.Error(t, err)
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := database.NewConnection("oracle", "x")
	assert.Error(t, err)
}
