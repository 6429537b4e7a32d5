// Package testutil opens throwaway sqlite databases for package tests.
package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"elixir/internal/database"
	"elixir/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated and seeded in-memory sqlite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := "file:" + name + "_" + uuid.NewString()[:8] + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: database.NowUTC,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// one connection keeps the shared in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.Seed(context.Background(), db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

// CreateUsuario inserts a user with the given role and password "secreto123".
func CreateUsuario(t *testing.T, db *gorm.DB, email, rol string) *model.Usuario {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secreto123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	born := time.Date(1990, 5, 20, 0, 0, 0, 0, time.UTC)
	u := &model.Usuario{
		Email:           email,
		Username:        email,
		Nombre:          "Test",
		Apellido:        rol,
		Password:        string(hash),
		Rol:             rol,
		FechaNacimiento: &born,
		Activo:          true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create usuario: %v", err)
	}
	return u
}

// CreateCategoria inserts an active category.
func CreateCategoria(t *testing.T, db *gorm.DB, nombre string) *model.Categoria {
	t.Helper()
	c := &model.Categoria{Nombre: nombre, Activa: true}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create categoria: %v", err)
	}
	return c
}

// CreateProducto inserts an active product with the given price and stock.
func CreateProducto(t *testing.T, db *gorm.DB, sku string, precio string, stock int, categoria *model.Categoria) *model.Producto {
	t.Helper()
	p := &model.Producto{
		Nombre:      "Producto " + sku,
		SKU:         sku,
		Precio:      decimal.RequireFromString(precio),
		Costo:       decimal.Zero,
		Stock:       stock,
		StockMinimo: model.DefaultStockMinimo,
		Activo:      true,
	}
	if categoria != nil {
		p.CategoriaID = &categoria.ID
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create producto: %v", err)
	}
	return p
}
