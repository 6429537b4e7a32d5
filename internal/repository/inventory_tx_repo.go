package repository

import (
	"context"

	"elixir/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovimientoRepository appends to the stock ledger.
type MovimientoRepository interface {
	Create(ctx context.Context, mov *model.MovimientoStock) error
	ListByProducto(ctx context.Context, productoID uuid.UUID, limit int) ([]model.MovimientoStock, error)
}

type movimientoRepository struct {
	db *gorm.DB
}

func NewMovimientoRepository(db *gorm.DB) MovimientoRepository {
	return &movimientoRepository{db: db}
}

func (r *movimientoRepository) Create(ctx context.Context, mov *model.MovimientoStock) error {
	return GetDB(ctx, r.db).Create(mov).Error
}

func (r *movimientoRepository) ListByProducto(ctx context.Context, productoID uuid.UUID, limit int) ([]model.MovimientoStock, error) {
	var movs []model.MovimientoStock
	err := GetDB(ctx, r.db).Where("producto_id = ?", productoID).
		Order("fecha_creacion desc").Limit(limit).
		Find(&movs).Error
	return movs, err
}
