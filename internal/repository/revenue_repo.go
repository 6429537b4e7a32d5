package repository

import (
	"context"
	"time"

	"elixir/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TotalVentas is a sum and count of order totals.
type TotalVentas struct {
	Total    decimal.Decimal
	Cantidad int64
}

// RevenueRepository sums order totals.
type RevenueRepository interface {
	TotalNoCancelado(ctx context.Context) (TotalVentas, error)
	TotalPorEstado(ctx context.Context, estados []string) (map[string]decimal.Decimal, error)
	TotalEntre(ctx context.Context, desde, hasta time.Time, estados []string) (TotalVentas, error)
}

type revenueRepository struct {
	db *gorm.DB
}

func NewRevenueRepository(db *gorm.DB) RevenueRepository {
	return &revenueRepository{db: db}
}

func (r *revenueRepository) TotalNoCancelado(ctx context.Context) (TotalVentas, error) {
	var out TotalVentas
	err := GetDB(ctx, r.db).Model(&model.Pedido{}).
		Select("COALESCE(SUM(total), 0) AS total, COUNT(*) AS cantidad").
		Where("estado <> ?", model.EstadoCancelado).
		Scan(&out).Error
	return out, err
}

// TotalPorEstado sums totals for each of the given states; missing states map to zero.
func (r *revenueRepository) TotalPorEstado(ctx context.Context, estados []string) (map[string]decimal.Decimal, error) {
	var rows []struct {
		Estado string
		Total  decimal.Decimal
	}
	if err := GetDB(ctx, r.db).Model(&model.Pedido{}).
		Select("estado, COALESCE(SUM(total), 0) AS total").
		Where("estado IN ?", estados).
		Group("estado").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal, len(estados))
	for _, e := range estados {
		out[e] = decimal.Zero
	}
	for _, row := range rows {
		out[row.Estado] = row.Total
	}
	return out, nil
}

func (r *revenueRepository) TotalEntre(ctx context.Context, desde, hasta time.Time, estados []string) (TotalVentas, error) {
	var out TotalVentas
	q := GetDB(ctx, r.db).Model(&model.Pedido{}).
		Select("COALESCE(SUM(total), 0) AS total, COUNT(*) AS cantidad").
		Where("fecha_creacion >= ? AND fecha_creacion < ?", desde.UTC(), hasta.UTC())
	if len(estados) > 0 {
		q = q.Where("estado IN ?", estados)
	}
	err := q.Scan(&out).Error
	return out, err
}
