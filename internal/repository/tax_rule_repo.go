package repository

import (
	"context"
	"time"

	"elixir/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TasaImpuestoRepository interface {
	Create(ctx context.Context, tasa *model.TasaImpuesto) error
	Update(ctx context.Context, tasa *model.TasaImpuesto) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.TasaImpuesto, error)
	List(ctx context.Context) ([]model.TasaImpuesto, error)
	FindVigente(ctx context.Context, at time.Time) (*model.TasaImpuesto, error)
}

type tasaImpuestoRepository struct {
	db *gorm.DB
}

func NewTasaImpuestoRepository(db *gorm.DB) TasaImpuestoRepository {
	return &tasaImpuestoRepository{db: db}
}

func (r *tasaImpuestoRepository) Create(ctx context.Context, tasa *model.TasaImpuesto) error {
	return GetDB(ctx, r.db).Create(tasa).Error
}

func (r *tasaImpuestoRepository) Update(ctx context.Context, tasa *model.TasaImpuesto) error {
	return GetDB(ctx, r.db).Save(tasa).Error
}

func (r *tasaImpuestoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.TasaImpuesto{}).Error
}

func (r *tasaImpuestoRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.TasaImpuesto, error) {
	var tasa model.TasaImpuesto
	if err := GetDB(ctx, r.db).First(&tasa, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tasa, nil
}

func (r *tasaImpuestoRepository) List(ctx context.Context) ([]model.TasaImpuesto, error) {
	var tasas []model.TasaImpuesto
	err := GetDB(ctx, r.db).Order("vigente_desde desc").Find(&tasas).Error
	return tasas, err
}

// FindVigente returns the newest rate whose validity contains at.
func (r *tasaImpuestoRepository) FindVigente(ctx context.Context, at time.Time) (*model.TasaImpuesto, error) {
	var tasa model.TasaImpuesto
	at = at.UTC()
	if err := GetDB(ctx, r.db).
		Where("vigente_desde <= ? AND (vigente_hasta IS NULL OR vigente_hasta >= ?)", at, at).
		Order("vigente_desde DESC").
		First(&tasa).Error; err != nil {
		return nil, err
	}
	return &tasa, nil
}
