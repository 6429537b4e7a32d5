package repository

import (
	"context"
	"time"

	"elixir/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReporteRepository interface {
	Create(ctx context.Context, reporte *model.ReporteFinanciero) error
	Update(ctx context.Context, reporte *model.ReporteFinanciero) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ReporteFinanciero, error)
	List(ctx context.Context, page, limit int) ([]model.ReporteFinanciero, int64, error)
	Vencidos(ctx context.Context, now time.Time) ([]model.ReporteFinanciero, error)
}

type reporteRepository struct {
	db *gorm.DB
}

func NewReporteRepository(db *gorm.DB) ReporteRepository {
	return &reporteRepository{db: db}
}

func (r *reporteRepository) Create(ctx context.Context, reporte *model.ReporteFinanciero) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(reporte).Error
}

func (r *reporteRepository) Update(ctx context.Context, reporte *model.ReporteFinanciero) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(reporte).Error
}

func (r *reporteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.ReporteFinanciero{}).Error
}

func (r *reporteRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ReporteFinanciero, error) {
	var reporte model.ReporteFinanciero
	if err := GetDB(ctx, r.db).Preload("Categoria").Preload("Generador").
		First(&reporte, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reporte, nil
}

func (r *reporteRepository) List(ctx context.Context, page, limit int) ([]model.ReporteFinanciero, int64, error) {
	var reportes []model.ReporteFinanciero
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.ReporteFinanciero{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Omit("datos_json").Preload("Generador").Order("fecha_creacion desc").
		Offset(offset(page, limit)).Limit(limit).Find(&reportes).Error; err != nil {
		return nil, 0, err
	}
	return reportes, total, nil
}

// Vencidos lists the active recurring reports due at now.
func (r *reporteRepository) Vencidos(ctx context.Context, now time.Time) ([]model.ReporteFinanciero, error) {
	var reportes []model.ReporteFinanciero
	err := GetDB(ctx, r.db).
		Where("activo = ? AND frecuencia_automatica <> ? AND proxima_ejecucion IS NOT NULL AND proxima_ejecucion <= ?",
			true, model.FrecuenciaUnico, now.UTC()).
		Order("proxima_ejecucion asc").
		Find(&reportes).Error
	return reportes, err
}
