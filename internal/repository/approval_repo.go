package repository

import (
	"context"

	"elixir/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SolicitudRepository interface {
	Create(ctx context.Context, req *model.SolicitudAutorizacion) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.SolicitudAutorizacion, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.SolicitudAutorizacion, error)
	List(ctx context.Context, estado string, solicitanteID *uuid.UUID, page, limit int) ([]model.SolicitudAutorizacion, int64, error)
	Update(ctx context.Context, req *model.SolicitudAutorizacion) error
	CountPendientes(ctx context.Context) (int64, error)
	NoVistas(ctx context.Context, solicitanteID uuid.UUID) ([]model.SolicitudAutorizacion, error)
	MarcarVistas(ctx context.Context, ids []uuid.UUID) error
}

type solicitudRepository struct {
	db *gorm.DB
}

func NewSolicitudRepository(db *gorm.DB) SolicitudRepository {
	return &solicitudRepository{db: db}
}

func (r *solicitudRepository) Create(ctx context.Context, req *model.SolicitudAutorizacion) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(req).Error
}

func (r *solicitudRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.SolicitudAutorizacion, error) {
	var req model.SolicitudAutorizacion
	if err := GetDB(ctx, r.db).Preload("Solicitante").Preload("Aprobador").Preload("Producto").
		First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *solicitudRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.SolicitudAutorizacion, error) {
	var req model.SolicitudAutorizacion
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *solicitudRepository) List(ctx context.Context, estado string, solicitanteID *uuid.UUID, page, limit int) ([]model.SolicitudAutorizacion, int64, error) {
	var requests []model.SolicitudAutorizacion
	var total int64

	query := func() *gorm.DB {
		q := GetDB(ctx, r.db).Model(&model.SolicitudAutorizacion{})
		if estado != "" {
			q = q.Where("estado = ?", estado)
		}
		if solicitanteID != nil {
			q = q.Where("solicitante_id = ?", *solicitanteID)
		}
		return q
	}

	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query().Preload("Solicitante").Preload("Aprobador").Preload("Producto").
		Order("fecha_creacion DESC").Offset(offset(page, limit)).Limit(limit).
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

func (r *solicitudRepository) Update(ctx context.Context, req *model.SolicitudAutorizacion) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(req).Error
}

func (r *solicitudRepository) CountPendientes(ctx context.Context) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.SolicitudAutorizacion{}).
		Where("estado = ?", model.SolicitudPendiente).Count(&count).Error
	return count, err
}

// NoVistas lists the resolved requests of a solicitante not yet seen by them.
func (r *solicitudRepository) NoVistas(ctx context.Context, solicitanteID uuid.UUID) ([]model.SolicitudAutorizacion, error) {
	var requests []model.SolicitudAutorizacion
	err := GetDB(ctx, r.db).Preload("Producto").Preload("Aprobador").
		Where("solicitante_id = ? AND estado <> ? AND vista_por_solicitante = ?", solicitanteID, model.SolicitudPendiente, false).
		Order("fecha_respuesta desc").
		Find(&requests).Error
	return requests, err
}

func (r *solicitudRepository) MarcarVistas(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Model(&model.SolicitudAutorizacion{}).
		Where("id IN ?", ids).Update("vista_por_solicitante", true).Error
}
