package repository

import (
	"context"

	"elixir/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReclamoFilter narrows complaint listings. ClienteID restricts to one client.
type ReclamoFilter struct {
	ClienteID *uuid.UUID
	Estado    string
	Prioridad string
	Tipo      string
	Page      int
	Limit     int
}

type ReclamoRepository interface {
	Create(ctx context.Context, reclamo *model.Reclamo) error
	Update(ctx context.Context, reclamo *model.Reclamo) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Reclamo, error)
	List(ctx context.Context, filter ReclamoFilter) ([]model.Reclamo, int64, error)
	CreateComentario(ctx context.Context, c *model.ComentarioReclamo) error
	ListComentarios(ctx context.Context, reclamoID uuid.UUID, incluirInternos bool) ([]model.ComentarioReclamo, error)
}

type reclamoRepository struct {
	db *gorm.DB
}

func NewReclamoRepository(db *gorm.DB) ReclamoRepository {
	return &reclamoRepository{db: db}
}

func (r *reclamoRepository) Create(ctx context.Context, reclamo *model.Reclamo) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(reclamo).Error
}

func (r *reclamoRepository) Update(ctx context.Context, reclamo *model.Reclamo) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(reclamo).Error
}

func (r *reclamoRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Reclamo, error) {
	var reclamo model.Reclamo
	if err := GetDB(ctx, r.db).Preload("Cliente").Preload("AsignadoA").Preload("Pedido").
		First(&reclamo, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reclamo, nil
}

func (r *reclamoRepository) List(ctx context.Context, filter ReclamoFilter) ([]model.Reclamo, int64, error) {
	var reclamos []model.Reclamo
	var total int64

	query := func() *gorm.DB {
		q := GetDB(ctx, r.db).Model(&model.Reclamo{})
		if filter.ClienteID != nil {
			q = q.Where("cliente_id = ?", *filter.ClienteID)
		}
		if filter.Estado != "" {
			q = q.Where("estado = ?", filter.Estado)
		}
		if filter.Prioridad != "" {
			q = q.Where("prioridad = ?", filter.Prioridad)
		}
		if filter.Tipo != "" {
			q = q.Where("tipo = ?", filter.Tipo)
		}
		return q
	}

	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query().Preload("Cliente").Preload("AsignadoA").Order("fecha_creacion desc").
		Offset(offset(filter.Page, filter.Limit)).Limit(filter.Limit).
		Find(&reclamos).Error; err != nil {
		return nil, 0, err
	}
	return reclamos, total, nil
}

func (r *reclamoRepository) CreateComentario(ctx context.Context, c *model.ComentarioReclamo) error {
	return GetDB(ctx, r.db).Omit("Usuario").Create(c).Error
}

func (r *reclamoRepository) ListComentarios(ctx context.Context, reclamoID uuid.UUID, incluirInternos bool) ([]model.ComentarioReclamo, error) {
	var comentarios []model.ComentarioReclamo
	q := GetDB(ctx, r.db).Preload("Usuario").Where("reclamo_id = ?", reclamoID)
	if !incluirInternos {
		q = q.Where("es_interno = ?", false)
	}
	err := q.Order("fecha_creacion asc").Find(&comentarios).Error
	return comentarios, err
}
