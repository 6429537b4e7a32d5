package repository

import (
	"context"

	"elixir/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProveedorRepository interface {
	Create(ctx context.Context, proveedor *model.Proveedor) error
	Update(ctx context.Context, proveedor *model.Proveedor) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Proveedor, error)
	First(ctx context.Context) (*model.Proveedor, error)
	RutExists(ctx context.Context, rut string, excludeID *uuid.UUID) (bool, error)
	List(ctx context.Context, search string, page, limit int) ([]model.Proveedor, int64, error)
}

type proveedorRepository struct {
	db *gorm.DB
}

func NewProveedorRepository(db *gorm.DB) ProveedorRepository {
	return &proveedorRepository{db: db}
}

func (r *proveedorRepository) Create(ctx context.Context, proveedor *model.Proveedor) error {
	return GetDB(ctx, r.db).Create(proveedor).Error
}

func (r *proveedorRepository) Update(ctx context.Context, proveedor *model.Proveedor) error {
	return GetDB(ctx, r.db).Save(proveedor).Error
}

func (r *proveedorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Proveedor{}).Error
}

func (r *proveedorRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Proveedor, error) {
	var proveedor model.Proveedor
	if err := GetDB(ctx, r.db).First(&proveedor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &proveedor, nil
}

// First returns the oldest proveedor, used as default for new products.
func (r *proveedorRepository) First(ctx context.Context) (*model.Proveedor, error) {
	var proveedor model.Proveedor
	if err := GetDB(ctx, r.db).Order("fecha_creacion asc").First(&proveedor).Error; err != nil {
		return nil, err
	}
	return &proveedor, nil
}

func (r *proveedorRepository) RutExists(ctx context.Context, rut string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	q := GetDB(ctx, r.db).Unscoped().Model(&model.Proveedor{}).Where("rut = ?", rut)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *proveedorRepository) List(ctx context.Context, search string, page, limit int) ([]model.Proveedor, int64, error) {
	var proveedores []model.Proveedor
	var total int64

	query := func() *gorm.DB {
		q := GetDB(ctx, r.db).Model(&model.Proveedor{})
		if search != "" {
			like := "%" + search + "%"
			q = q.Where("LOWER(nombre) LIKE LOWER(?) OR rut LIKE ? OR LOWER(email) LIKE LOWER(?)", like, like, like)
		}
		return q
	}

	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query().Order("nombre asc").Offset(offset(page, limit)).Limit(limit).Find(&proveedores).Error; err != nil {
		return nil, 0, err
	}
	return proveedores, total, nil
}
