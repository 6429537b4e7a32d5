package repository

import (
	"context"

	"elixir/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductoFilter narrows catalog and admin listings.
type ProductoFilter struct {
	CategoriaID *uuid.UUID
	Search      string
	SoloActivos bool
	Page        int
	Limit       int
}

type ProductoRepository interface {
	Create(ctx context.Context, producto *model.Producto) error
	Update(ctx context.Context, producto *model.Producto) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error)
	FindBySKU(ctx context.Context, sku string) (*model.Producto, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Producto, error)
	SKUExists(ctx context.Context, sku string, excludeID *uuid.UUID) (bool, error)
	List(ctx context.Context, filter ProductoFilter) ([]model.Producto, int64, error)
	UpdateStock(ctx context.Context, id uuid.UUID, stock int) error
	Destacados(ctx context.Context, limit int) ([]model.Producto, error)
	Relacionados(ctx context.Context, categoriaID, excludeID uuid.UUID, limit int) ([]model.Producto, error)
	Sugerencias(ctx context.Context, q string, limit int) ([]string, error)
	StockBajo(ctx context.Context) ([]model.Producto, error)
	BuscarPorNombre(ctx context.Context, q string, limit int) ([]model.Producto, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Producto, error)
	AsignarPlaceholder(ctx context.Context, url string) (int64, error)
}

type productoRepository struct {
	db *gorm.DB
}

func NewProductoRepository(db *gorm.DB) ProductoRepository {
	return &productoRepository{db: db}
}

func (r *productoRepository) Create(ctx context.Context, producto *model.Producto) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(producto).Error
}

// Update writes every column except stock. Stock only changes through
// UpdateStock so a stale copy never overwrites a concurrent sale.
func (r *productoRepository) Update(ctx context.Context, producto *model.Producto) error {
	return GetDB(ctx, r.db).Omit(clause.Associations, "stock").Save(producto).Error
}

func (r *productoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Producto{}).Error
}

func (r *productoRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	var producto model.Producto
	if err := GetDB(ctx, r.db).Preload("Categoria").Preload("Proveedor").
		First(&producto, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &producto, nil
}

func (r *productoRepository) FindBySKU(ctx context.Context, sku string) (*model.Producto, error) {
	var producto model.Producto
	if err := GetDB(ctx, r.db).Where("sku = ?", sku).First(&producto).Error; err != nil {
		return nil, err
	}
	return &producto, nil
}

// FindByIDForUpdate locks the product row until the surrounding transaction ends.
func (r *productoRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	var producto model.Producto
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&producto).Error; err != nil {
		return nil, err
	}
	return &producto, nil
}

// SKUExists checks uniqueness across soft-deleted rows too, since the index covers them.
func (r *productoRepository) SKUExists(ctx context.Context, sku string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	q := GetDB(ctx, r.db).Unscoped().Model(&model.Producto{}).Where("sku = ?", sku)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *productoRepository) List(ctx context.Context, filter ProductoFilter) ([]model.Producto, int64, error) {
	var productos []model.Producto
	var total int64

	query := func() *gorm.DB {
		q := GetDB(ctx, r.db).Model(&model.Producto{})
		if filter.SoloActivos {
			q = q.Where("activo = ?", true)
		}
		if filter.CategoriaID != nil {
			q = q.Where("categoria_id = ?", *filter.CategoriaID)
		}
		if filter.Search != "" {
			like := "%" + filter.Search + "%"
			q = q.Where("LOWER(nombre) LIKE LOWER(?) OR LOWER(sku) LIKE LOWER(?) OR LOWER(descripcion) LIKE LOWER(?)", like, like, like)
		}
		return q
	}

	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query().Preload("Categoria").Order("fecha_creacion desc").
		Offset(offset(filter.Page, filter.Limit)).Limit(filter.Limit).
		Find(&productos).Error; err != nil {
		return nil, 0, err
	}
	return productos, total, nil
}

func (r *productoRepository) UpdateStock(ctx context.Context, id uuid.UUID, stock int) error {
	return GetDB(ctx, r.db).Model(&model.Producto{}).Where("id = ?", id).Update("stock", stock).Error
}

func (r *productoRepository) Destacados(ctx context.Context, limit int) ([]model.Producto, error) {
	var productos []model.Producto
	err := GetDB(ctx, r.db).Preload("Categoria").
		Where("activo = ? AND stock > 0", true).
		Order("fecha_creacion desc").Limit(limit).
		Find(&productos).Error
	return productos, err
}

func (r *productoRepository) Relacionados(ctx context.Context, categoriaID, excludeID uuid.UUID, limit int) ([]model.Producto, error) {
	var productos []model.Producto
	err := GetDB(ctx, r.db).
		Where("categoria_id = ? AND id <> ? AND activo = ?", categoriaID, excludeID, true).
		Order("fecha_creacion desc").Limit(limit).
		Find(&productos).Error
	return productos, err
}

func (r *productoRepository) Sugerencias(ctx context.Context, q string, limit int) ([]string, error) {
	var nombres []string
	err := GetDB(ctx, r.db).Model(&model.Producto{}).
		Where("activo = ? AND LOWER(nombre) LIKE LOWER(?)", true, "%"+q+"%").
		Order("nombre asc").Limit(limit).
		Pluck("nombre", &nombres).Error
	return nombres, err
}

func (r *productoRepository) StockBajo(ctx context.Context) ([]model.Producto, error) {
	var productos []model.Producto
	err := GetDB(ctx, r.db).Preload("Categoria").
		Where("activo = ? AND stock <= stock_minimo", true).
		Order("stock asc").
		Find(&productos).Error
	return productos, err
}

func (r *productoRepository) BuscarPorNombre(ctx context.Context, q string, limit int) ([]model.Producto, error) {
	var productos []model.Producto
	err := GetDB(ctx, r.db).
		Where("activo = ? AND LOWER(nombre) LIKE LOWER(?)", true, "%"+q+"%").
		Order("nombre asc").Limit(limit).
		Find(&productos).Error
	return productos, err
}

func (r *productoRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Producto, error) {
	var productos []model.Producto
	if len(ids) == 0 {
		return productos, nil
	}
	err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&productos).Error
	return productos, err
}

// AsignarPlaceholder sets url on every product without an image and returns how many changed.
func (r *productoRepository) AsignarPlaceholder(ctx context.Context, url string) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.Producto{}).
		Where("imagen_url IS NULL OR imagen_url = ''").
		Update("imagen_url", url)
	return res.RowsAffected, res.Error
}
