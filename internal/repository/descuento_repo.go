package repository

import (
	"context"
	"time"

	"elixir/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CuponRepository interface {
	Create(ctx context.Context, cupon *model.Cupon) error
	Update(ctx context.Context, cupon *model.Cupon) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Cupon, error)
	FindByCodigo(ctx context.Context, codigo string) (*model.Cupon, error)
	CodigoExists(ctx context.Context, codigo string, excludeID *uuid.UUID) (bool, error)
	List(ctx context.Context, page, limit int) ([]model.Cupon, int64, error)
	IncrementarUso(ctx context.Context, id uuid.UUID) (bool, error)
}

type cuponRepository struct {
	db *gorm.DB
}

func NewCuponRepository(db *gorm.DB) CuponRepository {
	return &cuponRepository{db: db}
}

func (r *cuponRepository) Create(ctx context.Context, cupon *model.Cupon) error {
	return GetDB(ctx, r.db).Create(cupon).Error
}

func (r *cuponRepository) Update(ctx context.Context, cupon *model.Cupon) error {
	return GetDB(ctx, r.db).Save(cupon).Error
}

func (r *cuponRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Cupon{}).Error
}

func (r *cuponRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Cupon, error) {
	var cupon model.Cupon
	if err := GetDB(ctx, r.db).First(&cupon, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cupon, nil
}

// FindByCodigo matches the stored uppercase code.
func (r *cuponRepository) FindByCodigo(ctx context.Context, codigo string) (*model.Cupon, error) {
	var cupon model.Cupon
	if err := GetDB(ctx, r.db).First(&cupon, "codigo = ?", codigo).Error; err != nil {
		return nil, err
	}
	return &cupon, nil
}

func (r *cuponRepository) CodigoExists(ctx context.Context, codigo string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	q := GetDB(ctx, r.db).Model(&model.Cupon{}).Where("codigo = ?", codigo)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *cuponRepository) List(ctx context.Context, page, limit int) ([]model.Cupon, int64, error) {
	var cupones []model.Cupon
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Cupon{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("fecha_creacion desc").Offset(offset(page, limit)).Limit(limit).Find(&cupones).Error; err != nil {
		return nil, 0, err
	}
	return cupones, total, nil
}

// IncrementarUso bumps usos_actuales only while it is below usos_maximos. It
// returns false when the coupon was already exhausted.
func (r *cuponRepository) IncrementarUso(ctx context.Context, id uuid.UUID) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.Cupon{}).
		Where("id = ? AND usos_actuales < usos_maximos", id).
		UpdateColumn("usos_actuales", gorm.Expr("usos_actuales + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

type PromocionRepository interface {
	Create(ctx context.Context, promo *model.PromocionProducto) error
	Update(ctx context.Context, promo *model.PromocionProducto) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PromocionProducto, error)
	List(ctx context.Context, productoID *uuid.UUID, page, limit int) ([]model.PromocionProducto, int64, error)
	VigentesPorProducto(ctx context.Context, productoIDs []uuid.UUID, at time.Time) (map[uuid.UUID][]model.PromocionProducto, error)
}

type promocionRepository struct {
	db *gorm.DB
}

func NewPromocionRepository(db *gorm.DB) PromocionRepository {
	return &promocionRepository{db: db}
}

func (r *promocionRepository) Create(ctx context.Context, promo *model.PromocionProducto) error {
	return GetDB(ctx, r.db).Omit("Producto").Create(promo).Error
}

func (r *promocionRepository) Update(ctx context.Context, promo *model.PromocionProducto) error {
	return GetDB(ctx, r.db).Omit("Producto").Save(promo).Error
}

func (r *promocionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.PromocionProducto{}).Error
}

func (r *promocionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PromocionProducto, error) {
	var promo model.PromocionProducto
	if err := GetDB(ctx, r.db).Preload("Producto").First(&promo, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *promocionRepository) List(ctx context.Context, productoID *uuid.UUID, page, limit int) ([]model.PromocionProducto, int64, error) {
	var promos []model.PromocionProducto
	var total int64

	query := func() *gorm.DB {
		q := GetDB(ctx, r.db).Model(&model.PromocionProducto{})
		if productoID != nil {
			q = q.Where("producto_id = ?", *productoID)
		}
		return q
	}
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query().Preload("Producto").Order("fecha_inicio desc").
		Offset(offset(page, limit)).Limit(limit).Find(&promos).Error; err != nil {
		return nil, 0, err
	}
	return promos, total, nil
}

// VigentesPorProducto groups the promotions active at the given instant by product.
func (r *promocionRepository) VigentesPorProducto(ctx context.Context, productoIDs []uuid.UUID, at time.Time) (map[uuid.UUID][]model.PromocionProducto, error) {
	out := make(map[uuid.UUID][]model.PromocionProducto)
	if len(productoIDs) == 0 {
		return out, nil
	}
	var promos []model.PromocionProducto
	at = at.UTC()
	if err := GetDB(ctx, r.db).
		Where("producto_id IN ? AND activa = ? AND fecha_inicio <= ? AND fecha_fin >= ?", productoIDs, true, at, at).
		Find(&promos).Error; err != nil {
		return nil, err
	}
	for _, p := range promos {
		out[p.ProductoID] = append(out[p.ProductoID], p)
	}
	return out, nil
}
