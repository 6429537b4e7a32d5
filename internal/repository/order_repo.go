package repository

import (
	"context"
	"time"

	"elixir/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PedidoFilter narrows order listings. Zero values are ignored.
type PedidoFilter struct {
	ClienteID  *uuid.UUID
	VendedorID *uuid.UUID
	Estado     string
	Estados    []string
	MetodoPago string
	Origen     string
	Desde      *time.Time
	Hasta      *time.Time
	Page       int
	Limit      int
}

func (f PedidoFilter) apply(q *gorm.DB) *gorm.DB {
	if f.ClienteID != nil {
		q = q.Where("pedidos.cliente_id = ?", *f.ClienteID)
	}
	if f.VendedorID != nil {
		q = q.Where("pedidos.vendedor_id = ?", *f.VendedorID)
	}
	if f.Estado != "" {
		q = q.Where("pedidos.estado = ?", f.Estado)
	}
	if len(f.Estados) > 0 {
		q = q.Where("pedidos.estado IN ?", f.Estados)
	}
	if f.MetodoPago != "" {
		q = q.Where("pedidos.metodo_pago = ?", f.MetodoPago)
	}
	if f.Origen != "" {
		q = q.Where("pedidos.origen = ?", f.Origen)
	}
	if f.Desde != nil {
		q = q.Where("pedidos.fecha_creacion >= ?", f.Desde.UTC())
	}
	if f.Hasta != nil {
		q = q.Where("pedidos.fecha_creacion < ?", f.Hasta.UTC())
	}
	return q
}

type PedidoRepository interface {
	Create(ctx context.Context, pedido *model.Pedido) error
	Update(ctx context.Context, pedido *model.Pedido) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Pedido, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Pedido, error)
	FindByNumero(ctx context.Context, numero string) (*model.Pedido, error)
	List(ctx context.Context, filter PedidoFilter) ([]model.Pedido, int64, error)
	ListConDetalles(ctx context.Context, filter PedidoFilter) ([]model.Pedido, error)
}

type pedidoRepository struct {
	db *gorm.DB
}

func NewPedidoRepository(db *gorm.DB) PedidoRepository {
	return &pedidoRepository{db: db}
}

// Create inserts the order together with its Detalles. Detalle products must
// not be populated.
func (r *pedidoRepository) Create(ctx context.Context, pedido *model.Pedido) error {
	return GetDB(ctx, r.db).Omit("Cliente", "Vendedor", "Cupon").Create(pedido).Error
}

func (r *pedidoRepository) Update(ctx context.Context, pedido *model.Pedido) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(pedido).Error
}

func (r *pedidoRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Pedido, error) {
	var pedido model.Pedido
	if err := GetDB(ctx, r.db).
		Preload("Detalles.Producto").
		Preload("Cliente").
		Preload("Vendedor").
		Preload("Cupon").
		First(&pedido, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pedido, nil
}

func (r *pedidoRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Pedido, error) {
	var pedido model.Pedido
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Detalles").
		Preload("Cliente").
		First(&pedido, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pedido, nil
}

func (r *pedidoRepository) FindByNumero(ctx context.Context, numero string) (*model.Pedido, error) {
	var pedido model.Pedido
	if err := GetDB(ctx, r.db).Preload("Detalles.Producto").
		First(&pedido, "numero_pedido = ?", numero).Error; err != nil {
		return nil, err
	}
	return &pedido, nil
}

func (r *pedidoRepository) List(ctx context.Context, filter PedidoFilter) ([]model.Pedido, int64, error) {
	var pedidos []model.Pedido
	var total int64

	if err := filter.apply(GetDB(ctx, r.db).Model(&model.Pedido{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := filter.apply(GetDB(ctx, r.db)).Preload("Cliente").Preload("Vendedor").Order("fecha_creacion desc")
	if filter.Limit > 0 {
		q = q.Offset(offset(filter.Page, filter.Limit)).Limit(filter.Limit)
	}
	if err := q.Find(&pedidos).Error; err != nil {
		return nil, 0, err
	}
	return pedidos, total, nil
}

// ListConDetalles loads every matching order with items, products and categories.
// It backs the analytics and report computations.
func (r *pedidoRepository) ListConDetalles(ctx context.Context, filter PedidoFilter) ([]model.Pedido, error) {
	var pedidos []model.Pedido
	q := filter.apply(GetDB(ctx, r.db)).
		Preload("Detalles.Producto.Categoria").
		Order("fecha_creacion asc")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	err := q.Find(&pedidos).Error
	return pedidos, err
}
