package repository

import (
	"context"
	"time"

	"elixir/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StatisticsRepository answers the aggregate queries behind the dashboards.
type StatisticsRepository interface {
	TopProductos(ctx context.Context, excluirEstado string, limit int) ([]model.ProductoRanking, error)
	UnidadesVendidas(ctx context.Context) (map[string]int64, error)
	UsuariosPorRol(ctx context.Context) (map[string]int64, error)
	PedidosPorEstado(ctx context.Context) (map[string]int64, error)
	ContarProductos(ctx context.Context) (total, activos, stockBajo int64, err error)
	ContarClientes(ctx context.Context) (int64, error)
	ContarReclamos(ctx context.Context, estados ...string) (int64, error)
	ContarErroresDesde(ctx context.Context, desde time.Time) (int64, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

// TopProductos ranks products by units sold, skipping orders in excluirEstado.
func (r *statisticsRepository) TopProductos(ctx context.Context, excluirEstado string, limit int) ([]model.ProductoRanking, error) {
	var rows []struct {
		ProductoID    string
		Nombre        string
		SKU           string
		CantidadTotal int64
		VentasTotal   decimal.Decimal
	}
	if err := GetDB(ctx, r.db).Table("detalles_pedido").
		Select("productos.id AS producto_id, productos.nombre AS nombre, productos.sku AS sku, "+
			"SUM(detalles_pedido.cantidad) AS cantidad_total, COALESCE(SUM(detalles_pedido.subtotal), 0) AS ventas_total").
		Joins("JOIN productos ON productos.id = detalles_pedido.producto_id").
		Joins("JOIN pedidos ON pedidos.id = detalles_pedido.pedido_id").
		Where("pedidos.estado <> ?", excluirEstado).
		Group("productos.id, productos.nombre, productos.sku").
		Order("cantidad_total DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.ProductoRanking, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.ProductoRanking{
			ProductoID:    row.ProductoID,
			Nombre:        row.Nombre,
			SKU:           row.SKU,
			CantidadTotal: row.CantidadTotal,
			VentasTotal:   row.VentasTotal,
		})
	}
	return out, nil
}

// UnidadesVendidas maps product id to units sold in non-cancelled orders.
func (r *statisticsRepository) UnidadesVendidas(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		ProductoID string
		Unidades   int64
	}
	if err := GetDB(ctx, r.db).Table("detalles_pedido").
		Select("detalles_pedido.producto_id AS producto_id, SUM(detalles_pedido.cantidad) AS unidades").
		Joins("JOIN pedidos ON pedidos.id = detalles_pedido.pedido_id").
		Where("pedidos.estado <> ?", model.EstadoCancelado).
		Group("detalles_pedido.producto_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.ProductoID] = row.Unidades
	}
	return out, nil
}

func (r *statisticsRepository) groupCount(ctx context.Context, m interface{}, column string) (map[string]int64, error) {
	var rows []Conteo
	if err := GetDB(ctx, r.db).Model(m).
		Select(column + " AS clave, COUNT(*) AS cantidad").
		Group(column).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Clave] = row.Cantidad
	}
	return out, nil
}

func (r *statisticsRepository) UsuariosPorRol(ctx context.Context) (map[string]int64, error) {
	return r.groupCount(ctx, &model.Usuario{}, "rol")
}

func (r *statisticsRepository) PedidosPorEstado(ctx context.Context) (map[string]int64, error) {
	return r.groupCount(ctx, &model.Pedido{}, "estado")
}

func (r *statisticsRepository) ContarProductos(ctx context.Context) (total, activos, stockBajo int64, err error) {
	db := GetDB(ctx, r.db)
	if err = db.Model(&model.Producto{}).Count(&total).Error; err != nil {
		return
	}
	if err = db.Model(&model.Producto{}).Where("activo = ?", true).Count(&activos).Error; err != nil {
		return
	}
	err = db.Model(&model.Producto{}).Where("activo = ? AND stock <= stock_minimo", true).Count(&stockBajo).Error
	return
}

func (r *statisticsRepository) ContarClientes(ctx context.Context) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Usuario{}).Where("rol = ?", model.RolCliente).Count(&count).Error
	return count, err
}

func (r *statisticsRepository) ContarReclamos(ctx context.Context, estados ...string) (int64, error) {
	var count int64
	q := GetDB(ctx, r.db).Model(&model.Reclamo{})
	if len(estados) > 0 {
		q = q.Where("estado IN ?", estados)
	}
	err := q.Count(&count).Error
	return count, err
}

func (r *statisticsRepository) ContarErroresDesde(ctx context.Context, desde time.Time) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.LogSistema{}).
		Where("nivel IN ? AND fecha_creacion >= ?", []string{model.NivelError, model.NivelCritical}, desde.UTC()).
		Count(&count).Error
	return count, err
}
