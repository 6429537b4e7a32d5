package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"elixir/internal/apperror"
	"elixir/internal/model"
	"elixir/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ItemRequest struct {
	ProductoID string `json:"producto_id" binding:"required"`
	Cantidad   int    `json:"cantidad" binding:"required,gt=0"`
}

// reserva holds the locked products and priced lines of an order being built.
type reserva struct {
	productos map[uuid.UUID]*model.Producto
	detalles  []model.DetallePedido
	subtotal  decimal.Decimal
}

// checkout is the stock and pricing core shared by web orders and POS sales.
// Every method expects to run inside a transaction.
type checkout struct {
	productos   repository.ProductoRepository
	movimientos repository.MovimientoRepository
	tasas       repository.TasaImpuestoRepository
	pricing     pricing
}

func mergeItems(items []ItemRequest) (map[uuid.UUID]int, []uuid.UUID, error) {
	if len(items) == 0 {
		return nil, nil, apperror.Validation("El pedido debe tener al menos un producto")
	}
	cantidades := make(map[uuid.UUID]int, len(items))
	for _, it := range items {
		id, err := parseID(it.ProductoID, "producto")
		if err != nil {
			return nil, nil, err
		}
		if it.Cantidad <= 0 {
			return nil, nil, apperror.Validation("La cantidad debe ser mayor a 0")
		}
		cantidades[id] += it.Cantidad
	}
	ids := make([]uuid.UUID, 0, len(cantidades))
	for id := range cantidades {
		ids = append(ids, id)
	}
	// consistent lock order across concurrent checkouts
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return cantidades, ids, nil
}

// reservar locks every product, checks availability and prices each line
// with the best promotion vigente at.
func (c checkout) reservar(ctx context.Context, items []ItemRequest, at time.Time) (*reserva, error) {
	cantidades, ids, err := mergeItems(items)
	if err != nil {
		return nil, err
	}

	r := &reserva{productos: make(map[uuid.UUID]*model.Producto, len(ids))}
	bloqueados := make([]model.Producto, 0, len(ids))
	for _, id := range ids {
		p, err := c.productos.FindByIDForUpdate(ctx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, apperror.NotFound("Producto no encontrado")
			}
			return nil, err
		}
		if !p.Activo {
			return nil, apperror.Validation(fmt.Sprintf("El producto %s no está disponible", p.Nombre))
		}
		if p.Stock < cantidades[id] {
			return nil, apperror.InsufficientStock(p.Nombre)
		}
		r.productos[id] = p
		bloqueados = append(bloqueados, *p)
	}

	precios, err := c.pricing.precios(ctx, bloqueados, at)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		d := model.DetallePedido{
			ProductoID:     id,
			Cantidad:       cantidades[id],
			PrecioUnitario: precios[id].PrecioFinal,
		}
		d.CalcularSubtotal()
		r.subtotal = r.subtotal.Add(d.Subtotal)
		r.detalles = append(r.detalles, d)
	}
	return r, nil
}

// descontar decrements stock for a persisted order and writes salida movements.
// It returns the products that ended at or below their minimum.
func (c checkout) descontar(ctx context.Context, actor Actor, r *reserva, pedido *model.Pedido) ([]*model.Producto, error) {
	var bajos []*model.Producto
	for _, d := range r.detalles {
		p := r.productos[d.ProductoID]
		nuevo := p.Stock - d.Cantidad
		if err := c.productos.UpdateStock(ctx, p.ID, nuevo); err != nil {
			return nil, fmt.Errorf("failed to update stock: %w", err)
		}
		p.Stock = nuevo
		if err := c.movimientos.Create(ctx, &model.MovimientoStock{
			ProductoID:      p.ID,
			PedidoID:        &pedido.ID,
			Tipo:            model.MovimientoSalida,
			Cantidad:        -d.Cantidad,
			StockResultante: nuevo,
			UsuarioID:       actor.usuarioID(),
			Motivo:          "Venta " + pedido.NumeroPedido,
		}); err != nil {
			return nil, err
		}
		if p.StockBajo() {
			bajos = append(bajos, p)
		}
	}
	return bajos, nil
}

// restaurar returns the order's units to stock. Products deleted since the
// sale are skipped.
func (c checkout) restaurar(ctx context.Context, actor Actor, pedido *model.Pedido) error {
	for _, d := range pedido.Detalles {
		p, err := c.productos.FindByIDForUpdate(ctx, d.ProductoID)
		if err != nil {
			if repository.IsNotFound(err) {
				continue
			}
			return err
		}
		nuevo := p.Stock + d.Cantidad
		if err := c.productos.UpdateStock(ctx, p.ID, nuevo); err != nil {
			return fmt.Errorf("failed to restore stock: %w", err)
		}
		if err := c.movimientos.Create(ctx, &model.MovimientoStock{
			ProductoID:      p.ID,
			PedidoID:        &pedido.ID,
			Tipo:            model.MovimientoEntrada,
			Cantidad:        d.Cantidad,
			StockResultante: nuevo,
			UsuarioID:       actor.usuarioID(),
			Motivo:          "Cancelación " + pedido.NumeroPedido,
		}); err != nil {
			return err
		}
	}
	return nil
}

// tasaVigente returns the IVA rate at the given instant, DefaultIVA when none is configured.
func tasaVigente(ctx context.Context, tasas repository.TasaImpuestoRepository, at time.Time) (decimal.Decimal, error) {
	t, err := tasas.FindVigente(ctx, at.UTC())
	if err != nil {
		if repository.IsNotFound(err) {
			return model.DefaultIVA, nil
		}
		return decimal.Zero, err
	}
	return t.Tasa, nil
}

// impuesto is the IVA already contained in base.
func (c checkout) impuesto(ctx context.Context, base decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	tasa, err := tasaVigente(ctx, c.tasas, at)
	if err != nil {
		return decimal.Zero, err
	}
	_, iva := model.DesglosarIVA(base, tasa)
	return iva, nil
}
