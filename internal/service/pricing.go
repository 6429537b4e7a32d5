package service

import (
	"context"
	"time"

	"elixir/internal/model"
	"elixir/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PrecioVigente is the price a product sells at right now.
type PrecioVigente struct {
	PrecioOriginal decimal.Decimal          `json:"precio_original"`
	PrecioFinal    decimal.Decimal          `json:"precio_final"`
	Promocion      *model.PromocionProducto `json:"promocion,omitempty"`
}

// ProductoConPrecio is a catalog item carrying its promotion price.
type ProductoConPrecio struct {
	model.Producto
	PrecioVigente
	Imagen         string          `json:"imagen"`
	StockBajo      bool            `json:"stock_bajo"`
	MargenGanancia decimal.Decimal `json:"margen_ganancia"`
}

type pricing struct {
	promociones repository.PromocionRepository
}

func (p pricing) precios(ctx context.Context, productos []model.Producto, at time.Time) (map[uuid.UUID]PrecioVigente, error) {
	ids := make([]uuid.UUID, 0, len(productos))
	for _, prod := range productos {
		ids = append(ids, prod.ID)
	}
	promos, err := p.promociones.VigentesPorProducto(ctx, ids, at)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]PrecioVigente, len(productos))
	for _, prod := range productos {
		final, promo := model.MejorPrecio(prod.Precio, promos[prod.ID], at)
		out[prod.ID] = PrecioVigente{PrecioOriginal: prod.Precio, PrecioFinal: final, Promocion: promo}
	}
	return out, nil
}

func (p pricing) conPrecios(ctx context.Context, productos []model.Producto, at time.Time) ([]ProductoConPrecio, error) {
	precios, err := p.precios(ctx, productos, at)
	if err != nil {
		return nil, err
	}
	out := make([]ProductoConPrecio, 0, len(productos))
	for _, prod := range productos {
		out = append(out, ProductoConPrecio{
			Producto:       prod,
			PrecioVigente:  precios[prod.ID],
			Imagen:         prod.Imagen(),
			StockBajo:      prod.StockBajo(),
			MargenGanancia: prod.MargenGanancia(),
		})
	}
	return out, nil
}
