package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Coupon discount kinds
const (
	DescuentoPorcentaje = "porcentaje"
	DescuentoMonto      = "monto"
)

var cien = decimal.NewFromInt(100)

// Cupon is a discount code applied at checkout
type Cupon struct {
	Base
	Codigo              string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"codigo"`
	Descripcion         string          `gorm:"type:text" json:"descripcion"`
	TipoDescuento       string          `gorm:"type:varchar(20);not null" json:"tipo_descuento"`
	DescuentoPorcentaje decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"descuento_porcentaje"`
	DescuentoMonto      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"descuento_monto"`
	MontoMinimo         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"monto_minimo"`
	FechaInicio         time.Time       `gorm:"not null" json:"fecha_inicio"`
	FechaFin            time.Time       `gorm:"not null" json:"fecha_fin"`
	UsosMaximos         int             `gorm:"not null" json:"usos_maximos"`
	UsosActuales        int             `gorm:"not null;default:0;check:chk_cupones_usos,usos_actuales <= usos_maximos" json:"usos_actuales"`
	Activo              bool            `json:"activo"`
	CreadoPorID         *uuid.UUID      `gorm:"type:uuid" json:"creado_por_id"`
}

func (Cupon) TableName() string { return "cupones" }

// EsValido reports whether the coupon may be redeemed at the given instant.
func (c Cupon) EsValido(at time.Time) bool {
	return c.Activo &&
		!at.Before(c.FechaInicio) &&
		!at.After(c.FechaFin) &&
		c.UsosActuales < c.UsosMaximos
}

// CalcularDescuento returns the discount for an order amount, never more than the amount.
func (c Cupon) CalcularDescuento(monto decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.TipoDescuento {
	case DescuentoPorcentaje:
		d = monto.Mul(c.DescuentoPorcentaje).Div(cien).Round(2)
	case DescuentoMonto:
		d = c.DescuentoMonto
	}
	if d.GreaterThan(monto) {
		return monto
	}
	return d
}

// PromocionProducto is a time-boxed percentage discount on a single product
type PromocionProducto struct {
	Base
	ProductoID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"producto_id"`
	Producto            *Producto       `gorm:"foreignKey:ProductoID" json:"producto,omitempty"`
	Nombre              string          `gorm:"type:varchar(150)" json:"nombre"`
	DescuentoPorcentaje decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"descuento_porcentaje"`
	FechaInicio         time.Time       `gorm:"not null" json:"fecha_inicio"`
	FechaFin            time.Time       `gorm:"not null" json:"fecha_fin"`
	Activa              bool            `json:"activa"`
}

func (PromocionProducto) TableName() string { return "promociones_producto" }

func (p PromocionProducto) EstaVigente(at time.Time) bool {
	return p.Activa && !at.Before(p.FechaInicio) && !at.After(p.FechaFin)
}

func (p PromocionProducto) PrecioConDescuento(precio decimal.Decimal) decimal.Decimal {
	factor := cien.Sub(p.DescuentoPorcentaje).Div(cien)
	return precio.Mul(factor).Round(2)
}

// MejorPrecio returns the lowest price among the promotions vigente at the
// given instant, and the promotion that produced it.
func MejorPrecio(precio decimal.Decimal, promos []PromocionProducto, at time.Time) (decimal.Decimal, *PromocionProducto) {
	best := precio
	var bestPromo *PromocionProducto
	for i := range promos {
		if !promos[i].EstaVigente(at) {
			continue
		}
		if p := promos[i].PrecioConDescuento(precio); p.LessThan(best) {
			best = p
			bestPromo = &promos[i]
		}
	}
	return best, bestPromo
}
