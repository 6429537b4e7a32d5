package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PlaceholderImagen is served for products without an image.
const PlaceholderImagen = "https://via.placeholder.com/400x250?text=Sin+imagen"

// DefaultStockMinimo applies when a product is created without a threshold.
const DefaultStockMinimo = 5

// Categoria groups products in the catalog (vinos, cervezas, piscos...)
type Categoria struct {
	Base
	Nombre      string `gorm:"type:varchar(100);uniqueIndex;not null" json:"nombre"`
	Descripcion string `gorm:"type:text" json:"descripcion"`
	Activa      bool   `json:"activa"`
}

func (Categoria) TableName() string { return "categorias" }

// Producto represents a sellable item in the inventory
type Producto struct {
	Base
	Nombre      string          `gorm:"type:varchar(200);not null;index" json:"nombre"`
	SKU         string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"sku"`
	Precio      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"precio"`
	Costo       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"costo"`
	Stock       int             `gorm:"not null;default:0;check:chk_productos_stock,stock >= 0" json:"stock"`
	StockMinimo int             `gorm:"not null" json:"stock_minimo"`
	CategoriaID *uuid.UUID      `gorm:"type:uuid;index" json:"categoria_id"`
	Categoria   *Categoria      `gorm:"foreignKey:CategoriaID" json:"categoria,omitempty"`
	ProveedorID *uuid.UUID      `gorm:"type:uuid;index" json:"proveedor_id"`
	Proveedor   *Proveedor      `gorm:"foreignKey:ProveedorID" json:"proveedor,omitempty"`
	Descripcion string          `gorm:"type:text" json:"descripcion"`
	ImagenURL   string          `gorm:"type:varchar(500)" json:"imagen_url"`
	Activo      bool            `gorm:"index" json:"activo"`
	CreadorID   *uuid.UUID      `gorm:"type:uuid" json:"creador_id"`
	Creador     *Usuario        `gorm:"foreignKey:CreadorID" json:"-"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Producto) TableName() string { return "productos" }

// MargenGanancia is the markup over cost as a percentage, 0 when cost is unknown.
func (p Producto) MargenGanancia() decimal.Decimal {
	if !p.Costo.IsPositive() {
		return decimal.Zero
	}
	return p.Precio.Sub(p.Costo).Div(p.Costo).Mul(decimal.NewFromInt(100)).Round(2)
}

func (p Producto) StockBajo() bool {
	return p.Stock <= p.StockMinimo
}

func (p Producto) Imagen() string {
	if p.ImagenURL == "" {
		return PlaceholderImagen
	}
	return p.ImagenURL
}

// Stock movement types
const (
	MovimientoEntrada = "entrada"
	MovimientoSalida  = "salida"
	MovimientoAjuste  = "ajuste"
)

// MovimientoStock records every stock change of a product
type MovimientoStock struct {
	Base
	ProductoID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"producto_id"`
	PedidoID        *uuid.UUID `gorm:"type:uuid;index" json:"pedido_id"` // nil for manual adjustments
	Tipo            string     `gorm:"type:varchar(10);not null" json:"tipo"`
	Cantidad        int        `gorm:"not null" json:"cantidad"` // signed
	StockResultante int        `gorm:"not null" json:"stock_resultante"`
	UsuarioID       *uuid.UUID `gorm:"type:uuid" json:"usuario_id"`
	Motivo          string     `gorm:"type:varchar(255)" json:"motivo"`
}

func (MovimientoStock) TableName() string { return "movimientos_stock" }
