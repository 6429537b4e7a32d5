package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order states
const (
	EstadoPendiente     = "pendiente"
	EstadoPagado        = "pagado"
	EstadoEnPreparacion = "en_preparacion"
	EstadoEnviado       = "enviado"
	EstadoEntregado     = "entregado"
	EstadoCancelado     = "cancelado"
)

// Payment methods
const (
	PagoTransferencia = "transferencia"
	PagoTarjeta       = "tarjeta"
	PagoEfectivo      = "efectivo"
)

// Shipping methods
const (
	EnvioRetiroTienda      = "retiro_tienda"
	EnvioDespachoDomicilio = "despacho_domicilio"
)

// Order origins
const (
	OrigenWeb = "web"
	OrigenPOS = "pos"
)

// transiciones maps a target state to the states it may be reached from.
var transiciones = map[string][]string{
	EstadoPagado:        {EstadoPendiente},
	EstadoEnPreparacion: {EstadoPendiente, EstadoPagado},
	EstadoEnviado:       {EstadoPagado, EstadoEnPreparacion},
	EstadoEntregado:     {EstadoEnviado},
	EstadoCancelado:     {EstadoPendiente, EstadoPagado, EstadoEnPreparacion, EstadoEnviado, EstadoCancelado},
}

// PuedeTransicionar reports whether an order in estado desde may move to hacia.
func PuedeTransicionar(desde, hacia string) bool {
	for _, s := range transiciones[hacia] {
		if s == desde {
			return true
		}
	}
	return false
}

// EstadosConIngreso are the states counted as realized sales in reports.
var EstadosConIngreso = []string{EstadoPagado, EstadoEntregado}

// Pedido is a customer order, placed online or at the POS
type Pedido struct {
	Base
	NumeroPedido         string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"numero_pedido"`
	ClienteID            uuid.UUID       `gorm:"type:uuid;not null;index" json:"cliente_id"`
	Cliente              *Usuario        `gorm:"foreignKey:ClienteID" json:"cliente,omitempty"`
	VendedorID           *uuid.UUID      `gorm:"type:uuid;index" json:"vendedor_id"`
	Vendedor             *Usuario        `gorm:"foreignKey:VendedorID" json:"vendedor,omitempty"`
	Subtotal             decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Descuento            decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"descuento"`
	Impuesto             decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"impuesto"`
	CostoEnvio           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"costo_envio"`
	Total                decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Estado               string          `gorm:"type:varchar(20);not null;index" json:"estado"`
	MetodoPago           string          `gorm:"type:varchar(20);not null" json:"metodo_pago"`
	MetodoEnvio          string          `gorm:"type:varchar(30);not null" json:"metodo_envio"`
	DireccionEnvioID     *uuid.UUID      `gorm:"type:uuid" json:"direccion_envio_id"`
	DireccionEnvio       string          `gorm:"type:text" json:"direccion_envio"` // snapshot at checkout
	CuponID              *uuid.UUID      `gorm:"type:uuid;index" json:"cupon_id"`
	Cupon                *Cupon          `gorm:"foreignKey:CuponID" json:"cupon,omitempty"`
	Origen               string          `gorm:"type:varchar(10);not null;default:'web'" json:"origen"`
	Notas                string          `gorm:"type:text" json:"notas"`
	FechaPago            *time.Time      `json:"fecha_pago"`
	FechaEntregaEstimada *time.Time      `json:"fecha_entrega_estimada"`
	FechaEntregaReal     *time.Time      `json:"fecha_entrega_real"`
	Detalles             []DetallePedido `gorm:"foreignKey:PedidoID" json:"detalles"`
}

func (Pedido) TableName() string { return "pedidos" }

// CodigoSeguimiento is the public tracking code: SEG- plus the order number without PED-.
func (p Pedido) CodigoSeguimiento() string {
	return "SEG-" + strings.TrimPrefix(p.NumeroPedido, "PED-")
}

// NumeroDesdeSeguimiento converts a tracking code back into an order number.
func NumeroDesdeSeguimiento(codigo string) string {
	codigo = strings.ToUpper(strings.TrimSpace(codigo))
	return "PED-" + strings.TrimPrefix(codigo, "SEG-")
}

// NuevoNumeroPedido builds PED-YYYYMMDD-XXXXXXXX for the given local date.
func NuevoNumeroPedido(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return "PED-" + at.Format("20060102") + "-" + suffix
}

// DetallePedido is a line item within a Pedido
type DetallePedido struct {
	Base
	PedidoID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"pedido_id"`
	ProductoID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"producto_id"`
	Producto       *Producto       `gorm:"foreignKey:ProductoID" json:"producto,omitempty"`
	Cantidad       int             `gorm:"not null" json:"cantidad"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"precio_unitario"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
}

func (DetallePedido) TableName() string { return "detalles_pedido" }

func (d *DetallePedido) CalcularSubtotal() {
	d.Subtotal = d.PrecioUnitario.Mul(decimal.NewFromInt(int64(d.Cantidad)))
}
