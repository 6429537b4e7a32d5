package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"elixir/internal/apperror"
	"elixir/internal/model"
	"elixir/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type VentaPOSRequest struct {
	Items         []ItemRequest    `json:"items" binding:"required,min=1,dive"`
	MetodoPago    string           `json:"metodo_pago" binding:"required,oneof=transferencia tarjeta efectivo"`
	ClienteEmail  string           `json:"cliente_email" binding:"omitempty,email"`
	MontoRecibido *decimal.Decimal `json:"monto_recibido" swaggertype:"number"`
}

type VentaPOS struct {
	PedidoID     uuid.UUID        `json:"pedido_id"`
	NumeroPedido string           `json:"numero_pedido"`
	Total        decimal.Decimal  `json:"total"`
	Impuesto     decimal.Decimal  `json:"impuesto"`
	Vuelto       *decimal.Decimal `json:"vuelto,omitempty"`
}

type CierreCaja struct {
	Fecha          string                     `json:"fecha"`
	CantidadVentas int                        `json:"cantidad_ventas"`
	Total          decimal.Decimal            `json:"total"`
	PorMetodoPago  map[string]decimal.Decimal `json:"por_metodo_pago"`
	Ventas         []model.Pedido             `json:"ventas"`
}

// POSService handles in-store sales.
type POSService interface {
	BuscarProducto(ctx context.Context, q string) ([]ProductoConPrecio, error)
	Venta(ctx context.Context, actor Actor, req VentaPOSRequest) (*VentaPOS, error)
	CierreCaja(ctx context.Context, actor Actor, fecha string) (*CierreCaja, error)
}

type posService struct {
	productos repository.ProductoRepository
	pedidos   repository.PedidoRepository
	usuarios  repository.UsuarioRepository
	tx        repository.TransactionManager
	checkout  checkout
	auditor   Auditor
	notifier  Notifier
	loc       *time.Location
	now       func() time.Time
}

func NewPOSService(
	productos repository.ProductoRepository,
	movimientos repository.MovimientoRepository,
	promociones repository.PromocionRepository,
	tasas repository.TasaImpuestoRepository,
	pedidos repository.PedidoRepository,
	usuarios repository.UsuarioRepository,
	tx repository.TransactionManager,
	auditor Auditor,
	notifier Notifier,
	loc *time.Location,
) POSService {
	if loc == nil {
		loc = time.UTC
	}
	return &posService{
		productos: productos,
		pedidos:   pedidos,
		usuarios:  usuarios,
		tx:        tx,
		checkout: checkout{
			productos:   productos,
			movimientos: movimientos,
			tasas:       tasas,
			pricing:     pricing{promociones: promociones},
		},
		auditor:  auditor,
		notifier: notifierOrNoop(notifier),
		loc:      loc,
		now:      time.Now,
	}
}

// BuscarProducto tries an exact SKU first and falls back to a name search.
func (s *posService) BuscarProducto(ctx context.Context, q string) ([]ProductoConPrecio, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []ProductoConPrecio{}, nil
	}
	var productos []model.Producto
	p, err := s.productos.FindBySKU(ctx, strings.ToUpper(q))
	switch {
	case err == nil && p.Activo:
		productos = []model.Producto{*p}
	case err != nil && !repository.IsNotFound(err):
		return nil, err
	default:
		if productos, err = s.productos.BuscarPorNombre(ctx, q, 20); err != nil {
			return nil, err
		}
	}
	return s.checkout.pricing.conPrecios(ctx, productos, s.now())
}

func (s *posService) Venta(ctx context.Context, actor Actor, req VentaPOSRequest) (*VentaPOS, error) {
	clienteID := actor.ID
	if email := strings.TrimSpace(req.ClienteEmail); email != "" {
		cliente, err := s.usuarios.GetByEmail(ctx, strings.ToLower(email))
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, apperror.NotFound("Cliente no encontrado: " + email)
			}
			return nil, err
		}
		clienteID = cliente.ID
	}

	now := s.now()
	nowUTC := now.UTC()
	vendedor := actor.ID
	pedido := &model.Pedido{
		NumeroPedido:     model.NuevoNumeroPedido(now.In(s.loc)),
		ClienteID:        clienteID,
		VendedorID:       &vendedor,
		Estado:           model.EstadoEntregado,
		MetodoPago:       req.MetodoPago,
		MetodoEnvio:      model.EnvioRetiroTienda,
		Origen:           model.OrigenPOS,
		FechaPago:        &nowUTC,
		FechaEntregaReal: &nowUTC,
	}

	var vuelto *decimal.Decimal
	var bajos []*model.Producto
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		r, err := s.checkout.reservar(txCtx, req.Items, now)
		if err != nil {
			return err
		}
		pedido.Subtotal = r.subtotal
		pedido.Total = r.subtotal
		pedido.Detalles = r.detalles
		if pedido.Impuesto, err = s.checkout.impuesto(txCtx, pedido.Total, now); err != nil {
			return err
		}

		if req.MetodoPago == model.PagoEfectivo {
			if req.MontoRecibido == nil || req.MontoRecibido.LessThan(pedido.Total) {
				return apperror.Validation("El monto recibido es menor al total de la venta")
			}
			v := req.MontoRecibido.Sub(pedido.Total)
			vuelto = &v
		}

		if err := s.pedidos.Create(txCtx, pedido); err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}
		if bajos, err = s.checkout.descontar(txCtx, actor, r, pedido); err != nil {
			return err
		}
		return s.auditor.Record(txCtx, actor, AuditEntry{
			Accion:      model.AccionCrear,
			Modelo:      "Pedido",
			IDObjeto:    pedido.ID.String(),
			Descripcion: "Venta POS " + pedido.NumeroPedido,
			Despues:     pedidoSnapshot(pedido),
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(EventNuevoPedido, map[string]interface{}{
		"pedido_id":     pedido.ID,
		"numero_pedido": pedido.NumeroPedido,
		"total":         pedido.Total,
		"origen":        pedido.Origen,
	}, model.RolGerente, model.RolAdminSistema)
	for _, p := range bajos {
		alertarStockBajo(s.notifier, p)
	}

	return &VentaPOS{
		PedidoID:     pedido.ID,
		NumeroPedido: pedido.NumeroPedido,
		Total:        pedido.Total,
		Impuesto:     pedido.Impuesto,
		Vuelto:       vuelto,
	}, nil
}

// CierreCaja summarizes the actor's POS sales on a local calendar day; today when fecha is empty.
func (s *posService) CierreCaja(ctx context.Context, actor Actor, fecha string) (*CierreCaja, error) {
	dia := inicioDelDia(s.now(), s.loc)
	if strings.TrimSpace(fecha) != "" {
		var err error
		if dia, err = parseFecha(fecha, s.loc); err != nil {
			return nil, err
		}
	}
	desde := dia.UTC()
	hasta := dia.AddDate(0, 0, 1).UTC()

	ventas, _, err := s.pedidos.List(ctx, repository.PedidoFilter{
		VendedorID: &actor.ID,
		Origen:     model.OrigenPOS,
		Desde:      &desde,
		Hasta:      &hasta,
	})
	if err != nil {
		return nil, err
	}

	cierre := &CierreCaja{
		Fecha:         dia.Format("2006-01-02"),
		PorMetodoPago: map[string]decimal.Decimal{},
		Ventas:        ventas,
	}
	for _, v := range ventas {
		if v.Estado == model.EstadoCancelado {
			continue
		}
		cierre.CantidadVentas++
		cierre.Total = cierre.Total.Add(v.Total)
		cierre.PorMetodoPago[v.MetodoPago] = cierre.PorMetodoPago[v.MetodoPago].Add(v.Total)
	}
	return cierre, nil
}
