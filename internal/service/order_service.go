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

const diasEntregaEstimada = 3

// --- DTOs ---

type CrearPedidoRequest struct {
	Items       []ItemRequest `json:"items" binding:"required,min=1,dive"`
	MetodoPago  string        `json:"metodo_pago" binding:"required,oneof=transferencia tarjeta efectivo"`
	MetodoEnvio string        `json:"metodo_envio" binding:"required,oneof=retiro_tienda despacho_domicilio"`
	DireccionID string        `json:"direccion_id"`
	Cupon       string        `json:"cupon"`
	Notas       string        `json:"notas"`
}

type PedidoCreado struct {
	PedidoID     uuid.UUID       `json:"pedido_id"`
	NumeroPedido string          `json:"numero_pedido"`
	Total        decimal.Decimal `json:"total"`
	Estado       string          `json:"estado"`
}

type CambiarEstadoRequest struct {
	Estado string `json:"estado" binding:"required,oneof=pagado en_preparacion enviado entregado cancelado"`
}

type ItemSeguimiento struct {
	Producto string `json:"producto"`
	Cantidad int    `json:"cantidad"`
}

// Seguimiento is the public view of an order, without prices or customer data.
type Seguimiento struct {
	NumeroPedido         string            `json:"numero_pedido"`
	CodigoSeguimiento    string            `json:"codigo_seguimiento"`
	Estado               string            `json:"estado"`
	MetodoEnvio          string            `json:"metodo_envio"`
	FechaCreacion        time.Time         `json:"fecha_creacion"`
	FechaPago            *time.Time        `json:"fecha_pago"`
	FechaEntregaEstimada *time.Time        `json:"fecha_entrega_estimada"`
	FechaEntregaReal     *time.Time        `json:"fecha_entrega_real"`
	Items                []ItemSeguimiento `json:"items"`
}

// Envio holds the shipping tariff.
type Envio struct {
	Costo       decimal.Decimal
	GratisDesde decimal.Decimal
}

// Cost returns the shipping charge for a method and order subtotal.
func (e Envio) Cost(metodo string, subtotal decimal.Decimal) decimal.Decimal {
	if metodo != model.EnvioDespachoDomicilio {
		return decimal.Zero
	}
	if e.GratisDesde.IsPositive() && subtotal.GreaterThanOrEqual(e.GratisDesde) {
		return decimal.Zero
	}
	return e.Costo
}

// --- Interface ---

type PedidoService interface {
	Crear(ctx context.Context, actor Actor, req CrearPedidoRequest) (*PedidoCreado, error)
	MisPedidos(ctx context.Context, actor Actor, page, limit int) ([]model.Pedido, int64, error)
	Detalle(ctx context.Context, actor Actor, id uuid.UUID) (*model.Pedido, error)
	Cancelar(ctx context.Context, actor Actor, id uuid.UUID) (*model.Pedido, error)
	MarcarPagado(ctx context.Context, actor Actor, id uuid.UUID) (*model.Pedido, error)
	CambiarEstado(ctx context.Context, actor Actor, id uuid.UUID, req CambiarEstadoRequest) (*model.Pedido, error)
	Gestion(ctx context.Context, estado string, page, limit int) ([]model.Pedido, int64, error)
	Seguimiento(ctx context.Context, codigo string) (*Seguimiento, error)
}

type pedidoService struct {
	pedidos     repository.PedidoRepository
	cupones     repository.CuponRepository
	direcciones repository.DireccionRepository
	tx          repository.TransactionManager
	checkout    checkout
	auditor     Auditor
	email       EmailService
	notifier    Notifier
	envio       Envio
	loc         *time.Location
	now         func() time.Time
}

type PedidoDeps struct {
	Pedidos     repository.PedidoRepository
	Productos   repository.ProductoRepository
	Movimientos repository.MovimientoRepository
	Promociones repository.PromocionRepository
	Cupones     repository.CuponRepository
	Direcciones repository.DireccionRepository
	Tasas       repository.TasaImpuestoRepository
	Tx          repository.TransactionManager
	Auditor     Auditor
	Email       EmailService
	Notifier    Notifier
	Envio       Envio
	Location    *time.Location
}

func NewPedidoService(d PedidoDeps) PedidoService {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return &pedidoService{
		pedidos:     d.Pedidos,
		cupones:     d.Cupones,
		direcciones: d.Direcciones,
		tx:          d.Tx,
		checkout: checkout{
			productos:   d.Productos,
			movimientos: d.Movimientos,
			tasas:       d.Tasas,
			pricing:     pricing{promociones: d.Promociones},
		},
		auditor:  d.Auditor,
		email:    d.Email,
		notifier: notifierOrNoop(d.Notifier),
		envio:    d.Envio,
		loc:      loc,
		now:      time.Now,
	}
}

func pedidoSnapshot(p *model.Pedido) map[string]interface{} {
	return map[string]interface{}{
		"numero_pedido": p.NumeroPedido,
		"estado":        p.Estado,
		"subtotal":      p.Subtotal.String(),
		"descuento":     p.Descuento.String(),
		"costo_envio":   p.CostoEnvio.String(),
		"total":         p.Total.String(),
		"metodo_pago":   p.MetodoPago,
		"origen":        p.Origen,
		"items":         len(p.Detalles),
	}
}

// aplicarCupon validates the coupon against subtotal and consumes one use.
func aplicarCupon(ctx context.Context, cupones repository.CuponRepository, codigo string, subtotal decimal.Decimal, at time.Time) (*model.Cupon, decimal.Decimal, error) {
	cupon, err := cupones.FindByCodigo(ctx, strings.ToUpper(strings.TrimSpace(codigo)))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, decimal.Zero, apperror.Validation("Cupón no válido")
		}
		return nil, decimal.Zero, err
	}
	if !cupon.EsValido(at) {
		return nil, decimal.Zero, apperror.Validation("El cupón no es válido o ha expirado")
	}
	if subtotal.LessThan(cupon.MontoMinimo) {
		return nil, decimal.Zero, apperror.Validation("El monto mínimo para este cupón es " + pesos(cupon.MontoMinimo))
	}
	ok, err := cupones.IncrementarUso(ctx, cupon.ID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if !ok {
		return nil, decimal.Zero, apperror.Conflict("El cupón alcanzó su límite de usos")
	}
	return cupon, cupon.CalcularDescuento(subtotal), nil
}

func (s *pedidoService) direccionEnvio(ctx context.Context, clienteID uuid.UUID, raw string) (*model.DireccionEnvio, error) {
	if strings.TrimSpace(raw) != "" {
		id, err := parseID(raw, "dirección")
		if err != nil {
			return nil, err
		}
		dir, err := s.direcciones.FindForCliente(ctx, id, clienteID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, apperror.NotFound("Dirección no encontrada")
			}
			return nil, err
		}
		return dir, nil
	}
	dir, err := s.direcciones.FindPrincipal(ctx, clienteID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.Validation("Debe indicar una dirección de envío")
		}
		return nil, err
	}
	return dir, nil
}

func (s *pedidoService) Crear(ctx context.Context, actor Actor, req CrearPedidoRequest) (*PedidoCreado, error) {
	if req.MetodoEnvio != model.EnvioRetiroTienda && req.MetodoEnvio != model.EnvioDespachoDomicilio {
		return nil, apperror.Validation("Método de envío inválido")
	}

	var dir *model.DireccionEnvio
	if req.MetodoEnvio == model.EnvioDespachoDomicilio {
		var err error
		if dir, err = s.direccionEnvio(ctx, actor.ID, req.DireccionID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	pedido := &model.Pedido{
		NumeroPedido: model.NuevoNumeroPedido(now.In(s.loc)),
		ClienteID:    actor.ID,
		Estado:       model.EstadoPendiente,
		MetodoPago:   req.MetodoPago,
		MetodoEnvio:  req.MetodoEnvio,
		Origen:       model.OrigenWeb,
		Notas:        strings.TrimSpace(req.Notas),
	}
	if dir != nil {
		pedido.DireccionEnvioID = &dir.ID
		pedido.DireccionEnvio = dir.DireccionCompleta()
	}

	var bajos []*model.Producto
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		// 1. Lock products, check stock and price lines
		r, err := s.checkout.reservar(txCtx, req.Items, now)
		if err != nil {
			return err
		}
		pedido.Subtotal = r.subtotal
		pedido.Detalles = r.detalles

		// 2. Coupon
		if strings.TrimSpace(req.Cupon) != "" {
			cupon, descuento, err := aplicarCupon(txCtx, s.cupones, req.Cupon, r.subtotal, now)
			if err != nil {
				return err
			}
			pedido.CuponID = &cupon.ID
			pedido.Descuento = descuento
		}

		// 3. Totals
		base := pedido.Subtotal.Sub(pedido.Descuento)
		pedido.CostoEnvio = s.envio.Cost(pedido.MetodoEnvio, pedido.Subtotal)
		if pedido.Impuesto, err = s.checkout.impuesto(txCtx, base, now); err != nil {
			return err
		}
		pedido.Total = base.Add(pedido.CostoEnvio)

		// 4. Persist, then move stock
		if err := s.pedidos.Create(txCtx, pedido); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		if bajos, err = s.checkout.descontar(txCtx, actor, r, pedido); err != nil {
			return err
		}

		return s.auditor.Record(txCtx, actor, AuditEntry{
			Accion:      model.AccionCrear,
			Modelo:      "Pedido",
			IDObjeto:    pedido.ID.String(),
			Descripcion: "Creación de pedido " + pedido.NumeroPedido,
			Despues:     pedidoSnapshot(pedido),
		})
	})
	if err != nil {
		return nil, err
	}

	if full, err := s.pedidos.FindByID(ctx, pedido.ID); err == nil {
		s.email.ConfirmacionPedido(ctx, full)
	}
	s.notifier.Publish(EventNuevoPedido, map[string]interface{}{
		"pedido_id":     pedido.ID,
		"numero_pedido": pedido.NumeroPedido,
		"total":         pedido.Total,
		"origen":        pedido.Origen,
	}, model.StaffRoles...)
	for _, p := range bajos {
		alertarStockBajo(s.notifier, p)
	}

	return &PedidoCreado{
		PedidoID:     pedido.ID,
		NumeroPedido: pedido.NumeroPedido,
		Total:        pedido.Total,
		Estado:       pedido.Estado,
	}, nil
}

func (s *pedidoService) MisPedidos(ctx context.Context, actor Actor, page, limit int) ([]model.Pedido, int64, error) {
	page, limit = pageOrDefault(page, limit)
	filter := repository.PedidoFilter{Page: page, Limit: limit}
	switch actor.Rol {
	case model.RolCliente:
		filter.ClienteID = &actor.ID
	case model.RolVendedor, model.RolGerente:
	default:
		return nil, 0, apperror.Forbidden("Acceso denegado: permisos insuficientes")
	}
	return s.pedidos.List(ctx, filter)
}

func (s *pedidoService) find(ctx context.Context, id uuid.UUID) (*model.Pedido, error) {
	p, err := s.pedidos.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("Pedido no encontrado")
		}
		return nil, err
	}
	return p, nil
}

func (s *pedidoService) Detalle(ctx context.Context, actor Actor, id uuid.UUID) (*model.Pedido, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.ClienteID != actor.ID && !actor.EsStaff() {
		return nil, apperror.Forbidden("No tiene permiso para ver este pedido")
	}
	return p, nil
}

// transicionar moves a locked order to hacia, adjusting dates and stock.
func (s *pedidoService) transicionar(ctx context.Context, actor Actor, p *model.Pedido, hacia string) error {
	if !model.PuedeTransicionar(p.Estado, hacia) {
		return apperror.Conflict(fmt.Sprintf("No se puede cambiar el estado de %s a %s", p.Estado, hacia))
	}
	anterior := p.Estado
	now := s.now().UTC()

	switch hacia {
	case model.EstadoPagado:
		if p.FechaPago == nil {
			p.FechaPago = &now
		}
	case model.EstadoEnviado:
		estimada := now.AddDate(0, 0, diasEntregaEstimada)
		p.FechaEntregaEstimada = &estimada
	case model.EstadoEntregado:
		p.FechaEntregaReal = &now
	case model.EstadoCancelado:
		if anterior != model.EstadoCancelado {
			if err := s.checkout.restaurar(ctx, actor, p); err != nil {
				return err
			}
		}
	}
	p.Estado = hacia

	if err := s.pedidos.Update(ctx, p); err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return s.auditor.Record(ctx, actor, AuditEntry{
		Accion:      model.AccionCambioEstado,
		Modelo:      "Pedido",
		IDObjeto:    p.ID.String(),
		Descripcion: fmt.Sprintf("Pedido %s: %s -> %s", p.NumeroPedido, anterior, hacia),
		Antes:       map[string]string{"estado": anterior},
		Despues:     map[string]string{"estado": hacia},
	})
}

// cambiar runs a transition in its own transaction after check, then notifies.
func (s *pedidoService) cambiar(ctx context.Context, actor Actor, id uuid.UUID, hacia string, check func(*model.Pedido) error) (*model.Pedido, error) {
	var anterior string
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		p, err := s.pedidos.FindByIDForUpdate(txCtx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return apperror.NotFound("Pedido no encontrado")
			}
			return err
		}
		if check != nil {
			if err := check(p); err != nil {
				return err
			}
		}
		anterior = p.Estado
		return s.transicionar(txCtx, actor, p, hacia)
	})
	if err != nil {
		return nil, err
	}

	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if hacia == model.EstadoPagado {
		s.email.PagoConfirmado(ctx, p)
	} else {
		s.email.CambioEstado(ctx, p, anterior)
	}
	s.notifier.Publish(EventPedidoActualizado, map[string]interface{}{
		"pedido_id":       p.ID,
		"numero_pedido":   p.NumeroPedido,
		"estado_anterior": anterior,
		"estado":          p.Estado,
	}, model.StaffRoles...)
	return p, nil
}

func (s *pedidoService) Cancelar(ctx context.Context, actor Actor, id uuid.UUID) (*model.Pedido, error) {
	return s.cambiar(ctx, actor, id, model.EstadoCancelado, func(p *model.Pedido) error {
		if p.ClienteID != actor.ID {
			return apperror.Forbidden("No tiene permiso para cancelar este pedido")
		}
		if p.Estado != model.EstadoPendiente {
			return apperror.Validation("Solo se pueden cancelar pedidos pendientes")
		}
		return nil
	})
}

func (s *pedidoService) MarcarPagado(ctx context.Context, actor Actor, id uuid.UUID) (*model.Pedido, error) {
	return s.cambiar(ctx, actor, id, model.EstadoPagado, nil)
}

func (s *pedidoService) CambiarEstado(ctx context.Context, actor Actor, id uuid.UUID, req CambiarEstadoRequest) (*model.Pedido, error) {
	switch req.Estado {
	case model.EstadoPagado, model.EstadoEnPreparacion, model.EstadoEnviado, model.EstadoEntregado, model.EstadoCancelado:
	default:
		return nil, apperror.Validation("Estado inválido")
	}
	return s.cambiar(ctx, actor, id, req.Estado, nil)
}

func (s *pedidoService) Gestion(ctx context.Context, estado string, page, limit int) ([]model.Pedido, int64, error) {
	page, limit = pageOrDefault(page, limit)
	return s.pedidos.List(ctx, repository.PedidoFilter{Estado: estado, Page: page, Limit: limit})
}

func (s *pedidoService) Seguimiento(ctx context.Context, codigo string) (*Seguimiento, error) {
	if strings.TrimSpace(codigo) == "" {
		return nil, apperror.Validation("Código de seguimiento requerido")
	}
	p, err := s.pedidos.FindByNumero(ctx, model.NumeroDesdeSeguimiento(codigo))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("Código de seguimiento no encontrado")
		}
		return nil, err
	}
	items := make([]ItemSeguimiento, 0, len(p.Detalles))
	for _, d := range p.Detalles {
		nombre := ""
		if d.Producto != nil {
			nombre = d.Producto.Nombre
		}
		items = append(items, ItemSeguimiento{Producto: nombre, Cantidad: d.Cantidad})
	}
	return &Seguimiento{
		NumeroPedido:         p.NumeroPedido,
		CodigoSeguimiento:    p.CodigoSeguimiento(),
		Estado:               p.Estado,
		MetodoEnvio:          p.MetodoEnvio,
		FechaCreacion:        p.FechaCreacion,
		FechaPago:            p.FechaPago,
		FechaEntregaEstimada: p.FechaEntregaEstimada,
		FechaEntregaReal:     p.FechaEntregaReal,
		Items:                items,
	}, nil
}
