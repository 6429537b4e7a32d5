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

type CuponRequest struct {
	Codigo              string           `json:"codigo" binding:"required,max=50"`
	Descripcion         string           `json:"descripcion"`
	TipoDescuento       string           `json:"tipo_descuento" binding:"required,oneof=porcentaje monto"`
	DescuentoPorcentaje *decimal.Decimal `json:"descuento_porcentaje" swaggertype:"number"`
	DescuentoMonto      *decimal.Decimal `json:"descuento_monto" swaggertype:"number"`
	MontoMinimo         *decimal.Decimal `json:"monto_minimo" swaggertype:"number"`
	FechaInicio         time.Time        `json:"fecha_inicio" binding:"required"`
	FechaFin            time.Time        `json:"fecha_fin" binding:"required"`
	UsosMaximos         int              `json:"usos_maximos" binding:"required,gt=0"`
	Activo              *bool            `json:"activo"`
}

type ValidarCuponRequest struct {
	Codigo string          `json:"codigo" binding:"required"`
	Monto  decimal.Decimal `json:"monto" swaggertype:"number"`
}

type ValidacionCupon struct {
	Valido            bool            `json:"valido"`
	Descuento         decimal.Decimal `json:"descuento"`
	TotalConDescuento decimal.Decimal `json:"total_con_descuento"`
	Mensaje           string          `json:"mensaje"`
}

type PromocionRequest struct {
	ProductoID          string          `json:"producto_id" binding:"required"`
	Nombre              string          `json:"nombre" binding:"max=150"`
	DescuentoPorcentaje decimal.Decimal `json:"descuento_porcentaje" swaggertype:"number"`
	FechaInicio         time.Time       `json:"fecha_inicio" binding:"required"`
	FechaFin            time.Time       `json:"fecha_fin" binding:"required"`
	Activa              *bool           `json:"activa"`
}

type DescuentoService interface {
	ListarCupones(ctx context.Context, page, limit int) ([]model.Cupon, int64, error)
	CrearCupon(ctx context.Context, actor Actor, req CuponRequest) (*model.Cupon, error)
	ActualizarCupon(ctx context.Context, actor Actor, id uuid.UUID, req CuponRequest) (*model.Cupon, error)
	EliminarCupon(ctx context.Context, actor Actor, id uuid.UUID) error
	ValidarCupon(ctx context.Context, req ValidarCuponRequest) (*ValidacionCupon, error)

	ListarPromociones(ctx context.Context, productoID *uuid.UUID, page, limit int) ([]model.PromocionProducto, int64, error)
	CrearPromocion(ctx context.Context, actor Actor, req PromocionRequest) (*model.PromocionProducto, error)
	ActualizarPromocion(ctx context.Context, actor Actor, id uuid.UUID, req PromocionRequest) (*model.PromocionProducto, error)
	EliminarPromocion(ctx context.Context, actor Actor, id uuid.UUID) error
}

type descuentoService struct {
	cupones     repository.CuponRepository
	promociones repository.PromocionRepository
	productos   repository.ProductoRepository
	tx          repository.TransactionManager
	auditor     Auditor
	now         func() time.Time
}

func NewDescuentoService(
	cupones repository.CuponRepository,
	promociones repository.PromocionRepository,
	productos repository.ProductoRepository,
	tx repository.TransactionManager,
	auditor Auditor,
) DescuentoService {
	return &descuentoService{
		cupones:     cupones,
		promociones: promociones,
		productos:   productos,
		tx:          tx,
		auditor:     auditor,
		now:         time.Now,
	}
}

var cienPorCiento = decimal.NewFromInt(100)

// promocionMaxima caps a promotion's discount percentage.
var promocionMaxima = decimal.NewFromInt(90)

func (s *descuentoService) record(ctx context.Context, actor Actor, accion, modelo string, id uuid.UUID, desc string, antes, despues interface{}) error {
	return s.auditor.Record(ctx, actor, AuditEntry{
		Accion:      accion,
		Modelo:      modelo,
		IDObjeto:    id.String(),
		Descripcion: desc,
		Antes:       antes,
		Despues:     despues,
	})
}

// --- Cupones ---

func (s *descuentoService) ListarCupones(ctx context.Context, page, limit int) ([]model.Cupon, int64, error) {
	page, limit = pageOrDefault(page, limit)
	return s.cupones.List(ctx, page, limit)
}

// fillCupon validates req and copies it onto c.
func fillCupon(c *model.Cupon, req CuponRequest) error {
	codigo := strings.ToUpper(strings.TrimSpace(req.Codigo))
	if codigo == "" {
		return apperror.Validation("El código es obligatorio")
	}
	if !req.FechaFin.After(req.FechaInicio) {
		return apperror.Validation("La fecha de fin debe ser posterior a la fecha de inicio")
	}
	if req.UsosMaximos <= 0 {
		return apperror.Validation("usos_maximos debe ser mayor a 0")
	}

	c.Codigo = codigo
	c.Descripcion = req.Descripcion
	c.TipoDescuento = req.TipoDescuento
	c.DescuentoPorcentaje = decimal.Zero
	c.DescuentoMonto = decimal.Zero
	switch req.TipoDescuento {
	case model.DescuentoPorcentaje:
		if req.DescuentoPorcentaje == nil || !req.DescuentoPorcentaje.IsPositive() || req.DescuentoPorcentaje.GreaterThan(cienPorCiento) {
			return apperror.Validation("El porcentaje de descuento debe estar entre 0 y 100")
		}
		c.DescuentoPorcentaje = *req.DescuentoPorcentaje
	case model.DescuentoMonto:
		if req.DescuentoMonto == nil || !req.DescuentoMonto.IsPositive() {
			return apperror.Validation("El monto de descuento debe ser mayor a 0")
		}
		c.DescuentoMonto = *req.DescuentoMonto
	default:
		return apperror.Validation("Tipo de descuento inválido")
	}

	c.MontoMinimo = decimal.Zero
	if req.MontoMinimo != nil {
		if req.MontoMinimo.IsNegative() {
			return apperror.Validation("El monto mínimo no puede ser negativo")
		}
		c.MontoMinimo = *req.MontoMinimo
	}
	if req.UsosMaximos < c.UsosActuales {
		return apperror.Validation("usos_maximos no puede ser menor a los usos actuales")
	}
	c.FechaInicio = req.FechaInicio.UTC()
	c.FechaFin = req.FechaFin.UTC()
	c.UsosMaximos = req.UsosMaximos
	if req.Activo != nil {
		c.Activo = *req.Activo
	}
	return nil
}

func (s *descuentoService) CrearCupon(ctx context.Context, actor Actor, req CuponRequest) (*model.Cupon, error) {
	c := &model.Cupon{Activo: true, CreadoPorID: actor.usuarioID()}
	if err := fillCupon(c, req); err != nil {
		return nil, err
	}
	if exists, err := s.cupones.CodigoExists(ctx, c.Codigo, nil); err != nil {
		return nil, err
	} else if exists {
		return nil, apperror.Conflict("Ya existe un cupón con el código " + c.Codigo)
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.cupones.Create(txCtx, c); err != nil {
			return fmt.Errorf("failed to create coupon: %w", err)
		}
		return s.record(txCtx, actor, model.AccionCrear, "Cupon", c.ID, "Creación de cupón "+c.Codigo, nil, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *descuentoService) findCupon(ctx context.Context, id uuid.UUID) (*model.Cupon, error) {
	c, err := s.cupones.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("Cupón no encontrado")
		}
		return nil, err
	}
	return c, nil
}

func (s *descuentoService) ActualizarCupon(ctx context.Context, actor Actor, id uuid.UUID, req CuponRequest) (*model.Cupon, error) {
	c, err := s.findCupon(ctx, id)
	if err != nil {
		return nil, err
	}
	antes := *c
	if err := fillCupon(c, req); err != nil {
		return nil, err
	}
	if exists, err := s.cupones.CodigoExists(ctx, c.Codigo, &c.ID); err != nil {
		return nil, err
	} else if exists {
		return nil, apperror.Conflict("Ya existe un cupón con el código " + c.Codigo)
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.cupones.Update(txCtx, c); err != nil {
			return fmt.Errorf("failed to update coupon: %w", err)
		}
		return s.record(txCtx, actor, model.AccionActualizar, "Cupon", c.ID, "Actualización de cupón "+c.Codigo, antes, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *descuentoService) EliminarCupon(ctx context.Context, actor Actor, id uuid.UUID) error {
	c, err := s.findCupon(ctx, id)
	if err != nil {
		return err
	}
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.cupones.Delete(txCtx, c.ID); err != nil {
			return fmt.Errorf("failed to delete coupon: %w", err)
		}
		return s.record(txCtx, actor, model.AccionEliminar, "Cupon", c.ID, "Eliminación de cupón "+c.Codigo, c, nil)
	})
}

// ValidarCupon previews a coupon without consuming it. An unusable coupon is
// reported in the result, not as an error.
func (s *descuentoService) ValidarCupon(ctx context.Context, req ValidarCuponRequest) (*ValidacionCupon, error) {
	res := &ValidacionCupon{TotalConDescuento: req.Monto}
	c, err := s.cupones.FindByCodigo(ctx, strings.ToUpper(strings.TrimSpace(req.Codigo)))
	if err != nil {
		if repository.IsNotFound(err) {
			res.Mensaje = "Cupón no válido"
			return res, nil
		}
		return nil, err
	}
	if !c.EsValido(s.now()) {
		res.Mensaje = "El cupón no es válido o ha expirado"
		return res, nil
	}
	if req.Monto.LessThan(c.MontoMinimo) {
		res.Mensaje = "El monto mínimo para este cupón es " + pesos(c.MontoMinimo)
		return res, nil
	}
	res.Valido = true
	res.Descuento = c.CalcularDescuento(req.Monto)
	res.TotalConDescuento = req.Monto.Sub(res.Descuento)
	res.Mensaje = "Cupón aplicado"
	return res, nil
}

// --- Promociones ---

func (s *descuentoService) ListarPromociones(ctx context.Context, productoID *uuid.UUID, page, limit int) ([]model.PromocionProducto, int64, error) {
	page, limit = pageOrDefault(page, limit)
	return s.promociones.List(ctx, productoID, page, limit)
}

func (s *descuentoService) fillPromocion(ctx context.Context, p *model.PromocionProducto, req PromocionRequest) error {
	productoID, err := parseID(req.ProductoID, "producto")
	if err != nil {
		return err
	}
	if _, err := s.productos.FindByID(ctx, productoID); err != nil {
		if repository.IsNotFound(err) {
			return apperror.NotFound("Producto no encontrado")
		}
		return err
	}
	if !req.DescuentoPorcentaje.IsPositive() || req.DescuentoPorcentaje.GreaterThan(promocionMaxima) {
		return apperror.Validation("El porcentaje de descuento de una promoción debe estar entre 0 y 90")
	}
	if !req.FechaFin.After(req.FechaInicio) {
		return apperror.Validation("La fecha de fin debe ser posterior a la fecha de inicio")
	}
	p.ProductoID = productoID
	p.Nombre = strings.TrimSpace(req.Nombre)
	p.DescuentoPorcentaje = req.DescuentoPorcentaje
	p.FechaInicio = req.FechaInicio.UTC()
	p.FechaFin = req.FechaFin.UTC()
	if req.Activa != nil {
		p.Activa = *req.Activa
	}
	return nil
}

func (s *descuentoService) CrearPromocion(ctx context.Context, actor Actor, req PromocionRequest) (*model.PromocionProducto, error) {
	p := &model.PromocionProducto{Activa: true}
	if err := s.fillPromocion(ctx, p, req); err != nil {
		return nil, err
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.promociones.Create(txCtx, p); err != nil {
			return fmt.Errorf("failed to create promotion: %w", err)
		}
		return s.record(txCtx, actor, model.AccionCrear, "PromocionProducto", p.ID, "Creación de promoción "+p.Nombre, nil, p)
	})
	if err != nil {
		return nil, err
	}
	return s.promociones.FindByID(ctx, p.ID)
}

func (s *descuentoService) findPromocion(ctx context.Context, id uuid.UUID) (*model.PromocionProducto, error) {
	p, err := s.promociones.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("Promoción no encontrada")
		}
		return nil, err
	}
	return p, nil
}

func (s *descuentoService) ActualizarPromocion(ctx context.Context, actor Actor, id uuid.UUID, req PromocionRequest) (*model.PromocionProducto, error) {
	p, err := s.findPromocion(ctx, id)
	if err != nil {
		return nil, err
	}
	antes := *p
	antes.Producto = nil
	if err := s.fillPromocion(ctx, p, req); err != nil {
		return nil, err
	}
	p.Producto = nil
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.promociones.Update(txCtx, p); err != nil {
			return fmt.Errorf("failed to update promotion: %w", err)
		}
		return s.record(txCtx, actor, model.AccionActualizar, "PromocionProducto", p.ID, "Actualización de promoción "+p.Nombre, antes, p)
	})
	if err != nil {
		return nil, err
	}
	return s.promociones.FindByID(ctx, p.ID)
}

func (s *descuentoService) EliminarPromocion(ctx context.Context, actor Actor, id uuid.UUID) error {
	p, err := s.findPromocion(ctx, id)
	if err != nil {
		return err
	}
	p.Producto = nil
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.promociones.Delete(txCtx, p.ID); err != nil {
			return fmt.Errorf("failed to delete promotion: %w", err)
		}
		return s.record(txCtx, actor, model.AccionEliminar, "PromocionProducto", p.ID, "Eliminación de promoción "+p.Nombre, p, nil)
	})
}
