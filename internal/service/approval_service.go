package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"elixir/internal/apperror"
	"elixir/internal/model"
	"elixir/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type SolicitudRequest struct {
	Tipo        string                 `json:"tipo" binding:"required,oneof=ajuste_stock cambio_precio eliminar_producto"`
	ProductoID  string                 `json:"producto_id" binding:"required"`
	Descripcion string                 `json:"descripcion"`
	Datos       map[string]interface{} `json:"datos"`
}

type GestionarRequest struct {
	Accion    string `json:"accion" binding:"required,oneof=aprobar rechazar"`
	Respuesta string `json:"respuesta"`
}

// Notificaciones is shaped by role: managers get the pending queue, vendedores
// their freshly resolved requests.
type Notificaciones struct {
	Pendientes  int64                         `json:"pendientes"`
	Solicitudes []model.SolicitudAutorizacion `json:"solicitudes"`
}

// datosSolicitud is the typed view of SolicitudAutorizacion.Datos.
type datosSolicitud struct {
	NuevoStock  *int             `json:"nuevo_stock"`
	NuevoPrecio *decimal.Decimal `json:"nuevo_precio"`
	Motivo      string           `json:"motivo"`
}

func decodeDatos(raw []byte) (datosSolicitud, error) {
	var d datosSolicitud
	if len(raw) == 0 {
		return d, nil
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return d, apperror.Validation("Datos de la solicitud inválidos")
	}
	return d, nil
}

// --- Interface ---

type AutorizacionService interface {
	SolicitudCreator
	List(ctx context.Context, actor Actor, estado string, page, limit int) ([]model.SolicitudAutorizacion, int64, error)
	Gestionar(ctx context.Context, actor Actor, id uuid.UUID, req GestionarRequest) (*model.SolicitudAutorizacion, error)
	Notificaciones(ctx context.Context, actor Actor) (*Notificaciones, error)
}

type autorizacionService struct {
	solicitudes repository.SolicitudRepository
	productos   repository.ProductoRepository
	movimientos repository.MovimientoRepository
	tx          repository.TransactionManager
	auditor     Auditor
	notifier    Notifier
	now         func() time.Time
}

func NewAutorizacionService(
	solicitudes repository.SolicitudRepository,
	productos repository.ProductoRepository,
	movimientos repository.MovimientoRepository,
	tx repository.TransactionManager,
	auditor Auditor,
	notifier Notifier,
) AutorizacionService {
	return &autorizacionService{
		solicitudes: solicitudes,
		productos:   productos,
		movimientos: movimientos,
		tx:          tx,
		auditor:     auditor,
		notifier:    notifierOrNoop(notifier),
		now:         time.Now,
	}
}

// --- Implementation ---

func (s *autorizacionService) Solicitar(ctx context.Context, actor Actor, req SolicitudRequest) (*model.SolicitudAutorizacion, error) {
	productoID, err := parseID(req.ProductoID, "producto")
	if err != nil {
		return nil, err
	}
	producto, err := s.productos.FindByID(ctx, productoID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("Producto no encontrado")
		}
		return nil, err
	}

	datos := toJSON(req.Datos)
	parsed, err := decodeDatos(datos)
	if err != nil {
		return nil, err
	}
	switch req.Tipo {
	case model.SolicitudAjusteStock:
		if parsed.NuevoStock == nil || *parsed.NuevoStock < 0 {
			return nil, apperror.Validation("nuevo_stock debe ser mayor o igual a 0")
		}
	case model.SolicitudCambioPrecio:
		if parsed.NuevoPrecio == nil || !parsed.NuevoPrecio.IsPositive() {
			return nil, apperror.Validation("nuevo_precio debe ser mayor a 0")
		}
	case model.SolicitudEliminarProducto:
	default:
		return nil, apperror.Validation("Tipo de solicitud inválido")
	}

	descripcion := strings.TrimSpace(req.Descripcion)
	if descripcion == "" {
		descripcion = fmt.Sprintf("%s: %s", req.Tipo, producto.Nombre)
	}
	solicitud := &model.SolicitudAutorizacion{
		Tipo:          req.Tipo,
		Descripcion:   descripcion,
		Estado:        model.SolicitudPendiente,
		SolicitanteID: actor.ID,
		ProductoID:    &producto.ID,
		Datos:         datos,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.solicitudes.Create(txCtx, solicitud); err != nil {
			return fmt.Errorf("failed to create authorization request: %w", err)
		}
		return s.auditor.Record(txCtx, actor, AuditEntry{
			Accion:      model.AccionCrear,
			Modelo:      "SolicitudAutorizacion",
			IDObjeto:    solicitud.ID.String(),
			Descripcion: "Solicitud de autorización: " + descripcion,
			Despues:     req.Datos,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(EventNuevaSolicitud, map[string]interface{}{
		"solicitud_id": solicitud.ID,
		"tipo":         solicitud.Tipo,
		"producto":     producto.Nombre,
		"descripcion":  descripcion,
	}, model.RolGerente, model.RolAdminSistema)

	return s.solicitudes.FindByID(ctx, solicitud.ID)
}

func (s *autorizacionService) List(ctx context.Context, actor Actor, estado string, page, limit int) ([]model.SolicitudAutorizacion, int64, error) {
	page, limit = pageOrDefault(page, limit)
	var solicitante *uuid.UUID
	if !actor.Es(model.RolGerente, model.RolAdminSistema) {
		solicitante = &actor.ID
	}
	return s.solicitudes.List(ctx, estado, solicitante, page, limit)
}

func (s *autorizacionService) Gestionar(ctx context.Context, actor Actor, id uuid.UUID, req GestionarRequest) (*model.SolicitudAutorizacion, error) {
	aprobar := req.Accion == "aprobar"
	if !aprobar && req.Accion != "rechazar" {
		return nil, apperror.Validation("Acción inválida")
	}

	var ajustado *model.Producto
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		solicitud, err := s.solicitudes.FindByIDForUpdate(txCtx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return apperror.NotFound("Solicitud no encontrada")
			}
			return err
		}
		if solicitud.Estado != model.SolicitudPendiente {
			return apperror.Validation("La solicitud ya fue gestionada")
		}

		accion := model.AccionRechazar
		solicitud.Estado = model.SolicitudRechazada
		if aprobar {
			accion = model.AccionAprobar
			solicitud.Estado = model.SolicitudAprobada
			if ajustado, err = s.aplicar(txCtx, actor, solicitud); err != nil {
				return err
			}
		}

		now := s.now().UTC()
		solicitud.AprobadorID = actor.usuarioID()
		solicitud.Respuesta = strings.TrimSpace(req.Respuesta)
		solicitud.FechaRespuesta = &now
		solicitud.VistaPorSolicitante = false
		if err := s.solicitudes.Update(txCtx, solicitud); err != nil {
			return fmt.Errorf("failed to update authorization request: %w", err)
		}

		return s.auditor.Record(txCtx, actor, AuditEntry{
			Accion:      accion,
			Modelo:      "SolicitudAutorizacion",
			IDObjeto:    solicitud.ID.String(),
			Descripcion: fmt.Sprintf("Solicitud %s %s", solicitud.Tipo, solicitud.Estado),
			Despues:     map[string]string{"estado": solicitud.Estado, "respuesta": solicitud.Respuesta},
		})
	})
	if err != nil {
		return nil, err
	}

	alertarStockBajo(s.notifier, ajustado)
	solicitud, err := s.solicitudes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(EventSolicitudResuelta, map[string]interface{}{
		"solicitud_id":   solicitud.ID,
		"solicitante_id": solicitud.SolicitanteID,
		"tipo":           solicitud.Tipo,
		"estado":         solicitud.Estado,
		"respuesta":      solicitud.Respuesta,
	}, model.RolVendedor, model.RolGerente, model.RolAdminSistema)
	return solicitud, nil
}

// aplicar executes the approved change inside the caller's transaction.
// It returns the product when its stock changed.
func (s *autorizacionService) aplicar(ctx context.Context, actor Actor, solicitud *model.SolicitudAutorizacion) (*model.Producto, error) {
	if solicitud.ProductoID == nil {
		return nil, apperror.Validation("La solicitud no tiene producto asociado")
	}
	datos, err := decodeDatos(solicitud.Datos)
	if err != nil {
		return nil, err
	}

	switch solicitud.Tipo {
	case model.SolicitudAjusteStock:
		if datos.NuevoStock == nil || *datos.NuevoStock < 0 {
			return nil, apperror.Validation("nuevo_stock debe ser mayor o igual a 0")
		}
		motivo := datos.Motivo
		if motivo == "" {
			motivo = "Solicitud aprobada"
		}
		return ajustarStock(ctx, s.productos, s.movimientos, s.auditor, actor, *solicitud.ProductoID, *datos.NuevoStock, motivo)

	case model.SolicitudCambioPrecio:
		if datos.NuevoPrecio == nil || !datos.NuevoPrecio.IsPositive() {
			return nil, apperror.Validation("nuevo_precio debe ser mayor a 0")
		}
		p, err := s.productos.FindByIDForUpdate(ctx, *solicitud.ProductoID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, apperror.NotFound("Producto no encontrado")
			}
			return nil, err
		}
		anterior := p.Precio
		p.Precio = *datos.NuevoPrecio
		if err := s.productos.Update(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to update price: %w", err)
		}
		return nil, s.auditor.Record(ctx, actor, AuditEntry{
			Accion:      model.AccionActualizar,
			Modelo:      "Producto",
			IDObjeto:    p.ID.String(),
			Descripcion: fmt.Sprintf("Cambio de precio de %s: %s -> %s", p.Nombre, anterior.String(), p.Precio.String()),
			Antes:       map[string]string{"precio": anterior.String()},
			Despues:     map[string]string{"precio": p.Precio.String()},
		})

	case model.SolicitudEliminarProducto:
		p, err := s.productos.FindByIDForUpdate(ctx, *solicitud.ProductoID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, apperror.NotFound("Producto no encontrado")
			}
			return nil, err
		}
		return nil, eliminarProducto(ctx, s.productos, s.auditor, actor, p)
	}
	return nil, apperror.Validation("Tipo de solicitud inválido")
}

func (s *autorizacionService) Notificaciones(ctx context.Context, actor Actor) (*Notificaciones, error) {
	if actor.Es(model.RolGerente, model.RolAdminSistema) {
		total, err := s.solicitudes.CountPendientes(ctx)
		if err != nil {
			return nil, err
		}
		ultimas, _, err := s.solicitudes.List(ctx, model.SolicitudPendiente, nil, 1, 10)
		if err != nil {
			return nil, err
		}
		return &Notificaciones{Pendientes: total, Solicitudes: ultimas}, nil
	}

	resueltas, err := s.solicitudes.NoVistas(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(resueltas))
	for _, r := range resueltas {
		ids = append(ids, r.ID)
	}
	if err := s.solicitudes.MarcarVistas(ctx, ids); err != nil {
		return nil, err
	}
	return &Notificaciones{Solicitudes: resueltas}, nil
}
