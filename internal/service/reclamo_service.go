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
)

type CrearReclamoRequest struct {
	Tipo        string `json:"tipo" binding:"required,oneof=producto_defectuoso producto_incorrecto envio_retrasado cobro_incorrecto atencion_cliente otro"`
	Prioridad   string `json:"prioridad" binding:"omitempty,oneof=baja media alta urgente"`
	Titulo      string `json:"titulo" binding:"required,max=200"`
	Descripcion string `json:"descripcion" binding:"required"`
	PedidoID    string `json:"pedido_relacionado_id"`
}

type ActualizarReclamoRequest struct {
	Estado      *string `json:"estado" binding:"omitempty,oneof=abierto en_proceso resuelto cerrado"`
	Prioridad   *string `json:"prioridad" binding:"omitempty,oneof=baja media alta urgente"`
	AsignadoAID *string `json:"asignado_a"`
	Resolucion  *string `json:"resolucion"`
}

type ComentarioRequest struct {
	Comentario     string `json:"comentario" binding:"required"`
	EsInterno      bool   `json:"es_interno"`
	ArchivoAdjunto string `json:"archivo_adjunto" binding:"omitempty,max=500"`
}

type SatisfaccionRequest struct {
	Puntuacion int `json:"satisfaccion" binding:"required,min=1,max=5"`
}

type ReclamoDetalle struct {
	*model.Reclamo
	TiempoResolucionHoras *float64 `json:"tiempo_resolucion_horas"`
}

type ReclamoService interface {
	Crear(ctx context.Context, actor Actor, req CrearReclamoRequest) (*model.Reclamo, error)
	Listar(ctx context.Context, actor Actor, filter repository.ReclamoFilter) ([]model.Reclamo, int64, error)
	Detalle(ctx context.Context, actor Actor, id uuid.UUID) (*ReclamoDetalle, error)
	Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req ActualizarReclamoRequest) (*ReclamoDetalle, error)
	Comentarios(ctx context.Context, actor Actor, id uuid.UUID) ([]model.ComentarioReclamo, error)
	Comentar(ctx context.Context, actor Actor, id uuid.UUID, req ComentarioRequest) (*model.ComentarioReclamo, error)
	Calificar(ctx context.Context, actor Actor, id uuid.UUID, req SatisfaccionRequest) (*ReclamoDetalle, error)
}

type reclamoService struct {
	reclamos repository.ReclamoRepository
	pedidos  repository.PedidoRepository
	usuarios repository.UsuarioRepository
	tx       repository.TransactionManager
	auditor  Auditor
	email    EmailService
	now      func() time.Time
}

func NewReclamoService(
	reclamos repository.ReclamoRepository,
	pedidos repository.PedidoRepository,
	usuarios repository.UsuarioRepository,
	tx repository.TransactionManager,
	auditor Auditor,
	email EmailService,
) ReclamoService {
	return &reclamoService{
		reclamos: reclamos,
		pedidos:  pedidos,
		usuarios: usuarios,
		tx:       tx,
		auditor:  auditor,
		email:    email,
		now:      time.Now,
	}
}

func detalleReclamo(r *model.Reclamo) *ReclamoDetalle {
	return &ReclamoDetalle{Reclamo: r, TiempoResolucionHoras: r.TiempoResolucionHoras()}
}

// load fetches a complaint the actor may see. Clients only see their own.
func (s *reclamoService) load(ctx context.Context, actor Actor, id uuid.UUID) (*model.Reclamo, error) {
	r, err := s.reclamos.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("Reclamo no encontrado")
		}
		return nil, err
	}
	if !actor.EsStaff() && r.ClienteID != actor.ID {
		return nil, apperror.Forbidden("No tiene permiso para acceder a este reclamo")
	}
	return r, nil
}

func (s *reclamoService) Crear(ctx context.Context, actor Actor, req CrearReclamoRequest) (*model.Reclamo, error) {
	r := &model.Reclamo{
		ClienteID:   actor.ID,
		Tipo:        req.Tipo,
		Prioridad:   req.Prioridad,
		Titulo:      strings.TrimSpace(req.Titulo),
		Descripcion: strings.TrimSpace(req.Descripcion),
		Estado:      model.ReclamoAbierto,
	}
	if r.Prioridad == "" {
		r.Prioridad = model.PrioridadMedia
	}
	if r.Titulo == "" || r.Descripcion == "" {
		return nil, apperror.Validation("Título y descripción son obligatorios")
	}

	pedidoID, err := parseOptionalID(req.PedidoID, "pedido")
	if err != nil {
		return nil, err
	}
	if pedidoID != nil {
		pedido, err := s.pedidos.FindByID(ctx, *pedidoID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, apperror.NotFound("Pedido no encontrado")
			}
			return nil, err
		}
		if pedido.ClienteID != actor.ID {
			return nil, apperror.Forbidden("El pedido no pertenece al cliente")
		}
		r.PedidoID = pedidoID
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.reclamos.Create(txCtx, r); err != nil {
			return fmt.Errorf("failed to create complaint: %w", err)
		}
		return s.auditor.Record(txCtx, actor, AuditEntry{
			Accion:      model.AccionCrear,
			Modelo:      "Reclamo",
			IDObjeto:    r.ID.String(),
			Descripcion: "Reclamo creado: " + r.Titulo,
			Despues:     map[string]string{"tipo": r.Tipo, "prioridad": r.Prioridad, "estado": r.Estado},
		})
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *reclamoService) Listar(ctx context.Context, actor Actor, filter repository.ReclamoFilter) ([]model.Reclamo, int64, error) {
	filter.Page, filter.Limit = pageOrDefault(filter.Page, filter.Limit)
	filter.ClienteID = nil
	if !actor.EsStaff() {
		filter.ClienteID = &actor.ID
	}
	return s.reclamos.List(ctx, filter)
}

func (s *reclamoService) Detalle(ctx context.Context, actor Actor, id uuid.UUID) (*ReclamoDetalle, error) {
	r, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if r.Comentarios, err = s.reclamos.ListComentarios(ctx, r.ID, actor.EsStaff()); err != nil {
		return nil, err
	}
	return detalleReclamo(r), nil
}

func (s *reclamoService) Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req ActualizarReclamoRequest) (*ReclamoDetalle, error) {
	r, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	antes := map[string]interface{}{"estado": r.Estado, "prioridad": r.Prioridad, "asignado_a": r.AsignadoAID}
	estadoAnterior := r.Estado

	if req.Prioridad != nil {
		r.Prioridad = *req.Prioridad
	}
	if req.Resolucion != nil {
		r.Resolucion = strings.TrimSpace(*req.Resolucion)
	}
	if req.AsignadoAID != nil {
		asignado, err := parseOptionalID(*req.AsignadoAID, "usuario")
		if err != nil {
			return nil, err
		}
		if asignado != nil {
			u, err := s.usuarios.GetByID(ctx, *asignado)
			if err != nil {
				if repository.IsNotFound(err) {
					return nil, apperror.NotFound("Usuario asignado no encontrado")
				}
				return nil, err
			}
			if !model.EsStaff(u.Rol) {
				return nil, apperror.Validation("Solo se puede asignar a personal de la tienda")
			}
		}
		r.AsignadoAID = asignado
	}
	if req.Estado != nil {
		r.Estado = *req.Estado
	}
	if r.Cerrado() {
		if r.Resolucion == "" {
			return nil, apperror.Validation("Debe indicar la resolución para cerrar el reclamo")
		}
		if r.FechaResolucion == nil {
			now := s.now().UTC()
			r.FechaResolucion = &now
		}
	} else {
		// reopened
		r.FechaResolucion = nil
	}

	r.Cliente, r.AsignadoA, r.Pedido = nil, nil, nil
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.reclamos.Update(txCtx, r); err != nil {
			return fmt.Errorf("failed to update complaint: %w", err)
		}
		return s.auditor.Record(txCtx, actor, AuditEntry{
			Accion:      model.AccionActualizar,
			Modelo:      "Reclamo",
			IDObjeto:    r.ID.String(),
			Descripcion: "Reclamo actualizado: " + r.Titulo,
			Antes:       antes,
			Despues:     map[string]interface{}{"estado": r.Estado, "prioridad": r.Prioridad, "asignado_a": r.AsignadoAID},
		})
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.reclamos.FindByID(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	if updated.Estado == model.ReclamoResuelto && estadoAnterior != model.ReclamoResuelto {
		s.email.ReclamoResuelto(ctx, updated, updated.Cliente)
	}
	return detalleReclamo(updated), nil
}

func (s *reclamoService) Comentarios(ctx context.Context, actor Actor, id uuid.UUID) ([]model.ComentarioReclamo, error) {
	r, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.reclamos.ListComentarios(ctx, r.ID, actor.EsStaff())
}

func (s *reclamoService) Comentar(ctx context.Context, actor Actor, id uuid.UUID, req ComentarioRequest) (*model.ComentarioReclamo, error) {
	r, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.EsInterno && !actor.EsStaff() {
		return nil, apperror.Forbidden("Los clientes no pueden crear comentarios internos")
	}
	texto := strings.TrimSpace(req.Comentario)
	if texto == "" {
		return nil, apperror.Validation("El comentario no puede estar vacío")
	}
	c := &model.ComentarioReclamo{
		ReclamoID:      r.ID,
		UsuarioID:      actor.ID,
		Comentario:     texto,
		EsInterno:      req.EsInterno,
		ArchivoAdjunto: strings.TrimSpace(req.ArchivoAdjunto),
	}
	if err := s.reclamos.CreateComentario(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return c, nil
}

func (s *reclamoService) Calificar(ctx context.Context, actor Actor, id uuid.UUID, req SatisfaccionRequest) (*ReclamoDetalle, error) {
	if req.Puntuacion < 1 || req.Puntuacion > 5 {
		return nil, apperror.Validation("La satisfacción debe estar entre 1 y 5")
	}
	r, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if r.ClienteID != actor.ID {
		return nil, apperror.Forbidden("Solo el cliente puede calificar su reclamo")
	}
	if !r.Cerrado() {
		return nil, apperror.Validation("Solo se pueden calificar reclamos resueltos o cerrados")
	}
	puntuacion := req.Puntuacion
	r.SatisfaccionCliente = &puntuacion
	r.Cliente, r.AsignadoA, r.Pedido = nil, nil, nil
	if err := s.reclamos.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to rate complaint: %w", err)
	}
	return detalleReclamo(r), nil
}
