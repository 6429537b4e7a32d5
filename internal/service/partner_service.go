package service

import (
	"context"
	"fmt"
	"strings"

	"elixir/internal/apperror"
	"elixir/internal/model"
	"elixir/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type ProveedorRequest struct {
	Nombre    string `json:"nombre" binding:"required,max=200"`
	Rut       string `json:"rut" binding:"required,max=20"`
	Email     string `json:"email" binding:"omitempty,email"`
	Telefono  string `json:"telefono" binding:"max=20"`
	Direccion string `json:"direccion"`
	Activo    *bool  `json:"activo"`
}

// --- Interface ---

type ProveedorService interface {
	Listar(ctx context.Context, search string, page, limit int) ([]model.Proveedor, int64, error)
	Crear(ctx context.Context, actor Actor, req ProveedorRequest) (*model.Proveedor, error)
	Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req ProveedorRequest) (*model.Proveedor, error)
	Eliminar(ctx context.Context, actor Actor, id uuid.UUID) error
}

type proveedorService struct {
	repo    repository.ProveedorRepository
	tx      repository.TransactionManager
	auditor Auditor
}

func NewProveedorService(repo repository.ProveedorRepository, tx repository.TransactionManager, auditor Auditor) ProveedorService {
	return &proveedorService{repo: repo, tx: tx, auditor: auditor}
}

// normalizarRut strips dots and spaces and upper-cases the check digit: 76.123.456-k -> 76123456-K.
func normalizarRut(rut string) string {
	rut = strings.ToUpper(strings.TrimSpace(rut))
	rut = strings.ReplaceAll(rut, ".", "")
	return strings.ReplaceAll(rut, " ", "")
}

// --- Implementation ---

func (s *proveedorService) Listar(ctx context.Context, search string, page, limit int) ([]model.Proveedor, int64, error) {
	page, limit = pageOrDefault(page, limit)
	return s.repo.List(ctx, strings.TrimSpace(search), page, limit)
}

func (s *proveedorService) fill(ctx context.Context, p *model.Proveedor, req ProveedorRequest) error {
	rut := normalizarRut(req.Rut)
	if rut == "" || strings.TrimSpace(req.Nombre) == "" {
		return apperror.Validation("Nombre y RUT son obligatorios")
	}
	var exclude *uuid.UUID
	if p.ID != uuid.Nil {
		exclude = &p.ID
	}
	exists, err := s.repo.RutExists(ctx, rut, exclude)
	if err != nil {
		return err
	}
	if exists {
		return apperror.Conflict("Ya existe un proveedor con el RUT " + rut)
	}
	p.Nombre = strings.TrimSpace(req.Nombre)
	p.Rut = rut
	p.Email = strings.ToLower(strings.TrimSpace(req.Email))
	p.Telefono = strings.TrimSpace(req.Telefono)
	p.Direccion = strings.TrimSpace(req.Direccion)
	if req.Activo != nil {
		p.Activo = *req.Activo
	}
	return nil
}

func (s *proveedorService) Crear(ctx context.Context, actor Actor, req ProveedorRequest) (*model.Proveedor, error) {
	p := &model.Proveedor{Activo: true}
	if err := s.fill(ctx, p, req); err != nil {
		return nil, err
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, p); err != nil {
			return fmt.Errorf("failed to create supplier: %w", err)
		}
		return s.auditor.Record(txCtx, actor, AuditEntry{
			Accion:      model.AccionCrear,
			Modelo:      "Proveedor",
			IDObjeto:    p.ID.String(),
			Descripcion: "Creación de proveedor " + p.Nombre,
			Despues:     p,
		})
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *proveedorService) find(ctx context.Context, id uuid.UUID) (*model.Proveedor, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("Proveedor no encontrado")
		}
		return nil, err
	}
	return p, nil
}

func (s *proveedorService) Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req ProveedorRequest) (*model.Proveedor, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	antes := *p
	if err := s.fill(ctx, p, req); err != nil {
		return nil, err
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, p); err != nil {
			return fmt.Errorf("failed to update supplier: %w", err)
		}
		return s.auditor.Record(txCtx, actor, AuditEntry{
			Accion:      model.AccionActualizar,
			Modelo:      "Proveedor",
			IDObjeto:    p.ID.String(),
			Descripcion: "Actualización de proveedor " + p.Nombre,
			Antes:       antes,
			Despues:     p,
		})
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *proveedorService) Eliminar(ctx context.Context, actor Actor, id uuid.UUID) error {
	p, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, p.ID); err != nil {
			return fmt.Errorf("failed to delete supplier: %w", err)
		}
		return s.auditor.Record(txCtx, actor, AuditEntry{
			Accion:      model.AccionEliminar,
			Modelo:      "Proveedor",
			IDObjeto:    p.ID.String(),
			Descripcion: "Eliminación de proveedor " + p.Nombre,
			Antes:       p,
		})
	})
}
