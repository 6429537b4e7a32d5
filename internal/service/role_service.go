package service

import (
	"context"
	"strings"

	"elixir/internal/apperror"
	"elixir/internal/model"
	"elixir/internal/repository"

	"github.com/google/uuid"
)

type UpdateRolePermissionsRequest struct {
	Permisos []string `json:"permisos"`
}

type RoleService interface {
	ListRoles(ctx context.Context) ([]model.Role, error)
	ListPermissions(ctx context.Context) ([]model.Permission, error)
	UpdateRolePermissions(ctx context.Context, actor Actor, roleID uuid.UUID, req UpdateRolePermissionsRequest) (*model.Role, error)
}

type roleService struct {
	repo    repository.RoleRepository
	tx      repository.TransactionManager
	auditor Auditor
}

func NewRoleService(repo repository.RoleRepository, tx repository.TransactionManager, auditor Auditor) RoleService {
	return &roleService{repo: repo, tx: tx, auditor: auditor}
}

func (s *roleService) ListRoles(ctx context.Context) ([]model.Role, error) {
	return s.repo.ListAll(ctx)
}

func (s *roleService) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// UpdateRolePermissions replaces the permission set of a role. Callers must
// clear the permission cache for the returned role afterwards.
func (s *roleService) UpdateRolePermissions(ctx context.Context, actor Actor, roleID uuid.UUID, req UpdateRolePermissionsRequest) (*model.Role, error) {
	role, err := s.repo.FindByIDWithPermissions(ctx, roleID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("Rol no encontrado")
		}
		return nil, err
	}

	known, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}
	valid := make(map[string]bool, len(known))
	for _, p := range known {
		valid[p.Code] = true
	}
	var unknown []string
	for _, code := range req.Permisos {
		if !valid[code] {
			unknown = append(unknown, code)
		}
	}
	if len(unknown) > 0 {
		return nil, apperror.Validation("Permisos desconocidos: " + strings.Join(unknown, ", "))
	}

	antes := make([]string, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		antes = append(antes, p.Code)
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.UpdatePermissions(txCtx, role.ID, req.Permisos); err != nil {
			return err
		}
		return s.auditor.Record(txCtx, actor, AuditEntry{
			Accion:      model.AccionActualizar,
			Modelo:      "Role",
			IDObjeto:    role.ID.String(),
			Descripcion: "Actualización de permisos del rol " + role.Name,
			Antes:       antes,
			Despues:     req.Permisos,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByIDWithPermissions(ctx, role.ID)
}
