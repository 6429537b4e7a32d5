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

type DireccionRequest struct {
	Nombre        string `json:"nombre" binding:"required,max=100"`
	Calle         string `json:"calle" binding:"required,max=200"`
	Numero        string `json:"numero" binding:"required,max=20"`
	Departamento  string `json:"departamento" binding:"max=50"`
	Comuna        string `json:"comuna" binding:"required,max=100"`
	Ciudad        string `json:"ciudad" binding:"required,max=100"`
	Region        string `json:"region" binding:"required"`
	CodigoPostal  string `json:"codigo_postal" binding:"max=20"`
	Telefono      string `json:"telefono" binding:"max=20"`
	Instrucciones string `json:"instrucciones"`
	EsPrincipal   bool   `json:"es_principal"`
}

type DireccionResponse struct {
	model.DireccionEnvio
	RegionNombre      string `json:"region_display"`
	DireccionCompleta string `json:"direccion_completa"`
}

func toDireccionResponse(d model.DireccionEnvio) DireccionResponse {
	return DireccionResponse{DireccionEnvio: d, RegionNombre: d.RegionDisplay(), DireccionCompleta: d.DireccionCompleta()}
}

// DireccionService manages a user's own shipping addresses. Exactly one
// address per client is principal once any exists.
type DireccionService interface {
	Listar(ctx context.Context, actor Actor) ([]DireccionResponse, error)
	Crear(ctx context.Context, actor Actor, req DireccionRequest) (*DireccionResponse, error)
	Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req DireccionRequest) (*DireccionResponse, error)
	Eliminar(ctx context.Context, actor Actor, id uuid.UUID) error
	MarcarPrincipal(ctx context.Context, actor Actor, id uuid.UUID) (*DireccionResponse, error)
}

type direccionService struct {
	repo repository.DireccionRepository
	tx   repository.TransactionManager
}

func NewDireccionService(repo repository.DireccionRepository, tx repository.TransactionManager) DireccionService {
	return &direccionService{repo: repo, tx: tx}
}

func fillDireccion(d *model.DireccionEnvio, req DireccionRequest) error {
	region := strings.ToUpper(strings.TrimSpace(req.Region))
	if _, ok := model.RegionesChile[region]; !ok {
		return apperror.Validation("Región inválida")
	}
	d.Nombre = strings.TrimSpace(req.Nombre)
	d.Calle = strings.TrimSpace(req.Calle)
	d.Numero = strings.TrimSpace(req.Numero)
	d.Departamento = strings.TrimSpace(req.Departamento)
	d.Comuna = strings.TrimSpace(req.Comuna)
	d.Ciudad = strings.TrimSpace(req.Ciudad)
	d.Region = region
	d.CodigoPostal = strings.TrimSpace(req.CodigoPostal)
	d.Telefono = strings.TrimSpace(req.Telefono)
	d.Instrucciones = req.Instrucciones
	return nil
}

func (s *direccionService) find(ctx context.Context, actor Actor, id uuid.UUID) (*model.DireccionEnvio, error) {
	d, err := s.repo.FindForCliente(ctx, id, actor.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("Dirección no encontrada")
		}
		return nil, err
	}
	return d, nil
}

func (s *direccionService) Listar(ctx context.Context, actor Actor) ([]DireccionResponse, error) {
	dirs, err := s.repo.ListByCliente(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	out := make([]DireccionResponse, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, toDireccionResponse(d))
	}
	return out, nil
}

func (s *direccionService) Crear(ctx context.Context, actor Actor, req DireccionRequest) (*DireccionResponse, error) {
	d := &model.DireccionEnvio{ClienteID: actor.ID}
	if err := fillDireccion(d, req); err != nil {
		return nil, err
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		count, err := s.repo.CountByCliente(txCtx, actor.ID)
		if err != nil {
			return err
		}
		d.EsPrincipal = req.EsPrincipal || count == 0
		if d.EsPrincipal {
			if err := s.repo.ClearPrincipal(txCtx, actor.ID); err != nil {
				return err
			}
		}
		if err := s.repo.Create(txCtx, d); err != nil {
			return fmt.Errorf("failed to create address: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := toDireccionResponse(*d)
	return &resp, nil
}

func (s *direccionService) Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req DireccionRequest) (*DireccionResponse, error) {
	d, err := s.find(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := fillDireccion(d, req); err != nil {
		return nil, err
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if req.EsPrincipal && !d.EsPrincipal {
			if err := s.repo.ClearPrincipal(txCtx, actor.ID); err != nil {
				return err
			}
			d.EsPrincipal = true
		}
		return s.repo.Update(txCtx, d)
	})
	if err != nil {
		return nil, err
	}
	resp := toDireccionResponse(*d)
	return &resp, nil
}

func (s *direccionService) Eliminar(ctx context.Context, actor Actor, id uuid.UUID) error {
	d, err := s.find(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, d.ID); err != nil {
			return fmt.Errorf("failed to delete address: %w", err)
		}
		if !d.EsPrincipal {
			return nil
		}
		next, err := s.repo.Latest(txCtx, actor.ID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil
			}
			return err
		}
		return s.repo.SetPrincipal(txCtx, next.ID)
	})
}

func (s *direccionService) MarcarPrincipal(ctx context.Context, actor Actor, id uuid.UUID) (*DireccionResponse, error) {
	d, err := s.find(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.ClearPrincipal(txCtx, actor.ID); err != nil {
			return err
		}
		return s.repo.SetPrincipal(txCtx, d.ID)
	})
	if err != nil {
		return nil, err
	}
	d.EsPrincipal = true
	resp := toDireccionResponse(*d)
	return &resp, nil
}
