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

// --- DTOs ---

type TasaRequest struct {
	Nombre       string `json:"nombre" binding:"required,max=50"`
	Tasa         string `json:"tasa" binding:"required"`          // decimal string, e.g. "0.19"
	VigenteDesde string `json:"vigente_desde" binding:"required"` // YYYY-MM-DD
	VigenteHasta string `json:"vigente_hasta"`                    // YYYY-MM-DD, empty = open ended
	Descripcion  string `json:"descripcion"`
}

type TasaActiva struct {
	Tasa    decimal.Decimal `json:"tasa"`
	Nombre  string          `json:"nombre"`
	TasaID  *uuid.UUID      `json:"tasa_id"`
	Defecto bool            `json:"por_defecto"`
}

// --- Interface ---

type ImpuestoService interface {
	Listar(ctx context.Context) ([]model.TasaImpuesto, error)
	Crear(ctx context.Context, actor Actor, req TasaRequest) (*model.TasaImpuesto, error)
	Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req TasaRequest) (*model.TasaImpuesto, error)
	Eliminar(ctx context.Context, actor Actor, id uuid.UUID) error
	Vigente(ctx context.Context, at time.Time) (*TasaActiva, error)
}

type impuestoService struct {
	repo    repository.TasaImpuestoRepository
	tx      repository.TransactionManager
	auditor Auditor
	loc     *time.Location
}

func NewImpuestoService(repo repository.TasaImpuestoRepository, tx repository.TransactionManager, auditor Auditor, loc *time.Location) ImpuestoService {
	if loc == nil {
		loc = time.UTC
	}
	return &impuestoService{repo: repo, tx: tx, auditor: auditor, loc: loc}
}

// --- Implementation ---

func (s *impuestoService) Listar(ctx context.Context) ([]model.TasaImpuesto, error) {
	return s.repo.List(ctx)
}

// parseTasa reads the rate and the local validity dates. vigente_hasta covers its whole day.
func (s *impuestoService) parseTasa(req TasaRequest) (decimal.Decimal, time.Time, *time.Time, error) {
	tasa, err := decimal.NewFromString(strings.TrimSpace(req.Tasa))
	if err != nil {
		return decimal.Zero, time.Time{}, nil, apperror.Validation("Tasa inválida")
	}
	if tasa.IsNegative() || tasa.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, time.Time{}, nil, apperror.Validation("La tasa debe estar entre 0 y 1")
	}
	desde, err := parseFecha(req.VigenteDesde, s.loc)
	if err != nil {
		return decimal.Zero, time.Time{}, nil, err
	}
	var hasta *time.Time
	if strings.TrimSpace(req.VigenteHasta) != "" {
		h, err := parseFecha(req.VigenteHasta, s.loc)
		if err != nil {
			return decimal.Zero, time.Time{}, nil, err
		}
		if h.Before(desde) {
			return decimal.Zero, time.Time{}, nil, apperror.Validation("vigente_hasta debe ser posterior a vigente_desde")
		}
		h = h.AddDate(0, 0, 1).Add(-time.Second).UTC()
		hasta = &h
	}
	return tasa, desde.UTC(), hasta, nil
}

func (s *impuestoService) Crear(ctx context.Context, actor Actor, req TasaRequest) (*model.TasaImpuesto, error) {
	tasa, desde, hasta, err := s.parseTasa(req)
	if err != nil {
		return nil, err
	}
	t := &model.TasaImpuesto{
		Nombre:       strings.TrimSpace(req.Nombre),
		Tasa:         tasa,
		VigenteDesde: desde,
		VigenteHasta: hasta,
		Descripcion:  req.Descripcion,
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, t); err != nil {
			return fmt.Errorf("failed to create tax rate: %w", err)
		}
		return s.auditor.Record(txCtx, actor, AuditEntry{
			Accion:      model.AccionCrear,
			Modelo:      "TasaImpuesto",
			IDObjeto:    t.ID.String(),
			Descripcion: t.Nombre + " " + t.Tasa.StringFixed(4),
			Despues:     req,
		})
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *impuestoService) find(ctx context.Context, id uuid.UUID) (*model.TasaImpuesto, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("Tasa de impuesto no encontrada")
		}
		return nil, err
	}
	return t, nil
}

func (s *impuestoService) Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req TasaRequest) (*model.TasaImpuesto, error) {
	t, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	antes := *t
	tasa, desde, hasta, err := s.parseTasa(req)
	if err != nil {
		return nil, err
	}
	t.Nombre = strings.TrimSpace(req.Nombre)
	t.Tasa = tasa
	t.VigenteDesde = desde
	t.VigenteHasta = hasta
	t.Descripcion = req.Descripcion

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, t); err != nil {
			return fmt.Errorf("failed to update tax rate: %w", err)
		}
		return s.auditor.Record(txCtx, actor, AuditEntry{
			Accion:      model.AccionActualizar,
			Modelo:      "TasaImpuesto",
			IDObjeto:    t.ID.String(),
			Descripcion: t.Nombre + " " + t.Tasa.StringFixed(4),
			Antes:       antes,
			Despues:     t,
		})
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *impuestoService) Eliminar(ctx context.Context, actor Actor, id uuid.UUID) error {
	t, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, t.ID); err != nil {
			return fmt.Errorf("failed to delete tax rate: %w", err)
		}
		return s.auditor.Record(txCtx, actor, AuditEntry{
			Accion:      model.AccionEliminar,
			Modelo:      "TasaImpuesto",
			IDObjeto:    t.ID.String(),
			Descripcion: t.Nombre + " " + t.Tasa.StringFixed(4),
			Antes:       t,
		})
	})
}

// Vigente is the rate applying at the given instant, DefaultIVA when none covers it.
func (s *impuestoService) Vigente(ctx context.Context, at time.Time) (*TasaActiva, error) {
	t, err := s.repo.FindVigente(ctx, at.UTC())
	if err != nil {
		if repository.IsNotFound(err) {
			return &TasaActiva{Tasa: model.DefaultIVA, Nombre: "IVA", Defecto: true}, nil
		}
		return nil, err
	}
	return &TasaActiva{Tasa: t.Tasa, Nombre: t.Nombre, TasaID: &t.ID}, nil
}
