package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"elixir/internal/apperror"
	"elixir/internal/model"
	"elixir/internal/repository"

	"github.com/google/uuid"
)

// AuditEntry describes one mutating business operation.
type AuditEntry struct {
	Accion      string
	Modelo      string
	IDObjeto    string
	Descripcion string
	Antes       interface{}
	Despues     interface{}
}

// Auditor writes audit rows. Called inside a transaction it joins it.
type Auditor interface {
	Record(ctx context.Context, actor Actor, e AuditEntry) error
}

type AuditLogDetail struct {
	model.AuditLog
	IntegridadValida bool `json:"integridad_valida"`
}

type ConteoDiario struct {
	Fecha    string `json:"fecha"`
	Cantidad int64  `json:"cantidad"`
}

type AuditStats struct {
	Total         int64               `json:"total"`
	PorTipoAccion []repository.Conteo `json:"por_tipo_accion"`
	PorModelo     []repository.Conteo `json:"por_modelo"`
	TopUsuarios   []repository.Conteo `json:"top_usuarios"`
	UltimosDias   []ConteoDiario      `json:"ultimos_7_dias"`
}

type AuditService interface {
	Auditor
	List(ctx context.Context, filter repository.AuditFilter) ([]model.AuditLog, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*AuditLogDetail, error)
	Estadisticas(ctx context.Context) (*AuditStats, error)
	ExportCSV(ctx context.Context, actor Actor, filter repository.AuditFilter, w io.Writer) error
}

type auditService struct {
	repo repository.AuditRepository
	loc  *time.Location
	now  func() time.Time
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository, loc *time.Location) AuditService {
	return &auditService{repo: repo, loc: loc, now: time.Now}
}

func (s *auditService) Record(ctx context.Context, actor Actor, e AuditEntry) error {
	entry := model.AuditLog{
		UsuarioID:       actor.usuarioID(),
		TipoAccion:      e.Accion,
		Modelo:          e.Modelo,
		IDObjeto:        e.IDObjeto,
		Descripcion:     e.Descripcion,
		DatosAnteriores: toJSON(e.Antes),
		DatosNuevos:     toJSON(e.Despues),
		IPAddress:       actor.IP,
		UserAgent:       actor.UserAgent,
	}
	entry.Sellar(s.now())
	if err := s.repo.Log(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *auditService) List(ctx context.Context, filter repository.AuditFilter) ([]model.AuditLog, int64, error) {
	filter.Page, filter.Limit = pageOrDefault(filter.Page, filter.Limit)
	return s.repo.List(ctx, filter)
}

func (s *auditService) Get(ctx context.Context, id uuid.UUID) (*AuditLogDetail, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("Registro de auditoría no encontrado")
		}
		return nil, err
	}
	return &AuditLogDetail{AuditLog: *entry, IntegridadValida: entry.IntegridadValida()}, nil
}

func (s *auditService) Estadisticas(ctx context.Context) (*AuditStats, error) {
	stats := &AuditStats{}
	var err error

	if _, stats.Total, err = s.repo.List(ctx, repository.AuditFilter{Page: 1, Limit: 1}); err != nil {
		return nil, err
	}
	if stats.PorTipoAccion, err = s.repo.CountBy(ctx, "tipo_accion"); err != nil {
		return nil, err
	}
	if stats.PorModelo, err = s.repo.CountBy(ctx, "modelo"); err != nil {
		return nil, err
	}
	if stats.TopUsuarios, err = s.repo.TopUsuarios(ctx, 5); err != nil {
		return nil, err
	}

	hoy := inicioDelDia(s.now(), s.loc)
	desde := hoy.AddDate(0, 0, -6)
	stamps, err := s.repo.TimestampsDesde(ctx, desde)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, 7)
	for _, ts := range stamps {
		counts[ts.In(s.loc).Format("2006-01-02")]++
	}
	for d := desde; !d.After(hoy); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		stats.UltimosDias = append(stats.UltimosDias, ConteoDiario{Fecha: key, Cantidad: counts[key]})
	}
	return stats, nil
}

// ExportCSV writes every log matching the filter and audits the export itself.
func (s *auditService) ExportCSV(ctx context.Context, actor Actor, filter repository.AuditFilter, w io.Writer) error {
	filter.Page, filter.Limit = 1, 0
	logs, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{"id", "timestamp", "usuario", "tipo_accion", "modelo", "id_objeto", "descripcion", "ip_address", "hash_integridad", "integridad_valida"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, l := range logs {
		usuario := "Sistema"
		if l.Usuario != nil {
			usuario = l.Usuario.Email
		}
		valida := "no"
		if l.IntegridadValida() {
			valida = "si"
		}
		row := []string{
			l.ID.String(),
			l.Timestamp.In(s.loc).Format("2006-01-02 15:04:05"),
			usuario,
			l.TipoAccion,
			l.Modelo,
			l.IDObjeto,
			l.Descripcion,
			l.IPAddress,
			l.HashIntegridad,
			valida,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	return s.Record(ctx, actor, AuditEntry{
		Accion:      model.AccionExportar,
		Modelo:      "AuditLog",
		Descripcion: fmt.Sprintf("Exportación de %d registros de auditoría", len(logs)),
	})
}
