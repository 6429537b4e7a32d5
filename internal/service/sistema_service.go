package service

import (
	"context"
	"time"

	"elixir/internal/cache"
	"elixir/internal/model"
	"elixir/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EventoSistema is an operational event persisted as a LogSistema row.
type EventoSistema struct {
	Nivel     string
	Categoria string
	Mensaje   string
	Extra     map[string]interface{}
	UsuarioID *uuid.UUID
	IP        string
	UserAgent string
	Modulo    string
	Funcion   string
}

// SystemLogger persists operational events. It never fails the caller.
type SystemLogger interface {
	Registrar(ctx context.Context, e EventoSistema)
}

type EstadoComponente struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type EstadisticasSistema struct {
	LogsPorNivel24h []repository.Conteo `json:"logs_por_nivel_24h"`
	TotalUsuarios   int64               `json:"total_usuarios"`
	TotalProductos  int64               `json:"total_productos"`
	TotalPedidos    int64               `json:"total_pedidos"`
	Visitas7d       int64               `json:"visitas_7d"`
	BaseDatos       EstadoComponente    `json:"base_datos"`
	Cache           EstadoComponente    `json:"cache"`
	EmailsFallidos  int64               `json:"emails_fallidos"`
}

type SistemaService interface {
	SystemLogger
	ListLogs(ctx context.Context, filter repository.LogFilter) ([]model.LogSistema, int64, error)
	Estadisticas(ctx context.Context) (*EstadisticasSistema, error)
	Backup(ctx context.Context, actor Actor) (*repository.Backup, error)
}

type sistemaService struct {
	repo    repository.SistemaRepository
	stats   repository.StatisticsRepository
	cache   cache.Cache
	dlq     DLQReporter
	auditor Auditor
}

func NewSistemaService(repo repository.SistemaRepository, stats repository.StatisticsRepository, c cache.Cache, dlq DLQReporter, auditor Auditor) SistemaService {
	return &sistemaService{repo: repo, stats: stats, cache: c, dlq: dlq, auditor: auditor}
}

func zerologLevel(nivel string) zerolog.Level {
	switch nivel {
	case model.NivelDebug:
		return zerolog.DebugLevel
	case model.NivelWarning:
		return zerolog.WarnLevel
	case model.NivelError:
		return zerolog.ErrorLevel
	case model.NivelCritical:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (s *sistemaService) Registrar(ctx context.Context, e EventoSistema) {
	if e.Nivel == "" {
		e.Nivel = model.NivelInfo
	}
	if e.Categoria == "" {
		e.Categoria = model.CategoriaSistema
	}
	log.WithLevel(zerologLevel(e.Nivel)).
		Str("categoria", e.Categoria).
		Fields(e.Extra).
		Msg(e.Mensaje)

	entry := model.LogSistema{
		Nivel:      e.Nivel,
		Categoria:  e.Categoria,
		Mensaje:    e.Mensaje,
		DatosExtra: toJSON(e.Extra),
		UsuarioID:  e.UsuarioID,
		IPAddress:  e.IP,
		UserAgent:  e.UserAgent,
		Modulo:     e.Modulo,
		Funcion:    e.Funcion,
	}
	if err := s.repo.CreateLog(ctx, &entry); err != nil {
		log.Error().Err(err).Msg("failed to persist system log")
	}
}

func (s *sistemaService) ListLogs(ctx context.Context, filter repository.LogFilter) ([]model.LogSistema, int64, error) {
	filter.Page, filter.Limit = pageOrDefault(filter.Page, filter.Limit)
	return s.repo.ListLogs(ctx, filter)
}

func (s *sistemaService) Estadisticas(ctx context.Context) (*EstadisticasSistema, error) {
	now := time.Now()
	out := &EstadisticasSistema{}
	var err error

	if out.LogsPorNivel24h, err = s.repo.LogsPorNivelDesde(ctx, now.Add(-24*time.Hour)); err != nil {
		return nil, err
	}
	porRol, err := s.stats.UsuariosPorRol(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range porRol {
		out.TotalUsuarios += n
	}
	if out.TotalProductos, _, _, err = s.stats.ContarProductos(ctx); err != nil {
		return nil, err
	}
	porEstado, err := s.stats.PedidosPorEstado(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range porEstado {
		out.TotalPedidos += n
	}
	if out.Visitas7d, err = s.repo.CountVisitasDesde(ctx, now.AddDate(0, 0, -7)); err != nil {
		return nil, err
	}

	out.BaseDatos = componente(s.repo.Ping(ctx))
	if s.cache != nil {
		out.Cache = componente(s.cache.Ping(ctx))
	}
	if s.dlq != nil {
		n, dlqErr := s.dlq.DLQLength(ctx)
		if dlqErr != nil {
			log.Warn().Err(dlqErr).Msg("could not read email DLQ length")
		}
		out.EmailsFallidos = n
	}
	return out, nil
}

func componente(err error) EstadoComponente {
	if err != nil {
		return EstadoComponente{OK: false, Error: err.Error()}
	}
	return EstadoComponente{OK: true}
}

func (s *sistemaService) Backup(ctx context.Context, actor Actor) (*repository.Backup, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.auditor.Record(ctx, actor, AuditEntry{
		Accion:      model.AccionExportar,
		Modelo:      "Backup",
		Descripcion: "Descarga de respaldo del catálogo",
	}); err != nil {
		return nil, err
	}
	return snap, nil
}
