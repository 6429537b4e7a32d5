package service

import (
	"context"
	"time"

	"elixir/internal/cache"
	"elixir/internal/model"
	"elixir/internal/repository"

	"github.com/rs/zerolog/log"
)

const (
	dashboardGerenteKey = "dashboard:gerente"
	dashboardGerenteTTL = 60 * time.Second
)

// estadosIngresoDashboard are the revenue buckets shown to managers.
var estadosIngresoDashboard = []string{
	model.EstadoPagado,
	model.EstadoEnPreparacion,
	model.EstadoEnviado,
	model.EstadoEntregado,
}

var estadosNoCancelados = append([]string{model.EstadoPendiente}, estadosIngresoDashboard...)

type StatisticsService interface {
	DashboardGerente(ctx context.Context) (*model.DashboardGerente, error)
	VentasTotales(ctx context.Context) (*model.VentasTotales, error)
	DashboardAdmin(ctx context.Context) (*model.DashboardAdmin, error)
}

type statisticsService struct {
	stats       repository.StatisticsRepository
	revenue     repository.RevenueRepository
	solicitudes repository.SolicitudRepository
	audit       repository.AuditRepository
	cache       cache.Cache
	loc         *time.Location
	now         func() time.Time
}

func NewStatisticsService(
	stats repository.StatisticsRepository,
	revenue repository.RevenueRepository,
	solicitudes repository.SolicitudRepository,
	audit repository.AuditRepository,
	c cache.Cache,
	loc *time.Location,
) StatisticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &statisticsService{
		stats:       stats,
		revenue:     revenue,
		solicitudes: solicitudes,
		audit:       audit,
		cache:       c,
		loc:         loc,
		now:         time.Now,
	}
}

// DashboardGerente serves from cache when possible. Cache errors only degrade to a fresh computation.
func (s *statisticsService) DashboardGerente(ctx context.Context) (*model.DashboardGerente, error) {
	var cached model.DashboardGerente
	if s.cache != nil {
		ok, err := s.cache.Get(ctx, dashboardGerenteKey, &cached)
		if err != nil {
			log.Warn().Err(err).Msg("Dashboard cache read failed")
		} else if ok {
			return &cached, nil
		}
	}

	ventas, err := s.revenue.TotalNoCancelado(ctx)
	if err != nil {
		return nil, err
	}
	clientes, err := s.stats.ContarClientes(ctx)
	if err != nil {
		return nil, err
	}
	porEstado, err := s.stats.PedidosPorEstado(ctx)
	if err != nil {
		return nil, err
	}
	top, err := s.stats.TopProductos(ctx, model.EstadoCancelado, 5)
	if err != nil {
		return nil, err
	}
	ingresos, err := s.revenue.TotalPorEstado(ctx, estadosIngresoDashboard)
	if err != nil {
		return nil, err
	}

	d := &model.DashboardGerente{
		TotalVentas:       ventas.Total,
		TotalPedidos:      ventas.Cantidad,
		TotalClientes:     clientes,
		PedidosPagados:    porEstado[model.EstadoPagado],
		ProductosVendidos: top,
		IngresosPorEstado: ingresos,
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardGerenteKey, d, dashboardGerenteTTL); err != nil {
			log.Warn().Err(err).Msg("Dashboard cache write failed")
		}
	}
	return d, nil
}

func (s *statisticsService) VentasTotales(ctx context.Context) (*model.VentasTotales, error) {
	v, err := s.revenue.TotalNoCancelado(ctx)
	if err != nil {
		return nil, err
	}
	return &model.VentasTotales{TotalVentas: v.Total, TotalPedidos: v.Cantidad}, nil
}

func (s *statisticsService) DashboardAdmin(ctx context.Context) (*model.DashboardAdmin, error) {
	now := s.now()
	d := &model.DashboardAdmin{}
	var err error

	if d.UsuariosPorRol, err = s.stats.UsuariosPorRol(ctx); err != nil {
		return nil, err
	}
	if d.TotalProductos, d.ProductosActivos, d.ProductosStockBajo, err = s.stats.ContarProductos(ctx); err != nil {
		return nil, err
	}
	if d.PedidosPorEstado, err = s.stats.PedidosPorEstado(ctx); err != nil {
		return nil, err
	}
	if d.AutorizacionesPendientes, err = s.solicitudes.CountPendientes(ctx); err != nil {
		return nil, err
	}
	if d.ReclamosAbiertos, err = s.stats.ContarReclamos(ctx, model.ReclamoAbierto, model.ReclamoEnProceso); err != nil {
		return nil, err
	}

	hoy := inicioDelDia(now, s.loc)
	ventasHoy, err := s.revenue.TotalEntre(ctx, hoy, hoy.AddDate(0, 0, 1), estadosNoCancelados)
	if err != nil {
		return nil, err
	}
	d.VentasHoy, d.PedidosHoy = ventasHoy.Total, ventasHoy.Cantidad

	ayer := now.Add(-24 * time.Hour)
	if d.AuditoriaUltimas24h, err = s.audit.CountDesde(ctx, ayer); err != nil {
		return nil, err
	}
	if d.ErroresSistemaUltimas24h, err = s.stats.ContarErroresDesde(ctx, ayer); err != nil {
		return nil, err
	}
	return d, nil
}
