package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"elixir/internal/apperror"
	"elixir/internal/infra"
	"elixir/internal/model"
	"elixir/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var emailValidator = validator.New()

// --- DTOs ---

type ReporteRequest struct {
	Nombre               string `json:"nombre" binding:"required,max=200"`
	TipoReporte          string `json:"tipo_reporte" binding:"required,oneof=ventas_general productos_top ingresos_categoria comparativa_periodos resumen_completo"`
	FechaInicio          string `json:"fecha_inicio" binding:"required" example:"2026-01-01"`
	FechaFin             string `json:"fecha_fin" binding:"required" example:"2026-01-31"`
	CategoriaID          string `json:"categoria_id"`
	EmailsDestino        string `json:"emails_destino" example:"gerencia@elixir.cl, finanzas@elixir.cl"`
	FrecuenciaAutomatica string `json:"frecuencia_automatica" binding:"omitempty,oneof=unico diario semanal mensual"`
}

// --- Interface ---

type ReporteService interface {
	Crear(ctx context.Context, actor Actor, req ReporteRequest) (*model.ReporteFinanciero, error)
	Listar(ctx context.Context, page, limit int) ([]model.ReporteFinanciero, int64, error)
	Obtener(ctx context.Context, id uuid.UUID) (*model.ReporteFinanciero, error)
	ArchivoPDF(ctx context.Context, id uuid.UUID) (string, error)
	Eliminar(ctx context.Context, actor Actor, id uuid.UUID) error
	EjecutarProgramados(ctx context.Context, now time.Time) (int, error)
}

// --- Implementation ---

type reporteService struct {
	reportes   repository.ReporteRepository
	pedidos    repository.PedidoRepository
	categorias repository.CategoriaRepository
	tx         repository.TransactionManager
	auditor    Auditor
	email      EmailService
	dir        string
	loc        *time.Location
	now        func() time.Time
}

func NewReporteService(
	reportes repository.ReporteRepository,
	pedidos repository.PedidoRepository,
	categorias repository.CategoriaRepository,
	tx repository.TransactionManager,
	auditor Auditor,
	email EmailService,
	dir string,
	loc *time.Location,
) ReporteService {
	if loc == nil {
		loc = time.UTC
	}
	return &reporteService{
		reportes:   reportes,
		pedidos:    pedidos,
		categorias: categorias,
		tx:         tx,
		auditor:    auditor,
		email:      email,
		dir:        dir,
		loc:        loc,
		now:        time.Now,
	}
}

func normalizarEmails(raw string) (string, error) {
	var out []string
	for _, e := range strings.Split(raw, ",") {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if err := emailValidator.Var(e, "email"); err != nil {
			return "", apperror.Validation("Correo de destino inválido: " + e)
		}
		out = append(out, strings.ToLower(e))
	}
	return strings.Join(out, ", "), nil
}

func (s *reporteService) Crear(ctx context.Context, actor Actor, req ReporteRequest) (*model.ReporteFinanciero, error) {
	inicio, err := parseFecha(req.FechaInicio, s.loc)
	if err != nil {
		return nil, err
	}
	fin, err := parseFecha(req.FechaFin, s.loc)
	if err != nil {
		return nil, err
	}
	if fin.Before(inicio) {
		return nil, apperror.Validation("La fecha de fin debe ser igual o posterior a la fecha de inicio")
	}
	emails, err := normalizarEmails(req.EmailsDestino)
	if err != nil {
		return nil, err
	}
	categoriaID, err := parseOptionalID(req.CategoriaID, "categoría")
	if err != nil {
		return nil, err
	}
	frecuencia := req.FrecuenciaAutomatica
	if frecuencia == "" {
		frecuencia = model.FrecuenciaUnico
	}

	r := &model.ReporteFinanciero{
		Nombre:               strings.TrimSpace(req.Nombre),
		TipoReporte:          req.TipoReporte,
		FechaInicio:          inicio.UTC(),
		FechaFin:             fin.UTC(),
		CategoriaID:          categoriaID,
		Estado:               model.ReporteProcesando,
		EmailsDestino:        emails,
		FrecuenciaAutomatica: frecuencia,
		Activo:               frecuencia != model.FrecuenciaUnico,
		GeneradorID:          actor.usuarioID(),
	}
	if r.Activo {
		r.ProximaEjecucion = model.SiguienteEjecucion(frecuencia, s.now().UTC())
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if categoriaID != nil {
			cat, err := s.categorias.FindByID(txCtx, *categoriaID)
			if err != nil {
				if repository.IsNotFound(err) {
					return apperror.NotFound("Categoría no encontrada")
				}
				return err
			}
			r.Categoria = cat
		}
		if err := s.reportes.Create(txCtx, r); err != nil {
			return err
		}
		return s.auditor.Record(txCtx, actor, AuditEntry{
			Accion:      model.AccionCrear,
			Modelo:      "ReporteFinanciero",
			IDObjeto:    r.ID.String(),
			Descripcion: "Reporte creado: " + r.Nombre,
			Despues:     map[string]interface{}{"tipo_reporte": r.TipoReporte, "frecuencia": r.FrecuenciaAutomatica},
		})
	})
	if err != nil {
		return nil, err
	}

	s.generar(ctx, r)
	if err := s.reportes.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// generar computes the data, renders the PDF and mails it. Failures end up in r.Estado.
func (s *reporteService) generar(ctx context.Context, r *model.ReporteFinanciero) {
	datos, err := s.datos(ctx, r)
	if err != nil {
		s.fallar(r, err)
		return
	}
	r.DatosJSON = toJSON(datos)

	fileName := fmt.Sprintf("reporte_%s_%s.pdf", r.ID.String()[:8], s.now().In(s.loc).Format("20060102_150405"))
	path, err := infra.RenderReporte(*datos, s.dir, fileName)
	if err != nil {
		s.fallar(r, err)
		return
	}
	if r.ArchivoPDF != "" && r.ArchivoPDF != path {
		eliminarArchivo(r.ArchivoPDF)
	}
	r.ArchivoPDF = path
	r.Estado = model.ReporteGenerado
	r.MensajeError = ""

	if len(r.Destinatarios()) > 0 && s.email != nil {
		if err := s.email.ReporteAdjunto(ctx, r, path); err != nil {
			r.MensajeError = "No se pudo enviar el reporte por correo: " + err.Error()
			return
		}
		r.Estado = model.ReporteEnviadoEmail
	}
}

func (s *reporteService) fallar(r *model.ReporteFinanciero, err error) {
	log.Error().Err(err).Str("reporte_id", r.ID.String()).Msg("Report generation failed")
	r.Estado = model.ReporteError
	r.MensajeError = err.Error()
}

func (s *reporteService) datos(ctx context.Context, r *model.ReporteFinanciero) (*model.DatosReporte, error) {
	desde := r.FechaInicio
	hasta := r.FechaFin.In(s.loc).AddDate(0, 0, 1)

	pedidos, err := s.ventas(ctx, r.CategoriaID, desde, hasta)
	if err != nil {
		return nil, err
	}

	d := &model.DatosReporte{
		Titulo:            r.Nombre,
		TipoReporte:       r.TipoReporte,
		Desde:             desde.In(s.loc),
		Hasta:             r.FechaFin.In(s.loc),
		Ventas:            resumirVentas(pedidos),
		TopProductos:      topProductos(pedidos, 10),
		IngresosCategoria: ingresosPorCategoria(pedidos),
		Analisis:          analizarPeriodo(pedidos, desde, hasta),
		GeneradoEn:        s.now().In(s.loc),
	}
	if r.Categoria != nil {
		d.Categoria = r.Categoria.Nombre
	}

	if r.TipoReporte == model.ReporteComparativaPeriodos || r.TipoReporte == model.ReporteResumenCompleto {
		antDesde, antHasta := periodoAnterior(desde, hasta)
		anteriores, err := s.ventas(ctx, r.CategoriaID, antDesde, antHasta)
		if err != nil {
			return nil, err
		}
		d.Comparativa = comparar(d.Ventas, resumirVentas(anteriores), antDesde, antHasta)
	}
	return d, nil
}

func (s *reporteService) ventas(ctx context.Context, categoriaID *uuid.UUID, desde, hasta time.Time) ([]model.Pedido, error) {
	pedidos, err := s.pedidos.ListConDetalles(ctx, repository.PedidoFilter{
		Estados: model.EstadosConIngreso,
		Desde:   &desde,
		Hasta:   &hasta,
	})
	if err != nil {
		return nil, err
	}
	if categoriaID == nil {
		return pedidos, nil
	}
	return filtrarCategoria(pedidos, *categoriaID), nil
}

// filtrarCategoria keeps only the lines of the category; an order's total becomes the sum of those lines.
func filtrarCategoria(pedidos []model.Pedido, categoriaID uuid.UUID) []model.Pedido {
	out := make([]model.Pedido, 0, len(pedidos))
	for _, p := range pedidos {
		var detalles []model.DetallePedido
		total := decimal.Zero
		for _, d := range p.Detalles {
			if d.Producto != nil && d.Producto.CategoriaID != nil && *d.Producto.CategoriaID == categoriaID {
				detalles = append(detalles, d)
				total = total.Add(d.Subtotal)
			}
		}
		if len(detalles) == 0 {
			continue
		}
		p.Detalles = detalles
		p.Total = total
		out = append(out, p)
	}
	return out
}

func (s *reporteService) Listar(ctx context.Context, page, limit int) ([]model.ReporteFinanciero, int64, error) {
	page, limit = pageOrDefault(page, limit)
	return s.reportes.List(ctx, page, limit)
}

func (s *reporteService) Obtener(ctx context.Context, id uuid.UUID) (*model.ReporteFinanciero, error) {
	r, err := s.reportes.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("Reporte no encontrado")
		}
		return nil, err
	}
	return r, nil
}

func (s *reporteService) ArchivoPDF(ctx context.Context, id uuid.UUID) (string, error) {
	r, err := s.Obtener(ctx, id)
	if err != nil {
		return "", err
	}
	if r.ArchivoPDF == "" {
		return "", apperror.NotFound("El reporte no tiene PDF generado")
	}
	if _, err := os.Stat(r.ArchivoPDF); err != nil {
		return "", apperror.NotFound("Archivo PDF no encontrado")
	}
	return r.ArchivoPDF, nil
}

func (s *reporteService) Eliminar(ctx context.Context, actor Actor, id uuid.UUID) error {
	r, err := s.Obtener(ctx, id)
	if err != nil {
		return err
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.reportes.Delete(txCtx, id); err != nil {
			return err
		}
		return s.auditor.Record(txCtx, actor, AuditEntry{
			Accion:      model.AccionEliminar,
			Modelo:      "ReporteFinanciero",
			IDObjeto:    id.String(),
			Descripcion: "Reporte eliminado: " + r.Nombre,
		})
	})
	if err != nil {
		return err
	}
	if r.ArchivoPDF != "" {
		eliminarArchivo(r.ArchivoPDF)
	}
	return nil
}

func eliminarArchivo(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", path).Msg("Could not remove report file")
	}
}

// EjecutarProgramados regenerates every due recurring report over the next period.
func (s *reporteService) EjecutarProgramados(ctx context.Context, now time.Time) (int, error) {
	vencidos, err := s.reportes.Vencidos(ctx, now)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range vencidos {
		r := &vencidos[i]
		if r.CategoriaID != nil {
			if cat, err := s.categorias.FindByID(ctx, *r.CategoriaID); err == nil {
				r.Categoria = cat
			}
		}
		r.FechaInicio, r.FechaFin = avanzarPeriodo(r.FrecuenciaAutomatica, r.FechaInicio, r.FechaFin)

		next := r.ProximaEjecucion
		for next != nil && !next.After(now) {
			next = model.SiguienteEjecucion(r.FrecuenciaAutomatica, *next)
		}
		r.ProximaEjecucion = next

		s.generar(ctx, r)
		if err := s.reportes.Update(ctx, r); err != nil {
			log.Error().Err(err).Str("reporte_id", r.ID.String()).Msg("Failed to save scheduled report")
			continue
		}
		n++
	}
	return n, nil
}

func avanzarPeriodo(frecuencia string, inicio, fin time.Time) (time.Time, time.Time) {
	switch frecuencia {
	case model.FrecuenciaDiario:
		return inicio.AddDate(0, 0, 1), fin.AddDate(0, 0, 1)
	case model.FrecuenciaSemanal:
		return inicio.AddDate(0, 0, 7), fin.AddDate(0, 0, 7)
	case model.FrecuenciaMensual:
		return inicio.AddDate(0, 1, 0), fin.AddDate(0, 1, 0)
	}
	return inicio, fin
}
