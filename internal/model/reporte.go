package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Report types
const (
	ReporteVentasGeneral       = "ventas_general"
	ReporteProductosTop        = "productos_top"
	ReporteIngresosCategoria   = "ingresos_categoria"
	ReporteComparativaPeriodos = "comparativa_periodos"
	ReporteResumenCompleto     = "resumen_completo"
)

// Report states
const (
	ReportePendiente    = "pendiente"
	ReporteProcesando   = "procesando"
	ReporteGenerado     = "generado"
	ReporteEnviadoEmail = "enviado_email"
	ReporteError        = "error"
)

// Report frequencies
const (
	FrecuenciaUnico   = "unico"
	FrecuenciaDiario  = "diario"
	FrecuenciaSemanal = "semanal"
	FrecuenciaMensual = "mensual"
)

// ReporteFinanciero is the metadata and computed data of a PDF financial report
type ReporteFinanciero struct {
	Base
	Nombre               string         `gorm:"type:varchar(200);not null" json:"nombre"`
	TipoReporte          string         `gorm:"type:varchar(30);not null;index" json:"tipo_reporte"`
	FechaInicio          time.Time      `gorm:"not null" json:"fecha_inicio"`
	FechaFin             time.Time      `gorm:"not null" json:"fecha_fin"`
	CategoriaID          *uuid.UUID     `gorm:"type:uuid" json:"categoria_id"`
	Categoria            *Categoria     `gorm:"foreignKey:CategoriaID" json:"categoria,omitempty"`
	DatosJSON            datatypes.JSON `json:"datos_json"`
	ArchivoPDF           string         `gorm:"type:varchar(500)" json:"archivo_pdf"`
	Estado               string         `gorm:"type:varchar(20);not null;index" json:"estado"`
	EmailsDestino        string         `gorm:"type:text" json:"emails_destino"` // comma separated
	FrecuenciaAutomatica string         `gorm:"type:varchar(10);not null" json:"frecuencia_automatica"`
	Activo               bool           `gorm:"index" json:"activo"`
	GeneradorID          *uuid.UUID     `gorm:"type:uuid" json:"generador_id"`
	Generador            *Usuario       `gorm:"foreignKey:GeneradorID" json:"generador,omitempty"`
	ProximaEjecucion     *time.Time     `gorm:"index" json:"proxima_ejecucion"`
	MensajeError         string         `gorm:"type:text" json:"mensaje_error"`
}

func (ReporteFinanciero) TableName() string { return "reportes_financieros" }

func (r ReporteFinanciero) Destinatarios() []string {
	var out []string
	for _, e := range strings.Split(r.EmailsDestino, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// SiguienteEjecucion returns the next run after the given instant, or nil for one-off reports.
func SiguienteEjecucion(frecuencia string, desde time.Time) *time.Time {
	var next time.Time
	switch frecuencia {
	case FrecuenciaDiario:
		next = desde.AddDate(0, 0, 1)
	case FrecuenciaSemanal:
		next = desde.AddDate(0, 0, 7)
	case FrecuenciaMensual:
		next = desde.AddDate(0, 1, 0)
	default:
		return nil
	}
	return &next
}
