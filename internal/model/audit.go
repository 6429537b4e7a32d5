package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Audit action types
const (
	AccionCrear        = "CREATE"
	AccionActualizar   = "UPDATE"
	AccionEliminar     = "DELETE"
	AccionLogin        = "LOGIN"
	AccionLogout       = "LOGOUT"
	AccionExportar     = "EXPORT"
	AccionAprobar      = "APPROVE"
	AccionRechazar     = "REJECT"
	AccionCambioEstado = "STATUS_CHANGE"
)

// AuditLog tracks who changed what and when. HashIntegridad lets an auditor
// detect edits to a stored row by recomputing it.
type AuditLog struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UsuarioID       *uuid.UUID     `gorm:"type:uuid;index" json:"usuario_id"` // nil for system actions
	Usuario         *Usuario       `gorm:"foreignKey:UsuarioID" json:"usuario,omitempty"`
	TipoAccion      string         `gorm:"type:varchar(20);not null;index" json:"tipo_accion"`
	Modelo          string         `gorm:"type:varchar(50);not null;index" json:"modelo"`
	IDObjeto        string         `gorm:"type:varchar(50);index" json:"id_objeto"`
	Descripcion     string         `gorm:"type:text" json:"descripcion"`
	DatosAnteriores datatypes.JSON `json:"datos_anteriores"`
	DatosNuevos     datatypes.JSON `json:"datos_nuevos"`
	IPAddress       string         `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent       string         `gorm:"type:varchar(500)" json:"user_agent"`
	Timestamp       time.Time      `gorm:"not null;index" json:"timestamp"`
	HashIntegridad  string         `gorm:"type:varchar(64);not null" json:"hash_integridad"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// Sellar assigns id and timestamp if missing and computes the integrity hash.
func (a *AuditLog) Sellar(now time.Time) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = now
	}
	// postgres keeps microseconds
	a.Timestamp = a.Timestamp.UTC().Truncate(time.Microsecond)
	a.HashIntegridad = a.CalcularHash()
}

// CalcularHash returns the SHA-256 hex digest over the row's fields.
func (a AuditLog) CalcularHash() string {
	usuario := ""
	if a.UsuarioID != nil {
		usuario = a.UsuarioID.String()
	}
	parts := []string{
		a.ID.String(),
		usuario,
		a.TipoAccion,
		a.Modelo,
		a.IDObjeto,
		a.Descripcion,
		canonicalJSON(a.DatosAnteriores),
		canonicalJSON(a.DatosNuevos),
		a.IPAddress,
		a.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func (a AuditLog) IntegridadValida() bool {
	return a.HashIntegridad != "" && a.HashIntegridad == a.CalcularHash()
}

// canonicalJSON re-encodes a document with sorted keys and no whitespace, so
// the hash survives jsonb normalization.
func canonicalJSON(raw datatypes.JSON) string {
	if len(raw) == 0 {
		return ""
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

// System log levels
const (
	NivelDebug    = "DEBUG"
	NivelInfo     = "INFO"
	NivelWarning  = "WARNING"
	NivelError    = "ERROR"
	NivelCritical = "CRITICAL"
)

// System log categories
const (
	CategoriaSistema    = "sistema"
	CategoriaSeguridad  = "seguridad"
	CategoriaVentas     = "ventas"
	CategoriaInventario = "inventario"
	CategoriaUsuarios   = "usuarios"
	CategoriaEmail      = "email"
	CategoriaReportes   = "reportes"
)

// LogSistema is an operational event persisted for the admin console
type LogSistema struct {
	Base
	Nivel      string         `gorm:"type:varchar(10);not null;index" json:"nivel"`
	Categoria  string         `gorm:"type:varchar(20);not null;index" json:"categoria"`
	Mensaje    string         `gorm:"type:text;not null" json:"mensaje"`
	DatosExtra datatypes.JSON `json:"datos_extra"`
	UsuarioID  *uuid.UUID     `gorm:"type:uuid;index" json:"usuario_id"`
	IPAddress  string         `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent  string         `gorm:"type:varchar(500)" json:"user_agent"`
	Modulo     string         `gorm:"type:varchar(100)" json:"modulo"`
	Funcion    string         `gorm:"type:varchar(100)" json:"funcion"`
}

func (LogSistema) TableName() string { return "logs_sistema" }

// Visit sources
const (
	FuenteDirecto       = "directo"
	FuenteBusqueda      = "busqueda"
	FuenteCategoria     = "categoria"
	FuenteRecomendacion = "recomendacion"
	FuenteHome          = "home"
)

// EstadisticaVisita records a product page view
type EstadisticaVisita struct {
	Base
	ProductoID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"producto_id"`
	UsuarioID           *uuid.UUID `gorm:"type:uuid;index" json:"usuario_id"`
	TiempoVisualizacion int        `json:"tiempo_visualizacion"` // seconds
	Fuente              string     `gorm:"type:varchar(20)" json:"fuente"`
	IPAddress           string     `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent           string     `gorm:"type:varchar(500)" json:"user_agent"`
}

func (EstadisticaVisita) TableName() string { return "estadisticas_visita" }
