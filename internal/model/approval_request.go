package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Request types
const (
	SolicitudAjusteStock      = "ajuste_stock"
	SolicitudCambioPrecio     = "cambio_precio"
	SolicitudEliminarProducto = "eliminar_producto"
)

// Request states
const (
	SolicitudPendiente = "pendiente"
	SolicitudAprobada  = "aprobada"
	SolicitudRechazada = "rechazada"
)

// SolicitudAutorizacion is a vendedor's request for a sensitive change that
// only takes effect once a gerente approves it.
type SolicitudAutorizacion struct {
	Base
	Tipo                string         `gorm:"type:varchar(30);not null;index" json:"tipo"`
	Descripcion         string         `gorm:"type:text" json:"descripcion"`
	Estado              string         `gorm:"type:varchar(20);not null;index" json:"estado"`
	SolicitanteID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"solicitante_id"`
	Solicitante         *Usuario       `gorm:"foreignKey:SolicitanteID" json:"solicitante,omitempty"`
	AprobadorID         *uuid.UUID     `gorm:"type:uuid" json:"aprobador_id"`
	Aprobador           *Usuario       `gorm:"foreignKey:AprobadorID" json:"aprobador,omitempty"`
	ProductoID          *uuid.UUID     `gorm:"type:uuid;index" json:"producto_id"`
	Producto            *Producto      `gorm:"foreignKey:ProductoID" json:"producto,omitempty"`
	Datos               datatypes.JSON `json:"datos"` // requested change, e.g. {"nuevo_stock": 10}
	Respuesta           string         `gorm:"type:text" json:"respuesta"`
	FechaRespuesta      *time.Time     `json:"fecha_respuesta"`
	VistaPorSolicitante bool           `json:"vista_por_solicitante"`
}

func (SolicitudAutorizacion) TableName() string { return "solicitudes_autorizacion" }
