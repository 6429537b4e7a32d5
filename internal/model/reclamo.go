package model

import (
	"time"

	"github.com/google/uuid"
)

// Complaint types
const (
	ReclamoProductoDefectuoso = "producto_defectuoso"
	ReclamoProductoIncorrecto = "producto_incorrecto"
	ReclamoEnvioRetrasado     = "envio_retrasado"
	ReclamoCobroIncorrecto    = "cobro_incorrecto"
	ReclamoAtencionCliente    = "atencion_cliente"
	ReclamoOtro               = "otro"
)

// Complaint priorities
const (
	PrioridadBaja    = "baja"
	PrioridadMedia   = "media"
	PrioridadAlta    = "alta"
	PrioridadUrgente = "urgente"
)

// Complaint states
const (
	ReclamoAbierto   = "abierto"
	ReclamoEnProceso = "en_proceso"
	ReclamoResuelto  = "resuelto"
	ReclamoCerrado   = "cerrado"
)

// Reclamo is a customer complaint ticket
type Reclamo struct {
	Base
	ClienteID           uuid.UUID           `gorm:"type:uuid;not null;index" json:"cliente_id"`
	Cliente             *Usuario            `gorm:"foreignKey:ClienteID" json:"cliente,omitempty"`
	PedidoID            *uuid.UUID          `gorm:"type:uuid;index" json:"pedido_relacionado_id"`
	Pedido              *Pedido             `gorm:"foreignKey:PedidoID" json:"pedido_relacionado,omitempty"`
	Tipo                string              `gorm:"type:varchar(30);not null" json:"tipo"`
	Prioridad           string              `gorm:"type:varchar(10);not null;index" json:"prioridad"`
	Titulo              string              `gorm:"type:varchar(200);not null" json:"titulo"`
	Descripcion         string              `gorm:"type:text;not null" json:"descripcion"`
	Estado              string              `gorm:"type:varchar(20);not null;index" json:"estado"`
	AsignadoAID         *uuid.UUID          `gorm:"type:uuid;index" json:"asignado_a_id"`
	AsignadoA           *Usuario            `gorm:"foreignKey:AsignadoAID" json:"asignado_a,omitempty"`
	Resolucion          string              `gorm:"type:text" json:"resolucion"`
	FechaResolucion     *time.Time          `json:"fecha_resolucion"`
	SatisfaccionCliente *int                `json:"satisfaccion_cliente"`
	Comentarios         []ComentarioReclamo `gorm:"foreignKey:ReclamoID" json:"comentarios,omitempty"`
}

func (Reclamo) TableName() string { return "reclamos" }

// TiempoResolucionHoras is the time from creation to resolution, nil while open.
func (r Reclamo) TiempoResolucionHoras() *float64 {
	if r.FechaResolucion == nil {
		return nil
	}
	h := r.FechaResolucion.Sub(r.FechaCreacion).Hours()
	h = float64(int64(h*100+0.5)) / 100
	return &h
}

func (r Reclamo) Cerrado() bool {
	return r.Estado == ReclamoResuelto || r.Estado == ReclamoCerrado
}

// ComentarioReclamo is a message on a complaint thread
type ComentarioReclamo struct {
	Base
	ReclamoID      uuid.UUID `gorm:"type:uuid;not null;index" json:"reclamo_id"`
	UsuarioID      uuid.UUID `gorm:"type:uuid;not null" json:"usuario_id"`
	Usuario        *Usuario  `gorm:"foreignKey:UsuarioID" json:"usuario,omitempty"`
	Comentario     string    `gorm:"type:text;not null" json:"comentario"`
	EsInterno      bool      `json:"es_interno"` // hidden from the client
	ArchivoAdjunto string    `gorm:"type:varchar(500)" json:"archivo_adjunto"`
}

func (ComentarioReclamo) TableName() string { return "comentarios_reclamo" }
