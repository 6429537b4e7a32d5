package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the UUID primary key and timestamps shared by every entity.
// IDs are generated in Go so the same schema works on postgres and sqlite.
type Base struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FechaCreacion      time.Time `gorm:"autoCreateTime;index" json:"fecha_creacion"`
	FechaActualizacion time.Time `gorm:"autoUpdateTime" json:"fecha_actualizacion"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
