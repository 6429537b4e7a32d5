package repository

import (
	"context"
	"time"

	"elixir/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditFilter narrows the audit log listing and export.
type AuditFilter struct {
	UsuarioID  *uuid.UUID
	TipoAccion string
	Modelo     string
	Desde      *time.Time
	Hasta      *time.Time
	Page       int
	Limit      int
}

func (f AuditFilter) apply(q *gorm.DB) *gorm.DB {
	if f.UsuarioID != nil {
		q = q.Where("usuario_id = ?", *f.UsuarioID)
	}
	if f.TipoAccion != "" {
		q = q.Where("tipo_accion = ?", f.TipoAccion)
	}
	if f.Modelo != "" {
		q = q.Where("modelo = ?", f.Modelo)
	}
	if f.Desde != nil {
		q = q.Where("timestamp >= ?", f.Desde.UTC())
	}
	if f.Hasta != nil {
		q = q.Where("timestamp < ?", f.Hasta.UTC())
	}
	return q
}

// Conteo is a labelled count used by the statistics endpoints.
type Conteo struct {
	Clave    string `json:"clave"`
	Cantidad int64  `json:"cantidad"`
}

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, filter AuditFilter) ([]model.AuditLog, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.AuditLog, error)
	CountBy(ctx context.Context, column string) ([]Conteo, error)
	TopUsuarios(ctx context.Context, limit int) ([]Conteo, error)
	CountDesde(ctx context.Context, desde time.Time) (int64, error)
	TimestampsDesde(ctx context.Context, desde time.Time) ([]time.Time, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Omit("Usuario").Create(entry).Error
}

// List pages through the log newest first. A zero Limit returns every match.
func (r *auditRepository) List(ctx context.Context, filter AuditFilter) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64

	if err := filter.apply(GetDB(ctx, r.db).Model(&model.AuditLog{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := filter.apply(GetDB(ctx, r.db)).Preload("Usuario").Order("timestamp desc")
	if filter.Limit > 0 {
		q = q.Offset(offset(filter.Page, filter.Limit)).Limit(filter.Limit)
	}
	if err := q.Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func (r *auditRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.AuditLog, error) {
	var entry model.AuditLog
	if err := GetDB(ctx, r.db).Preload("Usuario").First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

var auditGroupColumns = map[string]bool{"tipo_accion": true, "modelo": true}

// CountBy groups the whole log by tipo_accion or modelo.
func (r *auditRepository) CountBy(ctx context.Context, column string) ([]Conteo, error) {
	var out []Conteo
	if !auditGroupColumns[column] {
		return out, nil
	}
	err := GetDB(ctx, r.db).Model(&model.AuditLog{}).
		Select(column + " AS clave, COUNT(*) AS cantidad").
		Group(column).
		Order("cantidad desc").
		Scan(&out).Error
	return out, err
}

func (r *auditRepository) TopUsuarios(ctx context.Context, limit int) ([]Conteo, error) {
	var out []Conteo
	err := GetDB(ctx, r.db).Table("audit_logs").
		Select("usuarios.email AS clave, COUNT(*) AS cantidad").
		Joins("JOIN usuarios ON usuarios.id = audit_logs.usuario_id").
		Group("usuarios.email").
		Order("cantidad desc").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

func (r *auditRepository) CountDesde(ctx context.Context, desde time.Time) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.AuditLog{}).Where("timestamp >= ?", desde.UTC()).Count(&count).Error
	return count, err
}

// TimestampsDesde returns the timestamps of recent entries so callers can
// bucket them by local day.
func (r *auditRepository) TimestampsDesde(ctx context.Context, desde time.Time) ([]time.Time, error) {
	var out []time.Time
	err := GetDB(ctx, r.db).Model(&model.AuditLog{}).
		Where("timestamp >= ?", desde.UTC()).
		Pluck("timestamp", &out).Error
	return out, err
}
