package repository

import (
	"context"
	"time"

	"elixir/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LogFilter narrows the system log listing.
type LogFilter struct {
	Nivel     string
	Categoria string
	Page      int
	Limit     int
}

// Backup is the JSON snapshot of the catalog data.
type Backup struct {
	GeneradoEn  time.Time                 `json:"generado_en"`
	Categorias  []model.Categoria         `json:"categorias"`
	Proveedores []model.Proveedor         `json:"proveedores"`
	Productos   []model.Producto          `json:"productos"`
	Cupones     []model.Cupon             `json:"cupones"`
	Promociones []model.PromocionProducto `json:"promociones"`
}

// SistemaRepository stores operational logs and product visits, and reads
// whole-table snapshots for backups.
type SistemaRepository interface {
	CreateLog(ctx context.Context, entry *model.LogSistema) error
	ListLogs(ctx context.Context, filter LogFilter) ([]model.LogSistema, int64, error)
	LogsPorNivelDesde(ctx context.Context, desde time.Time) ([]Conteo, error)
	CreateVisita(ctx context.Context, v *model.EstadisticaVisita) error
	CountVisitasDesde(ctx context.Context, desde time.Time) (int64, error)
	MasVistos(ctx context.Context, desde time.Time, limit int) ([]uuid.UUID, error)
	Snapshot(ctx context.Context) (*Backup, error)
	Ping(ctx context.Context) error
}

type sistemaRepository struct {
	db *gorm.DB
}

func NewSistemaRepository(db *gorm.DB) SistemaRepository {
	return &sistemaRepository{db: db}
}

func (r *sistemaRepository) CreateLog(ctx context.Context, entry *model.LogSistema) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *sistemaRepository) ListLogs(ctx context.Context, filter LogFilter) ([]model.LogSistema, int64, error) {
	var logs []model.LogSistema
	var total int64

	query := func() *gorm.DB {
		q := GetDB(ctx, r.db).Model(&model.LogSistema{})
		if filter.Nivel != "" {
			q = q.Where("nivel = ?", filter.Nivel)
		}
		if filter.Categoria != "" {
			q = q.Where("categoria = ?", filter.Categoria)
		}
		return q
	}

	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query().Order("fecha_creacion desc").
		Offset(offset(filter.Page, filter.Limit)).Limit(filter.Limit).
		Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func (r *sistemaRepository) LogsPorNivelDesde(ctx context.Context, desde time.Time) ([]Conteo, error) {
	var out []Conteo
	err := GetDB(ctx, r.db).Model(&model.LogSistema{}).
		Select("nivel AS clave, COUNT(*) AS cantidad").
		Where("fecha_creacion >= ?", desde.UTC()).
		Group("nivel").
		Scan(&out).Error
	return out, err
}

func (r *sistemaRepository) CreateVisita(ctx context.Context, v *model.EstadisticaVisita) error {
	return GetDB(ctx, r.db).Create(v).Error
}

func (r *sistemaRepository) CountVisitasDesde(ctx context.Context, desde time.Time) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.EstadisticaVisita{}).
		Where("fecha_creacion >= ?", desde.UTC()).Count(&count).Error
	return count, err
}

// MasVistos returns product ids ordered by visit count since desde.
func (r *sistemaRepository) MasVistos(ctx context.Context, desde time.Time, limit int) ([]uuid.UUID, error) {
	var rows []struct {
		ProductoID uuid.UUID
		Visitas    int64
	}
	err := GetDB(ctx, r.db).Model(&model.EstadisticaVisita{}).
		Select("producto_id, COUNT(*) AS visitas").
		Where("fecha_creacion >= ?", desde.UTC()).
		Group("producto_id").
		Order("visitas desc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ProductoID)
	}
	return ids, nil
}

func (r *sistemaRepository) Snapshot(ctx context.Context) (*Backup, error) {
	db := GetDB(ctx, r.db)
	b := &Backup{GeneradoEn: time.Now().UTC()}
	if err := db.Order("nombre").Find(&b.Categorias).Error; err != nil {
		return nil, err
	}
	if err := db.Order("nombre").Find(&b.Proveedores).Error; err != nil {
		return nil, err
	}
	if err := db.Order("sku").Find(&b.Productos).Error; err != nil {
		return nil, err
	}
	if err := db.Order("codigo").Find(&b.Cupones).Error; err != nil {
		return nil, err
	}
	if err := db.Order("fecha_inicio").Find(&b.Promociones).Error; err != nil {
		return nil, err
	}
	return b, nil
}

func (r *sistemaRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
