package database

import (
	"context"
	"fmt"
	"time"

	"elixir/internal/model"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every entity managed by AutoMigrate.
var Models = []interface{}{
	&model.Usuario{},
	&model.RefreshToken{},
	&model.Role{},
	&model.Permission{},
	&model.Categoria{},
	&model.Proveedor{},
	&model.Producto{},
	&model.MovimientoStock{},
	&model.Cupon{},
	&model.PromocionProducto{},
	&model.DireccionEnvio{},
	&model.Pedido{},
	&model.DetallePedido{},
	&model.Reclamo{},
	&model.ComentarioReclamo{},
	&model.AuditLog{},
	&model.LogSistema{},
	&model.EstadisticaVisita{},
	&model.SolicitudAutorizacion{},
	&model.ReporteFinanciero{},
	&model.TasaImpuesto{},
}

// NewConnection opens the database for the given driver (postgres or sqlite)
// and migrates the schema.
func NewConnection(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres", "":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: NowUTC,
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		log.Warn().Err(err).Msg("failed to auto-migrate models")
	}

	return db, nil
}

// NowUTC keeps stored timestamps comparable on drivers without timezone support.
func NowUTC() time.Time { return time.Now().UTC() }

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models...)
}

// Seed inserts the system roles, their default permissions and the IVA rate.
// It is idempotent.
func Seed(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		perms := make(map[string]model.Permission, len(model.DefaultPermissions))
		for _, p := range model.DefaultPermissions {
			perm := p
			if err := tx.Where("code = ?", perm.Code).FirstOrCreate(&perm).Error; err != nil {
				return fmt.Errorf("seed permission %s: %w", perm.Code, err)
			}
			perms[perm.Code] = perm
		}

		for _, name := range model.Roles {
			role := model.Role{Name: name, Description: "Rol " + name, IsSystem: true}
			var count int64
			if err := tx.Model(&model.Role{}).Where("name = ?", name).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			if err := tx.Create(&role).Error; err != nil {
				return fmt.Errorf("seed role %s: %w", name, err)
			}
			var assigned []model.Permission
			for _, code := range model.DefaultRolePermissions[name] {
				assigned = append(assigned, perms[code])
			}
			if len(assigned) > 0 {
				if err := tx.Model(&role).Association("Permissions").Replace(assigned); err != nil {
					return fmt.Errorf("seed role permissions %s: %w", name, err)
				}
			}
		}

		var tasas int64
		if err := tx.Model(&model.TasaImpuesto{}).Count(&tasas).Error; err != nil {
			return err
		}
		if tasas == 0 {
			iva := model.TasaImpuesto{
				Nombre:       "IVA",
				Tasa:         model.DefaultIVA,
				VigenteDesde: time.Date(2003, 10, 1, 0, 0, 0, 0, time.UTC),
				Descripcion:  "Impuesto al Valor Agregado",
			}
			if err := tx.Create(&iva).Error; err != nil {
				return fmt.Errorf("seed IVA: %w", err)
			}
		}

		return nil
	})
}
