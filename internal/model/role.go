package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role represents a user role with associated permissions
type Role struct {
	Base
	Name        string       `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	IsSystem    bool         `json:"is_system"` // built-in roles cannot be deleted
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions"`
}

// Permission represents a single permission that can be assigned to roles
type Permission struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code  string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"` // e.g. "auditoria.read"
	Name  string    `gorm:"type:varchar(255);not null" json:"name"`
	Group string    `gorm:"type:varchar(50);not null;index" json:"group"`
}

func (p *Permission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Permission codes checked by RequirePermission.
const (
	PermAuditoriaRead  = "auditoria.read"
	PermSistemaRead    = "sistema.read"
	PermSistemaBackup  = "sistema.backup"
	PermReportesManage = "reportes.manage"
	PermRolesManage    = "roles.manage"
	PermCuponesManage  = "cupones.manage"
	PermVentasRead     = "ventas.read"
)

// DefaultPermissions is the seeded permission catalog.
var DefaultPermissions = []Permission{
	{Code: PermAuditoriaRead, Name: "Ver auditoría", Group: "auditoria"},
	{Code: PermSistemaRead, Name: "Ver logs y estado del sistema", Group: "sistema"},
	{Code: PermSistemaBackup, Name: "Descargar respaldo", Group: "sistema"},
	{Code: PermReportesManage, Name: "Gestionar reportes financieros", Group: "reportes"},
	{Code: PermRolesManage, Name: "Gestionar roles y permisos", Group: "usuarios"},
	{Code: PermCuponesManage, Name: "Gestionar cupones y promociones", Group: "ventas"},
	{Code: PermVentasRead, Name: "Ver estadísticas de ventas", Group: "ventas"},
}

// DefaultRolePermissions maps each system role to its seeded permission codes.
var DefaultRolePermissions = map[string][]string{
	RolCliente:  {},
	RolVendedor: {},
	RolGerente: {
		PermReportesManage, PermCuponesManage, PermVentasRead,
	},
	RolAdminSistema: {
		PermAuditoriaRead, PermSistemaRead, PermSistemaBackup, PermReportesManage,
		PermRolesManage, PermCuponesManage, PermVentasRead,
	},
}
