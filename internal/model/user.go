package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles
const (
	RolCliente      = "cliente"
	RolVendedor     = "vendedor"
	RolGerente      = "gerente"
	RolAdminSistema = "admin_sistema"
)

// Roles lists every valid role in privilege order.
var Roles = []string{RolCliente, RolVendedor, RolGerente, RolAdminSistema}

// StaffRoles are the roles that operate the store.
var StaffRoles = []string{RolVendedor, RolGerente, RolAdminSistema}

func RolValido(rol string) bool {
	for _, r := range Roles {
		if r == rol {
			return true
		}
	}
	return false
}

func EsStaff(rol string) bool {
	return rol == RolVendedor || rol == RolGerente || rol == RolAdminSistema
}

// Usuario is the account and customer profile of anyone using Elixir.
type Usuario struct {
	Base
	Email           string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Username        string         `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Nombre          string         `gorm:"type:varchar(150)" json:"nombre"`
	Apellido        string         `gorm:"type:varchar(150)" json:"apellido"`
	Password        string         `gorm:"type:varchar(255);not null" json:"-"`
	Rol             string         `gorm:"type:varchar(20);not null;index" json:"rol"`
	FechaNacimiento *time.Time     `gorm:"type:date" json:"fecha_nacimiento"`
	EmailConfirmado bool           `json:"email_confirmado"`
	Telefono        string         `gorm:"type:varchar(20)" json:"telefono"`
	Direccion       string         `gorm:"type:varchar(255)" json:"direccion"`
	Comuna          string         `gorm:"type:varchar(100)" json:"comuna"`
	Activo          bool           `json:"activo"`
	UltimoAcceso    *time.Time     `json:"ultimo_acceso"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Usuario) TableName() string { return "usuarios" }

func (u Usuario) NombreCompleto() string {
	full := strings.TrimSpace(u.Nombre + " " + u.Apellido)
	if full == "" {
		return u.Email
	}
	return full
}

// Edad returns the age in whole years at the given instant.
func (u Usuario) Edad(at time.Time) int {
	if u.FechaNacimiento == nil {
		return 0
	}
	b := *u.FechaNacimiento
	years := at.Year() - b.Year()
	if at.Month() < b.Month() || (at.Month() == b.Month() && at.Day() < b.Day()) {
		years--
	}
	return years
}

// RefreshToken stores long-lived tokens allowing users to request new access tokens
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UsuarioID uuid.UUID `gorm:"type:uuid;not null;index" json:"usuario_id"`
	Usuario   Usuario   `gorm:"foreignKey:UsuarioID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Token     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

func (t *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
