package model

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Proveedor is a supplier of products
type Proveedor struct {
	Base
	Nombre    string         `gorm:"type:varchar(200);not null" json:"nombre"`
	Rut       string         `gorm:"type:varchar(20);uniqueIndex;not null" json:"rut"`
	Email     string         `gorm:"type:varchar(255)" json:"email"`
	Telefono  string         `gorm:"type:varchar(20)" json:"telefono"`
	Direccion string         `gorm:"type:text" json:"direccion"`
	Activo    bool           `json:"activo"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Proveedor) TableName() string { return "proveedores" }

// RegionesChile maps region codes to their display names.
var RegionesChile = map[string]string{
	"AP": "Arica y Parinacota",
	"TA": "Tarapacá",
	"AN": "Antofagasta",
	"AT": "Atacama",
	"CO": "Coquimbo",
	"VS": "Valparaíso",
	"RM": "Metropolitana de Santiago",
	"LI": "Libertador General Bernardo O'Higgins",
	"ML": "Maule",
	"NB": "Ñuble",
	"BI": "Biobío",
	"AR": "La Araucanía",
	"LR": "Los Ríos",
	"LL": "Los Lagos",
	"AI": "Aysén del General Carlos Ibáñez del Campo",
	"MA": "Magallanes y de la Antártica Chilena",
}

// DireccionEnvio is a shipping address of a client. Exactly one of a client's
// addresses is principal.
type DireccionEnvio struct {
	Base
	ClienteID     uuid.UUID `gorm:"type:uuid;not null;index" json:"cliente_id"`
	Nombre        string    `gorm:"type:varchar(100);not null" json:"nombre"` // "Casa", "Oficina"
	Calle         string    `gorm:"type:varchar(200);not null" json:"calle"`
	Numero        string    `gorm:"type:varchar(20);not null" json:"numero"`
	Departamento  string    `gorm:"type:varchar(50)" json:"departamento"`
	Comuna        string    `gorm:"type:varchar(100);not null" json:"comuna"`
	Ciudad        string    `gorm:"type:varchar(100);not null" json:"ciudad"`
	Region        string    `gorm:"type:varchar(5);not null" json:"region"`
	CodigoPostal  string    `gorm:"type:varchar(20)" json:"codigo_postal"`
	Telefono      string    `gorm:"type:varchar(20)" json:"telefono"`
	Instrucciones string    `gorm:"type:text" json:"instrucciones"`
	EsPrincipal   bool      `gorm:"index" json:"es_principal"`
}

func (DireccionEnvio) TableName() string { return "direcciones_envio" }

func (d DireccionEnvio) RegionDisplay() string {
	if name, ok := RegionesChile[d.Region]; ok {
		return name
	}
	return d.Region
}

// DireccionCompleta formats the address as "calle numero, comuna, ciudad, region".
func (d DireccionEnvio) DireccionCompleta() string {
	calle := strings.TrimSpace(d.Calle + " " + d.Numero)
	if d.Departamento != "" {
		calle += " " + d.Departamento
	}
	return calle + ", " + d.Comuna + ", " + d.Ciudad + ", " + d.RegionDisplay()
}
