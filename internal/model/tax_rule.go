package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultIVA is used when no TasaImpuesto covers a date.
var DefaultIVA = decimal.NewFromFloat(0.19)

// TasaImpuesto stores the IVA rate with temporal validity. Prices include IVA,
// so the rate is used to break totals into net and tax.
type TasaImpuesto struct {
	Base
	Nombre       string          `gorm:"type:varchar(50);not null" json:"nombre"`
	Tasa         decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"tasa"` // 0.19 = 19%
	VigenteDesde time.Time       `gorm:"not null;index" json:"vigente_desde"`
	VigenteHasta *time.Time      `gorm:"index" json:"vigente_hasta"` // nil = open ended
	Descripcion  string          `gorm:"type:text" json:"descripcion"`
}

func (TasaImpuesto) TableName() string { return "tasas_impuesto" }

func (t TasaImpuesto) VigenteEn(at time.Time) bool {
	if at.Before(t.VigenteDesde) {
		return false
	}
	return t.VigenteHasta == nil || !at.After(*t.VigenteHasta)
}

// DesglosarIVA splits a gross amount into net and tax parts.
func DesglosarIVA(bruto, tasa decimal.Decimal) (neto, impuesto decimal.Decimal) {
	neto = bruto.Div(decimal.NewFromInt(1).Add(tasa)).Round(2)
	return neto, bruto.Sub(neto)
}
