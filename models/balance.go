package models

import "gorm.io/gorm"

// GroupBalance es el saldo de certificaciones de un grupo. Cada commit de
// asignaciones lo debita dentro de la misma transacción que crea los
// registros; nunca puede quedar en negativo.
type GroupBalance struct {
	gorm.Model
	GroupID uint    `json:"groupId" gorm:"not null;uniqueIndex"`
	Balance float64 `json:"balance" gorm:"type:numeric(12,2);not null;default:0"`
}

// BalanceTransaction es una entrada del diario de movimientos de saldo.
// Montos negativos son cargos (commits de asignación), positivos son abonos.
// El diario es de solo inserción: las correcciones se hacen con contracargos.
type BalanceTransaction struct {
	gorm.Model
	GroupID  uint    `json:"groupId" gorm:"not null;index"`
	Amount   float64 `json:"amount" gorm:"type:numeric(12,2);not null"`
	Concept  string  `json:"concept"`
	Folio    string  `json:"folio" gorm:"index"`
	UnitCost float64 `json:"unitCost" gorm:"type:numeric(12,2)"`
	Units    int     `json:"units"`
}
