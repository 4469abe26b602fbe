package models

import "gorm.io/gorm"

// Ámbitos válidos de una regla de precio. El costo unitario se resuelve con
// la cadena grupo → campus → plataforma, y gana la primera regla encontrada.
const (
	PriceScopeGroup    = "group"
	PriceScopeCampus   = "campus"
	PriceScopePlatform = "platform"
)

// PriceRule define el costo unitario de una certificación para un ámbito.
// UnitCost es un precio plano; Formula es una expresión opcional evaluada
// con la variable "Unidades" para esquemas de precio por volumen. Cuando
// ambas existen, la fórmula tiene prioridad.
type PriceRule struct {
	gorm.Model
	Scope    string   `json:"scope" gorm:"not null;index:idx_price_rules_scope"`
	ScopeID  *uint    `json:"scopeId" gorm:"index:idx_price_rules_scope"`
	UnitCost *float64 `json:"unitCost" gorm:"type:numeric(12,2)"`
	Formula  string   `json:"formula"`
}
