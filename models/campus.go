package models

import "gorm.io/gorm"

// Campus representa la sede de un socio comercial de la plataforma.
// Los grupos de candidatos cuelgan de un campus para heredar su esquema de precios.
type Campus struct {
	gorm.Model
	Name      string `json:"name" gorm:"not null"`
	PartnerID *uint  `json:"partnerId"`
	State     string `json:"state"`
	City      string `json:"city"`
}
