package models

import "gorm.io/gorm"

// Candidate representa a una persona evaluable en la plataforma.
// El CURP es opcional pero único cuando existe; es el identificador
// preferido al resolver cargas masivas.
type Candidate struct {
	gorm.Model
	FirstName string `json:"firstName" gorm:"not null"`
	LastName1 string `json:"lastName1" gorm:"not null"`
	LastName2 string `json:"lastName2"`
	Email     string `json:"email"`
	CURP      string `json:"curp" gorm:"column:curp;uniqueIndex:idx_candidates_curp,where:curp <> ''"`
	Phone     string `json:"phone"`
}

// FullName regresa el nombre completo tal como aparece en las plantillas de
// carga masiva: nombre, primer apellido y segundo apellido.
func (c *Candidate) FullName() string {
	name := c.FirstName + " " + c.LastName1
	if c.LastName2 != "" {
		name += " " + c.LastName2
	}
	return name
}
