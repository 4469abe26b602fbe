package models

import "gorm.io/gorm"

// User es un operador del panel de administración.
type User struct {
	gorm.Model
	Login        string `json:"login" gorm:"unique;not null"`
	PasswordHash string `json:"-" gorm:"not null"`
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	Status       string `json:"status" gorm:"default:'active'"`
	Roles        []Role `json:"roles" gorm:"many2many:user_roles;"`
}
