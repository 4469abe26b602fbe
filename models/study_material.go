package models

import "gorm.io/gorm"

// StudyMaterial es un contenido de estudio ligado a uno o más exámenes.
type StudyMaterial struct {
	gorm.Model
	Title string `json:"title" gorm:"not null"`
	Kind  string `json:"kind"`
	URL   string `json:"url"`
}
