package models

import "gorm.io/gorm"

// Exam representa un examen de certificación ligado (o no) a un estándar de
// competencia. Los valores por defecto los define el autor del examen; el
// operador puede sobreescribirlos al momento de asignar.
type Exam struct {
	gorm.Model
	Title string `json:"title" gorm:"not null"`
	// El índice único parcial respalda en la BD el invariante de "a lo más
	// un examen publicado por código ECM" que vigila el guardián de
	// publicación.
	ECMCode     *string `json:"ecmCode" gorm:"column:ecm_code;index;uniqueIndex:idx_exams_published_ecm,where:is_published"`
	IsPublished bool    `json:"isPublished" gorm:"default:false;index"`
	ContentType string  `json:"contentType" gorm:"default:'mixto'"`

	// Valores por defecto definidos por el autor.
	TimeLimitMinutes  int     `json:"timeLimitMinutes" gorm:"default:120"`
	PassingScore      float64 `json:"passingScore" gorm:"type:numeric(5,2);default:70"`
	MaxAttempts       int     `json:"maxAttempts" gorm:"default:1"`
	MaxDisconnections int     `json:"maxDisconnections" gorm:"default:3"`

	// Conteos por modalidad. Nil significa "todo el banco disponible".
	ExamQuestionCount      *int `json:"examQuestionCount"`
	ExamExerciseCount      *int `json:"examExerciseCount"`
	SimulatorQuestionCount *int `json:"simulatorQuestionCount"`
	SimulatorExerciseCount *int `json:"simulatorExerciseCount"`
	AvailableQuestionCount int  `json:"availableQuestionCount" gorm:"default:0"`
	AvailableExerciseCount int  `json:"availableExerciseCount" gorm:"default:0"`

	StudyMaterials []StudyMaterial `json:"studyMaterials,omitempty" gorm:"many2many:exam_study_materials;"`
}
