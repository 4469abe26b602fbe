package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ConfigSnapshot guarda en JSONB la configuración final con la que se creó
// una asignación. Es inmutable: refleja lo que el candidato verá aunque el
// autor del examen cambie los valores por defecto después.
type ConfigSnapshot struct {
	TimeLimitMinutes       int     `json:"timeLimitMinutes"`
	PassingScore           float64 `json:"passingScore"`
	MaxAttempts            int     `json:"maxAttempts"`
	MaxDisconnections      int     `json:"maxDisconnections"`
	ContentType            string  `json:"contentType"`
	ExamQuestionCount      *int    `json:"examQuestionCount"`
	ExamExerciseCount      *int    `json:"examExerciseCount"`
	SimulatorQuestionCount *int    `json:"simulatorQuestionCount"`
	SimulatorExerciseCount *int    `json:"simulatorExerciseCount"`
}

// Value serializa el snapshot a JSON para guardarlo en la BD.
func (s ConfigSnapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan lee el JSON de la BD y lo convierte al snapshot.
func (s *ConfigSnapshot) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, s)
}

// Assignment es el registro durable que liga a un candidato con un examen
// para un ciclo de certificación. Solo se crea en el commit; nunca se edita,
// solo se supersede con una nueva asignación de número mayor. La terna
// (candidato, código ECM, número) es única cuando hay código ECM: la base
// de datos respalda la serialización de commits del motor.
type Assignment struct {
	gorm.Model
	CandidateID      uint           `json:"candidateId" gorm:"not null;index:idx_assignments_candidate_ecm;uniqueIndex:idx_assignments_identity,where:ecm_code <> ''"`
	ExamID           uint           `json:"examId" gorm:"not null"`
	ECMCode          string         `json:"ecmCode" gorm:"column:ecm_code;index:idx_assignments_candidate_ecm;uniqueIndex:idx_assignments_identity,where:ecm_code <> ''"`
	AssignmentNumber int            `json:"assignmentNumber" gorm:"not null;default:1;uniqueIndex:idx_assignments_identity,where:ecm_code <> ''"`
	AssignedAt       time.Time      `json:"assignedAt"`
	SourceGroupID    uint           `json:"sourceGroupId" gorm:"index"`
	OperatorID       uint           `json:"operatorId"`
	Folio            string         `json:"folio" gorm:"index"`
	ConfigSnapshot   ConfigSnapshot `json:"configSnapshot" gorm:"type:jsonb"`

	Candidate *Candidate `json:"candidate,omitempty" gorm:"foreignKey:CandidateID"`
	Exam      *Exam      `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
}
