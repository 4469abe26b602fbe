package provisioning

import "github.com/SOTO729/Evaluaasiv3-sub005/models"

// ConfigBuilder acumula las decisiones del operador a lo largo de los pasos
// del asistente. Es inmutable: cada With* regresa una copia, de modo que el
// estado de un paso anterior nunca se corrompe al navegar hacia atrás.
// Build valida todo junto contra el examen hasta el final.
type ConfigBuilder struct {
	exam      *models.Exam
	overrides Overrides
	materials []uint
}

// NewConfigBuilder inicia el builder con todos los campos en "usar valor
// del autor".
func NewConfigBuilder(exam *models.Exam) ConfigBuilder {
	return ConfigBuilder{exam: exam, overrides: DefaultOverrides()}
}

func (b ConfigBuilder) WithTimeLimit(minutes int) ConfigBuilder {
	b.overrides.TimeLimitMinutes = IntOverride{Value: &minutes}
	return b
}

func (b ConfigBuilder) WithPassingScore(score float64) ConfigBuilder {
	b.overrides.PassingScore = FloatOverride{Value: &score}
	return b
}

func (b ConfigBuilder) WithMaxAttempts(n int) ConfigBuilder {
	b.overrides.MaxAttempts = IntOverride{Value: &n}
	return b
}

func (b ConfigBuilder) WithMaxDisconnections(n int) ConfigBuilder {
	b.overrides.MaxDisconnections = IntOverride{Value: &n}
	return b
}

func (b ConfigBuilder) WithContentType(t string) ConfigBuilder {
	b.overrides.ContentType = StringOverride{Value: &t}
	return b
}

func (b ConfigBuilder) WithExamQuestionCount(n int) ConfigBuilder {
	b.overrides.ExamQuestionCount = IntOverride{Value: &n}
	return b
}

func (b ConfigBuilder) WithExamExerciseCount(n int) ConfigBuilder {
	b.overrides.ExamExerciseCount = IntOverride{Value: &n}
	return b
}

func (b ConfigBuilder) WithSimulatorQuestionCount(n int) ConfigBuilder {
	b.overrides.SimulatorQuestionCount = IntOverride{Value: &n}
	return b
}

func (b ConfigBuilder) WithSimulatorExerciseCount(n int) ConfigBuilder {
	b.overrides.SimulatorExerciseCount = IntOverride{Value: &n}
	return b
}

// WithStudyMaterials registra los materiales de estudio elegidos en el paso
// de contenidos del asistente.
func (b ConfigBuilder) WithStudyMaterials(ids []uint) ConfigBuilder {
	b.materials = append([]uint(nil), ids...)
	return b
}

// Overrides regresa el registro parcial acumulado, útil para serializarlo
// entre pasos del asistente.
func (b ConfigBuilder) Overrides() Overrides { return b.overrides }

// StudyMaterials regresa los materiales elegidos.
func (b ConfigBuilder) StudyMaterials() []uint { return b.materials }

// Build resuelve la configuración final contra el examen. Falla con
// ErrInvalidConfig si alguna sobreescritura quedó fuera de rango.
func (b ConfigBuilder) Build() (AssignmentConfig, error) {
	if b.exam == nil {
		return AssignmentConfig{}, ErrExamNotFound
	}
	return ResolveConfig(b.exam, b.overrides)
}
