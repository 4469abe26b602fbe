package provisioning

import (
	"fmt"

	"github.com/SOTO729/Evaluaasiv3-sub005/models"
)

// AssignmentConfig es la configuración final y completa con la que se crea
// una asignación. Todos los campos escalares ya están resueltos; los conteos
// en nil significan "sin tope, todo el banco disponible".
type AssignmentConfig struct {
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

// Snapshot convierte la configuración resuelta al formato inmutable que se
// guarda junto con cada asignación.
func (c AssignmentConfig) Snapshot() models.ConfigSnapshot {
	return models.ConfigSnapshot{
		TimeLimitMinutes:       c.TimeLimitMinutes,
		PassingScore:           c.PassingScore,
		MaxAttempts:            c.MaxAttempts,
		MaxDisconnections:      c.MaxDisconnections,
		ContentType:            c.ContentType,
		ExamQuestionCount:      c.ExamQuestionCount,
		ExamExerciseCount:      c.ExamExerciseCount,
		SimulatorQuestionCount: c.SimulatorQuestionCount,
		SimulatorExerciseCount: c.SimulatorExerciseCount,
	}
}

// IntOverride sobreescribe un campo entero del examen. UseDefault y Value
// son mutuamente excluyentes: con UseDefault=false, Value debe venir.
type IntOverride struct {
	UseDefault bool `json:"useDefault"`
	Value      *int `json:"value"`
}

// FloatOverride sobreescribe un campo decimal del examen.
type FloatOverride struct {
	UseDefault bool     `json:"useDefault"`
	Value      *float64 `json:"value"`
}

// StringOverride sobreescribe un campo de texto del examen.
type StringOverride struct {
	UseDefault bool    `json:"useDefault"`
	Value      *string `json:"value"`
}

// Overrides es el registro parcial que el operador captura en el asistente.
// El valor cero (todo en UseDefault=false con Value nil) NO es válido; los
// constructores y el binding del handler deben marcar UseDefault según lo
// capturado. DefaultOverrides regresa el registro que toma todo del examen.
type Overrides struct {
	TimeLimitMinutes       IntOverride    `json:"timeLimitMinutes"`
	PassingScore           FloatOverride  `json:"passingScore"`
	MaxAttempts            IntOverride    `json:"maxAttempts"`
	MaxDisconnections      IntOverride    `json:"maxDisconnections"`
	ContentType            StringOverride `json:"contentType"`
	ExamQuestionCount      IntOverride    `json:"examQuestionCount"`
	ExamExerciseCount      IntOverride    `json:"examExerciseCount"`
	SimulatorQuestionCount IntOverride    `json:"simulatorQuestionCount"`
	SimulatorExerciseCount IntOverride    `json:"simulatorExerciseCount"`
}

// DefaultOverrides regresa el registro que respeta todos los valores del
// autor del examen.
func DefaultOverrides() Overrides {
	return Overrides{
		TimeLimitMinutes:       IntOverride{UseDefault: true},
		PassingScore:           FloatOverride{UseDefault: true},
		MaxAttempts:            IntOverride{UseDefault: true},
		MaxDisconnections:      IntOverride{UseDefault: true},
		ContentType:            StringOverride{UseDefault: true},
		ExamQuestionCount:      IntOverride{UseDefault: true},
		ExamExerciseCount:      IntOverride{UseDefault: true},
		SimulatorQuestionCount: IntOverride{UseDefault: true},
		SimulatorExerciseCount: IntOverride{UseDefault: true},
	}
}

// ResolveConfig mezcla los valores por defecto del autor del examen con las
// sobreescrituras del operador y produce la configuración final. Para cada
// campo: UseDefault=true toma el valor del examen; UseDefault=false exige un
// valor presente, y para los conteos, dentro de [1, disponible].
func ResolveConfig(exam *models.Exam, o Overrides) (AssignmentConfig, error) {
	var cfg AssignmentConfig
	var err error

	if cfg.TimeLimitMinutes, err = resolveInt("tiempo límite", o.TimeLimitMinutes, exam.TimeLimitMinutes, 0); err != nil {
		return AssignmentConfig{}, err
	}
	if cfg.MaxAttempts, err = resolveInt("intentos máximos", o.MaxAttempts, exam.MaxAttempts, 0); err != nil {
		return AssignmentConfig{}, err
	}
	if cfg.MaxDisconnections, err = resolveInt("desconexiones máximas", o.MaxDisconnections, exam.MaxDisconnections, 0); err != nil {
		return AssignmentConfig{}, err
	}

	if o.PassingScore.UseDefault {
		cfg.PassingScore = exam.PassingScore
	} else {
		if o.PassingScore.Value == nil {
			return AssignmentConfig{}, fmt.Errorf("%w: falta el valor de calificación aprobatoria", ErrInvalidConfig)
		}
		if *o.PassingScore.Value <= 0 || *o.PassingScore.Value > 100 {
			return AssignmentConfig{}, fmt.Errorf("%w: la calificación aprobatoria debe estar entre 1 y 100", ErrInvalidConfig)
		}
		cfg.PassingScore = *o.PassingScore.Value
	}

	if o.ContentType.UseDefault {
		cfg.ContentType = exam.ContentType
	} else {
		if o.ContentType.Value == nil || *o.ContentType.Value == "" {
			return AssignmentConfig{}, fmt.Errorf("%w: falta el tipo de contenido", ErrInvalidConfig)
		}
		cfg.ContentType = *o.ContentType.Value
	}

	if cfg.ExamQuestionCount, err = resolveCount("reactivos de examen", o.ExamQuestionCount, exam.ExamQuestionCount, exam.AvailableQuestionCount); err != nil {
		return AssignmentConfig{}, err
	}
	if cfg.ExamExerciseCount, err = resolveCount("ejercicios de examen", o.ExamExerciseCount, exam.ExamExerciseCount, exam.AvailableExerciseCount); err != nil {
		return AssignmentConfig{}, err
	}
	if cfg.SimulatorQuestionCount, err = resolveCount("reactivos de simulador", o.SimulatorQuestionCount, exam.SimulatorQuestionCount, exam.AvailableQuestionCount); err != nil {
		return AssignmentConfig{}, err
	}
	if cfg.SimulatorExerciseCount, err = resolveCount("ejercicios de simulador", o.SimulatorExerciseCount, exam.SimulatorExerciseCount, exam.AvailableExerciseCount); err != nil {
		return AssignmentConfig{}, err
	}

	return cfg, nil
}

// resolveInt resuelve un campo escalar obligatorio. min es exclusivo.
func resolveInt(field string, o IntOverride, def int, min int) (int, error) {
	if o.UseDefault {
		return def, nil
	}
	if o.Value == nil {
		return 0, fmt.Errorf("%w: falta el valor de %s", ErrInvalidConfig, field)
	}
	if *o.Value <= min {
		return 0, fmt.Errorf("%w: %s debe ser mayor que %d", ErrInvalidConfig, field, min)
	}
	return *o.Value, nil
}

// resolveCount resuelve un conteo opcional. El valor por defecto del examen
// puede ser nil ("sin tope"); una sobreescritura debe caer en [1, available].
func resolveCount(field string, o IntOverride, def *int, available int) (*int, error) {
	if o.UseDefault {
		return def, nil
	}
	if o.Value == nil {
		return nil, fmt.Errorf("%w: falta el valor de %s", ErrInvalidConfig, field)
	}
	if *o.Value < 1 || *o.Value > available {
		return nil, fmt.Errorf("%w: %s debe estar entre 1 y %d", ErrInvalidConfig, field, available)
	}
	v := *o.Value
	return &v, nil
}
