package provisioning

import (
	"context"
	"fmt"
	"sync"

	"github.com/SOTO729/Evaluaasiv3-sub005/models"
)

// PublicationState son los estados por los que pasa un intento de publicar
// un examen.
type PublicationState string

const (
	StateDraft            PublicationState = "draft"
	StateValidating       PublicationState = "validating"
	StatePublishable      PublicationState = "publishable"
	StateInvalid          PublicationState = "invalid"
	StateCheckingConflict PublicationState = "checking_conflict"
	StatePublished        PublicationState = "published"
	StateConflicted       PublicationState = "conflicted"
)

// ResolveAction es la decisión del operador ante un conflicto de publicación.
type ResolveAction string

const (
	// ReplaceConflicting despublica el examen en conflicto y publica el
	// nuevo, en ese orden.
	ReplaceConflicting ResolveAction = "replace"
	// KeepExisting aborta la publicación sin tocar nada.
	KeepExisting ResolveAction = "keep"
)

// PublicationConflict describe el choque entre el examen que se intenta
// publicar y el que ya ocupa el cupo del código ECM.
type PublicationConflict struct {
	ECMCode         string      `json:"ecmCode"`
	ExamID          uint        `json:"examId"`
	ConflictingExam models.Exam `json:"conflictingExam"`
}

// PublishResult reporta el estado final del intento y, cuando aplica, el
// conflicto pendiente de resolver.
type PublishResult struct {
	State    PublicationState     `json:"state"`
	Conflict *PublicationConflict `json:"conflict,omitempty"`
}

// PublicationGuard hace cumplir el invariante de "a lo más un examen
// publicado por código ECM". La secuencia despublicar-publicar de un
// reemplazo corre bajo el candado del cupo del código, de modo que una
// segunda publicación del mismo código no pueda colarse en medio.
type PublicationGuard struct {
	catalog Catalog
	locker  SlotLocker
}

func NewPublicationGuard(catalog Catalog, locker SlotLocker) *PublicationGuard {
	return &PublicationGuard{catalog: catalog, locker: locker}
}

// Publish intenta publicar el examen. Regresa el conflicto en el resultado
// (estado Conflicted) cuando otro examen publicado ya ocupa el código ECM;
// el conflicto no es un error, es una decisión pendiente del operador.
func (g *PublicationGuard) Publish(ctx context.Context, examID uint) (PublishResult, error) {
	// Draft → Validating: cargar el examen y revisar que sea publicable.
	exam, err := g.catalog.GetExam(ctx, examID)
	if err != nil {
		return PublishResult{State: StateValidating}, err
	}

	if state := validatePublishable(exam); state != StatePublishable {
		return PublishResult{State: state}, fmt.Errorf("%w: el examen %d no es publicable", ErrInvalidConfig, examID)
	}

	// Un examen sin código ECM no compite por ningún cupo.
	if exam.ECMCode == nil || *exam.ECMCode == "" {
		if err := g.catalog.SetPublished(ctx, exam.ID, true); err != nil {
			return PublishResult{State: StatePublishable}, err
		}
		return PublishResult{State: StatePublished}, nil
	}

	ecm := NormalizeECM(*exam.ECMCode)
	release, err := g.locker.AcquirePublicationSlot(ctx, ecm)
	if err != nil {
		return PublishResult{State: StateCheckingConflict}, err
	}
	defer release()

	// Publishable → CheckingConflict.
	other, err := g.catalog.PublishedExamByECM(ctx, ecm)
	if err != nil {
		return PublishResult{State: StateCheckingConflict}, err
	}
	if other != nil && other.ID != exam.ID {
		return PublishResult{
			State: StateConflicted,
			Conflict: &PublicationConflict{
				ECMCode:         ecm,
				ExamID:          exam.ID,
				ConflictingExam: *other,
			},
		}, nil
	}

	if err := g.catalog.SetPublished(ctx, exam.ID, true); err != nil {
		return PublishResult{State: StateCheckingConflict}, err
	}
	return PublishResult{State: StatePublished}, nil
}

// Resolve aplica la decisión del operador sobre un conflicto reportado por
// Publish. KeepExisting no cambia nada; ReplaceConflicting despublica al
// otro examen y publica éste como par ordenado bajo el candado del cupo.
func (g *PublicationGuard) Resolve(ctx context.Context, examID uint, action ResolveAction) (PublishResult, error) {
	if action == KeepExisting {
		return PublishResult{State: StateDraft}, nil
	}
	if action != ReplaceConflicting {
		return PublishResult{}, fmt.Errorf("acción de resolución desconocida: %q", action)
	}

	exam, err := g.catalog.GetExam(ctx, examID)
	if err != nil {
		return PublishResult{}, err
	}
	if exam.ECMCode == nil || *exam.ECMCode == "" {
		return PublishResult{}, fmt.Errorf("el examen %d no tiene código ECM que reemplazar", examID)
	}
	ecm := NormalizeECM(*exam.ECMCode)

	release, err := g.locker.AcquirePublicationSlot(ctx, ecm)
	if err != nil {
		return PublishResult{}, err
	}
	defer release()

	// Se re-verifica el conflicto bajo el candado: pudo resolverse solo.
	other, err := g.catalog.PublishedExamByECM(ctx, ecm)
	if err != nil {
		return PublishResult{}, err
	}
	if other != nil && other.ID != exam.ID {
		// Son dos operaciones sobre dos registros distintos, no un paso
		// atómico; el candado del cupo cubre el hueco entre ambas.
		if err := g.catalog.SetPublished(ctx, other.ID, false); err != nil {
			return PublishResult{}, err
		}
	}
	if err := g.catalog.SetPublished(ctx, exam.ID, true); err != nil {
		return PublishResult{}, err
	}
	return PublishResult{State: StatePublished}, nil
}

// validatePublishable: un examen sin banco de contenidos no puede
// publicarse.
func validatePublishable(exam *models.Exam) PublicationState {
	if exam.AvailableQuestionCount <= 0 && exam.AvailableExerciseCount <= 0 {
		return StateInvalid
	}
	return StatePublishable
}

// LocalSlotLocker es un SlotLocker en memoria para pruebas y para
// despliegues sin Redis. TryLock respeta el contrato de fallar rápido.
type LocalSlotLocker struct {
	mu    sync.Mutex
	slots map[string]*sync.Mutex
}

func NewLocalSlotLocker() *LocalSlotLocker {
	return &LocalSlotLocker{slots: make(map[string]*sync.Mutex)}
}

func (l *LocalSlotLocker) AcquirePublicationSlot(_ context.Context, ecmCode string) (func(), error) {
	key := NormalizeECM(ecmCode)
	l.mu.Lock()
	m, ok := l.slots[key]
	if !ok {
		m = &sync.Mutex{}
		l.slots[key] = m
	}
	l.mu.Unlock()

	if !m.TryLock() {
		return nil, ErrConflictRetry
	}
	return m.Unlock, nil
}
