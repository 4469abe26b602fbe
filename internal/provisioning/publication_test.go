package provisioning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishWithoutConflict(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.seedExam(1, "EC0217", false)
	guard := NewPublicationGuard(store, NewLocalSlotLocker())

	result, err := guard.Publish(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, StatePublished, result.State)
	require.Nil(t, result.Conflict)
	require.True(t, store.exams[1].IsPublished)
}

func TestPublishInvalidExam(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	exam := store.seedExam(1, "EC0217", false)
	exam.AvailableQuestionCount = 0
	exam.AvailableExerciseCount = 0
	guard := NewPublicationGuard(store, NewLocalSlotLocker())

	result, err := guard.Publish(ctx, 1)
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.Equal(t, StateInvalid, result.State)
	require.False(t, store.exams[1].IsPublished)
}

func TestPublishWithoutECMCode(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.seedExam(1, "", false)
	guard := NewPublicationGuard(store, NewLocalSlotLocker())

	result, err := guard.Publish(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, StatePublished, result.State)
}

// Escenario de referencia: el examen A (EC1, sin publicar) intenta
// publicarse mientras el examen B (EC1, publicado) existe.
func TestPublishConflictAndReplace(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.seedExam(1, "EC0500", false) // examen A
	store.seedExam(2, "EC0500", true)  // examen B, ya publicado
	guard := NewPublicationGuard(store, NewLocalSlotLocker())

	result, err := guard.Publish(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, StateConflicted, result.State)
	require.NotNil(t, result.Conflict)
	require.Equal(t, "EC0500", result.Conflict.ECMCode)
	require.Equal(t, uint(2), result.Conflict.ConflictingExam.ID)
	// El conflicto no cambia nada hasta que el operador decida.
	require.False(t, store.exams[1].IsPublished)
	require.True(t, store.exams[2].IsPublished)

	resolved, err := guard.Resolve(ctx, 1, ReplaceConflicting)
	require.NoError(t, err)
	require.Equal(t, StatePublished, resolved.State)
	require.True(t, store.exams[1].IsPublished)
	require.False(t, store.exams[2].IsPublished)

	// El invariante se sostiene: a lo más un publicado por código ECM.
	published, err := store.PublishedExamByECM(ctx, "EC0500")
	require.NoError(t, err)
	require.Equal(t, uint(1), published.ID)
}

func TestResolveKeepExisting(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.seedExam(1, "EC0500", false)
	store.seedExam(2, "EC0500", true)
	guard := NewPublicationGuard(store, NewLocalSlotLocker())

	_, err := guard.Resolve(ctx, 1, KeepExisting)
	require.NoError(t, err)
	// Aborta sin tocar registro alguno.
	require.False(t, store.exams[1].IsPublished)
	require.True(t, store.exams[2].IsPublished)
}

func TestRepublishSameExamIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.seedExam(1, "EC0217", true)
	guard := NewPublicationGuard(store, NewLocalSlotLocker())

	// El examen ya publicado no choca consigo mismo.
	result, err := guard.Publish(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, StatePublished, result.State)
}

func TestPublicationSlotLockContention(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.seedExam(1, "EC0217", false)
	locker := NewLocalSlotLocker()
	guard := NewPublicationGuard(store, locker)

	// Alguien más tiene el candado del cupo: la publicación falla rápido
	// con ConflictRetry en lugar de bloquearse.
	release, err := locker.AcquirePublicationSlot(ctx, "EC0217")
	require.NoError(t, err)
	defer release()

	_, err = guard.Publish(ctx, 1)
	require.ErrorIs(t, err, ErrConflictRetry)
	require.False(t, store.exams[1].IsPublished)
}

func TestPublishConflictDetectsOtherCapitalization(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.seedExam(1, "EC0500", false)
	store.seedExam(2, " ec0500 ", true) // capturado con minúsculas y espacios
	guard := NewPublicationGuard(store, NewLocalSlotLocker())

	// La forma canónica del código manda: el conflicto se detecta aunque
	// el rival esté guardado con otra capitalización.
	result, err := guard.Publish(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, StateConflicted, result.State)
	require.NotNil(t, result.Conflict)
	require.Equal(t, uint(2), result.Conflict.ConflictingExam.ID)
}

func TestSlotLockKeyIsCanonical(t *testing.T) {
	ctx := context.Background()
	locker := NewLocalSlotLocker()

	release, err := locker.AcquirePublicationSlot(ctx, "EC0217")
	require.NoError(t, err)
	defer release()

	// El mismo código en minúsculas compite por el mismo candado.
	_, err = locker.AcquirePublicationSlot(ctx, " ec0217 ")
	require.ErrorIs(t, err, ErrConflictRetry)
}

func TestSetPublishedRejectsSecondPublishedECM(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.seedExam(1, "EC0500", true)
	store.seedExam(2, "EC0500", false)

	// El almacén es la última línea de defensa del invariante: publicar
	// por fuera del guardián también falla.
	err := store.SetPublished(ctx, 2, true)
	require.ErrorIs(t, err, ErrPublicationConflict)
	require.False(t, store.exams[2].IsPublished)
}

func TestPublishUnknownExamFailsInValidation(t *testing.T) {
	ctx := context.Background()
	guard := NewPublicationGuard(newMemStore(), NewLocalSlotLocker())

	result, err := guard.Publish(ctx, 99)
	require.ErrorIs(t, err, ErrExamNotFound)
	require.Equal(t, StateValidating, result.State)
}
