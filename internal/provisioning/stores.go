package provisioning

import (
	"context"

	"github.com/SOTO729/Evaluaasiv3-sub005/models"
)

// Contratos de datos que el motor consume. Las implementaciones reales viven
// en internal/store sobre GORM y Redis; las pruebas usan dobles en memoria.

// Directory expone el directorio de grupos y membresías. Solo lectura.
type Directory interface {
	GetGroup(ctx context.Context, id uint) (*models.CandidateGroup, error)
	// GetGroupMembers regresa la membresía con el candidato precargado,
	// ordenada por ordinal de alta.
	GetGroupMembers(ctx context.Context, groupID uint) ([]models.GroupMember, error)
}

// Catalog expone el catálogo de exámenes y códigos ECM.
type Catalog interface {
	GetExam(ctx context.Context, id uint) (*models.Exam, error)
	// PublishedExamByECM regresa el examen publicado para un código ECM,
	// o nil si no existe. Por invariante hay a lo más uno.
	PublishedExamByECM(ctx context.Context, ecmCode string) (*models.Exam, error)
	// PublishedExamsByECM regresa el catálogo completo de códigos ECM con
	// examen publicado, indexado por código.
	PublishedExamsByECM(ctx context.Context) (map[string]models.Exam, error)
	SetPublished(ctx context.Context, examID uint, published bool) error
}

// AssignmentStore consulta las asignaciones existentes para los chequeos de
// idempotencia. La lectura es un corte consistente al inicio del lote.
type AssignmentStore interface {
	ExistingForCandidates(ctx context.Context, candidateIDs []uint) (AssignmentSnapshot, error)
}

// PricingStore resuelve reglas de precio y saldos fuera de transacción.
type PricingStore interface {
	// FindPriceRule regresa la regla para un ámbito, o nil si no hay.
	FindPriceRule(ctx context.Context, scope string, scopeID *uint) (*models.PriceRule, error)
	CurrentBalance(ctx context.Context, groupID uint) (float64, error)
}

// CommitTx es la unidad de trabajo atómica de un commit: el saldo del grupo
// ya está bloqueado para escritura cuando fn la recibe.
type CommitTx interface {
	LockedBalance(groupID uint) (float64, error)
	CreateAssignments(assignments []models.Assignment) error
	// Debit descuenta el cargo y registra la entrada en el diario.
	// Regresa el saldo resultante.
	Debit(groupID uint, entry models.BalanceTransaction) (float64, error)
}

// CommitStore abre la unidad de trabajo de un commit. Si fn falla, nada de
// lo hecho dentro persiste.
type CommitStore interface {
	Commit(ctx context.Context, groupID uint, fn func(tx CommitTx) error) error
}

// SlotLocker toma el candado del cupo de publicación de un código ECM.
// Una implementación debe fallar rápido con ErrConflictRetry si el candado
// no se consigue de inmediato, nunca bloquear indefinidamente.
type SlotLocker interface {
	AcquirePublicationSlot(ctx context.Context, ecmCode string) (release func(), err error)
}
