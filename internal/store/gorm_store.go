package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/SOTO729/Evaluaasiv3-sub005/internal/provisioning"
	"github.com/SOTO729/Evaluaasiv3-sub005/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implementa sobre GORM todos los contratos de datos del motor de
// asignación: directorio, catálogo, asignaciones, precios y commits.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// --- Directory ---

func (s *GormStore) GetGroup(ctx context.Context, id uint) (*models.CandidateGroup, error) {
	var group models.CandidateGroup
	if err := s.DB.WithContext(ctx).Preload("Campus").First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, provisioning.ErrGroupNotFound
		}
		return nil, fmt.Errorf("no fue posible leer el grupo %d: %w", id, err)
	}
	return &group, nil
}

func (s *GormStore) GetGroupMembers(ctx context.Context, groupID uint) ([]models.GroupMember, error) {
	var members []models.GroupMember
	err := s.DB.WithContext(ctx).
		Preload("Candidate").
		Where("group_id = ?", groupID).
		Order("ordinal asc, id asc").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("no fue posible leer la membresía del grupo %d: %w", groupID, err)
	}
	return members, nil
}

// --- Catalog ---

func (s *GormStore) GetExam(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	if err := s.DB.WithContext(ctx).First(&exam, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, provisioning.ErrExamNotFound
		}
		return nil, fmt.Errorf("no fue posible leer el examen %d: %w", id, err)
	}
	return &exam, nil
}

func (s *GormStore) PublishedExamByECM(ctx context.Context, ecmCode string) (*models.Exam, error) {
	var exam models.Exam
	// La comparación es sobre la forma canónica del código: la BD puede
	// traer códigos capturados con minúsculas o espacios.
	err := s.DB.WithContext(ctx).
		Where("upper(trim(ecm_code)) = ? AND is_published = true", provisioning.NormalizeECM(ecmCode)).
		First(&exam).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("no fue posible consultar el código ECM %s: %w", ecmCode, err)
	}
	return &exam, nil
}

func (s *GormStore) PublishedExamsByECM(ctx context.Context) (map[string]models.Exam, error) {
	var exams []models.Exam
	err := s.DB.WithContext(ctx).
		Where("is_published = true AND ecm_code IS NOT NULL").
		Find(&exams).Error
	if err != nil {
		return nil, fmt.Errorf("no fue posible leer el catálogo de códigos ECM: %w", err)
	}
	catalog := make(map[string]models.Exam, len(exams))
	for _, e := range exams {
		if e.ECMCode != nil {
			catalog[provisioning.NormalizeECM(*e.ECMCode)] = e
		}
	}
	return catalog, nil
}

func (s *GormStore) SetPublished(ctx context.Context, examID uint, published bool) error {
	result := s.DB.WithContext(ctx).
		Model(&models.Exam{}).
		Where("id = ?", examID).
		Update("is_published", published)
	if result.Error != nil {
		// El índice único parcial de exámenes publicados es la última
		// línea de defensa si algo se cuela por fuera del candado.
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return provisioning.ErrPublicationConflict
		}
		return fmt.Errorf("no fue posible actualizar la publicación del examen %d: %w", examID, result.Error)
	}
	if result.RowsAffected == 0 {
		return provisioning.ErrExamNotFound
	}
	return nil
}

// --- AssignmentStore ---

// ExistingForCandidates toma el corte de asignaciones en una sola consulta
// al inicio del lote.
func (s *GormStore) ExistingForCandidates(ctx context.Context, candidateIDs []uint) (provisioning.AssignmentSnapshot, error) {
	if len(candidateIDs) == 0 {
		return provisioning.NewAssignmentSnapshot(nil), nil
	}
	var assignments []models.Assignment
	err := s.DB.WithContext(ctx).
		Where("candidate_id IN ?", candidateIDs).
		Find(&assignments).Error
	if err != nil {
		return provisioning.AssignmentSnapshot{}, fmt.Errorf("no fue posible leer las asignaciones existentes: %w", err)
	}
	return provisioning.NewAssignmentSnapshot(assignments), nil
}

// --- PricingStore ---

func (s *GormStore) FindPriceRule(ctx context.Context, scope string, scopeID *uint) (*models.PriceRule, error) {
	query := s.DB.WithContext(ctx).Where("scope = ?", scope)
	if scopeID != nil {
		query = query.Where("scope_id = ?", *scopeID)
	} else {
		query = query.Where("scope_id IS NULL")
	}

	var rule models.PriceRule
	err := query.Order("id desc").First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("no fue posible consultar la regla de precio (%s): %w", scope, err)
	}
	return &rule, nil
}

func (s *GormStore) CurrentBalance(ctx context.Context, groupID uint) (float64, error) {
	var balance models.GroupBalance
	err := s.DB.WithContext(ctx).Where("group_id = ?", groupID).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return balance.Balance, nil
}

// --- CommitStore ---

// gormCommitTx es la unidad de trabajo de un commit. El saldo del grupo
// queda bloqueado con SELECT ... FOR UPDATE durante toda la transacción.
type gormCommitTx struct {
	tx     *gorm.DB
	locked map[uint]*models.GroupBalance
}

func (t *gormCommitTx) LockedBalance(groupID uint) (float64, error) {
	if b, ok := t.locked[groupID]; ok {
		return b.Balance, nil
	}
	var balance models.GroupBalance
	err := t.tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("group_id = ?", groupID).
		First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// El grupo nunca ha tenido abonos: su saldo es cero pero la fila
		// debe existir para poder bloquearla en commits siguientes.
		balance = models.GroupBalance{GroupID: groupID, Balance: 0}
		if err := t.tx.Create(&balance).Error; err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}
	t.locked[groupID] = &balance
	return balance.Balance, nil
}

func (t *gormCommitTx) CreateAssignments(assignments []models.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}
	return t.tx.Create(&assignments).Error
}

func (t *gormCommitTx) Debit(groupID uint, entry models.BalanceTransaction) (float64, error) {
	balance, ok := t.locked[groupID]
	if !ok {
		return 0, errors.New("el saldo del grupo no está bloqueado")
	}
	newBalance := balance.Balance + entry.Amount
	if newBalance < 0 {
		return 0, &provisioning.InsufficientBalanceError{
			Required:  -entry.Amount,
			Available: balance.Balance,
		}
	}
	if err := t.tx.Model(balance).Update("balance", newBalance).Error; err != nil {
		return 0, err
	}
	balance.Balance = newBalance
	if err := t.tx.Create(&entry).Error; err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Commit abre la transacción del commit y bloquea de entrada el saldo del
// grupo, de modo que dos commits del mismo grupo queden serializados también
// a nivel de base de datos.
func (s *GormStore) Commit(ctx context.Context, groupID uint, fn func(tx provisioning.CommitTx) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commitTx := &gormCommitTx{tx: tx, locked: make(map[uint]*models.GroupBalance)}
		if _, err := commitTx.LockedBalance(groupID); err != nil {
			return fmt.Errorf("no fue posible bloquear el saldo del grupo %d: %w", groupID, err)
		}
		return fn(commitTx)
	})
}
