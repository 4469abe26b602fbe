package provisioning

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/SOTO729/Evaluaasiv3-sub005/models"
	"gorm.io/gorm"
)

// memStore implementa en memoria todos los contratos de datos del motor.
// Los commits copian el estado y solo lo publican si fn no falla, igual que
// una transacción real.
type memStore struct {
	mu sync.Mutex

	groups      map[uint]*models.CandidateGroup
	members     map[uint][]models.GroupMember
	exams       map[uint]*models.Exam
	priceRules  []models.PriceRule
	balances    map[uint]float64
	assignments []models.Assignment
	journal     []models.BalanceTransaction
}

func newMemStore() *memStore {
	return &memStore{
		groups:   make(map[uint]*models.CandidateGroup),
		members:  make(map[uint][]models.GroupMember),
		exams:    make(map[uint]*models.Exam),
		balances: make(map[uint]float64),
	}
}

func (s *memStore) GetGroup(_ context.Context, id uint) (*models.CandidateGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, ErrGroupNotFound
	}
	copied := *g
	return &copied, nil
}

func (s *memStore) GetGroupMembers(_ context.Context, groupID uint) ([]models.GroupMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.GroupMember(nil), s.members[groupID]...), nil
}

func (s *memStore) GetExam(_ context.Context, id uint) (*models.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.exams[id]
	if !ok {
		return nil, ErrExamNotFound
	}
	copied := *e
	return &copied, nil
}

func (s *memStore) PublishedExamByECM(_ context.Context, ecmCode string) (*models.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.exams {
		if e.IsPublished && e.ECMCode != nil && NormalizeECM(*e.ECMCode) == NormalizeECM(ecmCode) {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memStore) PublishedExamsByECM(_ context.Context) (map[string]models.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	catalog := make(map[string]models.Exam)
	for _, e := range s.exams {
		if e.IsPublished && e.ECMCode != nil {
			catalog[NormalizeECM(*e.ECMCode)] = *e
		}
	}
	return catalog, nil
}

func (s *memStore) SetPublished(_ context.Context, examID uint, published bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.exams[examID]
	if !ok {
		return ErrExamNotFound
	}
	// Mismo respaldo que el índice único parcial de la BD: a lo más un
	// examen publicado por código ECM.
	if published && e.ECMCode != nil && *e.ECMCode != "" {
		for _, other := range s.exams {
			if other.ID != examID && other.IsPublished && other.ECMCode != nil &&
				NormalizeECM(*other.ECMCode) == NormalizeECM(*e.ECMCode) {
				return ErrPublicationConflict
			}
		}
	}
	e.IsPublished = published
	return nil
}

func (s *memStore) ExistingForCandidates(_ context.Context, candidateIDs []uint) (AssignmentSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := make(map[uint]bool, len(candidateIDs))
	for _, id := range candidateIDs {
		wanted[id] = true
	}
	var matched []models.Assignment
	for _, a := range s.assignments {
		if wanted[a.CandidateID] {
			matched = append(matched, a)
		}
	}
	return NewAssignmentSnapshot(matched), nil
}

func (s *memStore) FindPriceRule(_ context.Context, scope string, scopeID *uint) (*models.PriceRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.priceRules {
		r := &s.priceRules[i]
		if r.Scope != scope {
			continue
		}
		if scopeID == nil && r.ScopeID == nil {
			copied := *r
			return &copied, nil
		}
		if scopeID != nil && r.ScopeID != nil && *scopeID == *r.ScopeID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memStore) CurrentBalance(_ context.Context, groupID uint) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[groupID], nil
}

// memTx acumula los cambios de un commit y los aplica solo en caso de éxito.
type memTx struct {
	store       *memStore
	balances    map[uint]float64
	assignments []models.Assignment
	journal     []models.BalanceTransaction
}

func (t *memTx) LockedBalance(groupID uint) (float64, error) {
	if b, ok := t.balances[groupID]; ok {
		return b, nil
	}
	return t.store.balances[groupID], nil
}

func (t *memTx) CreateAssignments(assignments []models.Assignment) error {
	now := time.Now()
	for i := range assignments {
		if assignments[i].AssignedAt.IsZero() {
			assignments[i].AssignedAt = now
		}
	}
	t.assignments = append(t.assignments, assignments...)
	return nil
}

func (t *memTx) Debit(groupID uint, entry models.BalanceTransaction) (float64, error) {
	current, err := t.LockedBalance(groupID)
	if err != nil {
		return 0, err
	}
	newBalance := current + entry.Amount
	if newBalance < 0 {
		return 0, errors.New("el saldo no puede quedar en negativo")
	}
	t.balances[groupID] = newBalance
	t.journal = append(t.journal, entry)
	return newBalance, nil
}

func (s *memStore) Commit(_ context.Context, _ uint, fn func(tx CommitTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memTx{store: s, balances: make(map[uint]float64)}
	if err := fn(tx); err != nil {
		return err
	}
	for groupID, b := range tx.balances {
		s.balances[groupID] = b
	}
	s.assignments = append(s.assignments, tx.assignments...)
	s.journal = append(s.journal, tx.journal...)
	return nil
}

// --- constructores de datos de prueba ---

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

func gormModel(id uint) gorm.Model {
	return gorm.Model{ID: id}
}

// splitName reparte un nombre completo en nombre, primer y segundo apellido.
func splitName(name string) (first, last1, last2 string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", "", ""
	case 1:
		return parts[0], "", ""
	case 2:
		return parts[0], parts[1], ""
	default:
		return strings.Join(parts[:len(parts)-2], " "), parts[len(parts)-2], parts[len(parts)-1]
	}
}

func (s *memStore) seedGroup(id, campusID uint) {
	s.groups[id] = &models.CandidateGroup{Model: gormModel(id), Name: "Grupo de prueba", CampusID: campusID}
}

// seedMember da de alta un miembro; name se reparte entre nombre y
// apellidos tal como lo haría el alta de candidatos.
func (s *memStore) seedMember(groupID, candidateID uint, name, email, curp string) {
	first, last1, last2 := splitName(name)
	candidate := &models.Candidate{
		Model:     gormModel(candidateID),
		FirstName: first,
		LastName1: last1,
		LastName2: last2,
		Email:     email,
		CURP:      curp,
	}
	s.members[groupID] = append(s.members[groupID], models.GroupMember{
		GroupID:     groupID,
		CandidateID: candidateID,
		Ordinal:     len(s.members[groupID]),
		Candidate:   candidate,
	})
}

func (s *memStore) seedExam(id uint, ecm string, published bool) *models.Exam {
	exam := &models.Exam{
		Model:                  gormModel(id),
		Title:                  "Examen " + ecm,
		IsPublished:            published,
		ContentType:            "mixto",
		TimeLimitMinutes:       120,
		PassingScore:           70,
		MaxAttempts:            1,
		MaxDisconnections:      3,
		AvailableQuestionCount: 100,
		AvailableExerciseCount: 20,
	}
	if ecm != "" {
		exam.ECMCode = strPtr(ecm)
	}
	s.exams[id] = exam
	return exam
}

func (s *memStore) seedAssignment(candidateID, examID uint, ecm string, number int, sourceGroup uint) {
	s.assignments = append(s.assignments, models.Assignment{
		CandidateID:      candidateID,
		ExamID:           examID,
		ECMCode:          ecm,
		AssignmentNumber: number,
		AssignedAt:       time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		SourceGroupID:    sourceGroup,
	})
}
