package provisioning

import (
	"context"
	"fmt"
	"time"

	"github.com/SOTO729/Evaluaasiv3-sub005/models"
	"github.com/google/uuid"
)

// Request es una solicitud de aprovisionamiento. El operador y el grupo
// viajan explícitos en la solicitud; el motor no lee estado de sesión.
type Request struct {
	GroupID    uint
	ExamID     *uint
	BulkRows   []BulkRow
	Overrides  Overrides
	Mode       TargetMode
	MemberIDs  []uint
	OperatorID uint
	DryRun     bool
}

// AlreadyAssignedInfo describe a un candidato omitido porque ya contaba con
// el estándar. Es informativo: no convierte el commit en fallo parcial.
type AlreadyAssignedInfo struct {
	CandidateID      uint      `json:"candidateId"`
	CandidateName    string    `json:"candidateName"`
	ECMCode          string    `json:"ecmCode"`
	AssignmentNumber int       `json:"assignmentNumber"`
	AssignedAt       time.Time `json:"assignedAt"`
	SourceGroupID    uint      `json:"sourceGroupId"`
}

// Result es el resultado de una vista previa o de un commit. En vista previa
// no existe folio ni saldo nuevo porque nada se persistió.
type Result struct {
	DryRun            bool                  `json:"dryRun"`
	Folio             string                `json:"folio,omitempty"`
	Config            *AssignmentConfig     `json:"config,omitempty"`
	CandidateIDs      []uint                `json:"candidateIds,omitempty"`
	Outcome           *BulkOutcome          `json:"outcome,omitempty"`
	Cost              CostPreview           `json:"cost"`
	AlreadyAssigned   []AlreadyAssignedInfo `json:"alreadyAssigned"`
	NewECMAssignments int                   `json:"newEcmAssignmentsCount"`
	NewBalance        *float64              `json:"newBalance,omitempty"`
}

// Orchestrator es el coordinador de dos fases del aprovisionamiento. La
// vista previa y el commit comparten el mismo camino de resolución; el
// commit simplemente no se detiene antes de persistir y siempre re-resuelve
// contra el estado actual en lugar de reusar una vista previa.
type Orchestrator struct {
	directory   Directory
	catalog     Catalog
	assignments AssignmentStore
	ledger      *Ledger
	store       CommitStore

	now      func() time.Time
	newFolio func() string
}

func NewOrchestrator(directory Directory, catalog Catalog, assignments AssignmentStore, ledger *Ledger, store CommitStore) *Orchestrator {
	return &Orchestrator{
		directory:   directory,
		catalog:     catalog,
		assignments: assignments,
		ledger:      ledger,
		store:       store,
		now:         time.Now,
		newFolio:    func() string { return uuid.NewString() },
	}
}

// Provision ejecuta la resolución completa y, si DryRun es falso, persiste
// el lote en una sola transacción: asignaciones, cargo de saldo y entrada en
// el diario, todo o nada.
func (o *Orchestrator) Provision(ctx context.Context, req Request) (*Result, error) {
	group, err := o.directory.GetGroup(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}
	members, err := o.directory.GetGroupMembers(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}

	// Un commit toma el candado del grupo desde antes de resolver: el corte
	// de asignaciones y el chequeo de saldo deben leerse ya serializados, o
	// dos commits simultáneos del mismo lote clasificarían a los mismos
	// candidatos como pendientes y ambos insertarían y cargarían. La vista
	// previa es de solo lectura y no necesita el candado.
	if !req.DryRun {
		unlock := o.ledger.LockGroup(req.GroupID)
		defer unlock()
	}

	var plan *provisionPlan
	if req.Mode == TargetBulk {
		plan, err = o.resolveBulk(ctx, req, members)
	} else {
		plan, err = o.resolveDirect(ctx, req, members)
	}
	if err != nil {
		return nil, err
	}

	cost, err := o.ledger.Preview(ctx, group, len(plan.pending))
	if err != nil {
		return nil, err
	}

	result := &Result{
		DryRun:            req.DryRun,
		Config:            plan.config,
		CandidateIDs:      plan.candidateIDs,
		Outcome:           plan.outcome,
		Cost:              cost,
		AlreadyAssigned:   plan.alreadyAssigned,
		NewECMAssignments: len(plan.pending),
	}
	if result.AlreadyAssigned == nil {
		result.AlreadyAssigned = make([]AlreadyAssignedInfo, 0)
	}

	// La vista previa termina aquí: cero persistencia de cualquier tipo.
	if req.DryRun {
		return result, nil
	}

	if !cost.HasSufficientBalance {
		return nil, &InsufficientBalanceError{Required: cost.TotalCost, Available: cost.CurrentBalance}
	}

	folio := o.newFolio()
	assignedAt := o.now()
	toCreate := make([]models.Assignment, 0, len(plan.pending))
	for _, p := range plan.pending {
		toCreate = append(toCreate, models.Assignment{
			CandidateID:      p.candidateID,
			ExamID:           p.examID,
			ECMCode:          p.ecmCode,
			AssignmentNumber: p.number,
			AssignedAt:       assignedAt,
			SourceGroupID:    req.GroupID,
			OperatorID:       req.OperatorID,
			Folio:            folio,
			ConfigSnapshot:   p.snapshot,
		})
	}

	var newBalance float64
	err = o.store.Commit(ctx, req.GroupID, func(tx CommitTx) error {
		balance, err := o.ledger.Charge(tx, req.GroupID, cost, folio, chargeConcept(plan, req))
		if err != nil {
			return err
		}
		if len(toCreate) > 0 {
			if err := tx.CreateAssignments(toCreate); err != nil {
				return fmt.Errorf("no fue posible crear las asignaciones: %w", err)
			}
		}
		newBalance = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Folio = folio
	result.NewBalance = &newBalance
	result.Cost.RemainingBalance = newBalance
	return result, nil
}

// pendingAssignment es un par (candidato, examen) listo para crearse.
type pendingAssignment struct {
	candidateID uint
	examID      uint
	ecmCode     string
	number      int
	snapshot    models.ConfigSnapshot
}

type provisionPlan struct {
	config          *AssignmentConfig
	candidateIDs    []uint
	outcome         *BulkOutcome
	pending         []pendingAssignment
	alreadyAssigned []AlreadyAssignedInfo
}

// resolveDirect cubre los modos "all" y "selected": un solo examen para un
// conjunto de candidatos del grupo.
func (o *Orchestrator) resolveDirect(ctx context.Context, req Request, members []models.GroupMember) (*provisionPlan, error) {
	if req.ExamID == nil {
		return nil, fmt.Errorf("%w: la solicitud no trae examen", ErrExamNotFound)
	}
	exam, err := o.catalog.GetExam(ctx, *req.ExamID)
	if err != nil {
		return nil, err
	}

	config, err := ResolveConfig(exam, req.Overrides)
	if err != nil {
		return nil, err
	}

	candidateIDs, err := ResolveTargets(members, req.Mode, req.MemberIDs)
	if err != nil {
		return nil, err
	}

	snapshot, err := o.assignments.ExistingForCandidates(ctx, candidateIDs)
	if err != nil {
		return nil, err
	}

	names := make(map[uint]string, len(members))
	for _, m := range members {
		if m.Candidate != nil {
			names[m.CandidateID] = m.Candidate.FullName()
		}
	}

	ecm := ""
	if exam.ECMCode != nil {
		ecm = *exam.ECMCode
	}

	plan := &provisionPlan{config: &config, candidateIDs: candidateIDs}
	for _, candidateID := range candidateIDs {
		var prev *models.Assignment
		if ecm != "" {
			prev = snapshot.LatestForECM(candidateID, ecm)
		} else {
			// Sin código ECM la idempotencia se verifica por examen.
			prev = snapshot.LatestForExam(candidateID, exam.ID)
		}
		if prev != nil {
			plan.alreadyAssigned = append(plan.alreadyAssigned, AlreadyAssignedInfo{
				CandidateID:      candidateID,
				CandidateName:    names[candidateID],
				ECMCode:          ecm,
				AssignmentNumber: prev.AssignmentNumber,
				AssignedAt:       prev.AssignedAt,
				SourceGroupID:    prev.SourceGroupID,
			})
			continue
		}
		number := 1
		if ecm != "" {
			number = snapshot.NextNumber(candidateID, ecm)
		}
		plan.pending = append(plan.pending, pendingAssignment{
			candidateID: candidateID,
			examID:      exam.ID,
			ecmCode:     ecm,
			number:      number,
			snapshot:    config.Snapshot(),
		})
	}

	return plan, nil
}

// resolveBulk cubre el modo de carga masiva por código ECM: cada fila trae
// su propio examen destino y la configuración se resuelve por examen.
func (o *Orchestrator) resolveBulk(ctx context.Context, req Request, members []models.GroupMember) (*provisionPlan, error) {
	catalog, err := o.catalog.PublishedExamsByECM(ctx)
	if err != nil {
		return nil, err
	}

	candidateIDs := make([]uint, 0, len(members))
	for _, m := range members {
		candidateIDs = append(candidateIDs, m.CandidateID)
	}
	snapshot, err := o.assignments.ExistingForCandidates(ctx, candidateIDs)
	if err != nil {
		return nil, err
	}

	outcome := MatchBulkRows(req.BulkRows, catalog, members, snapshot)

	plan := &provisionPlan{outcome: &outcome}
	configs := make(map[uint]models.ConfigSnapshot)
	for _, row := range outcome.Assigned {
		cfgSnapshot, ok := configs[row.ExamID]
		if !ok {
			exam := catalog[NormalizeECM(row.ECMCode)]
			config, err := ResolveConfig(&exam, req.Overrides)
			if err != nil {
				return nil, err
			}
			cfgSnapshot = config.Snapshot()
			configs[row.ExamID] = cfgSnapshot
		}
		plan.pending = append(plan.pending, pendingAssignment{
			candidateID: row.CandidateID,
			examID:      row.ExamID,
			ecmCode:     NormalizeECM(row.ECMCode),
			number:      row.AssignmentNumber,
			snapshot:    cfgSnapshot,
		})
	}
	for _, s := range outcome.Skipped {
		if s.Reason != ReasonAlreadyAssigned {
			continue
		}
		plan.alreadyAssigned = append(plan.alreadyAssigned, AlreadyAssignedInfo{
			CandidateID:      s.CandidateID,
			CandidateName:    s.CandidateName,
			ECMCode:          NormalizeECM(s.ECMCode),
			AssignmentNumber: s.AssignmentNumber,
			AssignedAt:       s.AssignedAt,
			SourceGroupID:    s.SourceGroupID,
		})
	}

	return plan, nil
}

func chargeConcept(plan *provisionPlan, req Request) string {
	if req.Mode == TargetBulk {
		return fmt.Sprintf("Asignación masiva por código ECM (%d certificaciones)", len(plan.pending))
	}
	return fmt.Sprintf("Asignación de examen a grupo (%d certificaciones)", len(plan.pending))
}
