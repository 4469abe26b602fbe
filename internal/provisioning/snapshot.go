package provisioning

import "github.com/SOTO729/Evaluaasiv3-sub005/models"

// AssignmentSnapshot es el corte consistente de asignaciones existentes que
// se toma una sola vez al inicio de un lote. Todas las filas del lote se
// clasifican contra el mismo corte para que el resultado sea determinista.
type AssignmentSnapshot struct {
	byCandidate map[uint][]models.Assignment
}

// NewAssignmentSnapshot construye el corte a partir de las asignaciones
// leídas del almacén.
func NewAssignmentSnapshot(assignments []models.Assignment) AssignmentSnapshot {
	byCandidate := make(map[uint][]models.Assignment)
	for _, a := range assignments {
		byCandidate[a.CandidateID] = append(byCandidate[a.CandidateID], a)
	}
	return AssignmentSnapshot{byCandidate: byCandidate}
}

// LatestForECM regresa la asignación de número más alto del candidato para
// un código ECM, o nil si no tiene ninguna.
func (s AssignmentSnapshot) LatestForECM(candidateID uint, ecmCode string) *models.Assignment {
	ecmCode = NormalizeECM(ecmCode)
	var latest *models.Assignment
	for i := range s.byCandidate[candidateID] {
		a := &s.byCandidate[candidateID][i]
		if NormalizeECM(a.ECMCode) != ecmCode {
			continue
		}
		if latest == nil || a.AssignmentNumber > latest.AssignmentNumber {
			latest = a
		}
	}
	return latest
}

// LatestForExam regresa la asignación más reciente del candidato para un
// examen sin código ECM, donde la idempotencia se verifica por examen.
func (s AssignmentSnapshot) LatestForExam(candidateID uint, examID uint) *models.Assignment {
	var latest *models.Assignment
	for i := range s.byCandidate[candidateID] {
		a := &s.byCandidate[candidateID][i]
		if a.ExamID != examID {
			continue
		}
		if latest == nil || a.AssignmentNumber > latest.AssignmentNumber {
			latest = a
		}
	}
	return latest
}

// NextNumber calcula el número tentativo de una nueva asignación para el
// par (candidato, código ECM): el máximo existente más uno.
func (s AssignmentSnapshot) NextNumber(candidateID uint, ecmCode string) int {
	if latest := s.LatestForECM(candidateID, ecmCode); latest != nil {
		return latest.AssignmentNumber + 1
	}
	return 1
}
