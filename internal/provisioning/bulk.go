package provisioning

import (
	"strconv"
	"strings"
	"time"

	"github.com/SOTO729/Evaluaasiv3-sub005/models"
)

// Razones con las que se clasifica cada fila del archivo de carga masiva.
const (
	ReasonCandidateNotFound = "candidato no encontrado en el grupo"
	ReasonECMNotFound       = "código ECM no encontrado o sin examen publicado"
	ReasonAlreadyAssigned   = "el candidato ya cuenta con este estándar asignado"
	ReasonDuplicateRow      = "fila duplicada dentro del mismo archivo"
)

// BulkRow es una fila del archivo de carga masiva. Vive solo durante un
// ciclo de vista previa/commit; nunca se persiste.
type BulkRow struct {
	RowIndex int    `json:"rowIndex"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	CURP     string `json:"curp"`
	ECMCode  string `json:"ecmCode"`
}

// BulkAssigned es una fila resuelta que sí generará una asignación.
type BulkAssigned struct {
	BulkRow
	CandidateID      uint   `json:"candidateId"`
	CandidateName    string `json:"candidateName"`
	ExamID           uint   `json:"examId"`
	AssignmentNumber int    `json:"assignmentNumber"`
}

// BulkSkipped es una fila resuelta pero omitida; lleva los datos de la
// asignación previa para mostrarlos al operador.
type BulkSkipped struct {
	BulkRow
	CandidateID      uint      `json:"candidateId"`
	CandidateName    string    `json:"candidateName"`
	Reason           string    `json:"reason"`
	AssignmentNumber int       `json:"assignmentNumber,omitempty"`
	AssignedAt       time.Time `json:"assignedAt,omitempty"`
	SourceGroupID    uint      `json:"sourceGroupId,omitempty"`
}

// BulkError es una fila que no pudo resolverse a candidato o examen.
type BulkError struct {
	BulkRow
	Reason string `json:"reason"`
}

// BulkOutcome es la partición completa de las filas procesadas. Toda fila
// cae exactamente en una de las tres listas y el orden del archivo se
// conserva dentro de cada una.
type BulkOutcome struct {
	Assigned []BulkAssigned `json:"assigned"`
	Skipped  []BulkSkipped  `json:"skipped"`
	Errors   []BulkError    `json:"errors"`
}

// Total regresa el número de filas procesadas.
func (o BulkOutcome) Total() int {
	return len(o.Assigned) + len(o.Skipped) + len(o.Errors)
}

// memberIndex indexa la membresía del grupo por cada identificador que la
// plantilla admite. La precedencia de resolución es CURP → correo → nombre
// completo, insensible a mayúsculas; gana la primera regla que empate.
type memberIndex struct {
	byCURP  map[string]*models.Candidate
	byEmail map[string]*models.Candidate
	byName  map[string]*models.Candidate
}

func buildMemberIndex(members []models.GroupMember) memberIndex {
	idx := memberIndex{
		byCURP:  make(map[string]*models.Candidate),
		byEmail: make(map[string]*models.Candidate),
		byName:  make(map[string]*models.Candidate),
	}
	for i := range members {
		c := members[i].Candidate
		if c == nil {
			continue
		}
		if curp := strings.ToUpper(strings.TrimSpace(c.CURP)); curp != "" {
			idx.byCURP[curp] = c
		}
		if email := strings.ToLower(strings.TrimSpace(c.Email)); email != "" {
			idx.byEmail[email] = c
		}
		if name := strings.ToLower(strings.Join(strings.Fields(c.FullName()), " ")); name != "" {
			idx.byName[name] = c
		}
	}
	return idx
}

func (idx memberIndex) resolve(row BulkRow) *models.Candidate {
	if curp := strings.ToUpper(strings.TrimSpace(row.CURP)); curp != "" {
		if c, ok := idx.byCURP[curp]; ok {
			return c
		}
	}
	if email := strings.ToLower(strings.TrimSpace(row.Email)); email != "" {
		if c, ok := idx.byEmail[email]; ok {
			return c
		}
	}
	if name := strings.ToLower(strings.Join(strings.Fields(row.FullName), " ")); name != "" {
		if c, ok := idx.byName[name]; ok {
			return c
		}
	}
	return nil
}

// MatchBulkRows clasifica cada fila del archivo contra el catálogo de
// códigos ECM publicados, la membresía del grupo y el corte de asignaciones
// existentes. Es una función pura: con entradas idénticas produce la misma
// partición y los mismos números tentativos, lo que hace de la vista previa
// un pronóstico confiable del commit.
func MatchBulkRows(rows []BulkRow, catalog map[string]models.Exam, members []models.GroupMember, existing AssignmentSnapshot) BulkOutcome {
	idx := buildMemberIndex(members)
	var out BulkOutcome
	// Pares ya tomados por una fila anterior de este mismo archivo.
	taken := make(map[string]bool)

	for _, row := range rows {
		candidate := idx.resolve(row)
		if candidate == nil {
			out.Errors = append(out.Errors, BulkError{BulkRow: row, Reason: ReasonCandidateNotFound})
			continue
		}

		ecm := NormalizeECM(row.ECMCode)
		exam, ok := catalog[ecm]
		if !ok || !exam.IsPublished {
			out.Errors = append(out.Errors, BulkError{BulkRow: row, Reason: ReasonECMNotFound})
			continue
		}

		pairKey := pairKey(candidate.ID, ecm)
		if taken[pairKey] {
			out.Skipped = append(out.Skipped, BulkSkipped{
				BulkRow:       row,
				CandidateID:   candidate.ID,
				CandidateName: candidate.FullName(),
				Reason:        ReasonDuplicateRow,
			})
			continue
		}

		if prev := existing.LatestForECM(candidate.ID, ecm); prev != nil {
			out.Skipped = append(out.Skipped, BulkSkipped{
				BulkRow:          row,
				CandidateID:      candidate.ID,
				CandidateName:    candidate.FullName(),
				Reason:           ReasonAlreadyAssigned,
				AssignmentNumber: prev.AssignmentNumber,
				AssignedAt:       prev.AssignedAt,
				SourceGroupID:    prev.SourceGroupID,
			})
			continue
		}

		taken[pairKey] = true
		out.Assigned = append(out.Assigned, BulkAssigned{
			BulkRow:          row,
			CandidateID:      candidate.ID,
			CandidateName:    candidate.FullName(),
			ExamID:           exam.ID,
			AssignmentNumber: existing.NextNumber(candidate.ID, ecm),
		})
	}

	return out
}

func pairKey(candidateID uint, ecmCode string) string {
	return NormalizeECM(ecmCode) + "#" + strconv.FormatUint(uint64(candidateID), 10)
}

// NormalizeECM lleva un código ECM a su forma canónica: mayúsculas y sin
// espacios alrededor.
func NormalizeECM(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
