package provisioning

import (
	"fmt"

	"github.com/SOTO729/Evaluaasiv3-sub005/models"
)

// TargetMode indica cómo se expande una solicitud de asignación a candidatos
// concretos.
type TargetMode string

const (
	// TargetAll asigna a todos los miembros del grupo.
	TargetAll TargetMode = "all"
	// TargetSelected asigna solo a los miembros marcados por el operador.
	TargetSelected TargetMode = "selected"
	// TargetBulk resuelve los destinos fila por fila desde una plantilla
	// cargada; la expansión la hace MatchBulkRows, no ResolveTargets.
	TargetBulk TargetMode = "bulk"
)

// ResolveTargets expande la membresía del grupo al conjunto de candidatos
// destino. Es un cálculo puro de pertenencia: no crea nada y es seguro
// llamarlo cuantas veces haga falta. Los IDs ajenos al grupo se descartan.
func ResolveTargets(members []models.GroupMember, mode TargetMode, selection []uint) ([]uint, error) {
	switch mode {
	case TargetAll:
		ids := make([]uint, 0, len(members))
		for _, m := range members {
			ids = append(ids, m.CandidateID)
		}
		return ids, nil

	case TargetSelected:
		if len(selection) == 0 {
			return nil, ErrEmptySelection
		}
		inGroup := make(map[uint]bool, len(members))
		for _, m := range members {
			inGroup[m.CandidateID] = true
		}
		seen := make(map[uint]bool, len(selection))
		ids := make([]uint, 0, len(selection))
		for _, id := range selection {
			if inGroup[id] && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return nil, ErrEmptySelection
		}
		return ids, nil

	default:
		return nil, fmt.Errorf("modo de selección desconocido: %q", mode)
	}
}
