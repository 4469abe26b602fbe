package provisioning

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/Knetic/govaluate"
	"github.com/SOTO729/Evaluaasiv3-sub005/models"
)

// CostPreview es el desglose de costo de una operación de asignación.
// CostSource registra qué nivel de la cadena de precios aportó el costo
// unitario: grupo, campus o plataforma.
type CostPreview struct {
	UnitCost             float64 `json:"unitCost"`
	Units                int     `json:"units"`
	TotalCost            float64 `json:"totalCost"`
	CurrentBalance       float64 `json:"currentBalance"`
	RemainingBalance     float64 `json:"remainingBalance"`
	HasSufficientBalance bool    `json:"hasSufficientBalance"`
	CostSource           string  `json:"costSource"`
}

// Ledger calcula costos y ejecuta los cargos de saldo. Preview es de solo
// lectura y soporta concurrencia ilimitada; los cargos de un mismo grupo se
// serializan con un mutex por grupo además del bloqueo de fila en la BD.
type Ledger struct {
	pricing PricingStore

	mu     sync.Mutex
	groups map[uint]*sync.Mutex
}

func NewLedger(pricing PricingStore) *Ledger {
	return &Ledger{pricing: pricing, groups: make(map[uint]*sync.Mutex)}
}

// LockGroup toma el candado de commit del grupo y regresa la función que lo
// libera. Dos commits simultáneos del mismo grupo jamás leen el mismo saldo.
func (l *Ledger) LockGroup(groupID uint) func() {
	l.mu.Lock()
	m, ok := l.groups[groupID]
	if !ok {
		m = &sync.Mutex{}
		l.groups[groupID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Preview calcula el costo de asignar `units` certificaciones al grupo sin
// tocar nada. El costo unitario se resuelve con la cadena de precios
// grupo → campus → plataforma; gana la primera regla encontrada.
func (l *Ledger) Preview(ctx context.Context, group *models.CandidateGroup, units int) (CostPreview, error) {
	unitCost, source, err := l.resolveUnitCost(ctx, group, units)
	if err != nil {
		return CostPreview{}, err
	}

	balance, err := l.pricing.CurrentBalance(ctx, group.ID)
	if err != nil {
		return CostPreview{}, fmt.Errorf("no fue posible leer el saldo del grupo %d: %w", group.ID, err)
	}

	total := round2(unitCost * float64(units))
	return CostPreview{
		UnitCost:             unitCost,
		Units:                units,
		TotalCost:            total,
		CurrentBalance:       balance,
		RemainingBalance:     round2(balance - total),
		HasSufficientBalance: balance >= total,
		CostSource:           source,
	}, nil
}

// Charge re-verifica el saldo ya bloqueado y ejecuta el débito dentro de la
// unidad de trabajo del commit. Nunca confía en una vista previa anterior:
// el saldo pudo cambiar entre la vista previa y el commit.
func (l *Ledger) Charge(tx CommitTx, groupID uint, preview CostPreview, folio string, concept string) (float64, error) {
	balance, err := tx.LockedBalance(groupID)
	if err != nil {
		return 0, fmt.Errorf("no fue posible bloquear el saldo del grupo %d: %w", groupID, err)
	}
	if balance < preview.TotalCost {
		return 0, &InsufficientBalanceError{Required: preview.TotalCost, Available: balance}
	}
	if preview.TotalCost == 0 {
		// Sin unidades nuevas no hay cargo ni entrada en el diario.
		return balance, nil
	}

	newBalance, err := tx.Debit(groupID, models.BalanceTransaction{
		GroupID:  groupID,
		Amount:   -preview.TotalCost,
		Concept:  concept,
		Folio:    folio,
		UnitCost: preview.UnitCost,
		Units:    preview.Units,
	})
	if err != nil {
		return 0, fmt.Errorf("no fue posible aplicar el cargo al grupo %d: %w", groupID, err)
	}
	return newBalance, nil
}

func (l *Ledger) resolveUnitCost(ctx context.Context, group *models.CandidateGroup, units int) (float64, string, error) {
	groupID := group.ID
	chain := []struct {
		scope   string
		scopeID *uint
	}{
		{models.PriceScopeGroup, &groupID},
		{models.PriceScopeCampus, &group.CampusID},
		{models.PriceScopePlatform, nil},
	}

	for _, link := range chain {
		rule, err := l.pricing.FindPriceRule(ctx, link.scope, link.scopeID)
		if err != nil {
			return 0, "", fmt.Errorf("no fue posible consultar la regla de precio (%s): %w", link.scope, err)
		}
		if rule == nil {
			continue
		}
		cost, err := evaluateRule(rule, units)
		if err != nil {
			return 0, "", err
		}
		return cost, link.scope, nil
	}

	return 0, "", fmt.Errorf("%w: grupo %d", ErrNoPriceRule, groupID)
}

// evaluateRule obtiene el costo unitario de una regla. Si la regla trae una
// fórmula de precio por volumen se evalúa con la variable "Unidades".
func evaluateRule(rule *models.PriceRule, units int) (float64, error) {
	if rule.Formula != "" {
		expression, err := govaluate.NewEvaluableExpression(rule.Formula)
		if err != nil {
			return 0, fmt.Errorf("error en la fórmula de precio '%s': %w", rule.Formula, err)
		}
		parameters := map[string]interface{}{"Unidades": float64(units)}
		result, err := expression.Evaluate(parameters)
		if err != nil {
			return 0, fmt.Errorf("no fue posible evaluar la fórmula de precio: %w", err)
		}
		cost, ok := result.(float64)
		if !ok {
			return 0, fmt.Errorf("la fórmula de precio '%s' no produjo un número", rule.Formula)
		}
		return round2(cost), nil
	}
	if rule.UnitCost == nil {
		return 0, fmt.Errorf("la regla de precio %d no tiene costo ni fórmula", rule.ID)
	}
	return *rule.UnitCost, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
