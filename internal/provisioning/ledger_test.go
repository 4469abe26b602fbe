package provisioning

import (
	"context"
	"sync"
	"testing"

	"github.com/SOTO729/Evaluaasiv3-sub005/models"
	"github.com/stretchr/testify/require"
)

func seedLedgerStore(balance float64) (*memStore, *models.CandidateGroup) {
	store := newMemStore()
	store.seedGroup(1, 10)
	store.balances[1] = balance
	group := store.groups[1]
	return store, group
}

func TestLedgerPreview(t *testing.T) {
	ctx := context.Background()

	t.Run("escenario de referencia 500/50/8", func(t *testing.T) {
		store, group := seedLedgerStore(500)
		store.priceRules = []models.PriceRule{
			{Scope: models.PriceScopePlatform, UnitCost: floatPtr(50)},
		}
		ledger := NewLedger(store)

		preview, err := ledger.Preview(ctx, group, 8)
		require.NoError(t, err)
		require.Equal(t, 50.0, preview.UnitCost)
		require.Equal(t, 400.0, preview.TotalCost)
		require.Equal(t, 500.0, preview.CurrentBalance)
		require.Equal(t, 100.0, preview.RemainingBalance)
		require.True(t, preview.HasSufficientBalance)
		require.Equal(t, models.PriceScopePlatform, preview.CostSource)
	})

	t.Run("la vista previa no muta nada", func(t *testing.T) {
		store, group := seedLedgerStore(500)
		store.priceRules = []models.PriceRule{
			{Scope: models.PriceScopePlatform, UnitCost: floatPtr(50)},
		}
		ledger := NewLedger(store)

		_, err := ledger.Preview(ctx, group, 8)
		require.NoError(t, err)
		require.Equal(t, 500.0, store.balances[1])
		require.Empty(t, store.journal)
	})

	t.Run("saldo insuficiente se reporta sin fallar", func(t *testing.T) {
		store, group := seedLedgerStore(100)
		store.priceRules = []models.PriceRule{
			{Scope: models.PriceScopePlatform, UnitCost: floatPtr(50)},
		}
		ledger := NewLedger(store)

		preview, err := ledger.Preview(ctx, group, 8)
		require.NoError(t, err)
		require.False(t, preview.HasSufficientBalance)
		require.Equal(t, -300.0, preview.RemainingBalance)
	})

	t.Run("sin regla de precio", func(t *testing.T) {
		store, group := seedLedgerStore(500)
		ledger := NewLedger(store)
		_, err := ledger.Preview(ctx, group, 8)
		require.ErrorIs(t, err, ErrNoPriceRule)
	})
}

func TestLedgerPriceChain(t *testing.T) {
	ctx := context.Background()
	groupID := uint(1)
	campusID := uint(10)

	t.Run("la regla del grupo gana", func(t *testing.T) {
		store, group := seedLedgerStore(1000)
		store.priceRules = []models.PriceRule{
			{Scope: models.PriceScopeGroup, ScopeID: &groupID, UnitCost: floatPtr(40)},
			{Scope: models.PriceScopeCampus, ScopeID: &campusID, UnitCost: floatPtr(45)},
			{Scope: models.PriceScopePlatform, UnitCost: floatPtr(50)},
		}
		ledger := NewLedger(store)
		preview, err := ledger.Preview(ctx, group, 2)
		require.NoError(t, err)
		require.Equal(t, 40.0, preview.UnitCost)
		require.Equal(t, models.PriceScopeGroup, preview.CostSource)
	})

	t.Run("sin regla de grupo cae al campus", func(t *testing.T) {
		store, group := seedLedgerStore(1000)
		store.priceRules = []models.PriceRule{
			{Scope: models.PriceScopeCampus, ScopeID: &campusID, UnitCost: floatPtr(45)},
			{Scope: models.PriceScopePlatform, UnitCost: floatPtr(50)},
		}
		ledger := NewLedger(store)
		preview, err := ledger.Preview(ctx, group, 2)
		require.NoError(t, err)
		require.Equal(t, 45.0, preview.UnitCost)
		require.Equal(t, models.PriceScopeCampus, preview.CostSource)
	})

	t.Run("fórmula de precio por volumen", func(t *testing.T) {
		store, group := seedLedgerStore(1000)
		store.priceRules = []models.PriceRule{
			{Scope: models.PriceScopePlatform, Formula: "Unidades >= 10 ? 45 : 50"},
		}
		ledger := NewLedger(store)

		preview, err := ledger.Preview(ctx, group, 5)
		require.NoError(t, err)
		require.Equal(t, 50.0, preview.UnitCost)

		preview, err = ledger.Preview(ctx, group, 12)
		require.NoError(t, err)
		require.Equal(t, 45.0, preview.UnitCost)
	})

	t.Run("fórmula inválida", func(t *testing.T) {
		store, group := seedLedgerStore(1000)
		store.priceRules = []models.PriceRule{
			{Scope: models.PriceScopePlatform, Formula: "Unidades >="},
		}
		ledger := NewLedger(store)
		_, err := ledger.Preview(ctx, group, 5)
		require.Error(t, err)
	})
}

func TestLedgerCharge(t *testing.T) {
	ctx := context.Background()

	t.Run("cargo exitoso debita y registra en el diario", func(t *testing.T) {
		store, group := seedLedgerStore(500)
		store.priceRules = []models.PriceRule{
			{Scope: models.PriceScopePlatform, UnitCost: floatPtr(50)},
		}
		ledger := NewLedger(store)
		preview, err := ledger.Preview(ctx, group, 8)
		require.NoError(t, err)

		err = store.Commit(ctx, 1, func(tx CommitTx) error {
			newBalance, err := ledger.Charge(tx, 1, preview, "folio-1", "prueba")
			require.NoError(t, err)
			require.Equal(t, 100.0, newBalance)
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 100.0, store.balances[1])
		require.Len(t, store.journal, 1)
		require.Equal(t, -400.0, store.journal[0].Amount)
		require.Equal(t, 8, store.journal[0].Units)
	})

	t.Run("el cargo re-verifica el saldo, no confía en la vista previa", func(t *testing.T) {
		store, group := seedLedgerStore(500)
		store.priceRules = []models.PriceRule{
			{Scope: models.PriceScopePlatform, UnitCost: floatPtr(50)},
		}
		ledger := NewLedger(store)
		preview, err := ledger.Preview(ctx, group, 8)
		require.NoError(t, err)

		// El saldo cambió entre la vista previa y el commit.
		store.balances[1] = 300

		err = store.Commit(ctx, 1, func(tx CommitTx) error {
			_, err := ledger.Charge(tx, 1, preview, "folio-2", "prueba")
			return err
		})
		require.ErrorIs(t, err, ErrInsufficientBalance)

		var insufficient *InsufficientBalanceError
		require.ErrorAs(t, err, &insufficient)
		require.Equal(t, 100.0, insufficient.Shortfall())

		// Sin débito parcial: el saldo queda intacto.
		require.Equal(t, 300.0, store.balances[1])
		require.Empty(t, store.journal)
	})

	t.Run("cero unidades no genera cargo ni entrada", func(t *testing.T) {
		store, group := seedLedgerStore(500)
		store.priceRules = []models.PriceRule{
			{Scope: models.PriceScopePlatform, UnitCost: floatPtr(50)},
		}
		ledger := NewLedger(store)
		preview, err := ledger.Preview(ctx, group, 0)
		require.NoError(t, err)

		err = store.Commit(ctx, 1, func(tx CommitTx) error {
			newBalance, err := ledger.Charge(tx, 1, preview, "folio-3", "prueba")
			require.NoError(t, err)
			require.Equal(t, 500.0, newBalance)
			return nil
		})
		require.NoError(t, err)
		require.Empty(t, store.journal)
	})
}

// Dos commits simultáneos del mismo grupo jamás deben pasar ambos con un
// saldo que solo alcanza para uno.
func TestLedgerConcurrentCommitsNoOverdraft(t *testing.T) {
	ctx := context.Background()
	store, group := seedLedgerStore(400)
	store.priceRules = []models.PriceRule{
		{Scope: models.PriceScopePlatform, UnitCost: floatPtr(50)},
	}
	ledger := NewLedger(store)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			preview, err := ledger.Preview(ctx, group, 6) // 300 cada uno
			if err != nil {
				results <- err
				return
			}
			unlock := ledger.LockGroup(1)
			defer unlock()
			results <- store.Commit(ctx, 1, func(tx CommitTx) error {
				_, err := ledger.Charge(tx, 1, preview, "folio-c", "concurrencia")
				return err
			})
		}()
	}
	wg.Wait()
	close(results)

	var failures, successes int
	for err := range results {
		if err != nil {
			require.ErrorIs(t, err, ErrInsufficientBalance)
			failures++
		} else {
			successes++
		}
	}
	require.Equal(t, 1, successes)
	require.Equal(t, 1, failures)
	require.Equal(t, 100.0, store.balances[1])
	require.Len(t, store.journal, 1)
}
