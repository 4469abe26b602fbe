package provisioning

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveTargets(t *testing.T) {
	store := newMemStore()
	store.seedGroup(1, 10)
	store.seedMember(1, 101, "Ana López García", "ana@example.mx", "LOGA900101MDFPRN01")
	store.seedMember(1, 102, "Luis Pérez Soto", "luis@example.mx", "")
	store.seedMember(1, 103, "María Ruiz Cano", "maria@example.mx", "")
	members := store.members[1]

	t.Run("todos los miembros", func(t *testing.T) {
		ids, err := ResolveTargets(members, TargetAll, nil)
		require.NoError(t, err)
		require.Equal(t, []uint{101, 102, 103}, ids)
	})

	t.Run("subconjunto seleccionado", func(t *testing.T) {
		ids, err := ResolveTargets(members, TargetSelected, []uint{103, 101})
		require.NoError(t, err)
		require.Equal(t, []uint{103, 101}, ids)
	})

	t.Run("selección vacía", func(t *testing.T) {
		_, err := ResolveTargets(members, TargetSelected, nil)
		require.ErrorIs(t, err, ErrEmptySelection)
	})

	t.Run("selección solo con ajenos al grupo", func(t *testing.T) {
		_, err := ResolveTargets(members, TargetSelected, []uint{999})
		require.ErrorIs(t, err, ErrEmptySelection)
	})

	t.Run("duplicados y ajenos se descartan", func(t *testing.T) {
		ids, err := ResolveTargets(members, TargetSelected, []uint{102, 102, 999})
		require.NoError(t, err)
		require.Equal(t, []uint{102}, ids)
	})

	t.Run("modo desconocido", func(t *testing.T) {
		_, err := ResolveTargets(members, TargetMode("algo"), nil)
		require.Error(t, err)
	})

	t.Run("es repetible sin efectos", func(t *testing.T) {
		first, err := ResolveTargets(members, TargetAll, nil)
		require.NoError(t, err)
		second, err := ResolveTargets(members, TargetAll, nil)
		require.NoError(t, err)
		require.Equal(t, first, second)
	})
}
