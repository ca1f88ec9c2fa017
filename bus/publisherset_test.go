package bus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublisherSetOrdersBySortKeyThenStableHash(t *testing.T) {
	s := NewPublisherSet()
	s.Add(Publisher{BlockID: "c", SortKey: 2, StableHash: "b"})
	s.Add(Publisher{BlockID: "a", SortKey: 1, StableHash: "z"})
	s.Add(Publisher{BlockID: "b", SortKey: 2, StableHash: "a"})

	got := s.Ordered()
	require.Len(t, got, 3)
	require.Equal(t, "a", got[0].BlockID)
	require.Equal(t, "b", got[1].BlockID) // sortKey 2, stableHash "a" < "b"
	require.Equal(t, "c", got[2].BlockID)
}

func TestPublisherSetOrderingIsInsertionOrderIndependent(t *testing.T) {
	pubs := []Publisher{
		{BlockID: "x", SortKey: 5, StableHash: "m"},
		{BlockID: "y", SortKey: 1, StableHash: "n"},
		{BlockID: "z", SortKey: 5, StableHash: "a"},
	}

	forward := NewPublisherSet()
	for _, p := range pubs {
		forward.Add(p)
	}
	reverse := NewPublisherSet()
	for i := len(pubs) - 1; i >= 0; i-- {
		reverse.Add(pubs[i])
	}

	require.Equal(t, forward.Ordered(), reverse.Ordered())
}

func TestIsReservedMatchesTable(t *testing.T) {
	require.True(t, IsReserved("time"))
	require.True(t, IsReserved("energy"))
	require.False(t, IsReserved("myCustomBus"))
}
