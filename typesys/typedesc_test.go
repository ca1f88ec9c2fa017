package typesys

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStructurallyEqualIgnoresCategoryAndBusEligible(t *testing.T) {
	a := TypeDesc{World: WorldSignal, Dom: DomainNumber, Cat: CategoryCore, BusEligible: true}
	b := TypeDesc{World: WorldSignal, Dom: DomainNumber, Cat: CategoryInternal, BusEligible: false}
	require.True(t, a.StructurallyEqual(b))

	c := TypeDesc{World: WorldField, Dom: DomainNumber}
	require.False(t, a.StructurallyEqual(c))
}

func TestCompatibleRequiresExactWorldAndDomain(t *testing.T) {
	sig := TypeDesc{World: WorldSignal, Dom: DomainNumber}
	field := TypeDesc{World: WorldField, Dom: DomainNumber}
	require.False(t, Compatible(sig, field), "signal->field must not be directly compatible (spec S3)")
	require.True(t, Compatible(sig, sig))
}

func TestConverterNamedFindsFixedCrossWorldConverters(t *testing.T) {
	conv, ok := ConverterNamed("sampleSignal")
	require.True(t, ok)
	require.Equal(t, TypeDesc{World: WorldSignal, Dom: DomainNumber}, conv.From)
	require.Equal(t, TypeDesc{World: WorldField, Dom: DomainNumber}, conv.To)

	_, ok = ConverterNamed("notARealConverter")
	require.False(t, ok)
}

func TestCombineLegalNumericExcludesVectorAndColor(t *testing.T) {
	require.True(t, CombineLegalNumeric(DomainNumber))
	require.True(t, CombineLegalNumeric(DomainBoolean))
	require.False(t, CombineLegalNumeric(DomainColor))
	require.False(t, CombineLegalNumeric(DomainVec2))
}

func TestTableInternIsIdempotentAndDense(t *testing.T) {
	tbl := NewTable()
	a := tbl.Intern(TypeDesc{World: WorldSignal, Dom: DomainNumber})
	b := tbl.Intern(TypeDesc{World: WorldField, Dom: DomainNumber})
	aAgain := tbl.Intern(TypeDesc{World: WorldSignal, Dom: DomainNumber})

	require.Equal(t, a, aAgain)
	require.NotEqual(t, a, b)
	require.Equal(t, 2, tbl.Len())

	got, ok := tbl.Get(a)
	require.True(t, ok)
	require.Equal(t, TypeDesc{World: WorldSignal, Dom: DomainNumber}, got)

	_, ok = tbl.Get(TypeIndex(99))
	require.False(t, ok)
}

func TestTableGobRoundTrip(t *testing.T) {
	tbl := NewTable()
	tbl.Intern(TypeDesc{World: WorldSignal, Dom: DomainNumber})
	tbl.Intern(TypeDesc{World: WorldField, Dom: DomainColor, BusEligible: true})

	data, err := tbl.GobEncode()
	require.NoError(t, err)

	restored := NewTable()
	require.NoError(t, restored.GobDecode(data))
	require.Equal(t, tbl.Len(), restored.Len())

	for i := 0; i < tbl.Len(); i++ {
		want, _ := tbl.Get(TypeIndex(i))
		got, ok := restored.Get(TypeIndex(i))
		require.True(t, ok)
		require.Equal(t, want, got)
	}

	// byKey must be rebuilt, not just entries: Intern on the restored
	// table must still recognize an already-present type.
	idx := restored.Intern(TypeDesc{World: WorldSignal, Dom: DomainNumber})
	require.Equal(t, TypeIndex(0), idx)
	require.Equal(t, 2, restored.Len(), "re-interning an existing type must not grow the table")
}
