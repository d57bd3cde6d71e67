package buildmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModel_AddHasRemove(t *testing.T) {
	m := NewModel()
	require.False(t, m.Has("module", "m1"))

	m.Add("module", "m1")
	require.True(t, m.Has("module", "m1"))

	m.Remove("module", "m1")
	require.False(t, m.Has("module", "m1"))
}

func TestModel_Targets(t *testing.T) {
	m := NewModel()
	m.Add("module", "m1")
	m.Add("module", "m2")
	m.Add("artifact", "a1")

	kind := TargetKind{TypeID: "module", IsModuleBuild: true}
	targets := m.Targets(kind)

	require.Len(t, targets, 2)
	for _, target := range targets {
		require.Equal(t, "module", target.TypeID())
		require.True(t, target.IsModuleBuild())
	}
}

func TestModel_Targets_UnknownKindIsEmpty(t *testing.T) {
	m := NewModel()
	targets := m.Targets(TargetKind{TypeID: "nothing"})
	require.Empty(t, targets)
}
