package buildmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_GetType_Unknown(t *testing.T) {
	r := NewRegistry()
	_, ok := r.GetType("module")
	require.False(t, ok)
}

func TestRegistry_CreateLoader_NilModelAcceptsAnyID(t *testing.T) {
	r := NewRegistry()
	r.Register(TargetKind{TypeID: "module", IsModuleBuild: true})

	tt, ok := r.GetType("module")
	require.True(t, ok)

	loader := tt.CreateLoader(nil)
	target, ok := loader.CreateTarget("anything")
	require.True(t, ok)
	require.Equal(t, "module", target.TypeID())
	require.Equal(t, "anything", target.ID())
	require.True(t, target.IsModuleBuild())
}

func TestRegistry_CreateLoader_ValidatesAgainstModel(t *testing.T) {
	r := NewRegistry()
	r.Register(TargetKind{TypeID: "module", IsModuleBuild: true})

	model := NewModel()
	model.Add("module", "m1")

	tt, _ := r.GetType("module")
	loader := tt.CreateLoader(model)

	_, ok := loader.CreateTarget("m1")
	require.True(t, ok)

	_, ok = loader.CreateTarget("m2")
	require.False(t, ok, "an id the model no longer knows about is rejected")
}
