package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestMergeOptions_LaterLayersWin(t *testing.T) {
	defaults := map[string]any{"target": "dev", "dry_run": false}
	flow := map[string]any{"target": "staging"}
	runtime := map[string]any{"target": "prod"}

	merged := MergeOptions(defaults, flow, runtime)

	assert.Equal(t, "prod", merged["target"])
	assert.Equal(t, false, merged["dry_run"])
}

func TestMergeOptions_NestedMapsMergeStructurally(t *testing.T) {
	base := map[string]any{
		"settings": map[string]any{"timeout": 30, "verbose": false},
	}
	override := map[string]any{
		"settings": map[string]any{"verbose": true},
	}

	merged := MergeOptions(base, override)

	settings := merged["settings"].(map[string]any)
	assert.Equal(t, 30, settings["timeout"])
	assert.Equal(t, true, settings["verbose"])
}

func TestMergeOptions_ListsReplaceWholesale(t *testing.T) {
	base := map[string]any{"paths": []any{"a", "b"}}
	override := map[string]any{"paths": []any{"c"}}

	merged := MergeOptions(base, override)
	assert.Equal(t, []any{"c"}, merged["paths"])
}

func TestMergeOptions_ScalarReplacesMap(t *testing.T) {
	base := map[string]any{"value": map[string]any{"nested": 1}}
	override := map[string]any{"value": "flat"}

	merged := MergeOptions(base, override)
	assert.Equal(t, "flat", merged["value"])
}

func TestMergeOptions_DoesNotMutateInputs(t *testing.T) {
	base := map[string]any{
		"settings": map[string]any{"timeout": 30},
	}
	override := map[string]any{
		"settings": map[string]any{"verbose": true},
	}

	merged := MergeOptions(base, override)
	merged["settings"].(map[string]any)["timeout"] = 99

	assert.Equal(t, 30, base["settings"].(map[string]any)["timeout"])
	assert.NotContains(t, base["settings"].(map[string]any), "verbose")
}

func TestMergeOptions_NilLayers(t *testing.T) {
	merged := MergeOptions(nil, map[string]any{"a": 1}, nil)
	assert.Equal(t, map[string]any{"a": 1}, merged)
}

// optionsGen generates nested option maps up to two levels deep.
func optionsGen() *rapid.Generator[map[string]any] {
	keys := rapid.SampledFrom([]string{"a", "b", "c", "d"})
	scalar := rapid.OneOf(
		rapid.Int().AsAny(),
		rapid.StringMatching(`[a-z]{1,8}`).AsAny(),
		rapid.Bool().AsAny(),
	)
	inner := rapid.MapOfN(keys, scalar, 0, 4)
	value := rapid.OneOf(
		scalar,
		inner.AsAny(),
	)
	return rapid.MapOfN(keys, value, 0, 4)
}

func TestMergeOptionsProperty_Associative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		defaults := optionsGen().Draw(t, "defaults")
		flow := optionsGen().Draw(t, "flow")
		runtime := optionsGen().Draw(t, "runtime")

		allAtOnce := MergeOptions(defaults, flow, runtime)
		leftFolded := MergeOptions(MergeOptions(defaults, flow), runtime)

		assert.Equal(t, leftFolded, allAtOnce)
	})
}

func TestMergeOptionsProperty_EmptyIsIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		layer := optionsGen().Draw(t, "layer")

		assert.Equal(t, MergeOptions(layer), MergeOptions(map[string]any{}, layer))
		assert.Equal(t, MergeOptions(layer), MergeOptions(layer, map[string]any{}))
	})
}
