package change

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestDetect_FirstRunCountsAsChanged(t *testing.T) {
	result := Detect("kev", "abc123", nil)
	assert.True(t, result.Changed)
	assert.Equal(t, "kev", result.Key)
}

func TestDetect_SameHashUnchanged(t *testing.T) {
	prev := "abc123"
	result := Detect("kev", "abc123", &prev)
	assert.False(t, result.Changed)
}

func TestDetect_DifferentHashChanged(t *testing.T) {
	prev := "abc123"
	result := Detect("kev", "def456", &prev)
	assert.True(t, result.Changed)
}

func TestAggregateChanges_PreservesOrder(t *testing.T) {
	results := []Result{
		{Key: "kev", Changed: true},
		{Key: "gdmf", Changed: false},
		{Key: "ipsw", Changed: true},
		{Key: "beta", Changed: false},
		{Key: "uma", Changed: true},
		{Key: "xprotect", Changed: false},
	}

	assert.Equal(t, []string{"kev", "ipsw", "uma"}, AggregateChanges(results))
}

func TestAggregateChanges_EmptyIsNonNil(t *testing.T) {
	changed := AggregateChanges(nil)
	assert.NotNil(t, changed)
	assert.Empty(t, changed)
}

func TestProperty_DetectSemantics(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("absent baseline always reports changed", prop.ForAll(
		func(key, newHash string) bool {
			return Detect(key, newHash, nil).Changed
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("changed is exactly hash inequality when a baseline exists", prop.ForAll(
		func(key, newHash, prevHash string) bool {
			result := Detect(key, newHash, &prevHash)
			return result.Changed == (newHash != prevHash)
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
