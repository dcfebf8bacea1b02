package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderTestbenchConditionals(t *testing.T) {
	reg, err := DefaultRegistry("")
	require.NoError(t, err)
	def, err := reg.Get(SlugTestbench)
	require.NoError(t, err)

	system, user, err := Render(def, map[string]string{
		"code":         "entity counter is end;",
		"scenario":     "count to ten",
		"clock_period": "20 ns",
	})
	require.NoError(t, err)
	require.Contains(t, user, "entity counter is end;")
	require.Contains(t, user, "Clock period: 20 ns")
	require.NotContains(t, user, "Total simulation time")
	require.NotContains(t, system, "{{")
	require.NotContains(t, user, "{{")
}

func TestRenderRequiresVariables(t *testing.T) {
	reg, err := DefaultRegistry("")
	require.NoError(t, err)
	def, err := reg.Get(SlugTestbench)
	require.NoError(t, err)

	_, _, err = Render(def, map[string]string{"code": "x", "scenario": "  "})
	require.Error(t, err)
	require.Contains(t, err.Error(), "scenario")
}

func TestRenderInsertsValuesVerbatim(t *testing.T) {
	def := &Prompt{Config: Config{
		Slug:           "t",
		SystemTemplate: "sys",
		UserTemplate:   "A={{a}} B={{b}} C={{missing}}",
	}}
	_, user, err := Render(def, map[string]string{"a": "{{b}}", "b": "two"})
	require.NoError(t, err)
	require.Equal(t, "A={{b}} B=two C={{missing}}", user)
}

func TestApplyConditionalsElse(t *testing.T) {
	out := applyConditionals("x{{#if v}}yes{{else}}no{{/if}}z", map[string]string{})
	require.Equal(t, "xnoz", out)
	out = applyConditionals("x{{#if v}}yes{{#if w}}W{{/if}}{{else}}no{{/if}}z", map[string]string{"v": "1", "w": "1"})
	require.True(t, strings.HasPrefix(out, "xyesW"))
}
