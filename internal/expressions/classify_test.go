package expressions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Literal(t *testing.T) {
	for _, s := range []string{"hello", "", "a = b", "50%"} {
		c := Classify(s)
		assert.Equal(t, ModeLiteral, c.Mode, s)
		assert.False(t, c.Dynamic())
		assert.Empty(t, c.References())
	}
}

func TestClassify_Interpolated(t *testing.T) {
	c := Classify("Hi #{_dp('trigger.name')}, order #{_dp('2.id')}")
	assert.Equal(t, ModeInterpolated, c.Mode)
	assert.True(t, c.Dynamic())
	require.Len(t, c.References(), 2)
	assert.Equal(t, "trigger", c.References()[0].Source)
	assert.Nil(t, c.Formula)
}

func TestClassify_LiteralWithBrokenMarker(t *testing.T) {
	c := Classify("price #{bad}")
	assert.Equal(t, ModeLiteral, c.Mode)
	require.Len(t, c.PillErrors, 1)
	assert.Equal(t, 6, c.PillErrors[0].Offset)
}

func TestClassify_Formula(t *testing.T) {
	c := Classify("=1 + 1")
	assert.Equal(t, ModeFormula, c.Mode)
	require.NotNil(t, c.Formula)
	assert.True(t, c.Formula.Valid())
	assert.False(t, c.Mixed)
}

func TestClassify_FormulaOffsetsIncludePrefix(t *testing.T) {
	c := Classify("  =foo(")
	require.NotNil(t, c.Formula)
	require.Len(t, c.Formula.Issues, 1)
	assert.Equal(t, 6, c.Formula.Issues[0].Offset)
}

func TestClassify_FormulaReferences(t *testing.T) {
	c := Classify("=_dp('1.id').to_i")
	require.Len(t, c.References(), 1)
	ref := c.References()[0]
	assert.Equal(t, "1", ref.Source)
	assert.Equal(t, 1, ref.Span.Start)
}

func TestClassify_Mixed(t *testing.T) {
	c := Classify("=#{_dp('1.a')} + 1")
	assert.Equal(t, ModeFormula, c.Mode)
	assert.True(t, c.Mixed)
	assert.Equal(t, 1, c.MixedOffset)
	assert.Nil(t, c.Formula, "formula check is skipped for mixed values")
	assert.Empty(t, c.References())
}
