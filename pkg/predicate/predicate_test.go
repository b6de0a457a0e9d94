package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arrowarc/icereader/pkg/value"
)

func TestRewriteNotEliminatesEveryNotNode(t *testing.T) {
	p := Not(And(LT(1, value.Int32V(5)), GE(2, value.Int32V(10))))
	out := RewriteNot(p)

	assert.Equal(t, KindOr, out.Kind)
	assert.Equal(t, KindGE, out.Left.Kind)
	assert.Equal(t, KindLT, out.Right.Kind)
	assertNoNot(t, out)
}

func TestRewriteNotHandlesDoubleNegation(t *testing.T) {
	p := Not(Not(EQ(1, value.String("a"))))
	out := RewriteNot(p)
	assert.Equal(t, KindEQ, out.Kind)
}

func TestRewriteNotLeavesNonNotTreesUnchanged(t *testing.T) {
	p := And(EQ(1, value.Int32V(1)), Or(LT(2, value.Int32V(2)), True()))
	out := RewriteNot(p)
	assert.Equal(t, KindAnd, out.Kind)
	assert.Equal(t, KindEQ, out.Left.Kind)
	assert.Equal(t, KindOr, out.Right.Kind)
}

func TestNegateComplementsEveryLeafKind(t *testing.T) {
	cases := []struct {
		leaf *Predicate
		want Kind
	}{
		{IsNull(1), KindNotNull},
		{NotNull(1), KindIsNull},
		{LT(1, value.Int32V(1)), KindGE},
		{LE(1, value.Int32V(1)), KindGT},
		{GT(1, value.Int32V(1)), KindLE},
		{GE(1, value.Int32V(1)), KindLT},
		{EQ(1, value.Int32V(1)), KindNE},
		{NE(1, value.Int32V(1)), KindEQ},
		{In(1, []value.Value{value.Int32V(1)}), KindNotIn},
		{NotIn(1, []value.Value{value.Int32V(1)}), KindIn},
		{True(), KindFalse},
		{False(), KindTrue},
	}
	for _, c := range cases {
		got := RewriteNot(Not(c.leaf))
		assert.Equal(t, c.want, got.Kind)
	}
}

func TestIsAlwaysTrue(t *testing.T) {
	assert.True(t, IsAlwaysTrue(nil))
	assert.True(t, IsAlwaysTrue(True()))
	assert.False(t, IsAlwaysTrue(False()))
	assert.False(t, IsAlwaysTrue(EQ(1, value.Int32V(1))))
}

func assertNoNot(t *testing.T, p *Predicate) {
	t.Helper()
	if p == nil {
		return
	}
	assert.NotEqual(t, KindNot, p.Kind)
	assertNoNot(t, p.Left)
	assertNoNot(t, p.Right)
	assertNoNot(t, p.Operand)
}
