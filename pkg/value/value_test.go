package value

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareOrdersWithinEachKind(t *testing.T) {
	cmp, ok := Int32V(1).Compare(Int32V(2))
	assert.True(t, ok)
	assert.Equal(t, -1, cmp)

	cmp, ok = Float64V(3.5).Compare(Float64V(3.5))
	assert.True(t, ok)
	assert.Equal(t, 0, cmp)

	cmp, ok = String("b").Compare(String("a"))
	assert.True(t, ok)
	assert.Equal(t, 1, cmp)

	cmp, ok = Bytes([]byte{1, 2}).Compare(Bytes([]byte{1, 2, 3}))
	assert.True(t, ok)
	assert.Equal(t, -1, cmp)
}

func TestCompareRefusesKindMismatch(t *testing.T) {
	_, ok := Int32V(1).Compare(Int64V(1))
	assert.False(t, ok)
}

func TestDate32AndTimestampShareComparableUnderlyingKind(t *testing.T) {
	cmp, ok := Date32(10).Compare(Date32(5))
	assert.True(t, ok)
	assert.Equal(t, 1, cmp)

	cmp, ok = TimestampMicros(100).Compare(TimestampMicros(200))
	assert.True(t, ok)
	assert.Equal(t, -1, cmp)
}

func TestDecimalCompareOrdersSameScaleByUnscaledValue(t *testing.T) {
	a := DecimalV(big.NewInt(150), 2)
	b := DecimalV(big.NewInt(200), 2)
	cmp, ok := a.Compare(b)
	assert.True(t, ok)
	assert.Equal(t, -1, cmp)
}

func TestBoolCompare(t *testing.T) {
	cmp, ok := Bool(false).Compare(Bool(true))
	assert.True(t, ok)
	assert.Equal(t, -1, cmp)

	cmp, ok = Bool(true).Compare(Bool(true))
	assert.True(t, ok)
	assert.Equal(t, 0, cmp)
}
