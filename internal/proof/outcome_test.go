package proof

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNegate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want Outcome
	}{
		{True, False},
		{False, True},
		{Top, Top},
		{Bottom, Bottom},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.Negate(), "Negate(%s)", tt.in)
	}
}

func TestNegateInvolution(t *testing.T) {
	t.Parallel()
	for _, o := range []Outcome{True, False, Top, Bottom} {
		assert.Equal(t, o, o.Negate().Negate())
	}
}

func TestIsTrueIsFalseExactPoints(t *testing.T) {
	t.Parallel()
	assert.True(t, True.IsTrue())
	assert.False(t, True.IsFalse())
	assert.True(t, False.IsFalse())
	assert.False(t, False.IsTrue())

	for _, o := range []Outcome{Top, Bottom} {
		assert.False(t, o.IsTrue(), o.String())
		assert.False(t, o.IsFalse(), o.String())
	}
}

func TestAndOr(t *testing.T) {
	t.Parallel()
	assert.Equal(t, False, And(Top, False))
	assert.Equal(t, Top, And(Top, True))
	assert.Equal(t, True, And(True, True))
	assert.Equal(t, Bottom, And(Bottom, True))

	assert.Equal(t, True, Or(Top, True))
	assert.Equal(t, Top, Or(Top, False))
	assert.Equal(t, False, Or(False, False))
}

func TestJoinMeet(t *testing.T) {
	t.Parallel()
	assert.Equal(t, True, Join(Bottom, True))
	assert.Equal(t, Top, Join(True, False))
	assert.Equal(t, False, Meet(Top, False))
	assert.Equal(t, Bottom, Meet(True, False))
}

func TestVerdict(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "valid", True.Verdict())
	assert.Equal(t, "invalid", False.Verdict())
	assert.Equal(t, "unproven", Top.Verdict())
	assert.Equal(t, "unreachable", Bottom.Verdict())
}
