package bot

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDelayRange(t *testing.T) {
	r, err := ParseDelayRange("1-5")
	require.NoError(t, err)
	assert.Equal(t, DelayRange{Min: time.Second, Max: 5 * time.Second}, r)

	r, err = ParseDelayRange("0.5-0.5")
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, r.Pick(rand.New(rand.NewPCG(1, 2))))

	r, err = ParseDelayRange("")
	require.NoError(t, err)
	assert.True(t, r.IsZero())

	for _, bad := range []string{"5", "a-2", "1-b", "5-1"} {
		_, err := ParseDelayRange(bad)
		assert.Error(t, err, bad)
	}
}

func TestRandomizeStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	amount := d("0.5")
	lo, hi := d("0.45"), d("0.55")
	for i := 0; i < 200; i++ {
		v := Randomize(amount, 0.1, rng)
		assert.True(t, v.GreaterThanOrEqual(lo) && v.LessThanOrEqual(hi), "out of range: %s", v)
		assert.LessOrEqual(t, -v.Exponent(), int32(9))
	}
	assert.True(t, Randomize(amount, 0, rng).Equal(amount))
}

func TestPlanValidate(t *testing.T) {
	f := newFixture(t, "1")
	plan := f.plan(0.5)
	require.NoError(t, plan.Validate())

	bad := plan
	bad.BuyRate = 1.5
	assert.Error(t, bad.Validate())

	bad = plan
	bad.Randomize = 1
	assert.Error(t, bad.Validate())

	bad = plan
	bad.Amount = d("0")
	assert.Error(t, bad.Validate())

	bad = plan
	bad.Participants = nil
	assert.Error(t, bad.Validate())
}
