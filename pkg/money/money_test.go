package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArithmetic(t *testing.T) {
	a := MustParse("10.25", "usd")
	b := MustParse("0.75", "USD")

	assert.Equal(t, "USD", a.Currency())
	assert.True(t, a.Add(b).Equal(MustParse("11", "USD")))
	assert.True(t, a.Sub(b).Equal(MustParse("9.5", "USD")))
	assert.True(t, b.MulInt(4).Equal(FromInt(3, "USD")))
	assert.True(t, a.Mul(decimal.RequireFromString("0.1")).Round(2).Equal(MustParse("1.03", "USD")))
}

func TestCurrencyMismatchPanics(t *testing.T) {
	assert.Panics(t, func() { FromInt(1, "USD").Add(FromInt(1, "EUR")) })
	assert.Panics(t, func() { FromInt(1, "USD").Sub(FromInt(1, "EUR")) })
	assert.Panics(t, func() { FromInt(1, "USD").Cmp(FromInt(1, "EUR")) })
}

func TestMinAndSum(t *testing.T) {
	assert.True(t, Min(FromInt(5, "VND"), FromInt(3, "VND")).Equal(FromInt(3, "VND")))
	assert.True(t, Sum("VND").IsZero())
	assert.True(t, Sum("VND", FromInt(1, "VND"), FromInt(2, "VND")).Equal(FromInt(3, "VND")))
	assert.True(t, FromInt(1, "VND").Sub(FromInt(2, "VND")).IsNegative())
}

func TestJSON(t *testing.T) {
	in := MustParse("57564.00", "VND")
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"57564","currency":"VND"}`, string(data))

	var out Money
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, in.Equal(out))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("ten", "USD")
	assert.Error(t, err)
}
