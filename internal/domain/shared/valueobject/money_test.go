package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid inputs", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(99.99), USD)
		require.NoError(t, err)
		assert.Equal(t, USD, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(99.99)))
	})

	t.Run("rejects empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(10), "")
		assert.Error(t, err)
	})

	t.Run("allows negative amounts for credits", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(-25.00), USD)
		require.NoError(t, err)
		assert.True(t, m.IsNegative())
	})
}

func TestMoney_Arithmetic(t *testing.T) {
	a := NewMoneyUSD(decimal.NewFromFloat(100.50))
	b := NewMoneyUSD(decimal.NewFromFloat(49.50))

	t.Run("add", func(t *testing.T) {
		sum, err := a.Add(b)
		require.NoError(t, err)
		assert.True(t, sum.Amount().Equal(decimal.NewFromInt(150)))
	})

	t.Run("subtract", func(t *testing.T) {
		diff, err := a.Subtract(b)
		require.NoError(t, err)
		assert.True(t, diff.Amount().Equal(decimal.NewFromInt(51)))
	})

	t.Run("multiply", func(t *testing.T) {
		product := b.Multiply(decimal.NewFromInt(2))
		assert.True(t, product.Amount().Equal(decimal.NewFromInt(99)))
	})

	t.Run("currency mismatch", func(t *testing.T) {
		eur := Zero(EUR)
		_, err := a.Add(eur)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "different currencies")
	})
}

func TestMoney_WithinTolerance(t *testing.T) {
	epsilon := decimal.NewFromFloat(0.01)

	t.Run("within epsilon", func(t *testing.T) {
		a := NewMoneyUSD(decimal.NewFromFloat(100.00))
		b := NewMoneyUSD(decimal.NewFromFloat(100.01))

		ok, err := a.WithinTolerance(b, epsilon)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("outside epsilon", func(t *testing.T) {
		a := NewMoneyUSD(decimal.NewFromFloat(100.00))
		b := NewMoneyUSD(decimal.NewFromFloat(100.02))

		ok, err := a.WithinTolerance(b, epsilon)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("currency mismatch", func(t *testing.T) {
		a := NewMoneyUSD(decimal.NewFromInt(1))
		b := Zero(EUR)

		_, err := a.WithinTolerance(b, epsilon)
		assert.Error(t, err)
	})
}

func TestMoney_Comparisons(t *testing.T) {
	a := NewMoneyUSD(decimal.NewFromInt(10))
	b := NewMoneyUSD(decimal.NewFromInt(20))

	less, err := a.LessThan(b)
	require.NoError(t, err)
	assert.True(t, less)

	greater, err := b.GreaterThan(a)
	require.NoError(t, err)
	assert.True(t, greater)

	assert.True(t, a.Equals(NewMoneyUSD(decimal.NewFromInt(10))))
}

func TestMoney_JSONRoundTrip(t *testing.T) {
	m := NewMoneyUSD(decimal.NewFromFloat(42.50))

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"42.5","currency":"USD"}`, string(data))

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, m.Equals(decoded))
}

func TestMoney_String(t *testing.T) {
	m := NewMoneyUSD(decimal.NewFromFloat(42.5))
	assert.Equal(t, "42.50 USD", m.String())
}
