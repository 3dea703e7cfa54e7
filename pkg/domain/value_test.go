package domain_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/aretw0/livemd/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Render(t *testing.T) {
	tests := []struct {
		value domain.Value
		want  string
	}{
		{domain.Number(15), "15"},
		{domain.Number(-3), "-3"},
		{domain.Number(1.5), "1.5"},
		{domain.Number(0.1), "0.1"},
		{domain.Bool(true), "true"},
		{domain.Bool(false), "false"},
		{domain.String("Fred"), "Fred"},
		{domain.String(""), ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.value.Render())
	}
}

func TestValue_Truthy(t *testing.T) {
	assert.True(t, domain.Bool(true).Truthy())
	assert.False(t, domain.Bool(false).Truthy())
	assert.True(t, domain.Number(-1).Truthy())
	assert.False(t, domain.Number(0).Truthy())
	assert.True(t, domain.String("x").Truthy())
	assert.False(t, domain.String("").Truthy())
	assert.False(t, domain.Value{}.Truthy())
}

func TestValue_JSON(t *testing.T) {
	in := map[string]domain.Value{
		"name":  domain.String("Fred"),
		"coins": domain.Number(100),
		"key":   domain.Bool(false),
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Fred","coins":100,"key":false}`, string(data))

	var out map[string]domain.Value
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestValue_UnmarshalRejectsComposites(t *testing.T) {
	var v domain.Value
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &v))

	require.NoError(t, json.Unmarshal([]byte(`null`), &v))
	assert.False(t, v.IsDefined())

	_, err := domain.ValueOf(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidValue)
}

func TestValueOf(t *testing.T) {
	v, err := domain.ValueOf(42)
	require.NoError(t, err)
	n, ok := v.Num()
	assert.True(t, ok)
	assert.Equal(t, float64(42), n)

	v, err = domain.ValueOf(json.Number("2.5"))
	require.NoError(t, err)
	assert.True(t, v.Equal(domain.Number(2.5)))

	_, err = domain.ValueOf([]string{"a"})
	assert.Error(t, err)
}

func TestValueOf_RejectsNonFiniteNumbers(t *testing.T) {
	for _, x := range []any{math.Inf(1), math.Inf(-1), math.NaN(), float32(math.Inf(1)), domain.Number(math.NaN())} {
		_, err := domain.ValueOf(x)
		assert.ErrorIs(t, err, domain.ErrInvalidValue, "%v", x)
	}
}

func TestValue_IsValid(t *testing.T) {
	assert.True(t, domain.Number(1e308).IsValid())
	assert.True(t, domain.String("").IsValid())
	assert.True(t, domain.Bool(false).IsValid())
	assert.False(t, domain.Value{}.IsValid())
	assert.False(t, domain.Number(math.Inf(1)).IsValid())
	assert.False(t, domain.Number(math.NaN()).IsValid())
}

func TestValue_Size(t *testing.T) {
	assert.Equal(t, 5, domain.String("hello").Size())
	assert.Equal(t, 8, domain.Number(1).Size())
	assert.Equal(t, 1, domain.Bool(true).Size())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, domain.ErrorParse, domain.Classify(&domain.ParseError{Msg: "x"}))
	assert.Equal(t, domain.ErrorTypeMismatch, domain.Classify(&domain.TypeMismatchError{}))
	assert.Equal(t, domain.ErrorStateOverflow, domain.Classify(&domain.StateOverflowError{}))
	assert.Equal(t, domain.ErrorRange, domain.Classify(&domain.RangeError{Name: "x", Op: "inc"}))

	be := domain.NewBlockError("set@3", domain.SourceRange{StartLine: 3, EndLine: 5}, &domain.StateOverflowError{Name: "a", Limit: 1, Size: 2})
	var oe *domain.StateOverflowError
	assert.ErrorAs(t, be, &oe)
	assert.Equal(t, domain.ErrorStateOverflow, be.Kind)
}
