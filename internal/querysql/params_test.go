package querysql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cohort/internal/queryir"
)

func TestParameterStore_DedupsByTypeAndValue(t *testing.T) {
	s := NewParameterStore("")

	a, err := s.Add(queryir.Int(201826))
	require.NoError(t, err)
	b, err := s.Add(queryir.String("201826"))
	require.NoError(t, err)
	c, err := s.Add(queryir.Int(201826))
	require.NoError(t, err)

	assert.Equal(t, "p0", a)
	assert.Equal(t, "p1", b)
	assert.Equal(t, a, c, "same typed value must reuse its name")
	assert.Equal(t, 2, s.Len())
}

func TestParameterStore_NamesInOrderOfFirstUse(t *testing.T) {
	s := NewParameterStore("v")
	for _, v := range []*queryir.Value{
		queryir.Int(3), queryir.Float(1.5), queryir.Bool(true),
		queryir.Date(time.Date(2020, 1, 2, 13, 0, 0, 0, time.UTC)),
	} {
		_, err := s.Add(v)
		require.NoError(t, err)
	}

	params := s.Params()
	require.Len(t, params, 4)
	for i, want := range []string{"v0", "v1", "v2", "v3"} {
		assert.Equal(t, want, params[i].Name)
	}
	assert.Equal(t, queryir.TypeDate, params[3].Type)
}

func TestParameterStore_DatesCompareByDay(t *testing.T) {
	s := NewParameterStore("p")
	a, err := s.Add(queryir.Date(time.Date(2021, 5, 1, 1, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	b, err := s.Add(queryir.Date(time.Date(2021, 5, 1, 22, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParameterStore_RejectsMismatchedGoType(t *testing.T) {
	s := NewParameterStore("p")
	_, err := s.Add(&queryir.Value{Type: queryir.TypeInt64, V: "seven"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INT64")

	_, err = s.Add(nil)
	require.Error(t, err)
}

func TestParameterStore_ParamsIsACopy(t *testing.T) {
	s := NewParameterStore("p")
	_, err := s.Add(queryir.Int(1))
	require.NoError(t, err)

	params := s.Params()
	params[0].Value = int64(99)
	assert.Equal(t, int64(1), s.Params()[0].Value)
}
