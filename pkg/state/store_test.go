package state_test

import (
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/livemd/pkg/domain"
	"github.com/aretw0/livemd/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetAndGet(t *testing.T) {
	s := state.New(0)
	require.NoError(t, s.Set("coins", domain.Number(10)))
	require.NoError(t, s.Set("name", domain.String("Fred")))

	v, ok := s.Get("coins")
	assert.True(t, ok)
	assert.True(t, v.Equal(domain.Number(10)))
	assert.Equal(t, []string{"coins", "name"}, s.Names())
	assert.Equal(t, state.EntrySize("coins", domain.Number(10))+state.EntrySize("name", domain.String("Fred")), s.Size())
}

func TestStore_OverwriteAdjustsSize(t *testing.T) {
	s := state.New(0)
	require.NoError(t, s.Set("msg", domain.String("hello")))
	require.NoError(t, s.Set("msg", domain.String("hi")))
	assert.Equal(t, len("msg")+2, s.Size())
}

func TestStore_OverflowIsAtomic(t *testing.T) {
	s := state.New(10)
	require.NoError(t, s.Set("a", domain.Bool(true)))
	before := s.Size()
	snapshot := s.Snapshot()

	err := s.Set("s", domain.String(strings.Repeat("x", 50)))
	var oe *domain.StateOverflowError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "s", oe.Name)
	assert.Equal(t, 10, oe.Limit)

	assert.Equal(t, before, s.Size(), "rejected write must leave size unchanged")
	assert.Equal(t, snapshot, s.Snapshot(), "rejected write must leave variables unchanged")
}

func TestStore_ApplyBatchAllOrNothing(t *testing.T) {
	s := state.New(20)
	err := s.Apply(map[string]domain.Value{
		"a": domain.String("0123456789"),
		"b": domain.String("0123456789"),
	})
	var oe *domain.StateOverflowError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Size())
}

func TestStore_RejectsInvalidNames(t *testing.T) {
	s := state.New(0)
	assert.Error(t, s.Set("1abc", domain.Number(1)))
	assert.Error(t, s.Set("has space", domain.Number(1)))
	assert.Equal(t, 0, s.Len())
}

func TestStore_ObserversSeeCommittedChanges(t *testing.T) {
	s := state.New(0)
	var got []state.Change
	s.Observe(func(changes []state.Change) {
		got = append(got, changes...)
	})

	require.NoError(t, s.Set("x", domain.Number(1)))
	s.Delete("x")
	s.Delete("missing")

	require.Len(t, got, 2)
	assert.Equal(t, "x", got[0].Name)
	assert.False(t, got[0].Deleted)
	assert.True(t, got[1].Deleted)
}

func TestStore_ReplaceAndReset(t *testing.T) {
	s := state.New(0)
	require.NoError(t, s.Set("old", domain.Number(1)))
	require.NoError(t, s.Replace(map[string]domain.Value{"new": domain.Bool(true)}))

	_, ok := s.Get("old")
	assert.False(t, ok)
	_, ok = s.Get("new")
	assert.True(t, ok)

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Size())
}

func TestStore_RejectsUnstorableValues(t *testing.T) {
	s := state.New(0)
	require.NoError(t, s.Set("keep", domain.Number(1)))

	for _, v := range []domain.Value{{}, domain.Number(math.Inf(1)), domain.Number(math.NaN())} {
		assert.ErrorIs(t, s.Set("x", v), domain.ErrInvalidValue)
		assert.ErrorIs(t, s.Replace(map[string]domain.Value{"x": v}), domain.ErrInvalidValue)
	}

	assert.Equal(t, []string{"keep"}, s.Names())
	assert.Equal(t, state.EntrySize("keep", domain.Number(1)), s.Size())
}

func TestTx_StagesUntilCommit(t *testing.T) {
	s := state.New(0)
	require.NoError(t, s.Set("coins", domain.Number(10)))

	tx := s.Begin()
	require.NoError(t, tx.Set("coins", domain.Number(15)))

	staged, _ := tx.Get("coins")
	assert.True(t, staged.Equal(domain.Number(15)))
	current, _ := s.Get("coins")
	assert.True(t, current.Equal(domain.Number(10)), "store must not see staged writes")

	changes := tx.Commit()
	require.Len(t, changes, 1)
	current, _ = s.Get("coins")
	assert.True(t, current.Equal(domain.Number(15)))
}

func TestTx_DroppedTransactionLeavesStoreUntouched(t *testing.T) {
	s := state.New(0)
	tx := s.Begin()
	require.NoError(t, tx.Set("ghost", domain.String("boo")))

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Size())
}

func TestTx_OverflowRejectsSingleStatement(t *testing.T) {
	s := state.New(12)
	tx := s.Begin()
	require.NoError(t, tx.Set("a", domain.Number(1)))
	sizeBefore := tx.Size()

	err := tx.Set("b", domain.String("too long for this"))
	var oe *domain.StateOverflowError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, sizeBefore, tx.Size())

	tx.Commit()
	assert.Equal(t, []string{"a"}, s.Names())
}

func TestNormalizeName(t *testing.T) {
	n, err := state.NormalizeName("$coins")
	require.NoError(t, err)
	assert.Equal(t, "coins", n)

	_, err = state.NormalizeName("$")
	assert.Error(t, err)
}

func TestStore_IndependentInstances(t *testing.T) {
	a := state.New(0)
	b := state.New(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = a.Set("coins", domain.Number(float64(i)))
		}(i)
		go func(i int) {
			defer wg.Done()
			_ = b.Set("coins", domain.Number(float64(1000+i)))
		}(i)
	}
	wg.Wait()

	av, _ := a.Get("coins")
	bv, _ := b.Get("coins")
	an, _ := av.Num()
	bn, _ := bv.Num()
	assert.Less(t, an, float64(1000))
	assert.GreaterOrEqual(t, bn, float64(1000))
}
