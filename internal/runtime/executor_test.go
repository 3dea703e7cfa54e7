package runtime_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/livemd/internal/compiler"
	"github.com/aretw0/livemd/internal/runtime"
	"github.com/aretw0/livemd/pkg/domain"
	"github.com/aretw0/livemd/pkg/state"
)

func execute(t *testing.T, x *runtime.Executor, store *state.Store, doc string) *domain.RenderResult {
	t.Helper()
	return x.Execute(context.Background(), runtime.Input{
		SessionID: "test",
		Segments:  compiler.Parse(doc),
		Store:     store,
	})
}

func TestExecute_StateSetPanel(t *testing.T) {
	doc := "```state\n$coins = 10\n```\n" +
		"```set\ninc $coins 5\n```\n" +
		"```panel\nYou have $coins coins.\n```\n"

	res := execute(t, runtime.NewExecutor(), state.New(0), doc)

	assert.Equal(t, domain.PassDone, res.Status)
	assert.Equal(t, "You have 15 coins.\n", res.Rendered)
	assert.True(t, res.State["coins"].Equal(domain.Number(15)))
	assert.Equal(t, map[string]any{"coins": domain.Number(15)}, res.Delta)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Results, 3)
	assert.Equal(t, map[string]any{"coins": domain.Number(15)}, res.Results[1].Delta)
}

func TestExecute_ToggleUndeclared(t *testing.T) {
	res := execute(t, runtime.NewExecutor(), state.New(0), "```set\ntoggle $flag\n```\n")
	assert.Empty(t, res.Errors)
	assert.True(t, res.State["flag"].Equal(domain.Bool(true)))
}

func TestExecute_ProseIsInterpolatedUnknownFencesAreNot(t *testing.T) {
	doc := "```state\n$name = \"Ann\"\n```\n" +
		"Hello $name, you owe \\$5.\n" +
		"```sh\necho $name\n```\n"

	res := execute(t, runtime.NewExecutor(), state.New(0), doc)
	assert.Equal(t, "Hello Ann, you owe $5.\n```sh\necho $name\n```\n", res.Rendered)
}

func TestExecute_TypeMismatchIsAnnotatedAndLaterBlocksRun(t *testing.T) {
	doc := "```state\n$n = 5\n```\n" +
		"```set\ntoggle $n\ninc $n\n```\n" +
		"```panel\nn=$n\n```\n"

	res := execute(t, runtime.NewExecutor(), state.New(0), doc)

	require.Len(t, res.Errors, 1)
	var tm *domain.TypeMismatchError
	require.ErrorAs(t, res.Errors[0], &tm)
	assert.Equal(t, domain.ErrorTypeMismatch, res.Errors[0].Kind)
	assert.Equal(t,
		"> **error** (set@4, line 5): toggle $n: expected boolean, got number\n"+
			"n=6\n",
		res.Rendered)
}

func TestExecute_ArithmeticOutOfRangeIsRejected(t *testing.T) {
	doc := "```state\n$x = 1e308\n$y = -1e308\n```\n" +
		"```set\ninc $x 1e308\ndec $y 1e308\n```\n" +
		"x is $x\n"

	res := execute(t, runtime.NewExecutor(), state.New(0), doc)

	require.Len(t, res.Errors, 2)
	var re *domain.RangeError
	require.ErrorAs(t, res.Errors[0], &re)
	assert.Equal(t, "x", re.Name)
	assert.Equal(t, domain.ErrorRange, res.Errors[0].Kind)
	require.ErrorAs(t, res.Errors[1], &re)
	assert.Equal(t, "y", re.Name)

	assert.True(t, res.State["x"].Equal(domain.Number(1e308)))
	assert.True(t, res.State["y"].Equal(domain.Number(-1e308)))
	assert.True(t, strings.HasSuffix(res.Rendered, "x is 1e+308\n"))

	_, err := json.Marshal(res)
	require.NoError(t, err)
}

func TestExecute_StateOverflowRejectsStatement(t *testing.T) {
	doc := "```state\n$a = 1\n$s = \"" + strings.Repeat("x", 50) + "\"\n```\n"
	store := state.New(10)

	res := execute(t, runtime.NewExecutor(), store, doc)

	require.Len(t, res.Errors, 1)
	var oe *domain.StateOverflowError
	require.ErrorAs(t, res.Errors[0], &oe)
	assert.Equal(t, "s", oe.Name)
	assert.Equal(t, 3, res.Errors[0].Range.StartLine)

	assert.Equal(t, []string{"a"}, store.Names())
	assert.Equal(t, state.EntrySize("a", domain.Number(1)), store.Size())
}

func TestExecute_InvalidBlockDoesNotAbort(t *testing.T) {
	doc := "```if\n```\n```panel\nstill here\n```\n"
	res := execute(t, runtime.NewExecutor(), state.New(0), doc)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, domain.ErrorParse, res.Errors[0].Kind)
	assert.Equal(t,
		"> **error** (if@1, lines 1-2): if block without condition\nstill here\n",
		res.Rendered)
}

func TestExecute_LaterSetWins(t *testing.T) {
	doc := "```set\nset $v = 1\n```\n```set\nset $v = 2\n```\n"
	res := execute(t, runtime.NewExecutor(), state.New(0), doc)
	assert.True(t, res.State["v"].Equal(domain.Number(2)))
}

func TestExecute_ExactlyOneBranchRuns(t *testing.T) {
	doc := "````if $x\n```set\nset $a = 1\n```\nelse\n```set\nset $b = 1\n```\n````\n"

	for _, x := range []bool{true, false} {
		store := state.New(0)
		require.NoError(t, store.Set("x", domain.Bool(x)))

		res := execute(t, runtime.NewExecutor(), store, doc)

		_, hasA := res.Delta["a"]
		_, hasB := res.Delta["b"]
		assert.NotEqual(t, hasA, hasB, "x=%v: exactly one branch must contribute", x)
		assert.Equal(t, x, hasA)

		require.NotEmpty(t, res.Results)
		if x {
			assert.Equal(t, domain.BranchThen, res.Results[0].Branch)
		} else {
			assert.Equal(t, domain.BranchElse, res.Results[0].Branch)
		}
	}
}

func TestExecute_ConditionErrorRunsNeitherBranch(t *testing.T) {
	doc := "```state\n$x = \"five\"\n```\n````if $x > 3\n```set\nset $a = 1\n```\nelse\n```set\nset $b = 1\n```\n````\n"
	res := execute(t, runtime.NewExecutor(), state.New(0), doc)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, domain.ErrorTypeMismatch, res.Errors[0].Kind)
	assert.NotContains(t, res.State, "a")
	assert.NotContains(t, res.State, "b")
}

func TestExecute_Nav(t *testing.T) {
	doc := "```state\n$town = \"Oakvale\"\n```\n```nav\nBack to $town -> town.md\nshop.md\n```\n"
	res := execute(t, runtime.NewExecutor(), state.New(0), doc)

	assert.Equal(t, "- [Back to Oakvale](town.md)\n- [shop.md](shop.md)\n", res.Rendered)
	require.Len(t, res.Results, 2)
	assert.Equal(t, []domain.NavChoiceView{
		{Target: "town.md", Label: "Back to Oakvale"},
		{Target: "shop.md", Label: "shop.md"},
	}, res.Results[1].Nav)
}

func TestExecute_PanelWithTitle(t *testing.T) {
	res := execute(t, runtime.NewExecutor(), state.New(0), "```panel Status\ncontent: all good\n```\n")
	assert.Equal(t, "**Status**\n\nall good\n", res.Rendered)
}

func TestExecute_TimeoutReturnsPartialResult(t *testing.T) {
	doc := "```state\n$x = 1\n```\n" +
		"```set\ninc $x\n```\n" +
		"```panel\nx=$x\n```\n"

	hooks := domain.LifecycleHooks{
		OnBlockStart: func(ctx context.Context, e *domain.BlockEvent) {
			if e.BlockID == "set@4" {
				time.Sleep(500 * time.Millisecond)
			}
		},
	}
	x := runtime.NewExecutor(
		runtime.WithTimeout(50*time.Millisecond),
		runtime.WithLifecycleHooks(hooks),
	)
	store := state.New(0)

	began := time.Now()
	res := execute(t, x, store, doc)
	elapsed := time.Since(began)

	assert.Less(t, elapsed, 400*time.Millisecond, "pass must return without waiting for the slow block")
	assert.Equal(t, domain.PassTimedOut, res.Status)
	require.NotNil(t, res.Timeout)
	assert.Equal(t, 2, res.Timeout.Skipped)
	assert.Equal(t, "set@4", res.Timeout.BlockID)
	require.Error(t, res.Err())

	assert.Equal(t,
		"> **skipped: timeout** (set@4, lines 4-6)\n"+
			"> **skipped: timeout** (panel@7, lines 7-9)\n",
		res.Rendered)
	require.Len(t, res.Results, 3)
	assert.False(t, res.Results[0].Skipped)
	assert.True(t, res.Results[1].Skipped)
	assert.True(t, res.Results[2].Skipped)

	v, _ := store.Get("x")
	assert.True(t, v.Equal(domain.Number(1)), "abandoned block must not commit")
}

func TestExecute_CallerCancellationIsNotATimeout(t *testing.T) {
	doc := "```state\n$x = 1\n```\n" +
		"```set\ninc $x\n```\n" +
		"```panel\nx=$x\n```\n"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hooks := domain.LifecycleHooks{
		OnBlockStart: func(blockCtx context.Context, e *domain.BlockEvent) {
			if e.BlockID == "set@4" {
				cancel()
				<-blockCtx.Done()
				time.Sleep(100 * time.Millisecond)
			}
		},
	}
	x := runtime.NewExecutor(
		runtime.WithTimeout(time.Hour),
		runtime.WithLifecycleHooks(hooks),
	)
	store := state.New(0)

	res := x.Execute(ctx, runtime.Input{
		SessionID: "test",
		Segments:  compiler.Parse(doc),
		Store:     store,
	})

	assert.Equal(t, domain.PassCancelled, res.Status)
	assert.Nil(t, res.Timeout)
	assert.NoError(t, res.Err())
	assert.NotContains(t, res.Rendered, "x=")
	require.Len(t, res.Results, 2)
	assert.True(t, res.Results[1].Skipped)

	v, _ := store.Get("x")
	assert.True(t, v.Equal(domain.Number(1)), "abandoned block must not commit")
}

func TestExecute_PanicIsReportedAsBlockError(t *testing.T) {
	hooks := domain.LifecycleHooks{
		OnBlockStart: func(ctx context.Context, e *domain.BlockEvent) {
			if e.BlockID == "set@1" {
				panic("boom")
			}
		},
	}
	x := runtime.NewExecutor(runtime.WithLifecycleHooks(hooks))
	res := execute(t, x, state.New(0), "```set\nset $a = 1\n```\n```panel\nafter\n```\n")

	require.Len(t, res.Errors, 1)
	assert.Equal(t, domain.ErrorInternal, res.Errors[0].Kind)
	assert.Contains(t, res.Errors[0].Message, "boom")
	assert.NotContains(t, res.State, "a")
	assert.True(t, strings.HasSuffix(res.Rendered, "after\n"))
}

func TestExecute_Hooks(t *testing.T) {
	var (
		mu       sync.Mutex
		outcomes []string
		passEnd  *domain.PassEvent
	)
	hooks := domain.LifecycleHooks{
		OnBlockEnd: func(ctx context.Context, e *domain.BlockEvent) {
			mu.Lock()
			defer mu.Unlock()
			outcomes = append(outcomes, e.BlockID+":"+e.Outcome)
		},
		OnPassEnd: func(ctx context.Context, e *domain.PassEvent) {
			passEnd = e
		},
	}
	x := runtime.NewExecutor(runtime.WithLifecycleHooks(hooks))
	execute(t, x, state.New(0), "```set\ninc $a\n```\n```set\ntoggle $a\n```\n")

	assert.Equal(t, []string{"set@1:ok", "set@4:error"}, outcomes)
	require.NotNil(t, passEnd)
	assert.Equal(t, domain.PassDone, passEnd.Status)
	assert.Equal(t, 2, passEnd.Blocks)
	assert.Equal(t, 1, passEnd.Errors)
}

func TestExecute_IndependentStores(t *testing.T) {
	x := runtime.NewExecutor()
	doc := "```set\ninc $coins $step\n```\n"

	var wg sync.WaitGroup
	stores := []*state.Store{state.New(0), state.New(0)}
	for i, s := range stores {
		require.NoError(t, s.Set("step", domain.Number(float64(i+1))))
		wg.Add(1)
		go func(s *state.Store) {
			defer wg.Done()
			for n := 0; n < 20; n++ {
				x.Execute(context.Background(), runtime.Input{Segments: compiler.Parse(doc), Store: s})
			}
		}(s)
	}
	wg.Wait()

	a, _ := stores[0].Get("coins")
	b, _ := stores[1].Get("coins")
	assert.True(t, a.Equal(domain.Number(20)))
	assert.True(t, b.Equal(domain.Number(40)))
}

func TestResume_RequiresPendingForm(t *testing.T) {
	_, err := runtime.NewExecutor().Resume(context.Background(), runtime.Input{}, runtime.Checkpoint{})
	assert.True(t, errors.Is(err, domain.ErrNoPendingForm))
}
