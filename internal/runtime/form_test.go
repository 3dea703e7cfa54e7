package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/livemd/internal/compiler"
	"github.com/aretw0/livemd/internal/runtime"
	"github.com/aretw0/livemd/pkg/domain"
	"github.com/aretw0/livemd/pkg/state"
)

const contactDoc = "```state\n$coins = 1\n```\n" +
	"```form Contact\nemail: email required\n```\n" +
	"```panel\nMail $email, coins $coins\n```\n"

func TestForm_PausesAndResumes(t *testing.T) {
	x := runtime.NewExecutor()
	store := state.New(0)
	segs := compiler.Parse(contactDoc)
	before := store.Snapshot()

	in := runtime.Input{SessionID: "s1", Segments: segs, Store: store}
	paused := x.Execute(context.Background(), in)

	require.Equal(t, domain.PassPaused, paused.Status)
	require.NotNil(t, paused.PendingForm)
	assert.Equal(t, "form@4", paused.PendingForm.BlockID)
	assert.Equal(t, []domain.ResumeStep{{Index: 1}}, paused.PendingForm.Path)
	assert.Equal(t, "", paused.Rendered, "nothing after the form is rendered")
	require.Len(t, paused.PendingForm.Form.Fields, 1)
	assert.True(t, paused.PendingForm.Form.Fields[0].Required)

	in.Answers = map[string]map[string]domain.Value{
		"form@4": {"email": domain.String("not-an-email")},
	}
	res, err := x.Resume(context.Background(), in, runtime.Checkpoint{Result: paused, Before: before})
	require.NoError(t, err)

	assert.Equal(t, domain.PassDone, res.Status)
	assert.Nil(t, res.PendingForm)
	assert.Equal(t, "Mail not-an-email, coins 1\n", res.Rendered)
	assert.True(t, res.State["email"].Equal(domain.String("not-an-email")), "answers are stored verbatim")
	assert.Contains(t, res.Delta, "coins")
	assert.Contains(t, res.Delta, "email")

	var formResults int
	for _, r := range res.Results {
		if r.BlockID == "form@4" {
			formResults++
			assert.Nil(t, r.Form)
		}
	}
	assert.Equal(t, 1, formResults)
}

func TestForm_NestedInBranch(t *testing.T) {
	doc := "````if $go\n```form\nname: text\n```\nHi $name\n````\nBye\n"
	x := runtime.NewExecutor()
	store := state.New(0)
	require.NoError(t, store.Set("go", domain.Bool(true)))
	segs := compiler.Parse(doc)
	before := store.Snapshot()

	in := runtime.Input{Segments: segs, Store: store}
	paused := x.Execute(context.Background(), in)
	require.NotNil(t, paused.PendingForm)
	assert.Equal(t, []domain.ResumeStep{{Index: 0, Branch: domain.BranchThen}, {Index: 0}}, paused.PendingForm.Path)

	in.Answers = map[string]map[string]domain.Value{"form@2": {"name": domain.String("Ann")}}
	res, err := x.Resume(context.Background(), in, runtime.Checkpoint{Result: paused, Before: before})
	require.NoError(t, err)
	assert.Equal(t, "Hi Ann\nBye\n", res.Rendered)

	// A fresh pass with remembered answers replays them instead of pausing.
	replay := x.Execute(context.Background(), runtime.Input{Segments: segs, Store: store, Answers: in.Answers})
	assert.Equal(t, domain.PassDone, replay.Status)
	assert.Equal(t, "Hi Ann\nBye\n", replay.Rendered)
}

func TestForm_UnknownAnswersAreIgnored(t *testing.T) {
	x := runtime.NewExecutor()
	store := state.New(0)
	res := x.Execute(context.Background(), runtime.Input{
		Segments: compiler.Parse("```form\nage: number\n```\n"),
		Store:    store,
		Answers:  map[string]map[string]domain.Value{"form@1": {"age": domain.Number(3), "admin": domain.Bool(true)}},
	})
	assert.Equal(t, domain.PassDone, res.Status)
	assert.Equal(t, []string{"age"}, store.Names())
}

func TestForm_ResumeRejectsStalePath(t *testing.T) {
	x := runtime.NewExecutor()
	store := state.New(0)
	paused := x.Execute(context.Background(), runtime.Input{Segments: compiler.Parse(contactDoc), Store: store})
	require.NotNil(t, paused.PendingForm)

	_, err := x.Resume(context.Background(), runtime.Input{
		Segments: compiler.Parse("```panel\nedited\n```\n"),
		Store:    store,
		Answers:  map[string]map[string]domain.Value{"form@4": {"email": domain.String("a@b")}},
	}, runtime.Checkpoint{Result: paused})
	assert.True(t, errors.Is(err, domain.ErrFormMismatch))
}
