package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/livemd"
	"github.com/aretw0/livemd/internal/config"
	"github.com/aretw0/livemd/internal/presentation/tui"
	"github.com/aretw0/livemd/internal/testutils"
	"github.com/aretw0/livemd/pkg/adapters/memory"
	"github.com/aretw0/livemd/pkg/domain"
)

const signupDoc = "---\ntitle: Signup\n---\n# Signup\n\n```form Sign up\nname: text Name required\n```\n\nWelcome, $name!\n"

func newRunner(t *testing.T, docs map[string]string, answers AnswerSource, jsonMode bool) (*Runner, *bytes.Buffer, string) {
	t.Helper()
	eng, err := livemd.New(livemd.WithLoader(memory.NewLoader(docs)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Shutdown() })

	id, err := eng.Open(context.Background(), "")
	require.NoError(t, err)

	var out bytes.Buffer
	return &Runner{Engine: eng, Answers: answers, Out: &out, Render: tui.Plain, JSON: jsonMode}, &out, id
}

func TestRunner_PromptsAndResumes(t *testing.T) {
	prompter := tui.NewPrompter(strings.NewReader("Fred\n"), &bytes.Buffer{})
	r, out, id := newRunner(t, map[string]string{"signup": signupDoc}, prompter, false)

	res, err := r.Run(context.Background(), id, "signup", domain.ExecuteOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.PassDone, res.Status)

	// The heading rendered before the form is printed once.
	assert.Equal(t, 1, strings.Count(out.String(), "# Signup"))
	assert.Contains(t, out.String(), "Welcome, Fred!")
}

func TestRunner_JSONAnswers(t *testing.T) {
	answers := NewJSONAnswers(strings.NewReader(`{"name":"Ada"}` + "\n"))
	r, out, id := newRunner(t, map[string]string{"signup": signupDoc}, answers, true)

	_, err := r.Run(context.Background(), id, "signup", domain.ExecuteOptions{})
	require.NoError(t, err)

	dec := json.NewDecoder(out)
	var first, second domain.RenderResult
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))
	assert.Equal(t, domain.PassPaused, first.Status)
	assert.Equal(t, domain.PassDone, second.Status)
	assert.True(t, second.State["name"].Equal(domain.String("Ada")))
}

func TestRunner_AbortedInput(t *testing.T) {
	prompter := tui.NewPrompter(strings.NewReader(""), &bytes.Buffer{})
	r, _, id := newRunner(t, map[string]string{"signup": signupDoc}, prompter, false)

	res, err := r.Run(context.Background(), id, "signup", domain.ExecuteOptions{})
	assert.ErrorIs(t, err, tui.ErrAborted)
	assert.True(t, isInterrupted(err))
	assert.Equal(t, domain.PassPaused, res.Status)
}

func TestRunSession_File(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{
		"shop.md": "---\ntitle: Shop\n---\n```state\n$coins = 10\n```\n\n```set\ninc $coins 5\n```\n\nYou have $coins coins.\n",
	})

	var out bytes.Buffer
	err := RunSession(RunOptions{
		Path:   filepath.Join(dir, "shop.md"),
		Plain:  true,
		Prior:  `{"unused": 1}`,
		Config: config.Default(),
		In:     strings.NewReader(""),
		Out:    &out,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "You have 15 coins.")
}

func TestRunSession_ResumeFromFileBridge(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{
		"index.md": "---\ntitle: Counter\n---\n```set\ninc $visits\n```\n\nVisits: $visits\n",
	})
	bridge := BridgeOptions{Kind: BridgeFile, Dir: filepath.Join(dir, ".livemd", "sessions")}

	run := func(fresh bool) string {
		var out bytes.Buffer
		require.NoError(t, RunSession(RunOptions{
			Path:      dir,
			SessionID: "counter",
			Fresh:     fresh,
			Plain:     true,
			Config:    config.Default(),
			Bridge:    bridge,
			In:        strings.NewReader(""),
			Out:       &out,
		}))
		return out.String()
	}

	assert.Contains(t, run(false), "Visits: 1")
	assert.Contains(t, run(false), "Visits: 2")
	assert.Contains(t, run(true), "Visits: 1")
}

func TestRunOptions_InvalidPrior(t *testing.T) {
	_, err := RunOptions{Prior: "{"}.executeOptions()
	assert.Error(t, err)

	_, err = RunOptions{Prior: `{"a":[1]}`}.executeOptions()
	assert.ErrorIs(t, err, domain.ErrInvalidValue)
}

func TestExecute_RejectsWatchWithJSON(t *testing.T) {
	assert.Error(t, Execute(RunOptions{Watch: true, JSON: true}))
}
