/*
Package livemd turns fenced code blocks of a Markdown document into live,
stateful behavior: declared variables, arithmetic and boolean mutation,
conditional branching, form collection, text interpolation and navigation,
without ever executing host code.

# Concept

A document is scanned into an ordered list of segments: prose, unrecognized
fences (rendered verbatim) and runtime blocks tagged state, set, form, if,
nav or panel. An execution pass runs the blocks in document order against
the variables of one session and returns the rendered document, the final
state, the state delta and the per-block results. Block errors become inline
annotations; they never abort the rest of the pass.

# Usage

	eng, err := livemd.New()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	id, _ := eng.Open(ctx, "")

	doc := "```state\n$coins = 10\n```\n\nYou have $coins coins.\n"
	res, err := eng.Execute(ctx, id, doc, domain.ExecuteOptions{})
	if err != nil {
		log.Fatal(err) // only a timeout is reported here
	}
	fmt.Print(res.Rendered)

# Forms

A form block pauses the pass and returns a PendingForm. The host collects the
answers and calls SubmitForm, which stores them as one atomic batch and
continues the pass after the form. Answers are remembered by the session, so
executing the same document again replays them instead of pausing.

# Ceilings

Every pass is bounded by execution_timeout_ms and every session store by
max_state_size_bytes. Both can be set per engine (WithConfig), per document
(YAML frontmatter) and per call (ExecuteOptions.Settings).

# Persistence

The core keeps state in memory. WithBridge mirrors committed variables to a
ports.VariableStore (memory, file, Redis or SQLite adapters) and WithRestore
rehydrates sessions from it when they are opened.
*/
package livemd
