package mcpserver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"craftfolio/internal/config"
	"craftfolio/internal/state"
	"craftfolio/internal/tools"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Provider.Enabled = false // deterministic path only
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "craftfolio.db")

	app, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app
}

func TestApp_RegistersFullOperationSurface(t *testing.T) {
	app := newTestApp(t)

	for _, name := range []string{
		tools.OpChatTurn, tools.OpUpdateField, tools.OpRequestClarify,
		tools.OpReorderImages, tools.OpSuggestActions, tools.OpCheckReadiness,
		tools.OpGenerateContent, tools.OpComposeLayout,
	} {
		_, ok := app.Registry.Get(name)
		require.True(t, ok, "operation %s not registered", name)
	}
	require.Len(t, app.Registry.ByLatency(tools.DeepContext), 2)
}

func TestChatTurn_CreatesProjectAndPersists(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	out, err := app.Registry.Invoke(ctx, tools.OpChatTurn, map[string]any{
		"project_id": "proj-1",
		"message":    "Rebuilt the chimney in Denver, CO with red brick. Took 3 days.",
	}, false)
	require.NoError(t, err)
	require.Contains(t, out, "state")

	// The turn was persisted and journaled.
	s, err := app.Store.LoadState(ctx, "proj-1")
	require.NoError(t, err)
	require.Equal(t, "chimney-rebuild", s.Narrative.ProjectType)

	turns, err := app.Store.Turns(ctx, "proj-1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 1)
}

func TestChatTurn_LowInformationMessageDoesNotBrickProject(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	// First turn extracts nothing, so the persisted confidence map is empty.
	_, err := app.Registry.Invoke(ctx, tools.OpChatTurn, map[string]any{
		"project_id": "proj-1",
		"message":    "hello there",
	}, false)
	require.NoError(t, err)

	// The reloaded record must still be dispatchable.
	_, err = app.Registry.Invoke(ctx, tools.OpChatTurn, map[string]any{
		"project_id": "proj-1",
		"message":    "Rebuilt the chimney in Denver, CO.",
	}, false)
	require.NoError(t, err)

	s, err := app.Store.LoadState(ctx, "proj-1")
	require.NoError(t, err)
	require.Equal(t, "chimney-rebuild", s.Narrative.ProjectType)
}

func TestUpdateField_UserValueWinsOverExtraction(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	_, err := app.Registry.Invoke(ctx, tools.OpChatTurn, map[string]any{
		"project_id": "proj-1",
		"message":    "Did a tuckpointing job.",
	}, false)
	require.NoError(t, err)

	_, err = app.Registry.Invoke(ctx, tools.OpUpdateField, map[string]any{
		"project_id": "proj-1",
		"field":      state.FieldProjectType,
		"value":      "chimney-repair",
	}, false)
	require.NoError(t, err)

	s, err := app.Store.LoadState(ctx, "proj-1")
	require.NoError(t, err)
	require.Equal(t, "chimney-repair", s.Narrative.ProjectType)
	require.Equal(t, 1.0, s.Confidence.At(state.FieldProjectType))
}

func TestUpdateField_UnknownFieldRejected(t *testing.T) {
	app := newTestApp(t)
	_, err := app.Registry.Invoke(context.Background(), tools.OpUpdateField, map[string]any{
		"project_id": "proj-1",
		"field":      "favorite_color",
		"value":      "blue",
	}, false)
	require.Error(t, err)
}

func TestDeepContextOperationsGated(t *testing.T) {
	app := newTestApp(t)
	_, err := app.Registry.Invoke(context.Background(), tools.OpGenerateContent, map[string]any{
		"project_id": "proj-1",
	}, false)
	require.ErrorIs(t, err, tools.ErrExplicitMatchRequired)
}

func TestRequestClarify_AsksForMissingFields(t *testing.T) {
	app := newTestApp(t)
	out, err := app.Registry.Invoke(context.Background(), tools.OpRequestClarify, map[string]any{
		"project_id": "fresh",
	}, false)
	require.NoError(t, err)

	questions, ok := out["questions"].([]string)
	require.True(t, ok)
	require.NotEmpty(t, questions)
	require.LessOrEqual(t, len(questions), 5)
}

func TestSplitList(t *testing.T) {
	require.Equal(t, []string{"red brick", "mortar"}, splitList(" red brick , mortar ,"))
	require.Empty(t, splitList("  "))
}
