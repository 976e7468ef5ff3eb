package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docchat/internal/docchat/session"
)

func TestStateAccumulation(t *testing.T) {
	state := session.NewState()

	state.SetCollection("annual_report_pdf")
	state.AddFile("annual report.pdf", 1024, "application/pdf")
	state.AddContent("pasted body")
	state.AddContent("more pasted body")
	state.AddURL("https://example.com/docs")

	assert.Equal(t, "annual_report_pdf", state.CollectionName)
	require.Len(t, state.Files, 1)
	assert.Equal(t, "annual report.pdf", state.Files[0].Name)
	require.Len(t, state.Contents, 2)
	assert.Equal(t, "content-1", state.Contents[0].Name)
	assert.Equal(t, "content-2", state.Contents[1].Name)
	require.Len(t, state.URLs, 1)
	assert.Equal(t, "url-1", state.URLs[0].Name)
}

func TestMemoryStoreLoadMissingSession(t *testing.T) {
	s := session.NewMemoryStore()

	state, err := s.Load(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, state.CollectionName)
	assert.Empty(t, state.Files)
	assert.Empty(t, state.Contents)
	assert.Empty(t, state.URLs)
}

func TestMemoryStoreSaveAndLoad(t *testing.T) {
	s := session.NewMemoryStore()
	ctx := context.Background()

	state := session.NewState()
	state.SetCollection("docs")
	state.AddURL("https://example.com")
	state.Plan = "premium"
	require.NoError(t, s.Save(ctx, "sess-1", state))

	loaded, err := s.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "docs", loaded.CollectionName)
	require.Len(t, loaded.URLs, 1)
	assert.Equal(t, "https://example.com", loaded.URLs[0].Value)
	assert.Equal(t, "premium", loaded.Plan)
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestMemoryStoreLoadReturnsCopy(t *testing.T) {
	s := session.NewMemoryStore()
	ctx := context.Background()

	state := session.NewState()
	state.AddContent("original")
	require.NoError(t, s.Save(ctx, "sess-1", state))

	loaded, err := s.Load(ctx, "sess-1")
	require.NoError(t, err)
	loaded.SetCollection("mutated")
	loaded.AddContent("extra")

	again, err := s.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, again.CollectionName)
	assert.Len(t, again.Contents, 1)
}

func TestMemoryStoreDelete(t *testing.T) {
	s := session.NewMemoryStore()
	ctx := context.Background()

	state := session.NewState()
	state.SetCollection("docs")
	require.NoError(t, s.Save(ctx, "sess-1", state))
	require.NoError(t, s.Delete(ctx, "sess-1"))

	loaded, err := s.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, loaded.CollectionName)
}
