package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req generateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "qwen2.5:7b", req.Model)
		assert.Equal(t, "the prompt", req.Prompt)
		assert.False(t, req.Stream)
		_ = json.NewEncoder(w).Encode(generateResponse{Response: `[{"anchor":"a b"}]`, Done: true})
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL + "/", Model: "qwen2.5:7b"})
	got, err := a.Complete(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, `[{"anchor":"a b"}]`, got)
}

func TestComplete_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}).Complete(context.Background(), "p")
	assert.ErrorContains(t, err, "status 500")
	assert.ErrorContains(t, err, "model crashed")
}

func TestTryInitialize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3.2:latest","model":"llama3.2:latest"},{"name":"mistral:7b"}]}`))
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL})
	assert.Equal(t, DefaultModel, a.Model())
	assert.False(t, a.IsReady())
	require.NoError(t, a.TryInitialize(context.Background()))
	assert.True(t, a.IsReady())

	missing := New(Config{BaseURL: srv.URL, Model: "gemma2"})
	assert.ErrorContains(t, missing.TryInitialize(context.Background()), "ollama pull gemma2")
	assert.False(t, missing.IsReady())
}

func TestTryInitialize_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	a := New(Config{BaseURL: url})
	assert.ErrorContains(t, a.TryInitialize(context.Background()), "ping failed")
}

func TestMatchesModel(t *testing.T) {
	assert.True(t, matchesModel("llama3.2", "llama3.2"))
	assert.True(t, matchesModel("llama3.2:latest", "llama3.2"))
	assert.False(t, matchesModel("llama3.2:1b", "llama3.2"))
	assert.False(t, matchesModel("llama3.2:latest", "llama3.2:1b"))
	assert.False(t, matchesModel("", "llama3.2"))
}
