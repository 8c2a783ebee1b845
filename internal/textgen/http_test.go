// ABOUTME: Tests for the HTTP completions Generator.
// ABOUTME: Uses httptest servers speaking the OpenAI-compatible protocol.

package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGeneratorGenerate(t *testing.T) {
	var seen completionRequest
	var authHeader string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&seen))
		fmt.Fprint(w, `{"choices":[{"text":"a completion"}]}`)
	}))
	defer srv.Close()

	gen := NewHTTPGenerator(HTTPConfig{
		Endpoint: srv.URL,
		Model:    "test-model",
		APIKey:   "secret",
	})

	out, err := gen.Generate(context.Background(), "a prompt", Options{
		MaxTokens:     128,
		Temperature:   0.5,
		StopSequences: []string{"Human:"},
	})
	require.NoError(t, err)
	assert.Equal(t, "a completion", out)

	assert.Equal(t, "Bearer secret", authHeader)
	assert.Equal(t, "test-model", seen.Model)
	assert.Equal(t, "a prompt", seen.Prompt)
	assert.Equal(t, 128, seen.MaxTokens)
	assert.Equal(t, []string{"Human:"}, seen.Stop)
	assert.False(t, seen.Stream)
}

func TestHTTPGeneratorGenerateErrors(t *testing.T) {
	t.Run("http error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model overloaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		gen := NewHTTPGenerator(HTTPConfig{Endpoint: srv.URL})
		_, err := gen.Generate(context.Background(), "p", Options{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrGenerationFailed))
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("api error payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"error":{"message":"bad model"}}`)
		}))
		defer srv.Close()

		gen := NewHTTPGenerator(HTTPConfig{Endpoint: srv.URL})
		_, err := gen.Generate(context.Background(), "p", Options{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad model")
	})

	t.Run("no choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"choices":[]}`)
		}))
		defer srv.Close()

		gen := NewHTTPGenerator(HTTPConfig{Endpoint: srv.URL})
		_, err := gen.Generate(context.Background(), "p", Options{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrGenerationFailed))
	})
}

func TestHTTPGeneratorGenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, token := range []string{"hel", "lo ", "world"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"text\":%q}]}\n\n", token)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	gen := NewHTTPGenerator(HTTPConfig{Endpoint: srv.URL})
	stream, err := gen.GenerateStream(context.Background(), "p", Options{})
	require.NoError(t, err)

	var sb strings.Builder
	for chunk := range stream {
		require.NoError(t, chunk.Err)
		sb.WriteString(chunk.Content)
	}
	assert.Equal(t, "hello world", sb.String())
}

func TestHTTPGeneratorStreamOpenFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	gen := NewHTTPGenerator(HTTPConfig{Endpoint: srv.URL})
	_, err := gen.GenerateStream(context.Background(), "p", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGenerationFailed))
}
