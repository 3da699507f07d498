// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

package analysis

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/custodia/internal/models"
)

func TestBuildPrompt(t *testing.T) {
	entries := []models.AccessLogEntry{
		{
			AISystem:     "VisionBot",
			DataAccessed: []string{"images", "labels"},
			Purpose:      []string{"training"},
			Details:      "batch ingest",
			Timestamp:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}

	prompt := buildPrompt(entries)
	for _, want := range []string{
		"Analyze the following log entries for anomalies or suspicious patterns:",
		"Time: 2026-03-01T12:00:00Z",
		"AI System: VisionBot",
		"Data Accessed: images, labels",
		"Purpose: training",
		"Details: batch ingest",
		"Provide a concise analysis.",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPrompt_Empty(t *testing.T) {
	prompt := buildPrompt(nil)
	if !strings.Contains(prompt, "Analyze the following log entries") {
		t.Errorf("unexpected prompt for empty set: %s", prompt)
	}
}

func TestClient_Analyze(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  all clear  "}}]}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
	})

	result, err := client.Analyze(context.Background(), []models.AccessLogEntry{
		{AISystem: "VisionBot", Timestamp: time.Now().UTC()},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "all clear" {
		t.Errorf("expected trimmed content, got %q", result)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if gotReq.Model != "gpt-4o-mini" {
		t.Errorf("unexpected model %q", gotReq.Model)
	}
	if gotReq.MaxTokens != maxTokens {
		t.Errorf("expected max_tokens %d, got %d", maxTokens, gotReq.MaxTokens)
	}
	if gotReq.Temperature != temperature {
		t.Errorf("expected temperature %v, got %v", temperature, gotReq.Temperature)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("unexpected messages: %+v", gotReq.Messages)
	}
	if gotReq.Messages[0].Content != systemPrompt {
		t.Errorf("unexpected system prompt: %q", gotReq.Messages[0].Content)
	}
}

func TestClient_Analyze_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Model: "gpt-4o-mini"})
	if _, err := client.Analyze(context.Background(), nil); err == nil {
		t.Fatal("expected error on 503, got nil")
	}
}

func TestClient_Analyze_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Model: "gpt-4o-mini"})
	if _, err := client.Analyze(context.Background(), nil); err == nil {
		t.Fatal("expected error on empty choices, got nil")
	}
}

func TestClient_Analyze_ContextCancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's background read can detect the
		// client disconnect and cancel the request context.
		_, _ = io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Model: "gpt-4o-mini"})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	if _, err := client.Analyze(ctx, nil); err == nil {
		t.Fatal("expected error on canceled context, got nil")
	}
}
