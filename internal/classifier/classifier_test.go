package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClassifySuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		var payload struct {
			Utterance string `json:"utterance"`
			BabyName  string `json:"baby_name"`
			Now       string `json:"now"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		if payload.Utterance != "log a bottle feeding" {
			t.Fatalf("unexpected utterance: %s", payload.Utterance)
		}
		if payload.BabyName != "Ada" {
			t.Fatalf("unexpected baby name: %s", payload.BabyName)
		}
		if _, err := time.Parse(time.RFC3339, payload.Now); err != nil {
			t.Fatalf("now is not RFC3339: %s", payload.Now)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"action":"create_entry","confidence":0.92,"rationale":"explicit log verb"}`))
	}))
	defer server.Close()

	client := New(Config{Endpoint: server.URL, HTTPClient: server.Client()})
	result, err := client.Classify(context.Background(), "log a bottle feeding", "Ada", time.Now())
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if result.Action != "create_entry" {
		t.Fatalf("unexpected action: %s", result.Action)
	}
	if result.Confidence != 0.92 {
		t.Fatalf("unexpected confidence: %v", result.Confidence)
	}
}

func TestClassifyServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(Config{Endpoint: server.URL, HTTPClient: server.Client()})
	if _, err := client.Classify(context.Background(), "anything", "Ada", time.Now()); err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestClassifyMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"action":`))
	}))
	defer server.Close()

	client := New(Config{Endpoint: server.URL, HTTPClient: server.Client()})
	if _, err := client.Classify(context.Background(), "anything", "Ada", time.Now()); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestClassifyRejectsOutOfRangeConfidence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"action":"search","confidence":1.7}`))
	}))
	defer server.Close()

	client := New(Config{Endpoint: server.URL, HTTPClient: server.Client()})
	if _, err := client.Classify(context.Background(), "anything", "Ada", time.Now()); err == nil {
		t.Fatal("expected error for confidence above 1")
	}
}

func TestDisabledAlwaysErrors(t *testing.T) {
	if _, err := (Disabled{}).Classify(context.Background(), "text", "Ada", time.Now()); err == nil {
		t.Fatal("expected disabled client to error")
	}
}
