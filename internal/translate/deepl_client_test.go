package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDeepLClient_Translate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "DeepL-Auth-Key test-key" {
			t.Errorf("Unexpected Authorization header: %s", auth)
		}

		var req deepLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if len(req.Text) != 1 || req.Text[0] != "Hello there." {
			t.Errorf("Unexpected request text: %v", req.Text)
		}
		if req.TargetLang != "es" {
			t.Errorf("Expected target_lang 'es', got '%s'", req.TargetLang)
		}

		json.NewEncoder(w).Encode(deepLResponse{
			Translations: []struct {
				Text string `json:"text"`
			}{{Text: "Hola."}},
		})
	}))
	defer server.Close()

	client := NewDeepLClient("test-key", server.URL)
	out, err := client.Translate(context.Background(), "Hello there.", "en", "es")
	if err != nil {
		t.Fatalf("Translate() failed: %v", err)
	}
	if out != "Hola." {
		t.Errorf("Expected 'Hola.', got '%s'", out)
	}
}

func TestDeepLClient_TranslateErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewDeepLClient("bad-key", server.URL)
	_, err := client.Translate(context.Background(), "Hello.", "en", "es")
	if !errors.Is(err, ErrTranslationFailed) {
		t.Errorf("Expected ErrTranslationFailed, got %v", err)
	}
}

func TestDeepLClient_TranslateEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(deepLResponse{})
	}))
	defer server.Close()

	client := NewDeepLClient("test-key", server.URL)
	_, err := client.Translate(context.Background(), "Hello.", "en", "es")
	if !errors.Is(err, ErrTranslationFailed) {
		t.Errorf("Expected ErrTranslationFailed on empty response, got %v", err)
	}
}

func TestDeepLClient_TranslateConnectionRefused(t *testing.T) {
	client := NewDeepLClient("test-key", "http://127.0.0.1:1")
	_, err := client.Translate(context.Background(), "Hello.", "en", "es")
	if !errors.Is(err, ErrTranslationFailed) {
		t.Errorf("Expected ErrTranslationFailed on connection error, got %v", err)
	}
}
