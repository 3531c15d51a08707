package ai_bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_SendPrompt(t *testing.T) {
	t.Run("posts the prompt and returns the reply", func(t *testing.T) {
		var received Prompt

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/prompt" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}

			if r.Header.Get("X-Request-Id") != "abc" {
				t.Errorf("expected request id header, got %q", r.Header.Get("X-Request-Id"))
			}

			if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
				t.Errorf("decode: %v", err)
			}

			_, _ = w.Write([]byte("the lights are on"))
		}))
		defer server.Close()

		client, err := NewClient(&Config{ApiHost: server.URL + "/"})
		if err != nil {
			t.Fatalf("NewClient: %v", err)
		}

		resp, err := client.SendPrompt(context.Background(), Prompt{ID: "abc", Text: "turn on the lights", NoSpeechProbability: 0.1})
		if err != nil {
			t.Fatalf("SendPrompt: %v", err)
		}

		if resp != "the lights are on" {
			t.Errorf("unexpected response %q", resp)
		}

		if received.Text != "turn on the lights" || received.NoSpeechProbability != 0.1 {
			t.Errorf("unexpected prompt %+v", received)
		}
	})

	t.Run("error statuses are returned as errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client, err := NewClient(&Config{ApiHost: server.URL})
		if err != nil {
			t.Fatalf("NewClient: %v", err)
		}

		if _, err = client.SendPrompt(context.Background(), Prompt{Text: "hello"}); err == nil {
			t.Fatalf("expected an error")
		}
	})

	t.Run("missing host", func(t *testing.T) {
		if _, err := NewClient(&Config{}); err == nil {
			t.Fatalf("expected an error")
		}
	})
}
