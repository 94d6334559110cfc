package http

import (
	"net/http"
	"strings"
	"testing"

	"chat-relay/internal/llm"
	"chat-relay/internal/repository"
)

func TestRouterRespondsWithJSON(t *testing.T) {
	store := repository.NewMemoryConversationStore()
	r := setupConversationRouter(store, &llm.MockClient{Response: "hola"}, nil)

	rec := performRequest(r, http.MethodGet, "/create", nil)
	convo := decodeConversation(t, rec)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"create", http.MethodGet, "/create", nil, http.StatusOK},
		{"list", http.MethodGet, "/convos", nil, http.StatusOK},
		{"get", http.MethodGet, "/convo/" + convo.ID, nil, http.StatusOK},
		{"get missing", http.MethodGet, "/convo/nope", nil, http.StatusNotFound},
		{"chat", http.MethodPost, "/chat", map[string]string{"id": convo.ID, "message": "hola"}, http.StatusOK},
		{"chat invalid", http.MethodPost, "/chat", map[string]string{}, http.StatusBadRequest},
		{"health", http.MethodGet, "/healthz", nil, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := performRequest(r, tc.method, tc.path, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Fatalf("expected JSON content type, got %q", ct)
			}
		})
	}
}
