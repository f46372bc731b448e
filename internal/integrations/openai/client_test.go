package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"asic-advisor/internal/domain"
)

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_EmptyKey(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestNewClient_Valid(t *testing.T) {
	c, err := NewClient("sk-test")
	require.NoError(t, err)
	require.NotNil(t, c.api)
}

// ---------------------------------------------------------------------------
// Client.Complete
// ---------------------------------------------------------------------------

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(
		"sk-test",
		WithBaseURL(srv.URL+"/v1"),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestClient_Complete_HappyPath(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &got))
		writeJSON(w, 200, `{
			"id": "cmpl-1",
			"object": "chat.completion",
			"created": 1670000000,
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "{\"recommendations\":[]}"}
			}]
		}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	out, err := c.Complete(context.Background(), CompletionRequest{
		Model:        "mistral-large-latest",
		Messages:     []domain.ChatMessage{{Role: domain.RoleSystem, Content: "persona"}, {Role: domain.RoleUser, Content: "hi"}},
		JSONResponse: true,
		Tools: []domain.ToolSpec{{
			Name:        "retrieve_seller_listings",
			Description: "listings",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		}},
	})
	require.NoError(t, err)
	require.Equal(t, `{"recommendations":[]}`, out.Content)
	require.Empty(t, out.ToolCalls)

	require.Equal(t, "mistral-large-latest", got["model"])
	require.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	require.Contains(t, got, "temperature")
	require.Less(t, got["temperature"].(float64), 0.001)

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	require.Equal(t, "system", msgs[0].(map[string]any)["role"])

	tools := got["tools"].([]any)
	require.Len(t, tools, 1)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	require.Equal(t, "retrieve_seller_listings", fn["name"])
}

func TestClient_Complete_ToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{
			"choices": [{
				"index": 0,
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "retrieve_buyer_requests", "arguments": "{}"}}]
				}
			}]
		}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	out, err := c.Complete(context.Background(), CompletionRequest{Model: "m"})
	require.NoError(t, err)
	require.Equal(t, []domain.ToolCall{{ID: "call_1", Name: "retrieve_buyer_requests", Arguments: "{}"}}, out.ToolCalls)
}

func TestClient_Complete_SendsToolTraffic(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		writeJSON(w, 200, `{"choices":[{"index":0,"message":{"role":"assistant","content":"done"}}]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Complete(context.Background(), CompletionRequest{
		Model: "m",
		Messages: []domain.ChatMessage{
			{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{{ID: "call_1", Name: "retrieve_seller_listings", Arguments: "{}"}}},
			{Role: domain.RoleTool, ToolCallID: "call_1", Content: `{"Retrieved Data":[]}`},
		},
	})
	require.NoError(t, err)

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	call := msgs[0].(map[string]any)["tool_calls"].([]any)[0].(map[string]any)
	require.Equal(t, "call_1", call["id"])
	require.Equal(t, "function", call["type"])
	require.Equal(t, "call_1", msgs[1].(map[string]any)["tool_call_id"])
}

func TestClient_Complete_EmptyModel(t *testing.T) {
	c, err := NewClient("sk-test")
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "model")
}

func TestClient_Complete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"choices":[]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Complete(context.Background(), CompletionRequest{Model: "m"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no choices")
}

func TestClient_Complete_StatusErrors(t *testing.T) {
	for _, status := range []int{400, 401, 429, 500, 503} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, status, `{"error":{"message":"upstream said no","type":"invalid_request_error"}}`)
		}))

		c := newTestClient(t, srv)
		_, err := c.Complete(context.Background(), CompletionRequest{Model: "m"})
		srv.Close()

		require.Error(t, err, "status=%d", status)
		var se *HTTPStatusError
		require.True(t, errors.As(err, &se), "status=%d", status)
		require.Equal(t, status, se.HTTPStatusCode())
		require.Contains(t, err.Error(), "upstream said no")
	}
}

func TestClient_Complete_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(502)
		_, _ = w.Write([]byte(`bad gateway`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Complete(context.Background(), CompletionRequest{Model: "m"})
	var se *HTTPStatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, 502, se.StatusCode)
}

func TestClient_Complete_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`not-a-json`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Complete(context.Background(), CompletionRequest{Model: "m"})
	require.Error(t, err)
	var se *HTTPStatusError
	require.False(t, errors.As(err, &se))
}

func TestClient_Complete_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		writeJSON(w, 200, `{"choices":[]}`)
	}))
	defer srv.Close()

	c, err := NewClient("sk-test",
		WithBaseURL(srv.URL+"/v1"),
		WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}),
	)
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), CompletionRequest{Model: "m"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "request failed")
}

func TestHTTPStatusError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &HTTPStatusError{StatusCode: 429, Message: "slow down", Err: inner}
	require.ErrorIs(t, err, inner)
	require.Contains(t, err.Error(), "429")
}
