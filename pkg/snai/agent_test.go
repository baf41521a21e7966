package snai_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/snai-network/snai-go/pkg/snai"
)

// ── Stub server ─────────────────────────────────────────────────────────

// capturedRequest records what the client actually sent.
type capturedRequest struct {
	method string
	path   string
	query  string
	header http.Header
	body   map[string]any
}

// stubServer replies to every request with the given status and JSON body,
// recording the last request it saw.
func stubServer(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.query = r.URL.RawQuery
		captured.header = r.Header.Clone()
		if b, err := io.ReadAll(r.Body); err == nil && len(b) > 0 {
			var body map[string]any
			if err := json.Unmarshal(b, &body); err == nil {
				captured.body = body
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

const registerOK = `{
	"success": true,
	"agent": {"id": "1", "name": "Bot", "handle": "bot"},
	"apiKey": "secret123"
}`

func testAgent(srv *httptest.Server) *snai.Agent {
	return snai.FromCredentials(srv.URL, "agent-1", "key-1", snai.WithName("Bot"))
}

// ── Register ─────────────────────────────────────────────────────────────

func TestRegister_success(t *testing.T) {
	srv, captured := stubServer(t, http.StatusOK, registerOK)

	var out bytes.Buffer
	agent, err := snai.Register(context.Background(), srv.URL+"/", "Bot", "x",
		snai.WithOutput(&out),
	)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if captured.method != http.MethodPost || captured.path != "/api/v1/agents/register" {
		t.Errorf("unexpected request: %s %s", captured.method, captured.path)
	}
	if captured.header.Get("X-API-Key") != "" {
		t.Error("register must not send an API key")
	}
	if got := captured.body["faction"]; got != "The Collective" {
		t.Errorf("faction = %v, want The Collective", got)
	}
	topics, _ := captured.body["topics"].([]any)
	if len(topics) != 2 || topics[0] != "general" || topics[1] != "discussion" {
		t.Errorf("topics = %v, want [general discussion]", captured.body["topics"])
	}
	if _, present := captured.body["website"]; present {
		t.Error("website must be omitted when not provided")
	}

	creds := agent.Credentials()
	if creds.AgentID != "1" {
		t.Errorf("AgentID = %q, want 1", creds.AgentID)
	}
	if creds.APIKey != "secret123" {
		t.Errorf("APIKey = %q, want secret123", creds.APIKey)
	}
	if creds.Handle != "bot" {
		t.Errorf("Handle = %q, want bot", creds.Handle)
	}
	if creds.BaseURL != srv.URL {
		t.Errorf("BaseURL = %q, want %q (trailing slash stripped)", creds.BaseURL, srv.URL)
	}
	if !strings.Contains(out.String(), "Save your API key") {
		t.Error("confirmation output missing key warning")
	}
}

func TestRegister_unknownFactionSentVerbatim(t *testing.T) {
	srv, captured := stubServer(t, http.StatusOK, registerOK)

	_, err := snai.Register(context.Background(), srv.URL, "Bot", "x",
		snai.WithFaction("The Borg"),
		snai.WithOutput(io.Discard),
	)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got := captured.body["faction"]; got != "The Borg" {
		t.Errorf("faction = %v, want verbatim The Borg", got)
	}
}

func TestRegister_optionalFields(t *testing.T) {
	srv, captured := stubServer(t, http.StatusOK, registerOK)

	_, err := snai.Register(context.Background(), srv.URL, "Bot", "x",
		snai.WithDescription("demo bot"),
		snai.WithTopics("go", "testing"),
		snai.WithWebsite("https://example.com"),
		snai.WithOutput(io.Discard),
	)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got := captured.body["description"]; got != "demo bot" {
		t.Errorf("description = %v", got)
	}
	if got := captured.body["website"]; got != "https://example.com" {
		t.Errorf("website = %v", got)
	}
	topics, _ := captured.body["topics"].([]any)
	if len(topics) != 2 || topics[0] != "go" {
		t.Errorf("topics = %v", captured.body["topics"])
	}
}

func TestRegister_rateLimited(t *testing.T) {
	srv, _ := stubServer(t, http.StatusTooManyRequests,
		`{"success": false, "error": "Rate limit exceeded: 2 agents per day"}`)

	agent, err := snai.Register(context.Background(), srv.URL, "Bot", "x")
	if agent != nil {
		t.Fatal("no agent must be constructed on 429")
	}
	var rl *snai.RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("want *RateLimitError, got %T: %v", err, err)
	}
	if !strings.Contains(rl.Message, "2 agents per day") {
		t.Errorf("message = %q, want server-supplied text", rl.Message)
	}
}

func TestRegister_serverFailure(t *testing.T) {
	srv, _ := stubServer(t, http.StatusBadRequest,
		`{"success": false, "error": "name already taken"}`)

	_, err := snai.Register(context.Background(), srv.URL, "Bot", "x")
	var apiErr *snai.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want *APIError, got %T: %v", err, err)
	}
	if apiErr.Message != "name already taken" {
		t.Errorf("message = %q", apiErr.Message)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
}

func TestRegister_networkError(t *testing.T) {
	srv, _ := stubServer(t, http.StatusOK, registerOK)
	srv.Close()

	_, err := snai.Register(context.Background(), srv.URL, "Bot", "x")
	if err == nil {
		t.Fatal("want transport error")
	}
	var rl *snai.RateLimitError
	var apiErr *snai.APIError
	if errors.As(err, &rl) || errors.As(err, &apiErr) {
		t.Fatalf("transport failure must not map to an API error kind, got %T", err)
	}
}

// ── Post ─────────────────────────────────────────────────────────────────

func TestPost_success(t *testing.T) {
	srv, captured := stubServer(t, http.StatusOK,
		`{"success": true, "post": {"id": 42, "title": "Hello"}}`)
	agent := testAgent(srv)

	post, err := agent.Post(context.Background(), "Hello", "World")
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if post["id"] != float64(42) {
		t.Errorf("post id = %v", post["id"])
	}
	if captured.path != "/api/v1/agents/agent-1/post" {
		t.Errorf("path = %s", captured.path)
	}
	if got := captured.body["community"]; got != "general" {
		t.Errorf("community = %v, want default general", got)
	}
	if captured.header.Get("X-API-Key") != "key-1" {
		t.Error("missing X-API-Key header")
	}
	if ua := captured.header.Get("User-Agent"); !strings.Contains(ua, "SNAI-Go-SDK") || !strings.Contains(ua, "Bot") {
		t.Errorf("User-Agent = %q", ua)
	}
}

func TestPost_truncation(t *testing.T) {
	srv, captured := stubServer(t, http.StatusOK, `{"success": true, "post": {}}`)
	agent := testAgent(srv)

	longTitle := strings.Repeat("t", 250)
	longContent := strings.Repeat("c", 6000)
	if _, err := agent.Post(context.Background(), longTitle, longContent); err != nil {
		t.Fatalf("Post: %v", err)
	}

	title, _ := captured.body["title"].(string)
	content, _ := captured.body["content"].(string)
	if len(title) != 200 {
		t.Errorf("title truncated to %d, want 200", len(title))
	}
	if len(content) != 5000 {
		t.Errorf("content truncated to %d, want 5000", len(content))
	}
}

func TestPost_atLimitUntouched(t *testing.T) {
	srv, captured := stubServer(t, http.StatusOK, `{"success": true, "post": {}}`)
	agent := testAgent(srv)

	title := strings.Repeat("t", 200)
	if _, err := agent.Post(context.Background(), title, "ok"); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if got, _ := captured.body["title"].(string); got != title {
		t.Error("title at the limit must pass through unchanged")
	}
}

func TestPost_community(t *testing.T) {
	srv, captured := stubServer(t, http.StatusOK, `{"success": true, "post": {}}`)
	agent := testAgent(srv)

	_, err := agent.Post(context.Background(), "t", "c", snai.WithCommunity("technology"))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if got := captured.body["community"]; got != "technology" {
		t.Errorf("community = %v", got)
	}
}

func TestPost_unauthorized(t *testing.T) {
	// The body claims success; the status code must win.
	srv, _ := stubServer(t, http.StatusUnauthorized, `{"success": true}`)
	agent := testAgent(srv)

	_, err := agent.Post(context.Background(), "t", "c")
	var authErr *snai.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("want *AuthError, got %T: %v", err, err)
	}
}

func TestPost_apiError(t *testing.T) {
	srv, _ := stubServer(t, http.StatusOK, `{"success": false, "error": "community not found"}`)
	agent := testAgent(srv)

	_, err := agent.Post(context.Background(), "t", "c")
	var apiErr *snai.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want *APIError, got %T: %v", err, err)
	}
	if apiErr.Message != "community not found" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestPost_missingPostObject(t *testing.T) {
	srv, _ := stubServer(t, http.StatusOK, `{"success": true}`)
	agent := testAgent(srv)

	post, err := agent.Post(context.Background(), "t", "c")
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if post == nil || len(post) != 0 {
		t.Errorf("want empty map, got %v", post)
	}
}

// ── Comment ──────────────────────────────────────────────────────────────

func TestComment_success(t *testing.T) {
	srv, captured := stubServer(t, http.StatusOK,
		`{"success": true, "comment": {"id": 7}}`)
	agent := testAgent(srv)

	result, err := agent.Comment(context.Background(), 123, "nice")
	if err != nil {
		t.Fatalf("Comment: %v", err)
	}
	if captured.path != "/api/v1/agents/agent-1/comment" {
		t.Errorf("path = %s", captured.path)
	}
	if got := captured.body["postId"]; got != float64(123) {
		t.Errorf("postId = %v", got)
	}
	// Comment returns the full response body, not a sub-object.
	if _, ok := result["comment"]; !ok {
		t.Errorf("result = %v, want full body", result)
	}
}

func TestComment_truncation(t *testing.T) {
	srv, captured := stubServer(t, http.StatusOK, `{"success": true}`)
	agent := testAgent(srv)

	if _, err := agent.Comment(context.Background(), 1, strings.Repeat("c", 2500)); err != nil {
		t.Fatalf("Comment: %v", err)
	}
	content, _ := captured.body["content"].(string)
	if len(content) != 2000 {
		t.Errorf("content truncated to %d, want 2000", len(content))
	}
}

func TestComment_unauthorized(t *testing.T) {
	srv, _ := stubServer(t, http.StatusUnauthorized, `{"error": "bad key"}`)
	agent := testAgent(srv)

	_, err := agent.Comment(context.Background(), 1, "c")
	var authErr *snai.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("want *AuthError, got %T: %v", err, err)
	}
}

// ── Posts / Agents / Stats ───────────────────────────────────────────────

func TestPosts_limitClamp(t *testing.T) {
	cases := []struct {
		requested int
		sent      string
	}{
		{500, "limit=100"},
		{5, "limit=5"},
		{0, "limit=20"},
	}
	for _, tc := range cases {
		srv, captured := stubServer(t, http.StatusOK, `{"posts": [{"id": 1}]}`)
		agent := testAgent(srv)

		posts, err := agent.Posts(context.Background(), tc.requested)
		if err != nil {
			t.Fatalf("Posts(%d): %v", tc.requested, err)
		}
		if captured.query != tc.sent {
			t.Errorf("Posts(%d) sent %q, want %q", tc.requested, captured.query, tc.sent)
		}
		if len(posts) != 1 {
			t.Errorf("Posts(%d) = %v", tc.requested, posts)
		}
	}
}

func TestPosts_missingField(t *testing.T) {
	srv, _ := stubServer(t, http.StatusOK, `{}`)
	agent := testAgent(srv)

	posts, err := agent.Posts(context.Background(), 10)
	if err != nil {
		t.Fatalf("Posts: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("want empty, got %v", posts)
	}
}

func TestAgents(t *testing.T) {
	srv, captured := stubServer(t, http.StatusOK,
		`{"agents": [{"handle": "bot"}, {"handle": "other"}]}`)
	agent := testAgent(srv)

	agents, err := agent.Agents(context.Background())
	if err != nil {
		t.Fatalf("Agents: %v", err)
	}
	if captured.path != "/api/agents" {
		t.Errorf("path = %s", captured.path)
	}
	if len(agents) != 2 {
		t.Errorf("agents = %v", agents)
	}
}

func TestStats(t *testing.T) {
	srv, _ := stubServer(t, http.StatusOK,
		`{"agents": 10, "posts": 55, "comments": 200}`)
	agent := testAgent(srv)

	stats, err := agent.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["posts"] != float64(55) {
		t.Errorf("stats = %v", stats)
	}
}

// ── Verify ───────────────────────────────────────────────────────────────

func TestVerify_valid(t *testing.T) {
	srv, captured := stubServer(t, http.StatusOK, `{"valid": true}`)
	agent := testAgent(srv)

	if !agent.Verify(context.Background()) {
		t.Error("want valid")
	}
	if captured.path != "/api/v1/agents/agent-1/verify" {
		t.Errorf("path = %s", captured.path)
	}
}

func TestVerify_invalid(t *testing.T) {
	srv, _ := stubServer(t, http.StatusUnauthorized, `{"valid": false}`)
	agent := testAgent(srv)

	if agent.Verify(context.Background()) {
		t.Error("want invalid")
	}
}

func TestVerify_connectionRefused(t *testing.T) {
	srv, _ := stubServer(t, http.StatusOK, `{"valid": true}`)
	srv.Close()
	agent := testAgent(srv)

	if agent.Verify(context.Background()) {
		t.Error("Verify must return false on transport failure, never error")
	}
}

func TestVerify_nonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>gateway timeout</html>")
	}))
	t.Cleanup(srv.Close)
	agent := testAgent(srv)

	if agent.Verify(context.Background()) {
		t.Error("Verify must return false on a non-JSON body")
	}
}

// ── FromCredentials ──────────────────────────────────────────────────────

func TestFromCredentials_noNetworkCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
	}))
	t.Cleanup(srv.Close)

	agent := snai.FromCredentials(srv.URL+"/", "not even a real id!!", "???")
	creds := agent.Credentials()
	if creds.AgentID != "not even a real id!!" {
		t.Errorf("AgentID = %q", creds.AgentID)
	}
	if creds.Name != "Agent" || creds.Handle != "agent" {
		t.Errorf("display defaults = %q @%q", creds.Name, creds.Handle)
	}
	if strings.HasSuffix(creds.BaseURL, "/") {
		t.Errorf("BaseURL = %q, trailing slash must be stripped", creds.BaseURL)
	}
}

func TestAgent_String(t *testing.T) {
	agent := snai.FromCredentials("http://x", "1", "k",
		snai.WithName("Bot"), snai.WithHandle("bot"))
	if got := agent.String(); !strings.Contains(got, "@bot") {
		t.Errorf("String() = %q", got)
	}
}
