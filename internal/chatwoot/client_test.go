package chatwoot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Token  string
	Body   string
	Type   string
}

func newFakeChatwoot(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *[]recorded) {
	t.Helper()
	var mu sync.Mutex
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Token:  r.Header.Get("api_access_token"),
			Body:   string(b),
			Type:   r.Header.Get("Content-Type"),
		})
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestClient_AccountScope(t *testing.T) {
	srv, calls := newFakeChatwoot(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"payload":[{"id":1}]}`))
	})
	c, err := NewClient(Config{BaseURL: srv.URL, APIToken: "agent-token"})
	require.NoError(t, err)

	resp, err := c.Do(context.Background(), Request{
		Method:    "GET",
		AccountID: 7,
		Path:      "/contacts",
		Query:     url.Values{"page": {"2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)

	v, err := resp.JSON()
	require.NoError(t, err)
	assert.Contains(t, v.(map[string]interface{}), "payload")

	require.Len(t, *calls, 1)
	got := (*calls)[0]
	assert.Equal(t, "/api/v1/accounts/7/contacts", got.Path)
	assert.Equal(t, "page=2", got.Query)
	assert.Equal(t, "agent-token", got.Token)
}

func TestClient_RequestContentType(t *testing.T) {
	srv, calls := newFakeChatwoot(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	c, err := NewClient(Config{BaseURL: srv.URL, APIToken: "agent-token"})
	require.NoError(t, err)

	_, err = c.Do(context.Background(), Request{
		Method: "POST", AccountID: 1, Path: "/contacts",
		Body: map[string]string{"name": "Ada"},
	})
	require.NoError(t, err)
	_, err = c.Do(context.Background(), Request{
		Method: "POST", AccountID: 1, Path: "/conversations/3/messages",
		Body: []byte("--x\r\n--x--\r\n"), ContentType: "multipart/form-data; boundary=x",
	})
	require.NoError(t, err)

	require.Len(t, *calls, 2)
	assert.Equal(t, "application/json", (*calls)[0].Type)
	assert.Equal(t, "multipart/form-data; boundary=x", (*calls)[1].Type)
	assert.Equal(t, "--x\r\n--x--\r\n", (*calls)[1].Body)
}

func TestClient_PlatformScopeUsesPlatformToken(t *testing.T) {
	srv, calls := newFakeChatwoot(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":3}`))
	})
	c, err := NewClient(Config{BaseURL: srv.URL + "/", APIToken: "agent-token", PlatformToken: "platform-token"})
	require.NoError(t, err)

	resp, err := c.Do(context.Background(), Request{
		Method: "post",
		Scope:  ScopePlatform,
		Path:   "accounts",
		Body:   map[string]interface{}{"name": "Acme"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)

	got := (*calls)[0]
	assert.Equal(t, "POST", got.Method)
	assert.Equal(t, "/platform/api/v1/accounts", got.Path)
	assert.Equal(t, "platform-token", got.Token)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(got.Body), &body))
	assert.Equal(t, "Acme", body["name"])
}

func TestClient_PublicScope(t *testing.T) {
	srv, calls := newFakeChatwoot(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Do(context.Background(), Request{Method: "GET", Scope: ScopePublic, Path: "/inboxes/abc/contacts"})
	require.NoError(t, err)
	assert.Equal(t, "/public/api/v1/inboxes/abc/contacts", (*calls)[0].Path)
}

func TestClient_MissingAccount(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "http://chatwoot.invalid"})
	require.NoError(t, err)

	_, err = c.Do(context.Background(), Request{Method: "GET", Path: "/contacts"})
	assert.ErrorIs(t, err, ErrMissingAccount)
}

func TestClient_APIError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"message field", 404, `{"message":"Resource could not be found"}`, "Resource could not be found"},
		{"error field", 401, `{"error":"You need to sign in"}`, "You need to sign in"},
		{"errors array", 422, `{"errors":["Email is invalid","Name can't be blank"]}`, "Email is invalid; Name can't be blank"},
		{"plain text", 500, `boom`, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newFakeChatwoot(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			c, err := NewClient(Config{BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = c.Do(context.Background(), Request{Method: "GET", AccountID: 1, Path: "/contacts/1"})
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "want *APIError, got %v", err)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.body, string(apiErr.Body))
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c, err := NewClient(Config{BaseURL: base, Timeout: time.Second})
	require.NoError(t, err)

	_, err = c.Do(context.Background(), Request{Method: "GET", AccountID: 1, Path: "/contacts"})
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestClient_ConcurrentAccounts(t *testing.T) {
	srv, calls := newFakeChatwoot(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := c.Do(context.Background(), Request{Method: "GET", AccountID: id, Path: "/agents"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, call := range *calls {
		seen[call.Path] = true
	}
	assert.Len(t, seen, 20, "each request must target its own account")
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
	_, err = NewClient(Config{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}
