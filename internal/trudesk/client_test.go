package trudesk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/", srv.Client(), true)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsInvalidBaseURL(t *testing.T) {
	_, err := New("ftp://help.example.com", nil, false)
	assert.ErrorIs(t, err, ErrInvalidScheme)

	_, err = New("http://127.0.0.1:8118", nil, false)
	assert.ErrorIs(t, err, ErrPrivateIP)
}

func TestClient_Login(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/login", func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		switch {
		case req.Username == "agent" && req.Password == "pw":
			_ = json.NewEncoder(w).Encode(loginResponse{Success: true, AccessToken: "tok-1"})
		case req.Username == "empty":
			_ = json.NewEncoder(w).Encode(loginResponse{Success: true})
		case req.Username == "denied":
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(loginResponse{Error: "Invalid Username/Password"})
		case req.Username == "broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			_ = json.NewEncoder(w).Encode(loginResponse{Success: false})
		}
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	token, err := c.Login(ctx, "agent", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	_, err = c.Login(ctx, "agent", "wrong")
	assert.ErrorIs(t, err, ErrLoginFailed, "success=false")

	_, err = c.Login(ctx, "empty", "pw")
	assert.ErrorIs(t, err, ErrLoginFailed, "empty token")

	_, err = c.Login(ctx, "denied", "pw")
	assert.ErrorIs(t, err, ErrLoginFailed, "401")

	_, err = c.Login(ctx, "broken", "pw")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "login", statusErr.Op)
}

func TestClient_Reads(t *testing.T) {
	requireToken := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(HeaderAccessToken) != "tok-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/tickets/types", requireToken(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"_id":"t1","name":"Issue","priorities":[{"_id":"p1","name":"Normal","htmlColor":"#fff"}]}]`))
	}))
	mux.HandleFunc("GET /api/v1/groups", requireToken(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"groups":[{"_id":"g1","name":"Support"}]}`))
	}))
	mux.HandleFunc("GET /api/v1/users/all", requireToken(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"_id":"u1","fullname":"Ann","role":{"isAgent":true}},{"_id":"u2","fullname":"Bob","role":null}]`))
	}))
	c := newTestClient(t, mux)
	ctx := context.Background()

	types, err := c.TicketTypes(ctx, "tok-1")
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "t1", types[0].ID)
	assert.Equal(t, []Priority{{ID: "p1", Name: "Normal"}}, types[0].Priorities)

	groups, err := c.Groups(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, []Group{{ID: "g1", Name: "Support"}}, groups)

	users, err := c.Users(ctx, "tok-1")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.True(t, users[0].IsAgent())
	assert.False(t, users[1].IsAgent())

	_, err = c.Groups(ctx, "other")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

func TestClient_DecodeError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	}))

	_, err := c.TicketTypes(context.Background(), "tok")
	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, "ticket types", decodeErr.Op)
}

func TestClient_RejectsWrongShapes(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		read func(c *Client) error
	}{
		{"null ticket types", "/api/v1/tickets/types", `null`, func(c *Client) error {
			_, err := c.TicketTypes(context.Background(), "tok")
			return err
		}},
		{"null users", "/api/v1/users/all", `null`, func(c *Client) error {
			_, err := c.Users(context.Background(), "tok")
			return err
		}},
		{"groups success false", "/api/v1/groups", `{"success":false,"error":"Invalid Permissions"}`, func(c *Client) error {
			_, err := c.Groups(context.Background(), "tok")
			return err
		}},
		{"groups key missing", "/api/v1/groups", `{"success":true}`, func(c *Client) error {
			_, err := c.Groups(context.Background(), "tok")
			return err
		}},
		{"groups null", "/api/v1/groups", `{"success":true,"groups":null}`, func(c *Client) error {
			_, err := c.Groups(context.Background(), "tok")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != tt.path {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				_, _ = w.Write([]byte(tt.body))
			}))

			err := tt.read(c)
			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr), "got %v", err)
			assert.ErrorIs(t, err, ErrUnexpectedShape)
		})
	}
}

func TestClient_EmptyListsAreValid(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/tickets/types", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("GET /api/v1/groups", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"groups":[]}`))
	})
	c := newTestClient(t, mux)

	types, err := c.TicketTypes(context.Background(), "tok")
	require.NoError(t, err)
	assert.Empty(t, types)

	groups, err := c.Groups(context.Background(), "tok")
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestClient_DoesNotFollowRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://169.254.169.254/latest", http.StatusFound)
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, NewHTTPClient(0, true), true)
	require.NoError(t, err)

	_, err = c.Users(context.Background(), "tok")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusFound, statusErr.StatusCode)
}

func TestNewHTTPClient_GuardsResolvedAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	// The URL check is bypassed here so only the dial-time guard is in play,
	// as when a validated name later resolves to loopback.
	guarded, err := New(srv.URL, NewHTTPClient(0, false), true)
	require.NoError(t, err)

	_, err = guarded.TicketTypes(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrPrivateIP)

	open, err := New(srv.URL, NewHTTPClient(0, true), true)
	require.NoError(t, err)

	_, err = open.TicketTypes(context.Background(), "tok")
	assert.NoError(t, err)
}

func TestGuardDial(t *testing.T) {
	tests := []struct {
		address string
		blocked bool
	}{
		{"127.0.0.1:80", true},
		{"10.1.2.3:443", true},
		{"169.254.169.254:80", true},
		{"[::1]:443", true},
		{"93.184.216.34:443", false},
		{"[2606:2800:220:1::]:443", false},
	}
	for _, tt := range tests {
		err := guardDial("tcp", tt.address, nil)
		if tt.blocked {
			assert.ErrorIs(t, err, ErrPrivateIP, tt.address)
		} else {
			assert.NoError(t, err, tt.address)
		}
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Users(ctx, "tok")
	assert.ErrorIs(t, err, context.Canceled)
}
