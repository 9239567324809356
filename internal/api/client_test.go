package api

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// memorySecrets is an in-memory SecretLookup and SecretSaver.
type memorySecrets struct {
	mu      sync.Mutex
	secrets map[int]string
}

func newMemorySecrets() *memorySecrets {
	return &memorySecrets{secrets: make(map[int]string)}
}

func (m *memorySecrets) ClientSecret(_ context.Context, postID int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.secrets[postID]
	if !ok {
		return "", ErrNoClientSecret
	}
	return s, nil
}

func (m *memorySecrets) SaveClientSecret(_ context.Context, postID int, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[postID] = secret
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *memorySecrets) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	secrets := newMemorySecrets()
	client := New(Config{
		BaseURL:        server.URL,
		ConnectTimeout: 2 * time.Second,
		ReadTimeout:    2 * time.Second,
		UserAgent:      "geopost-test",
		Username:       "alice",
		Password:       "s3cret",
		Secrets:        secrets,
		SecretSaver:    secrets,
	})
	return client, secrets
}

func TestClientURL(t *testing.T) {
	client := New(Config{BaseURL: "https://geo.example.com/"})

	tests := []struct {
		route    string
		expected string
	}{
		{"/api/posts", "https://geo.example.com/api/posts/"},
		{"api/posts/7/", "https://geo.example.com/api/posts/7/"},
		{"/api/posts/?lat=1", "https://geo.example.com/api/posts/?lat=1"},
		{"https://cdn.example.com/media/x.jpg", "https://cdn.example.com/media/x.jpg"},
	}

	for _, tt := range tests {
		if got := client.URL(tt.route); got != tt.expected {
			t.Errorf("URL(%q) = %q, want %q", tt.route, got, tt.expected)
		}
	}
}

func TestBuildURLQuery(t *testing.T) {
	client := New(Config{BaseURL: "https://geo.example.com"})

	tests := []struct {
		name     string
		route    string
		params   *Params
		expected string
	}{
		{"no params", "/api/posts/", nil, "https://geo.example.com/api/posts/"},
		{"empty params", "/api/posts/", NewParams(), "https://geo.example.com/api/posts/"},
		{"insertion order", "/api/posts/", NewParams().Set("lng", 2).Set("lat", 1), "https://geo.example.com/api/posts/?lng=2&lat=1"},
		{"escaped", "/api/posts/", NewParams().Set("q", "a b&c"), "https://geo.example.com/api/posts/?q=a+b%26c"},
		{"existing query", "/api/posts/?page=2", NewParams().Set("limit", 5), "https://geo.example.com/api/posts/?page=2&limit=5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewRequest(MethodGet, tt.route, tt.params)
			if err != nil {
				t.Fatalf("NewRequest() error = %v", err)
			}
			got, err := client.BuildURL(req)
			if err != nil {
				t.Fatalf("BuildURL() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("BuildURL() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNewRequestValidation(t *testing.T) {
	if _, err := NewRequest("PUT", "/api/posts/", nil); err == nil {
		t.Error("expected error for unsupported method")
	}
	if _, err := NewRequest(MethodGet, " ", nil); err == nil {
		t.Error("expected error for empty route")
	}
	if _, err := NewRequest(MethodGet, "/api/posts/", NewParams().Set("f", NewFileValue("a.jpg", []byte("x")))); err == nil {
		t.Error("expected error for file parameter on GET")
	}
	var nameErr *InvalidFieldNameError
	if _, err := NewRequest(MethodPost, "/api/posts/", NewParams().Set("a\"b", 1)); !errors.As(err, &nameErr) {
		t.Errorf("expected InvalidFieldNameError, got %v", err)
	}
}

func TestRequestCloneIsIndependent(t *testing.T) {
	params := NewParams().Set("text", "hello")
	req, err := NewRequest(MethodPost, "/api/comments/", params)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	params.Set("text", "changed by caller")
	if v, _ := req.Params.Get("text"); v != "hello" {
		t.Errorf("NewRequest must copy params, got %v", v)
	}

	clone := req.WithBasicAuth("a", "b").Clone()
	req.Params.Set("text", "mutated")
	req.Auth.Username = "mallory"
	req.Header.Set("X-Extra", "1")
	if v, _ := clone.Params.Get("text"); v != "hello" {
		t.Errorf("clone params changed: %v", v)
	}
	if clone.Auth.Username != "a" {
		t.Errorf("clone auth changed: %v", clone.Auth.Username)
	}
	if clone.Header.Get("X-Extra") != "" {
		t.Error("clone header changed")
	}
}

// Scenario A: a GET with no parameters carries no query and decodes an array.
func TestSendGetList(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/api/posts/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if strings.Contains(r.RequestURI, "?") {
			t.Errorf("request URI has a query marker: %s", r.RequestURI)
		}
		if r.Header.Get("Content-Type") != "" {
			t.Errorf("GET must not send Content-Type, got %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("public reads must not send credentials")
		}
		if r.Header.Get("X-Request-Id") == "" {
			t.Error("missing X-Request-Id")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": 1, "lat": 1.5, "lng": 2.5, "media_file": "https://cdn/1.jpg", "is_video": false}]`))
	})

	req, err := NewRequest(MethodGet, ResourcePath(ResourcePosts), nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	outcome := client.Send(context.Background(), req)
	if !outcome.IsSuccess() {
		t.Fatalf("expected success, got %s: %v", outcome.Kind, outcome.Err())
	}
	items, ok := outcome.Response.Array()
	if !ok || len(items) != 1 {
		t.Fatalf("Array() = %v, %v", items, ok)
	}

	posts, err := client.Posts().List(context.Background(), ListPostsOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(posts) != 1 || posts[0].MediaFile != "https://cdn/1.jpg" {
		t.Errorf("unexpected posts: %+v", posts)
	}
}

func TestListPostsNearLocation(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "lat=48.8566&lng=2.3522&limit=10" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"count": 1, "results": [{"id": 3}]}`))
	})

	posts, err := client.Posts().List(context.Background(), ListPostsOptions{
		Near:  &LatLng{Lat: 48.8566, Lng: 2.3522},
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(posts) != 1 || posts[0].ID != 3 {
		t.Errorf("unexpected posts: %+v", posts)
	}
}

// Scenario B: creating a post uploads a multipart body and keeps the secret.
func TestCreatePost(t *testing.T) {
	photo := []byte{0xff, 0xd8, 0xff, 0x00, '\r', '\n', 0xd9}

	client, secrets := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/posts/" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		ct := r.Header.Get("Content-Type")
		if !strings.HasPrefix(ct, "multipart/form-data;boundary="+boundaryPrefix) {
			t.Errorf("unexpected Content-Type %q", ct)
		}
		_, params, err := mime.ParseMediaType(ct)
		if err != nil {
			t.Errorf("ParseMediaType() error = %v", err)
			return
		}
		reader := multipart.NewReader(r.Body, params["boundary"])
		got := map[string]string{}
		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Errorf("NextPart() error = %v", err)
			return
			}
			data, _ := io.ReadAll(part)
			got[part.FormName()] = string(data)
		}
		if got["lat"] != "40.7128" || got["lng"] != "-74.006" || got["is_video"] != "false" {
			t.Errorf("unexpected fields: %v", got)
		}
		if got["media_file"] != string(photo) {
			t.Errorf("media bytes altered: %q", got["media_file"])
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 7, "lat": 40.7128, "lng": -74.006, "media_file": "https://cdn/7.jpg", "is_video": false, "client_secret": "abc123"}`))
	})

	post, err := client.Posts().Create(context.Background(), NewPost{
		Lat:   40.7128,
		Lng:   -74.006,
		Media: NewFileValue("upload.jpg", photo),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if post.ID != 7 || post.ClientSecret != "abc123" {
		t.Errorf("unexpected post: %+v", post)
	}
	if secret, _ := secrets.ClientSecret(context.Background(), 7); secret != "abc123" {
		t.Errorf("secret not saved, got %q", secret)
	}
}

func TestCreatePostMissingSecretIsDecodeError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 7, "media_file": "https://cdn/7.jpg"}`))
	})

	_, err := client.Posts().Create(context.Background(), NewPost{Media: NewFileValue("a.jpg", []byte("x"))})
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if decodeErr.Field != "client_secret" {
		t.Errorf("Field = %q", decodeErr.Field)
	}
}

func TestCreatePostRequiresMedia(t *testing.T) {
	if _, err := CreateRequest(NewPost{Lat: 1, Lng: 2}); err == nil {
		t.Error("expected error without media")
	}
}

// Scenario C: a 404 with a detail field is a server error carrying that text.
func TestSendServerErrorDetail(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", "req-42")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail": "Not found."}`))
	})

	req, _ := NewRequest(MethodGet, ResourcePath(ResourcePosts, 99), nil)
	outcome := client.Send(context.Background(), req)
	if !outcome.IsServerError() {
		t.Fatalf("expected server error, got %s", outcome.Kind)
	}
	if outcome.Response == nil || outcome.Response.StatusCode != 404 {
		t.Fatalf("expected 404 response, got %+v", outcome.Response)
	}
	detail, ok := outcome.ErrorDetail()
	if !ok || detail != "Not found." {
		t.Errorf("ErrorDetail() = (%q, %v)", detail, ok)
	}

	var serverErr *ServerError
	if !errors.As(outcome.Err(), &serverErr) {
		t.Fatalf("Err() = %v, want *ServerError", outcome.Err())
	}
	if serverErr.Detail != "Not found." || serverErr.RequestID != "req-42" {
		t.Errorf("unexpected ServerError: %+v", serverErr)
	}
	if !IsNotFoundError(outcome.Err()) {
		t.Error("IsNotFoundError() = false")
	}

	_, err := client.Posts().Get(context.Background(), 99)
	if !IsNotFoundError(err) {
		t.Errorf("Get() error = %v, want not found", err)
	}
}

func TestSendDoesNotFollowRedirects(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/posts/" {
			t.Errorf("redirect was followed to %s", r.URL.Path)
		}
		http.Redirect(w, r, "/elsewhere/", http.StatusFound)
	})

	req, _ := NewRequest(MethodGet, ResourcePath(ResourcePosts), nil)
	outcome := client.Send(context.Background(), req)
	if !outcome.IsServerError() || outcome.Response.StatusCode != http.StatusFound {
		t.Fatalf("expected 302 server error, got %s %+v", outcome.Kind, outcome.Response)
	}
	if se := StructuredErrorFromError(outcome.Err()); se.Code != ErrRedirect {
		t.Errorf("code = %s, want redirect", se.Code)
	}
}

// Scenario D: deleting a post sends the stored client secret.
func TestDeletePost(t *testing.T) {
	client, secrets := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/posts/7/" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Client-Secret") != "abc123" {
			t.Errorf("Client-Secret = %q", r.Header.Get("Client-Secret"))
		}
		if r.Header.Get("Content-Type") != "" {
			t.Errorf("DELETE without params must not send a body type, got %q", r.Header.Get("Content-Type"))
		}
		w.WriteHeader(http.StatusNoContent)
	})
	_ = secrets.SaveClientSecret(context.Background(), 7, "abc123")

	if err := client.Posts().Delete(context.Background(), 7); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestDeletePostWithoutSecret(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without a secret")
	})

	err := client.Posts().Delete(context.Background(), 8)
	if !errors.Is(err, ErrNoClientSecret) {
		t.Errorf("Delete() error = %v, want ErrNoClientSecret", err)
	}
}

// Scenario E: a timeout is a connection failure, not a server error.
func TestSendConnectionFailureOnTimeout(t *testing.T) {
	client := New(Config{
		BaseURL: "https://geo.example.com",
		RoundTripper: roundTripperFunc(func(*http.Request) (*http.Response, error) {
			return nil, context.DeadlineExceeded
		}),
	})

	req, _ := NewRequest(MethodGet, ResourcePath(ResourcePosts), nil)
	outcome := client.Send(context.Background(), req)
	if !outcome.IsConnectionFailure() {
		t.Fatalf("expected connection failure, got %s", outcome.Kind)
	}
	if outcome.Response != nil {
		t.Error("connection failure must not carry a response")
	}
	var transportErr *TransportError
	if !errors.As(outcome.Err(), &transportErr) {
		t.Fatalf("Err() = %v, want *TransportError", outcome.Err())
	}
	if !transportErr.Timeout() {
		t.Error("Timeout() = false")
	}
	if se := StructuredErrorFromError(outcome.Err()); se.Code != ErrTimeout {
		t.Errorf("code = %s, want timeout", se.Code)
	}
}

func TestSendConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := New(Config{BaseURL: url, ConnectTimeout: time.Second})
	req, _ := NewRequest(MethodGet, ResourcePath(ResourcePosts), nil)
	outcome := client.Send(context.Background(), req)
	if !outcome.IsConnectionFailure() || !IsTransportError(outcome.Err()) {
		t.Fatalf("expected connection failure, got %s: %v", outcome.Kind, outcome.Err())
	}
}

func TestSendStalledBodyTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[`))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, ReadTimeout: 100 * time.Millisecond})
	req, _ := NewRequest(MethodGet, ResourcePath(ResourcePosts), nil)
	outcome := client.Send(context.Background(), req)
	if !outcome.IsConnectionFailure() {
		t.Fatalf("expected connection failure, got %s", outcome.Kind)
	}
	var transportErr *TransportError
	if !errors.As(outcome.Err(), &transportErr) || !transportErr.Timeout() {
		t.Errorf("expected read timeout, got %v", outcome.Err())
	}
}

func TestSendWithoutBaseURL(t *testing.T) {
	client := New(Config{})
	req, _ := NewRequest(MethodGet, "/api/posts/", nil)
	outcome := client.Send(context.Background(), req)
	if !outcome.IsConnectionFailure() {
		t.Errorf("expected connection failure, got %s", outcome.Kind)
	}
}

func TestSendNilRequest(t *testing.T) {
	client := New(Config{BaseURL: "https://geo.example.com"})
	if outcome := client.Send(context.Background(), nil); !outcome.IsConnectionFailure() {
		t.Errorf("expected connection failure, got %s", outcome.Kind)
	}
}

func TestUsersMeSendsBasicAuth(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "s3cret" {
			t.Errorf("BasicAuth() = %q, %q, %v", user, pass, ok)
		}
		if r.URL.Path != "/api/users/alice/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id": 3, "username": "alice", "email": "alice@example.com"}`))
	})

	user, err := client.Users().Me(context.Background())
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if user.Username != "alice" || user.ID != 3 {
		t.Errorf("unexpected user: %+v", user)
	}
}

func TestUsersMeWithoutCredentials(t *testing.T) {
	client := New(Config{BaseURL: "https://geo.example.com"})
	if _, err := client.Users().Me(context.Background()); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("Me() error = %v, want ErrNoCredentials", err)
	}
}

func TestSignup(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/signup/" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			return
		}
		if r.FormValue("username") != "bob" || r.FormValue("email") != "bob@example.com" || r.FormValue("password") != "hunter2" {
			t.Errorf("unexpected form: %v", r.MultipartForm.Value)
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"username": ["A user with that username already exists."]}`))
	})

	_, err := client.Users().Signup(context.Background(), SignupInput{Username: "bob", Email: "bob@example.com", Password: "hunter2"})
	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if serverErr.Detail != "username: A user with that username already exists." {
		t.Errorf("Detail = %q", serverErr.Detail)
	}
}

func TestCommentsAndFlags(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			return
		}
		switch r.URL.Path {
		case "/api/comments/":
			if r.FormValue("post") != "7" || r.FormValue("text") != "nice view" {
				t.Errorf("unexpected comment form: %v", r.MultipartForm.Value)
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": 1, "post": 7, "text": "nice view"}`))
		case "/api/flags/":
			if r.FormValue("post") != "7" || r.FormValue("reason") != "spam" {
				t.Errorf("unexpected flag form: %v", r.MultipartForm.Value)
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": 2, "post": 7, "reason": "spam"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	comment, err := client.Comments().Create(context.Background(), 7, "nice view")
	if err != nil || comment.ID != 1 {
		t.Fatalf("Create comment = %+v, %v", comment, err)
	}
	flag, err := client.Flags().Create(context.Background(), 7, "spam")
	if err != nil || flag.Reason != "spam" {
		t.Fatalf("Create flag = %+v, %v", flag, err)
	}
	if _, err := client.Comments().Create(context.Background(), 7, "  "); err == nil {
		t.Error("expected error for empty comment")
	}
}

func TestFlagRequestOmitsEmptyReason(t *testing.T) {
	req, err := FlagRequest(7, "")
	if err != nil {
		t.Fatalf("FlagRequest() error = %v", err)
	}
	if _, ok := req.Params.Get("reason"); ok {
		t.Error("empty reason should not be sent")
	}
	if req.Route != "/api/flags/" || req.Method != MethodPost {
		t.Errorf("request = %s %s", req.Method, req.Route)
	}
}

func TestFetchMedia(t *testing.T) {
	jpeg := []byte{0xff, 0xd8, 0xff, 0xdb, 0x00}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/media/7.jpg" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Accept") != "*/*" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		_, _ = w.Write(jpeg)
	})

	post := &Post{ID: 7, MediaFile: client.BaseURL() + "/media/7.jpg"}
	resp, err := client.Posts().Media(context.Background(), post)
	if err != nil {
		t.Fatalf("Media() error = %v", err)
	}
	if string(resp.Media()) != string(jpeg) {
		t.Errorf("Media() = %v", resp.Media())
	}
	if _, err := client.Posts().Media(context.Background(), &Post{ID: 8}); !IsDecodeError(err) {
		t.Errorf("expected DecodeError for missing media_file, got %v", err)
	}
}
