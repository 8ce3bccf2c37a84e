package drop

import (
	"bytes"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/drophost/drop/internal/cache"
	"github.com/drophost/drop/internal/passwd"
	"github.com/drophost/drop/storage"
	"github.com/drophost/drop/storage/model"
)

var testHashParams = passwd.Params{Time: 1, MemoryKiB: 8 * 1024, Parallelism: 1, KeyLen: 32, SaltLen: 16}

// newTestDrop builds a service on a throwaway badger store with three
// provisioned users: alice and bob (regular) and root (admin).
func newTestDrop(t *testing.T, opts Options) (*Drop, model.Backends) {
	t.Helper()
	hasher := passwd.NewHasher(testHashParams, 2)
	t.Cleanup(hasher.Close)

	store, err := storage.NewBadgerStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	backs := model.Backends{
		Entries: store.EntryStorage(),
		Users:   store.UsersStorage(hasher),
		KV:      store.KeyValue(),
	}
	for _, u := range []struct {
		name, password string
		admin          bool
	}{
		{"alice", "alicepw", false},
		{"bob", "bobpw", false},
		{"root", "rootpw", true},
	} {
		if _, err := backs.Users.Create(u.name, u.password, u.admin); err != nil {
			t.Fatalf("failed to create user %s: %v", u.name, err)
		}
	}

	d, err := NewDrop(ServerConf{}, backs, opts)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return d, backs
}

func basicAuth(user, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
}

func doRequest(t *testing.T, d *Drop, method, target, auth, contentType string, body []byte) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if auth != "" {
		req.Header.Set(fiber.HeaderAuthorization, auth)
	}
	if contentType != "" {
		req.Header.Set(fiber.HeaderContentType, contentType)
	}
	resp, err := d.server.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, target, err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

func TestUploadAndRetrieveText(t *testing.T) {
	d, _ := newTestDrop(t, Options{})

	resp := doRequest(t, d, http.MethodPost, "/t", basicAuth("alice", "alicepw"), "", []byte("hello"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /t = %d, want 201", resp.StatusCode)
	}
	id := readBody(t, resp)
	if id == "" {
		t.Fatal("empty id in response")
	}

	resp = doRequest(t, d, http.MethodGet, "/"+id, "", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /%s = %d, want 200", id, resp.StatusCode)
	}
	if ct := resp.Header.Get(fiber.HeaderContentType); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %q, want text/plain", ct)
	}
	if resp.Header.Get(fiber.HeaderLastModified) == "" {
		t.Fatal("no Last-Modified header")
	}
	if body := readBody(t, resp); body != "hello" {
		t.Fatalf("body = %q, want %q", body, "hello")
	}
}

func TestUploadAndRetrieveFile(t *testing.T) {
	d, _ := newTestDrop(t, Options{})
	payload := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}

	resp := doRequest(t, d, http.MethodPost, "/f", basicAuth("alice", "alicepw"), "image/png", payload)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /f = %d, want 201", resp.StatusCode)
	}
	id := readBody(t, resp)

	resp = doRequest(t, d, http.MethodGet, "/"+id, "", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /%s = %d, want 200", id, resp.StatusCode)
	}
	if ct := resp.Header.Get(fiber.HeaderContentType); ct != "image/png" {
		t.Fatalf("content type = %q, want image/png", ct)
	}
	if body := readBody(t, resp); body != string(payload) {
		t.Fatalf("file bytes came back altered")
	}
}

func TestUploadAndFollowLink(t *testing.T) {
	d, _ := newTestDrop(t, Options{})

	resp := doRequest(t, d, http.MethodPost, "/l", basicAuth("alice", "alicepw"), "", []byte("https://example.com/target"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /l = %d, want 201", resp.StatusCode)
	}
	id := readBody(t, resp)

	resp = doRequest(t, d, http.MethodGet, "/"+id, "", "", nil)
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("GET /%s = %d, want 307", id, resp.StatusCode)
	}
	if loc := resp.Header.Get(fiber.HeaderLocation); loc != "https://example.com/target" {
		t.Fatalf("Location = %q", loc)
	}
}

func TestUploadRejectsBadLink(t *testing.T) {
	d, _ := newTestDrop(t, Options{})
	for _, body := range []string{"", "not a url", "ftp://example.com/x", "/relative/path"} {
		resp := doRequest(t, d, http.MethodPost, "/l", basicAuth("alice", "alicepw"), "", []byte(body))
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("POST /l with %q = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestAuthGate(t *testing.T) {
	d, _ := newTestDrop(t, Options{})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong password", basicAuth("alice", "wrong"), http.StatusUnauthorized},
		{"unknown user", basicAuth("mallory", "pw"), http.StatusUnauthorized},
		{"bad base64", "Basic !!!not-base64!!!", http.StatusBadRequest},
		{"no colon", "Basic " + base64.StdEncoding.EncodeToString([]byte("alicepw")), http.StatusBadRequest},
		{"wrong scheme", "Bearer abcdef", http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(
			tc.name, func(t *testing.T) {
				resp := doRequest(t, d, http.MethodPost, "/t", tc.header, "", []byte("hello"))
				if resp.StatusCode != tc.want {
					t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
				}
				if tc.want == http.StatusUnauthorized {
					if resp.Header.Get(fiber.HeaderWWWAuthenticate) == "" {
						t.Fatal("401 without WWW-Authenticate challenge")
					}
				}
			},
		)
	}
}

func TestPasswordMayContainColons(t *testing.T) {
	d, backs := newTestDrop(t, Options{})
	if _, err := backs.Users.Create("carol", "pw:with:colons", false); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	resp := doRequest(t, d, http.MethodPost, "/t", basicAuth("carol", "pw:with:colons"), "", []byte("x"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /t = %d, want 201", resp.StatusCode)
	}
}

func TestDeleteAuthorization(t *testing.T) {
	d, backs := newTestDrop(t, Options{})

	resp := doRequest(t, d, http.MethodPost, "/t", basicAuth("alice", "alicepw"), "", []byte("mine"))
	id := readBody(t, resp)

	// A stranger's delete answers 404 and removes nothing.
	resp = doRequest(t, d, http.MethodDelete, "/"+id, basicAuth("bob", "bobpw"), "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("DELETE by non-owner = %d, want 404", resp.StatusCode)
	}
	if found, _ := backs.Entries.Exists(id); !found {
		t.Fatal("non-owner delete removed the entry")
	}

	resp = doRequest(t, d, http.MethodDelete, "/"+id, basicAuth("alice", "alicepw"), "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE by owner = %d, want 204", resp.StatusCode)
	}
	resp = doRequest(t, d, http.MethodGet, "/"+id, "", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET after delete = %d, want 404", resp.StatusCode)
	}

	// Admins may delete anybody's entries.
	resp = doRequest(t, d, http.MethodPost, "/t", basicAuth("alice", "alicepw"), "", []byte("mine too"))
	id = readBody(t, resp)
	resp = doRequest(t, d, http.MethodDelete, "/"+id, basicAuth("root", "rootpw"), "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE by admin = %d, want 204", resp.StatusCode)
	}
}

func TestPutReplacement(t *testing.T) {
	d, _ := newTestDrop(t, Options{})

	resp := doRequest(t, d, http.MethodPut, "/t/myid42", basicAuth("alice", "alicepw"), "", []byte("first"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("PUT on free id = %d, want 201", resp.StatusCode)
	}

	// Someone else cannot take over the id.
	resp = doRequest(t, d, http.MethodPut, "/t/myid42", basicAuth("bob", "bobpw"), "", []byte("stolen"))
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("PUT on foreign id = %d, want 409", resp.StatusCode)
	}
	resp = doRequest(t, d, http.MethodGet, "/myid42", "", "", nil)
	if body := readBody(t, resp); body != "first" {
		t.Fatalf("content after rejected replace = %q", body)
	}

	// The owner replaces in place.
	resp = doRequest(t, d, http.MethodPut, "/t/myid42", basicAuth("alice", "alicepw"), "", []byte("second"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("PUT by owner = %d, want 201", resp.StatusCode)
	}
	resp = doRequest(t, d, http.MethodGet, "/myid42", "", "", nil)
	if body := readBody(t, resp); body != "second" {
		t.Fatalf("content after replace = %q", body)
	}

	resp = doRequest(t, d, http.MethodPut, "/t/not%20valid", basicAuth("alice", "alicepw"), "", []byte("x"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("PUT with invalid id = %d, want 400", resp.StatusCode)
	}
}

func TestRetrievalCountsViews(t *testing.T) {
	d, backs := newTestDrop(t, Options{})

	resp := doRequest(t, d, http.MethodPost, "/t", basicAuth("alice", "alicepw"), "", []byte("counted"))
	id := readBody(t, resp)

	for i := 0; i < 3; i++ {
		doRequest(t, d, http.MethodGet, "/"+id, "", "", nil)
	}
	e, err := backs.Entries.Get(id, false)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if e.Views != 3 {
		t.Fatalf("views = %d, want 3", e.Views)
	}
}

func TestRetrieveUnknownID(t *testing.T) {
	d, _ := newTestDrop(t, Options{})
	resp := doRequest(t, d, http.MethodGet, "/zzzzzz", "", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET unknown id = %d, want 404", resp.StatusCode)
	}
}

func TestAdminAPIRequiresAdmin(t *testing.T) {
	d, _ := newTestDrop(t, Options{})

	resp := doRequest(t, d, http.MethodGet, "/api/v1/admin/users/", basicAuth("alice", "alicepw"), "", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("admin api as regular user = %d, want 403", resp.StatusCode)
	}
	resp = doRequest(t, d, http.MethodGet, "/api/v1/admin/users/", "", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("admin api without credentials = %d, want 401", resp.StatusCode)
	}
	resp = doRequest(t, d, http.MethodGet, "/api/v1/admin/users/", basicAuth("root", "rootpw"), "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin api as admin = %d, want 200", resp.StatusCode)
	}
}

// failingUsers wraps a UsersStore so Authenticate always fails with a
// non-credential error.
type failingUsers struct {
	model.UsersStore
	err error
}

func (f failingUsers) Authenticate(string, string) (*model.User, error) {
	return nil, f.err
}

func TestStorageFailureIsNotUnauthorized(t *testing.T) {
	_, backs := newTestDrop(t, Options{})
	backs.Users = failingUsers{UsersStore: backs.Users, err: errors.New("read: disk failure")}
	d, err := NewDrop(ServerConf{}, backs, Options{})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	resp := doRequest(t, d, http.MethodGet, "/api/v1/admin/users/", basicAuth("root", "rootpw"), "", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("admin api with failing store = %d, want 500", resp.StatusCode)
	}
	if resp.Header.Get(fiber.HeaderWWWAuthenticate) != "" {
		t.Fatal("storage failure must not be answered with an auth challenge")
	}

	resp = doRequest(t, d, http.MethodPost, "/t", basicAuth("alice", "alicepw"), fiber.MIMETextPlain, []byte("x"))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("upload with failing store = %d, want 500", resp.StatusCode)
	}
}

func TestAdminUserManagement(t *testing.T) {
	d, backs := newTestDrop(t, Options{})

	resp := doRequest(
		t, d, http.MethodPost, "/api/v1/admin/users/", basicAuth("root", "rootpw"),
		fiber.MIMEApplicationJSON, []byte(`{"username":"dave","password":"davepw"}`),
	)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create user = %d, want 201", resp.StatusCode)
	}
	if u, _ := backs.Users.Lookup("dave"); u == nil {
		t.Fatal("created user not found in storage")
	}

	resp = doRequest(
		t, d, http.MethodPost, "/api/v1/admin/users/", basicAuth("root", "rootpw"),
		fiber.MIMEApplicationJSON, []byte(`{"username":"dave","password":"other"}`),
	)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("create duplicate user = %d, want 409", resp.StatusCode)
	}

	resp = doRequest(t, d, http.MethodDelete, "/api/v1/admin/users/dave", basicAuth("root", "rootpw"), "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete user = %d, want 204", resp.StatusCode)
	}
	resp = doRequest(t, d, http.MethodDelete, "/api/v1/admin/users/dave", basicAuth("root", "rootpw"), "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("delete missing user = %d, want 404", resp.StatusCode)
	}
}

func TestAdminIDLengthSetting(t *testing.T) {
	d, _ := newTestDrop(t, Options{})

	resp := doRequest(
		t, d, http.MethodPut, "/api/v1/admin/settings/", basicAuth("root", "rootpw"),
		fiber.MIMEApplicationJSON, []byte(`{"id_length":10}`),
	)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set id length = %d, want 200", resp.StatusCode)
	}

	resp = doRequest(t, d, http.MethodPost, "/t", basicAuth("alice", "alicepw"), "", []byte("x"))
	if id := readBody(t, resp); len(id) != 10 {
		t.Fatalf("generated id %q, want length 10", id)
	}

	resp = doRequest(
		t, d, http.MethodPut, "/api/v1/admin/settings/", basicAuth("root", "rootpw"),
		fiber.MIMEApplicationJSON, []byte(`{"id_length":0}`),
	)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("set invalid id length = %d, want 400", resp.StatusCode)
	}
}

func TestDisabledViewsServeFromCache(t *testing.T) {
	d, backs := newTestDrop(t, Options{DisableViews: true, Cache: cache.NewMemory(16)})

	resp := doRequest(t, d, http.MethodPost, "/t", basicAuth("alice", "alicepw"), "", []byte("static"))
	id := readBody(t, resp)

	for i := 0; i < 2; i++ {
		resp = doRequest(t, d, http.MethodGet, "/"+id, "", "", nil)
		if body := readBody(t, resp); body != "static" {
			t.Fatalf("body = %q", body)
		}
	}
	e, err := backs.Entries.Get(id, false)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if e.Views != 0 {
		t.Fatalf("views counted although disabled: %d", e.Views)
	}
}
