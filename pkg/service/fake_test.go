package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"

	"github.com/Kush1612/BuckIt/pkg/api"
	"github.com/Kush1612/BuckIt/pkg/auth"
	"github.com/Kush1612/BuckIt/pkg/client"
	"github.com/Kush1612/BuckIt/pkg/config"
	"github.com/Kush1612/BuckIt/pkg/storage"
	"github.com/Kush1612/BuckIt/pkg/store"
)

const testPassword = "correct horse"

var testNow = time.Date(2025, 7, 14, 9, 30, 0, 0, time.UTC)

// fakeBackend serves the auth and rest endpoints the services call.
type fakeBackend struct {
	t  *testing.T
	mu sync.Mutex

	users     map[string]string
	lists     []api.List
	items     []api.Item
	nextID    int
	signOuts  int
	failPatch bool
}

func newFakeBackend(t *testing.T) *fakeBackend {
	return &fakeBackend{t: t, users: map[string]string{}}
}

func (f *fakeBackend) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.HasPrefix(r.URL.Path, "/auth/v1/"):
		f.serveAuth(w, r)
	case r.URL.Path == "/rest/v1/lists":
		f.serveLists(w, r)
	case r.URL.Path == "/rest/v1/items":
		f.serveItems(w, r)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "no route " + r.URL.Path})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	data, _ := json.Marshal(v)
	w.Write(data)
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	data, err := io.ReadAll(r.Body)
	if err == nil {
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return false
	}
	return true
}

func userFor(email string) api.User {
	return api.User{ID: "user-" + strings.SplitN(email, "@", 2)[0], Email: email}
}

func sessionFor(email string) api.Session {
	return api.Session{
		AccessToken:  "token-" + email,
		RefreshToken: "refresh-" + email,
		TokenType:    "bearer",
		ExpiresIn:    3600,
		User:         userFor(email),
	}
}

func (f *fakeBackend) serveAuth(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/v1/signup":
		var c api.Credentials
		if !decode(w, r, &c) {
			return
		}
		if _, ok := f.users[c.Email]; ok {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"msg": "User already registered"})
			return
		}
		f.users[c.Email] = c.Password
		writeJSON(w, http.StatusOK, sessionFor(c.Email))
	case "/auth/v1/token":
		var c api.Credentials
		if !decode(w, r, &c) {
			return
		}
		if pw, ok := f.users[c.Email]; !ok || pw != c.Password {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Invalid login credentials"})
			return
		}
		writeJSON(w, http.StatusOK, sessionFor(c.Email))
	case "/auth/v1/user":
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		email := strings.TrimPrefix(token, "token-")
		if _, ok := f.users[email]; !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "invalid JWT"})
			return
		}
		writeJSON(w, http.StatusOK, userFor(email))
	case "/auth/v1/logout":
		f.signOuts++
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"msg": "not found"})
	}
}

// eq returns the value of a PostgREST "eq." filter.
func eq(r *http.Request, column string) (string, bool) {
	v := r.URL.Query().Get(column)
	if !strings.HasPrefix(v, "eq.") {
		return "", false
	}
	return strings.TrimPrefix(v, "eq."), true
}

func inValues(r *http.Request, column string) ([]string, bool) {
	v := r.URL.Query().Get(column)
	if !strings.HasPrefix(v, "in.(") {
		return nil, false
	}
	var out []string
	for _, s := range strings.Split(strings.TrimSuffix(strings.TrimPrefix(v, "in.("), ")"), ",") {
		out = append(out, strings.Trim(s, `"`))
	}
	return out, true
}

func (f *fakeBackend) serveLists(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		out := []api.List{}
		for _, l := range f.lists {
			if id, ok := eq(r, "id"); ok && l.ID != id {
				continue
			}
			if ids, ok := inValues(r, "id"); ok && !contains(ids, l.ID) {
				continue
			}
			if owner, ok := eq(r, "owner"); ok && l.Owner != owner {
				continue
			}
			if code, ok := eq(r, "invite_code"); ok && l.InviteCode != code {
				continue
			}
			out = append(out, l)
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var nl api.NewList
		if !decode(w, r, &nl) {
			return
		}
		l := api.List{
			ID:         f.id("list"),
			Name:       nl.Name,
			Owner:      nl.Owner,
			InviteCode: nl.InviteCode,
			CreatedAt:  testNow.Add(time.Duration(f.nextID) * time.Minute),
		}
		f.lists = append(f.lists, l)
		writeJSON(w, http.StatusCreated, []api.List{l})
	case http.MethodDelete:
		id, _ := eq(r, "id")
		kept := f.lists[:0]
		for _, l := range f.lists {
			if l.ID != id {
				kept = append(kept, l)
			}
		}
		f.lists = kept
		w.WriteHeader(http.StatusNoContent)
	}
}

func (f *fakeBackend) serveItems(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		out := []api.Item{}
		for _, it := range f.items {
			if id, ok := eq(r, "id"); ok && it.ID != id {
				continue
			}
			if listID, ok := eq(r, "list_id"); ok && it.ListID != listID {
				continue
			}
			if cat, ok := eq(r, "category"); ok && it.Category != cat {
				continue
			}
			if c := r.URL.Query().Get("completed"); c != "" && fmt.Sprintf("is.%t", it.Completed) != c {
				continue
			}
			out = append(out, it)
		}
		asc := r.URL.Query().Get("order") == "created_at.asc"
		sort.SliceStable(out, func(i, j int) bool {
			if asc {
				return out[i].CreatedAt.Before(out[j].CreatedAt)
			}
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var ni api.NewItem
		if !decode(w, r, &ni) {
			return
		}
		it := api.Item{
			ID:          f.id("item"),
			ListID:      ni.ListID,
			Title:       ni.Title,
			Description: ni.Description,
			Category:    ni.Category,
			Secret:      ni.Secret,
			Completed:   ni.Completed,
			CreatedAt:   testNow.Add(time.Duration(f.nextID) * time.Minute),
			Photos:      ni.Photos,
			Memories:    ni.Memories,
		}
		f.items = append(f.items, it)
		writeJSON(w, http.StatusCreated, []api.Item{it})
	case http.MethodPatch:
		if f.failPatch {
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "permission denied"})
			return
		}
		id, _ := eq(r, "id")
		var patch map[string]interface{}
		if !decode(w, r, &patch) {
			return
		}
		for i, it := range f.items {
			if it.ID != id {
				continue
			}
			row := map[string]interface{}{}
			data, _ := json.Marshal(it)
			_ = json.Unmarshal(data, &row)
			for k, v := range patch {
				row[k] = v
			}
			data, _ = json.Marshal(row)
			var updated api.Item
			if err := json.Unmarshal(data, &updated); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
				return
			}
			f.items[i] = updated
			writeJSON(w, http.StatusOK, []api.Item{updated})
			return
		}
		writeJSON(w, http.StatusOK, []api.Item{})
	case http.MethodDelete:
		listID, _ := eq(r, "list_id")
		kept := f.items[:0]
		for _, it := range f.items {
			if it.ListID != listID {
				kept = append(kept, it)
			}
		}
		f.items = kept
		w.WriteHeader(http.StatusNoContent)
	}
}

func (f *fakeBackend) register(email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[email] = testPassword
}

func (f *fakeBackend) signOutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOuts
}

func (f *fakeBackend) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lists)
}

func (f *fakeBackend) itemsOf(listID string) []api.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []api.Item
	for _, it := range f.items {
		if it.ListID == listID {
			out = append(out, it)
		}
	}
	return out
}

func (f *fakeBackend) setFailPatch(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPatch = fail
}

func (f *fakeBackend) addList(l api.List) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, l)
}

func (f *fakeBackend) addItem(it api.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, it)
}

func (f *fakeBackend) item(id string) api.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.ID == id {
			return it
		}
	}
	f.t.Fatalf("no item %s", id)
	return api.Item{}
}

// fakeObjects is an in-memory storage bucket backend.
type fakeObjects struct {
	mu         sync.Mutex
	files      map[string][]byte
	upserts    map[string]bool
	failUpload bool
	failSign   bool
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{files: map[string][]byte{}, upserts: map[string]bool{}}
}

func (o *fakeObjects) Upload(_ context.Context, bucket, path string, data []byte, _ string, upsert bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failUpload {
		return &api.APIError{StatusCode: 500, Code: "internal", Message: "upload failed"}
	}
	key := bucket + "/" + path
	if _, ok := o.files[key]; ok && !upsert {
		return &api.APIError{StatusCode: 409, Code: "Duplicate", Message: "The resource already exists"}
	}
	o.files[key] = data
	o.upserts[key] = upsert
	return nil
}

func (o *fakeObjects) CreateSignedURL(_ context.Context, bucket, path string, _ int) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failSign {
		return "", &api.APIError{StatusCode: 500, Code: "internal", Message: "sign failed"}
	}
	if _, ok := o.files[bucket+"/"+path]; !ok {
		return "", &api.APIError{StatusCode: 400, Code: "not_found", Message: "Object not found"}
	}
	return "https://cdn.test/" + bucket + "/" + path + "?token=t", nil
}

func (o *fakeObjects) PublicURL(string, string) string { return "" }

func (o *fakeObjects) Remove(_ context.Context, bucket string, paths []string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, p := range paths {
		delete(o.files, bucket+"/"+p)
	}
	return nil
}

func (o *fakeObjects) ListObjects(_ context.Context, bucket, prefix string) ([]api.StorageObject, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	root := bucket + "/" + prefix + "/"
	seen := map[string]bool{}
	var out []api.StorageObject
	for key := range o.files {
		if !strings.HasPrefix(key, root) {
			continue
		}
		rest := strings.TrimPrefix(key, root)
		name, _, nested := strings.Cut(rest, "/")
		if seen[name] {
			continue
		}
		seen[name] = true
		obj := api.StorageObject{Name: name}
		if !nested {
			id := "obj-" + name
			obj.ID = &id
		}
		out = append(out, obj)
	}
	return out, nil
}

func (o *fakeObjects) Head(context.Context, string) (int, error) { return 404, nil }

func (o *fakeObjects) has(path string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.files["memories/"+path]
	return ok
}

func (o *fakeObjects) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.files)
}

type testEnv struct {
	backend *fakeBackend
	objects *fakeObjects
	deps    *Deps
	dir     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, config.Init(filepath.Join(dir, "config.toml")))

	backend := newFakeBackend(t)
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client.Reset()
	client.InitWith(config.Backend{URL: srv.URL, AnonKey: "anon-key"}, 2*time.Second)
	t.Cleanup(client.Reset)

	kv, err := store.Open(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	objects := newFakeObjects()
	d := NewDeps(kv, storage.NewWith("memories", objects, storage.NewCache()))
	d.Notifier = auth.NewNotifier()
	d.now = func() time.Time { return testNow }

	return &testEnv{backend: backend, objects: objects, deps: d, dir: dir}
}

// signIn registers email with the fake backend and logs in.
func (e *testEnv) signIn(t *testing.T, email string) {
	t.Helper()
	e.backend.register(email)
	_, err := NewAuthService(e.deps).Login(context.Background(), email, testPassword)
	require.NoError(t, err)
}

// activeList creates a list owned by the signed-in user and makes it active.
func (e *testEnv) activeList(t *testing.T, name string) *api.List {
	t.Helper()
	l, err := NewListService(e.deps).Create(context.Background(), name)
	require.NoError(t, err)
	return l
}
