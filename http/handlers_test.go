package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinizap/foldnote/auth"
	"github.com/vinizap/foldnote/domain"
	"github.com/vinizap/foldnote/storage"
	"github.com/vinizap/foldnote/store"
	"github.com/vinizap/foldnote/workspace"
)

const token = "test-token"

func newApp(t *testing.T, backend storage.Backend) (*fiber.App, *workspace.Workspace) {
	t.Helper()
	ctx := context.Background()
	folders, err := store.NewFolderStore(ctx, backend, zerolog.Nop())
	require.NoError(t, err)
	notes, err := store.NewNoteStore(ctx, backend, zerolog.Nop())
	require.NoError(t, err)

	ws := workspace.New(folders, notes)
	srv := NewServer(ws, token, "", zerolog.Nop())
	srv.loc = time.UTC
	return srv.App(), ws
}

func do(t *testing.T, app *fiber.App, method, target string, body any) (int, []byte, string) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set(auth.Header, token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out, resp.Header.Get(WarningHeader)
}

func TestHealthz_NoToken(t *testing.T) {
	app, _ := newApp(t, storage.NewMemory())

	resp, err := app.Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAPI_RequiresToken(t *testing.T) {
	app, _ := newApp(t, storage.NewMemory())

	resp, err := app.Test(httptest.NewRequest("GET", "/api/folders", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestFolderLifecycle(t *testing.T) {
	app, ws := newApp(t, storage.NewMemory())

	code, body, _ := do(t, app, "POST", "/api/folders", map[string]string{"name": "My Folder"})
	require.Equal(t, fiber.StatusCreated, code, string(body))
	var created domain.Folder
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "/my-folder", created.Slug)

	code, body, _ = do(t, app, "POST", "/api/folders", map[string]string{"name": "My Folder", "path": "/my-folder"})
	require.Equal(t, fiber.StatusCreated, code)
	var nested domain.Folder
	require.NoError(t, json.Unmarshal(body, &nested))
	assert.Equal(t, "/my-folder/my-folder-1", nested.Slug)

	code, body, _ = do(t, app, "PUT", "/api/folders/"+created.ID, map[string]string{"name": "Renamed"})
	require.Equal(t, fiber.StatusOK, code)
	var renamed domain.Folder
	require.NoError(t, json.Unmarshal(body, &renamed))
	assert.Equal(t, "Renamed", renamed.Name)
	assert.Equal(t, "/my-folder", renamed.Slug)

	code, body, _ = do(t, app, "GET", "/api/folders", nil)
	require.Equal(t, fiber.StatusOK, code)
	var all []domain.Folder
	require.NoError(t, json.Unmarshal(body, &all))
	assert.Len(t, all, 2)

	code, _, _ = do(t, app, "DELETE", "/api/folders/"+created.ID, nil)
	assert.Equal(t, fiber.StatusNoContent, code)
	assert.Equal(t, 1, ws.Folders.Len())
}

func TestCreateFolder_Validation(t *testing.T) {
	app, ws := newApp(t, storage.NewMemory())

	code, body, _ := do(t, app, "POST", "/api/folders", map[string]string{"name": ""})

	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.JSONEq(t, `{"error":"Require to fill in the field","field":"name"}`, string(body))
	assert.Zero(t, ws.Folders.Len())
}

func TestRenameFolder_NotFound(t *testing.T) {
	app, _ := newApp(t, storage.NewMemory())

	code, _, _ := do(t, app, "PUT", "/api/folders/nope", map[string]string{"name": "x"})
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestNoteLifecycle(t *testing.T) {
	app, ws := newApp(t, storage.NewMemory())

	code, body, _ := do(t, app, "POST", "/api/notes", map[string]string{"name": "n", "text": "<p>t</p>", "path": "/a"})
	require.Equal(t, fiber.StatusCreated, code, string(body))
	var created domain.Note
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "/a", created.Folder)

	code, body, _ = do(t, app, "GET", "/api/notes?path=%2Fa", nil)
	require.Equal(t, fiber.StatusOK, code)
	var inA []domain.Note
	require.NoError(t, json.Unmarshal(body, &inA))
	assert.Equal(t, []domain.Note{created}, inA)

	code, body, _ = do(t, app, "GET", "/api/notes?path=%2Fb", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.JSONEq(t, `[]`, string(body))

	code, body, _ = do(t, app, "PUT", "/api/notes/"+created.ID, map[string]string{"name": "n2", "text": "<p>u</p>"})
	require.Equal(t, fiber.StatusOK, code)
	var edited domain.Note
	require.NoError(t, json.Unmarshal(body, &edited))
	assert.Equal(t, "n2", edited.Name)

	code, _, _ = do(t, app, "PUT", "/api/notes/"+created.ID, map[string]string{"name": "n2", "text": ""})
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _, _ = do(t, app, "DELETE", "/api/notes/"+created.ID, nil)
	assert.Equal(t, fiber.StatusNoContent, code)
	assert.Zero(t, ws.Notes.Len())
}

func TestCreateNote_BadBody(t *testing.T) {
	app, _ := newApp(t, storage.NewMemory())
	req := httptest.NewRequest("POST", "/api/notes", bytes.NewReader([]byte("{")))
	req.Header.Set(auth.Header, token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

type itemsResponse struct {
	Path       string          `json:"path"`
	Items      []itemView      `json:"items"`
	Breadcrumb []domain.Folder `json:"breadcrumb"`
}

func TestItems(t *testing.T) {
	ctx := context.Background()
	app, ws := newApp(t, storage.NewMemory())
	require.NoError(t, ws.Folders.SetAll(ctx, []domain.Folder{
		{ID: "a", Name: "A", Slug: "/a", Date: 1},
		{ID: "ab", Name: "B", Slug: "/a/b", Date: 3},
	}))
	require.NoError(t, ws.Notes.SetAll(ctx, []domain.Note{
		{ID: "n", Name: "Note", Text: "x", Date: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).UnixMilli(), Folder: "/a"},
	}))

	code, body, _ := do(t, app, "GET", "/api/items?path="+url.QueryEscape("/a"), nil)
	require.Equal(t, fiber.StatusOK, code, string(body))

	var resp itemsResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "/a", resp.Path)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, domain.KindNote, resp.Items[0].Kind)
	assert.Equal(t, "2024-01-02 03:04:05", resp.Items[0].FormattedDate)
	assert.Equal(t, "ab", resp.Items[1].ID)
	require.Len(t, resp.Breadcrumb, 1)
	assert.Equal(t, "A", resp.Breadcrumb[0].Name)

	code, body, _ = do(t, app, "GET", "/api/items?q=b", nil)
	require.Equal(t, fiber.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "ab", resp.Items[0].ID)

	code, body, _ = do(t, app, "GET", "/api/items?where="+url.QueryEscape(`kind == "folder"`)+"&path=%2Fa", nil)
	require.Equal(t, fiber.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "ab", resp.Items[0].ID)
}

func TestItems_Errors(t *testing.T) {
	app, _ := newApp(t, storage.NewMemory())

	code, body, _ := do(t, app, "GET", "/api/items?path=%2Fmissing", nil)
	assert.Equal(t, fiber.StatusNotFound, code)
	assert.Contains(t, string(body), `"redirect":"/404"`)

	code, _, _ = do(t, app, "GET", "/api/items?where="+url.QueryEscape(`kind ==`), nil)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, body, _ = do(t, app, "GET", "/api/items", nil)
	assert.Equal(t, fiber.StatusOK, code)
	assert.JSONEq(t, `{"path":"/","items":[],"breadcrumb":[]}`, string(body))
}

type fullBackend struct{ *storage.Memory }

func (fullBackend) Set(context.Context, string, []byte) error {
	return errors.New("quota exceeded")
}

func TestPersistFailure_IsAWarning(t *testing.T) {
	app, ws := newApp(t, fullBackend{storage.NewMemory()})

	code, _, warning := do(t, app, "POST", "/api/notes", map[string]string{"name": "n", "text": "t"})

	assert.Equal(t, fiber.StatusCreated, code)
	assert.NotEmpty(t, warning)
	assert.Equal(t, 1, ws.Notes.Len())
}

func TestCORS_Preflight(t *testing.T) {
	app, _ := newApp(t, storage.NewMemory())
	req := httptest.NewRequest("OPTIONS", "/api/notes", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func doForm(t *testing.T, app *fiber.App, method, target string, form url.Values) int {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set(auth.Header, token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestFormBodies_StoredValuesSurviveLaterRequests(t *testing.T) {
	app, ws := newApp(t, storage.NewMemory())

	require.Equal(t, fiber.StatusCreated, doForm(t, app, "POST", "/api/folders", url.Values{"name": {"AAAAAAAAAAAA"}}))
	require.Equal(t, fiber.StatusCreated, doForm(t, app, "POST", "/api/notes", url.Values{
		"name": {"first note"}, "text": {"first text"}, "path": {"/aaaaaaaaaaaa"},
	}))
	for range 20 {
		require.Equal(t, fiber.StatusCreated, doForm(t, app, "POST", "/api/folders", url.Values{"name": {"ZZZZZZZZZZZZ"}}))
		require.Equal(t, fiber.StatusCreated, doForm(t, app, "POST", "/api/notes", url.Values{
			"name": {"later note"}, "text": {"later text"}, "path": {"/zzzzzzzzzzzz"},
		}))
	}

	folder := ws.Folders.All()[0]
	assert.Equal(t, "AAAAAAAAAAAA", folder.Name)
	assert.Equal(t, "/aaaaaaaaaaaa", folder.Slug)

	note := ws.Notes.All()[0]
	assert.Equal(t, "first note", note.Name)
	assert.Equal(t, "first text", note.Text)
	assert.Equal(t, "/aaaaaaaaaaaa", note.Folder)

	require.Equal(t, fiber.StatusOK, doForm(t, app, "PUT", "/api/folders/"+folder.ID, url.Values{"name": {"Renamed Folder"}}))
	for range 20 {
		doForm(t, app, "POST", "/api/folders", url.Values{"name": {"XXXXXXXXXXXXXXXX"}})
	}

	renamed, ok := ws.Folders.Get(folder.ID)
	require.True(t, ok)
	assert.Equal(t, "Renamed Folder", renamed.Name)
}
