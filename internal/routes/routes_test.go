package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtrack/medtrack-go/internal/config"
	"github.com/medtrack/medtrack-go/internal/crypto"
	"github.com/medtrack/medtrack-go/internal/repository"
	"github.com/medtrack/medtrack-go/internal/service"
	"github.com/medtrack/medtrack-go/internal/storage"
)

const testSecret = "test-secret"

type testEnv struct {
	t       *testing.T
	handler http.Handler
	users   *service.UserService
	cfg     config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on"
	db, err := repository.Open(ctx, repository.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.Migrate(ctx, db, repository.DriverSQLite))

	cfg := config.Config{
		JWTSecret:      testSecret,
		JWTExpiry:      time.Hour,
		MediaRoot:      t.TempDir(),
		MediaURL:       "/media/",
		MaxUploadBytes: 1 << 20,
		AuthRateLimit:  1000,
		AuthRateBurst:  1000,
	}

	users := service.NewUserService(repository.NewUserRepository(db), cfg.JWTSecret, cfg.JWTExpiry)
	tagRepo := repository.NewTagRepository(db)
	ingredientRepo := repository.NewIngredientRepository(db)

	h := Setup(Dependencies{
		Config:      cfg,
		DB:          db,
		Users:       users,
		Tags:        service.NewTagService(tagRepo),
		Ingredients: service.NewIngredientService(ingredientRepo),
		Drugs: service.NewDrugService(repository.NewDrugRepository(db), tagRepo, ingredientRepo,
			storage.NewLocalStore(cfg.MediaRoot), cfg.MediaURL),
	})

	return &testEnv{t: t, handler: h, users: users, cfg: cfg}
}

// login creates a user and returns a bearer token for it.
func (e *testEnv) login(email string) string {
	e.t.Helper()
	user, err := e.users.CreateUser(context.Background(), email, "testpass123")
	require.NoError(e.t, err)
	token, err := crypto.GenerateToken(user.ID, testSecret, time.Hour)
	require.NoError(e.t, err)
	return token
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type attrJSON struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type drugJSON struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	Tags           []int64 `json:"tags"`
	Ingredients    []int64 `json:"ingredients"`
	DailyFrequency int     `json:"daily_frequency"`
	Price          string  `json:"price"`
	Link           string  `json:"link"`
}

type drugDetailJSON struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Tags        []attrJSON `json:"tags"`
	Ingredients []attrJSON `json:"ingredients"`
	Image       *string    `json:"image"`
}

type validationJSON struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

func (e *testEnv) createAttr(token, kind, name string) attrJSON {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/v1/drug/"+kind, token, map[string]any{"name": name})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[attrJSON](e.t, rec)
}

func (e *testEnv) createDrug(token string, payload map[string]any) drugJSON {
	e.t.Helper()
	body := map[string]any{"title": "Sample drug", "daily_frequency": 5, "price": "5.25"}
	for k, v := range payload {
		body[k] = v
	}
	rec := e.do(http.MethodPost, "/api/v1/drug/drugs", token, body)
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[drugJSON](e.t, rec)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/v1/drug/drugs", "/api/v1/drug/tags", "/api/v1/drug/ingredients", "/api/v1/user/me"} {
		rec := env.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := env.do(http.MethodGet, "/api/v1/drug/drugs", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/user/create", "", map[string]string{"email": "Test@Example.com", "password": "testpass123"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, "test@example.com", created["email"])
	assert.NotContains(t, created, "password")

	rec = env.do(http.MethodPost, "/api/v1/user/create", "", map[string]string{"email": "test@example.com", "password": "testpass123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[validationJSON](t, rec).Fields, "email")

	rec = env.do(http.MethodPost, "/api/v1/user/create", "", map[string]string{"email": "short@example.com", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[validationJSON](t, rec).Fields, "password")

	rec = env.do(http.MethodPost, "/api/v1/user/token", "", map[string]string{"email": "test@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/user/token", "", map[string]string{"email": "test@example.com", "password": "testpass123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token := decode[map[string]string](t, rec)["token"]
	require.NotEmpty(t, token)

	rec = env.do(http.MethodGet, "/api/v1/user/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test@example.com", decode[map[string]any](t, rec)["email"])
}

func TestMalformedBodies(t *testing.T) {
	env := newTestEnv(t)
	token := env.login("user@example.com")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/drug/tags", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	huge := `{"name":"` + strings.Repeat("a", 2<<20) + `"}`
	req = httptest.NewRequest(http.MethodPost, "/api/v1/drug/tags", strings.NewReader(huge))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAttributeEndpoints(t *testing.T) {
	for _, kind := range []string{"tags", "ingredients"} {
		t.Run(kind, func(t *testing.T) {
			env := newTestEnv(t)
			token := env.login("user@example.com")
			other := env.login("other@example.com")
			base := "/api/v1/drug/" + kind

			env.createAttr(token, kind, "Breakfast")
			env.createAttr(token, kind, "Vegan")
			foreign := env.createAttr(other, kind, "Foreign")

			rec := env.do(http.MethodGet, base, token, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			list := decode[[]attrJSON](t, rec)
			require.Len(t, list, 2)
			assert.Equal(t, "Vegan", list[0].Name)
			assert.Equal(t, "Breakfast", list[1].Name)

			rec = env.do(http.MethodPost, base, token, map[string]string{"name": "   "})
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode[validationJSON](t, rec).Fields, "name")

			rec = env.do(http.MethodPatch, fmt.Sprintf("%s/%d", base, list[0].ID), token, map[string]string{"name": "Dinner"})
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "Dinner", decode[attrJSON](t, rec).Name)

			rec = env.do(http.MethodPut, fmt.Sprintf("%s/%d", base, foreign.ID), token, map[string]string{"name": "Stolen"})
			assert.Equal(t, http.StatusNotFound, rec.Code)

			rec = env.do(http.MethodDelete, fmt.Sprintf("%s/%d", base, foreign.ID), token, nil)
			assert.Equal(t, http.StatusNotFound, rec.Code)

			rec = env.do(http.MethodDelete, fmt.Sprintf("%s/%d", base, list[1].ID), token, nil)
			assert.Equal(t, http.StatusNoContent, rec.Code)

			rec = env.do(http.MethodGet, base, token, nil)
			assert.Len(t, decode[[]attrJSON](t, rec), 1)

			rec = env.do(http.MethodDelete, base+"/abc", token, nil)
			assert.Equal(t, http.StatusNotFound, rec.Code)
		})
	}
}

func TestAttributeAssignedOnly(t *testing.T) {
	env := newTestEnv(t)
	token := env.login("user@example.com")

	eggs := env.createAttr(token, "ingredients", "Eggs")
	env.createAttr(token, "ingredients", "Lentils")
	env.createDrug(token, map[string]any{"title": "Eggs benedict", "ingredients": []int64{eggs.ID}})
	env.createDrug(token, map[string]any{"title": "Herb eggs", "ingredients": []int64{eggs.ID}})

	rec := env.do(http.MethodGet, "/api/v1/drug/ingredients?assigned_only=1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []attrJSON{eggs}, decode[[]attrJSON](t, rec))

	rec = env.do(http.MethodGet, "/api/v1/drug/ingredients?assigned_only=0", token, nil)
	assert.Len(t, decode[[]attrJSON](t, rec), 2)

	rec = env.do(http.MethodGet, "/api/v1/drug/ingredients?assigned_only=maybe", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDrugListIsScopedAndOrdered(t *testing.T) {
	env := newTestEnv(t)
	token := env.login("user@example.com")
	other := env.login("other@example.com")

	first := env.createDrug(token, map[string]any{"title": "First"})
	second := env.createDrug(token, map[string]any{"title": "Second"})
	env.createDrug(other, map[string]any{"title": "Foreign"})

	rec := env.do(http.MethodGet, "/api/v1/drug/drugs", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]drugJSON](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, "5.25", list[0].Price)
	assert.Equal(t, []int64{}, list[0].Tags)

	rec = env.do(http.MethodGet, "/api/v1/drug/drugs", env.login("empty@example.com"), nil)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestDrugCreateAndDetail(t *testing.T) {
	env := newTestEnv(t)
	token := env.login("user@example.com")
	other := env.login("other@example.com")

	vegan := env.createAttr(token, "tags", "Vegan")
	dessert := env.createAttr(token, "tags", "Dessert")
	salt := env.createAttr(token, "ingredients", "Salt")
	foreignTag := env.createAttr(other, "tags", "Foreign")

	d := env.createDrug(token, map[string]any{
		"tags":        []int64{vegan.ID, dessert.ID},
		"ingredients": []int64{salt.ID},
		"link":        "https://example.com/drug",
	})
	assert.ElementsMatch(t, []int64{vegan.ID, dessert.ID}, d.Tags)
	assert.Equal(t, []int64{salt.ID}, d.Ingredients)
	assert.Equal(t, "https://example.com/drug", d.Link)

	rec := env.do(http.MethodGet, fmt.Sprintf("/api/v1/drug/drugs/%d", d.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[drugDetailJSON](t, rec)
	assert.ElementsMatch(t, []attrJSON{vegan, dessert}, detail.Tags)
	assert.Equal(t, []attrJSON{salt}, detail.Ingredients)
	assert.Nil(t, detail.Image)

	rec = env.do(http.MethodGet, fmt.Sprintf("/api/v1/drug/drugs/%d", d.ID), other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/drug/drugs", token, map[string]any{
		"title": "Bad", "daily_frequency": 1, "price": "1.00", "tags": []int64{foreignTag.ID},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[validationJSON](t, rec).Fields, "tags")

	rec = env.do(http.MethodPost, "/api/v1/drug/drugs", token, map[string]any{"title": "No price"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode[validationJSON](t, rec).Fields
	assert.Contains(t, fields, "price")
	assert.Contains(t, fields, "daily_frequency")

	rec = env.do(http.MethodGet, "/api/v1/drug/drugs/not-a-number", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDrugUpdate(t *testing.T) {
	env := newTestEnv(t)
	token := env.login("user@example.com")

	curry := env.createAttr(token, "tags", "Curry")
	spicy := env.createAttr(token, "tags", "Spicy")
	d := env.createDrug(token, map[string]any{"tags": []int64{curry.ID}, "link": "https://example.com"})
	path := fmt.Sprintf("/api/v1/drug/drugs/%d", d.ID)

	rec := env.do(http.MethodPatch, path, token, map[string]any{"title": "Chicken tikka", "tags": []int64{spicy.ID}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	patched := decode[drugJSON](t, rec)
	assert.Equal(t, "Chicken tikka", patched.Title)
	assert.Equal(t, []int64{spicy.ID}, patched.Tags)
	assert.Equal(t, 5, patched.DailyFrequency)
	assert.Equal(t, "5.25", patched.Price)
	assert.Equal(t, "https://example.com", patched.Link)

	rec = env.do(http.MethodPut, path, token, map[string]any{"title": "Spaghetti carbonara", "daily_frequency": 25, "price": 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	replaced := decode[drugJSON](t, rec)
	assert.Equal(t, "Spaghetti carbonara", replaced.Title)
	assert.Equal(t, 25, replaced.DailyFrequency)
	assert.Equal(t, "5.00", replaced.Price)
	assert.Empty(t, replaced.Tags)
	assert.Equal(t, "https://example.com", replaced.Link)

	rec = env.do(http.MethodPut, path, token, map[string]any{"title": "Missing fields"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	other := env.login("other@example.com")
	rec = env.do(http.MethodPatch, path, other, map[string]any{"title": "Hijack"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDrugFilters(t *testing.T) {
	env := newTestEnv(t)
	token := env.login("user@example.com")

	vegan := env.createAttr(token, "tags", "Vegan")
	veggie := env.createAttr(token, "tags", "Vegetarian")
	feta := env.createAttr(token, "ingredients", "Feta cheese")
	chicken := env.createAttr(token, "ingredients", "Chicken")

	d1 := env.createDrug(token, map[string]any{"title": "Thai curry", "tags": []int64{vegan.ID}, "ingredients": []int64{feta.ID}})
	d2 := env.createDrug(token, map[string]any{"title": "Aubergine", "tags": []int64{veggie.ID}, "ingredients": []int64{chicken.ID}})
	env.createDrug(token, map[string]any{"title": "Fish and chips"})

	ids := func(path string) []int64 {
		rec := env.do(http.MethodGet, path, token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var out []int64
		for _, d := range decode[[]drugJSON](t, rec) {
			out = append(out, d.ID)
		}
		return out
	}

	assert.Equal(t, []int64{d2.ID, d1.ID}, ids(fmt.Sprintf("/api/v1/drug/drugs?tags=%d,%d", vegan.ID, veggie.ID)))
	assert.Equal(t, []int64{d1.ID}, ids(fmt.Sprintf("/api/v1/drug/drugs?ingredients=%d", feta.ID)))
	assert.Empty(t, ids(fmt.Sprintf("/api/v1/drug/drugs?tags=%d&ingredients=%d", vegan.ID, chicken.ID)))
	assert.Len(t, ids("/api/v1/drug/drugs?tags="), 3)

	rec := env.do(http.MethodGet, "/api/v1/drug/drugs?tags=1,abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[validationJSON](t, rec).Fields, "tags")
}

func multipartImage(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 10))))
	return buf.Bytes()
}

func (e *testEnv) upload(token string, id int64, field, filename string, data []byte) *httptest.ResponseRecorder {
	e.t.Helper()
	body, contentType := multipartImage(e.t, field, filename, data)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/drug/drugs/%d/upload-image", id), body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestDrugImageUpload(t *testing.T) {
	env := newTestEnv(t)
	token := env.login("user@example.com")
	d := env.createDrug(token, nil)

	rec := env.upload(token, d.ID, "image", "photo.png", pngBytes(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		ID    int64   `json:"id"`
		Image *string `json:"image"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Image)
	assert.Equal(t, d.ID, resp.ID)
	assert.True(t, strings.HasPrefix(*resp.Image, "/media/uploads/drug/"))
	assert.True(t, strings.HasSuffix(*resp.Image, ".png"))

	rel := strings.TrimPrefix(*resp.Image, "/media/")
	_, err := os.Stat(filepath.Join(env.cfg.MediaRoot, filepath.FromSlash(rel)))
	assert.NoError(t, err)

	served := env.do(http.MethodGet, *resp.Image, "", nil)
	assert.Equal(t, http.StatusOK, served.Code)

	rec = env.do(http.MethodGet, fmt.Sprintf("/api/v1/drug/drugs/%d", d.ID), token, nil)
	detail := decode[drugDetailJSON](t, rec)
	require.NotNil(t, detail.Image)
	assert.Equal(t, *resp.Image, *detail.Image)

	rec = env.upload(token, d.ID, "image", "notimage.png", []byte("notimage"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[validationJSON](t, rec).Fields, "image")

	truncated := append(pngBytes(t)[:40], "garbage-garbage-garbage"...)
	rec = env.upload(token, d.ID, "image", "photo.png", truncated)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[validationJSON](t, rec).Fields, "image")

	rec = env.upload(token, d.ID, "file", "photo.png", pngBytes(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.upload(env.login("other@example.com"), d.ID, "image", "photo.png", pngBytes(t))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodDelete, fmt.Sprintf("/api/v1/drug/drugs/%d", d.ID), token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err = os.Stat(filepath.Join(env.cfg.MediaRoot, filepath.FromSlash(rel)))
	assert.True(t, os.IsNotExist(err))
}

func TestImageUploadTooLarge(t *testing.T) {
	env := newTestEnv(t)
	token := env.login("user@example.com")
	d := env.createDrug(token, nil)

	rec := env.upload(token, d.ID, "image", "big.png", bytes.Repeat([]byte("x"), 2<<20))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "medtrack_http_requests_total")
}

func TestMediaPrefix(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"/media/", "/media/", true},
		{"media", "/media/", true},
		{"/static/media", "/static/media/", true},
		{"https://cdn.example.com/media/", "", false},
		{"/", "", false},
	}

	for _, tt := range tests {
		got, ok := mediaPrefix(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
