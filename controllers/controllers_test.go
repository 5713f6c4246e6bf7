package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/glebarez/sqlite"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Gin_postgres_redis_inventory/app"
	"Gin_postgres_redis_inventory/config"
	"Gin_postgres_redis_inventory/db"
	"Gin_postgres_redis_inventory/models"
	"Gin_postgres_redis_inventory/routes"
	"Gin_postgres_redis_inventory/store"
)

const (
	adminEmail = "admin@example.com"
	adminPass  = "admin-pass"
	envAdmin   = "root@example.com"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	conn, err := db.Open(sqlite.Open(filepath.Join(t.TempDir(), "remote.db")))
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: "Inventory test",
		RPID:          "localhost",
		RPOrigins:     []string{"http://localhost:5173"},
	})
	require.NoError(t, err)

	cfg := config.Config{
		MirrorBackend:  "redis",
		WebOrigin:      "http://localhost:5173",
		RPOrigins:      []string{"http://localhost:5173"},
		SessionTTL:     time.Hour,
		CeremonyTTL:    time.Minute,
		RequestTimeout: 5 * time.Second,
		AdminEmails:    []string{envAdmin},
	}
	a := app.Assemble(cfg, conn, rdb, wa, store.WithPasswordParams(store.Argon2idParams{
		Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	}))
	t.Cleanup(a.Close)
	routes.RegisterRoutes(a.Router, a)

	_, err = a.Store.AddUser(context.Background(), store.NewUser{
		Email: adminEmail, Password: adminPass, Role: models.RoleAdmin, Name: "Admin",
	})
	require.NoError(t, err)
	return a
}

type client struct {
	t      *testing.T
	a      *app.App
	cookie *http.Cookie
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.a.Router.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == app.AppSessionCookie {
			if ck.MaxAge < 0 {
				c.cookie = nil
			} else {
				c.cookie = ck
			}
		}
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func login(t *testing.T, a *app.App, email, password string) *client {
	t.Helper()
	c := &client{t: t, a: a}
	rec := c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, c.cookie)
	return c
}

func register(t *testing.T, a *app.App) (*client, string) {
	t.Helper()
	c := &client{t: t, a: a}
	email := gofakeit.Email()
	rec := c.do(http.MethodPost, "/api/auth/register", map[string]any{
		"email": email, "password": "secret-123", "name": gofakeit.Name(), "birthDate": "1990-05-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return c, email
}

type userResp struct {
	User    models.User `json:"user"`
	IsAdmin bool        `json:"isAdmin"`
}

type itemResp struct {
	Item models.InventoryItem `json:"item"`
}

type recordResp struct {
	Record models.BorrowRecord `json:"record"`
}

func createItem(t *testing.T, admin *client, body map[string]any) models.InventoryItem {
	t.Helper()
	rec := admin.do(http.MethodPost, "/api/items", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[itemResp](t, rec).Item
}

func TestHealthz(t *testing.T) {
	a := newTestApp(t)
	rec := (&client{t: t, a: a}).do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(app.RequestIDHeader))
}

func TestRegisterLoginLogout(t *testing.T) {
	a := newTestApp(t)
	c, email := register(t, a)

	rec := c.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[userResp](t, rec)
	assert.Equal(t, strings.ToLower(email), me.User.Email)
	assert.Equal(t, models.RoleUser, me.User.Role)
	assert.Empty(t, me.User.Password)
	require.NotNil(t, me.User.BirthDate)
	assert.Equal(t, 1990, me.User.BirthDate.Year())
	assert.False(t, me.IsAdmin)

	rec = c.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/api/auth/me", nil).Code)

	login(t, a, email, "secret-123")

	bad := &client{t: t, a: a}
	rec = bad.do(http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = bad.do(http.MethodPost, "/api/auth/register", map[string]any{"email": email, "password": "secret-123", "name": "Again"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = bad.do(http.MethodPost, "/api/auth/register", map[string]any{"email": "nope", "password": "123", "name": "X"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, rec).Fields
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
}

func TestItemsAdminOnlyWrites(t *testing.T) {
	a := newTestApp(t)
	admin := login(t, a, adminEmail, adminPass)
	user, _ := register(t, a)

	rec := user.do(http.MethodPost, "/api/items", map[string]any{"name": "Drill", "type": "tool", "quantity": 2})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	it := createItem(t, admin, map[string]any{"name": "Drill", "type": "tool", "quantity": 2})
	assert.Equal(t, "t1", it.ID)
	assert.Equal(t, 2, it.Available)
	assert.Equal(t, "INV-T1", it.Barcode)

	gloves := createItem(t, admin, map[string]any{"name": "Gloves", "type": "apd", "quantity": 10, "available": 0})
	assert.Equal(t, 0, gloves.Available)

	rec = admin.do(http.MethodPost, "/api/items", map[string]any{"name": "Bad", "type": "tool", "quantity": 1, "available": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = user.do(http.MethodGet, "/api/items?type=apd", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Items []models.InventoryItem `json:"items"`
	}](t, rec)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "a1", list.Items[0].ID)

	rec = admin.do(http.MethodPut, "/api/items/t1", map[string]any{"quantity": 5, "location": "Rack B"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[itemResp](t, rec).Item
	assert.Equal(t, 5, updated.Available)
	assert.Equal(t, "Rack B", updated.Location)

	assert.Equal(t, http.StatusBadRequest, admin.do(http.MethodPut, "/api/items/t1", map[string]any{}).Code)
	assert.Equal(t, http.StatusNotFound, user.do(http.MethodGet, "/api/items/t9", nil).Code)
	assert.Equal(t, http.StatusOK, admin.do(http.MethodDelete, "/api/items/a1", nil).Code)
	assert.Equal(t, http.StatusNotFound, admin.do(http.MethodDelete, "/api/items/a1", nil).Code)
}

func TestBorrowFlow(t *testing.T) {
	a := newTestApp(t)
	admin := login(t, a, adminEmail, adminPass)
	alice, aliceEmail := register(t, a)
	bob, _ := register(t, a)
	it := createItem(t, admin, map[string]any{"name": "Ladder", "type": "tool", "quantity": 3})

	rec := alice.do(http.MethodPost, "/api/borrows", map[string]any{"itemId": it.ID, "quantity": 2, "estimatedDuration": "3 days"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	borrowed := decode[recordResp](t, rec).Record
	assert.Equal(t, strings.ToLower(aliceEmail), borrowed.UserEmail)
	assert.Equal(t, models.BorrowActive, borrowed.Status)

	rec = bob.do(http.MethodPost, "/api/borrows", map[string]any{"itemId": it.ID, "quantity": 2})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = bob.do(http.MethodPost, "/api/borrows", map[string]any{"itemId": it.ID, "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// other users cannot see or return alice's record
	assert.Equal(t, http.StatusNotFound, bob.do(http.MethodGet, "/api/borrows/"+borrowed.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, bob.do(http.MethodPost, "/api/borrows/"+borrowed.ID+"/return", nil).Code)

	rec = bob.do(http.MethodGet, "/api/borrows", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[struct {
		Records []models.BorrowRecord `json:"records"`
	}](t, rec).Records)

	rec = admin.do(http.MethodGet, "/api/borrows?status=active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[struct {
		Records []models.BorrowRecord `json:"records"`
	}](t, rec).Records, 1)

	rec = alice.do(http.MethodPost, "/api/borrows/"+borrowed.ID+"/return", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	returned := decode[recordResp](t, rec).Record
	assert.Equal(t, models.BorrowReturned, returned.Status)
	assert.NotNil(t, returned.ReturnDate)

	assert.Equal(t, http.StatusConflict, alice.do(http.MethodPost, "/api/borrows/"+borrowed.ID+"/return", nil).Code)

	rec = alice.do(http.MethodGet, "/api/items/"+it.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[itemResp](t, rec).Item.Available)

	assert.Equal(t, http.StatusForbidden, alice.do(http.MethodDelete, "/api/borrows/"+borrowed.ID, nil).Code)
	assert.Equal(t, http.StatusOK, admin.do(http.MethodDelete, "/api/borrows/"+borrowed.ID, nil).Code)
}

func TestAdminBorrowsOnBehalf(t *testing.T) {
	a := newTestApp(t)
	admin := login(t, a, adminEmail, adminPass)
	_, email := register(t, a)
	it := createItem(t, admin, map[string]any{"name": "Helmet", "type": "apd", "quantity": 4})

	rec := admin.do(http.MethodPost, "/api/borrows", map[string]any{"itemId": it.ID, "quantity": 1, "userEmail": email})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, strings.ToLower(email), decode[recordResp](t, rec).Record.UserEmail)

	rec = admin.do(http.MethodGet, "/api/borrows?userEmail="+email, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[struct {
		Records []models.BorrowRecord `json:"records"`
	}](t, rec).Records, 1)
}

func TestServesFromMirrorWhenDatabaseIsDown(t *testing.T) {
	a := newTestApp(t)
	admin := login(t, a, adminEmail, adminPass)
	it := createItem(t, admin, map[string]any{"name": "Crimper", "type": "tool", "quantity": 2})

	sqlDB, err := a.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	rec := admin.do(http.MethodGet, "/api/items", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	items := decode[struct {
		Items []models.InventoryItem `json:"items"`
	}](t, rec).Items
	require.Len(t, items, 1)
	assert.Equal(t, it.ID, items[0].ID)

	// writes land in the mirror only
	rec = admin.do(http.MethodPost, "/api/borrows", map[string]any{"itemId": it.ID, "quantity": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = admin.do(http.MethodGet, "/api/items/"+it.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[itemResp](t, rec).Item.Available)

	// password login reads the user from the mirror
	login(t, a, adminEmail, adminPass)
}

func TestUserAdministration(t *testing.T) {
	a := newTestApp(t)
	admin := login(t, a, adminEmail, adminPass)
	user, email := register(t, a)

	assert.Equal(t, http.StatusForbidden, user.do(http.MethodGet, "/api/users", nil).Code)

	rec := admin.do(http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[struct {
		Users []models.User `json:"users"`
	}](t, rec).Users
	assert.Len(t, users, 2)
	for _, u := range users {
		assert.Empty(t, u.Password)
	}

	rec = user.do(http.MethodPut, "/api/profile", map[string]any{"address": "Jl. Merdeka 1", "role": "admin"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decode[userResp](t, rec)
	assert.Equal(t, "Jl. Merdeka 1", me.User.Address)
	assert.Equal(t, models.RoleUser, me.User.Role)

	// the only admin cannot be demoted or deleted
	rec = admin.do(http.MethodPut, "/api/users/"+adminEmail, map[string]any{"role": "user"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, http.StatusBadRequest, admin.do(http.MethodDelete, "/api/users/"+adminEmail, nil).Code)

	rec = admin.do(http.MethodPost, "/api/users", map[string]any{
		"email": "ops@example.com", "password": "ops-pass", "name": "Ops", "role": "admin",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, decode[userResp](t, rec).IsAdmin)

	// deleting a user ends its sessions
	require.Equal(t, http.StatusOK, admin.do(http.MethodDelete, "/api/users/"+email, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, user.do(http.MethodGet, "/api/auth/me", nil).Code)
	assert.Equal(t, http.StatusNotFound, admin.do(http.MethodGet, "/api/users/"+email, nil).Code)
}

func TestAdminEmailsGrantAdmin(t *testing.T) {
	a := newTestApp(t)
	c := &client{t: t, a: a}
	rec := c.do(http.MethodPost, "/api/auth/register", map[string]any{"email": envAdmin, "password": "secret-123", "name": "Root"})
	require.Equal(t, http.StatusCreated, rec.Code)
	got := decode[userResp](t, rec)
	assert.Equal(t, models.RoleUser, got.User.Role)
	assert.True(t, got.IsAdmin)

	createItem(t, c, map[string]any{"name": "Cable", "type": "material", "quantity": 100})

	admin := login(t, a, adminEmail, adminPass)
	assert.Equal(t, http.StatusForbidden, admin.do(http.MethodDelete, "/api/users/"+envAdmin, nil).Code)
}

func TestReports(t *testing.T) {
	a := newTestApp(t)
	admin := login(t, a, adminEmail, adminPass)
	it := createItem(t, admin, map[string]any{"name": "Saw", "type": "tool", "quantity": 1})
	require.Equal(t, http.StatusCreated, admin.do(http.MethodPost, "/api/borrows", map[string]any{"itemId": it.ID, "quantity": 1}).Code)

	rec := admin.do(http.MethodGet, "/api/reports/items.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "id,name,type"))
	assert.Contains(t, rec.Body.String(), "t1,Saw,tool,1,0,1")

	rec = admin.do(http.MethodGet, "/api/reports/borrows.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], ",t1,Saw,"+adminEmail+",1,active,")
}

func TestPasskeyBeginRequiresSession(t *testing.T) {
	a := newTestApp(t)
	anon := &client{t: t, a: a}
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodPost, "/api/passkeys/register/begin", nil).Code)

	admin := login(t, a, adminEmail, adminPass)
	rec := admin.do(http.MethodPost, "/api/passkeys/register/begin", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"challenge"`)

	rec = anon.do(http.MethodPost, "/api/auth/passkey/login/begin", map[string]any{"discoverable": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode[struct {
		SessionID string `json:"sessionId"`
	}](t, rec).SessionID)

	rec = anon.do(http.MethodPost, "/api/auth/passkey/login/finish?sessionId=unknown", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestItemCalibrationDatesAcceptDateOnly(t *testing.T) {
	a := newTestApp(t)
	admin := login(t, a, adminEmail, adminPass)

	it := createItem(t, admin, map[string]any{
		"name": "Caliper", "type": "tool", "quantity": 1,
		"lastCalibration": "2024-01-15", "nextCalibration": "2025-01-15T00:00:00Z",
	})
	require.NotNil(t, it.LastCalibration)
	require.NotNil(t, it.NextCalibration)
	assert.True(t, it.LastCalibration.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)), it.LastCalibration)
	assert.Equal(t, 2025, it.NextCalibration.Year())

	rec := admin.do(http.MethodPut, "/api/items/"+it.ID, map[string]any{"nextCalibration": "2026-02-01"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[itemResp](t, rec).Item
	require.NotNil(t, updated.NextCalibration)
	assert.True(t, updated.NextCalibration.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)), updated.NextCalibration)
	require.NotNil(t, updated.LastCalibration)

	rec = admin.do(http.MethodPut, "/api/items/"+it.ID, map[string]any{"nextCalibration": "01/02/2026"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOverlongFieldsAreRejected(t *testing.T) {
	a := newTestApp(t)
	admin := login(t, a, adminEmail, adminPass)

	rec := admin.do(http.MethodPost, "/api/items", map[string]any{
		"name": strings.Repeat("x", 201), "type": "tool", "quantity": 1,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"name"`)

	it := createItem(t, admin, map[string]any{"name": "Vise", "type": "tool", "quantity": 1})
	rec = admin.do(http.MethodPut, "/api/items/"+it.ID, map[string]any{"condition": strings.Repeat("c", 61)})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"condition"`)

	rec = admin.do(http.MethodGet, "/api/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[struct {
		Items []models.InventoryItem `json:"items"`
	}](t, rec).Items
	require.Len(t, items, 1)
	assert.Empty(t, items[0].Condition)
}

func TestPasskeyLoginDoesNotRevealRegisteredEmails(t *testing.T) {
	a := newTestApp(t)
	anon := &client{t: t, a: a}

	known := anon.do(http.MethodPost, "/api/auth/passkey/login/begin", map[string]any{"email": adminEmail})
	unknown := anon.do(http.MethodPost, "/api/auth/passkey/login/begin", map[string]any{"email": "nobody@example.com"})

	assert.Equal(t, http.StatusBadRequest, known.Code)
	assert.Equal(t, known.Code, unknown.Code)
	assert.JSONEq(t, known.Body.String(), unknown.Body.String())
}
