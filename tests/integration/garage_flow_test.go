package integration_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/throttle-vault/vault/internal/accounts"
	"github.com/throttle-vault/vault/internal/auth"
	"github.com/throttle-vault/vault/internal/catalog"
	"github.com/throttle-vault/vault/internal/garage"
	"github.com/throttle-vault/vault/internal/server"
)

const signingSecret = "integration-secret"

// fakeCatalog and fakeGarage stand in for the document store; the flow under
// test is auth + routing + ownership, not mongo itself.
type fakeCatalog struct {
	models map[string]catalog.CarModel
}

func (f *fakeCatalog) List(context.Context) ([]catalog.Summary, error) {
	summaries := make([]catalog.Summary, 0, len(f.models))
	for _, model := range f.models {
		summaries = append(summaries, model.Summarize())
	}
	return summaries, nil
}

func (f *fakeCatalog) Get(_ context.Context, slug string) (*catalog.CarModel, error) {
	if model, ok := f.models[slug]; ok {
		return &model, nil
	}
	return nil, catalog.ErrNotFound
}

func (f *fakeCatalog) Create(_ context.Context, model *catalog.CarModel) (*catalog.CarModel, error) {
	if _, ok := f.models[model.Slug]; ok {
		return nil, catalog.ErrDuplicateSlug
	}
	f.models[model.Slug] = *model
	return model, nil
}

func (f *fakeCatalog) Update(_ context.Context, slug string, model *catalog.CarModel) (*catalog.CarModel, error) {
	if _, ok := f.models[slug]; !ok {
		return nil, catalog.ErrNotFound
	}
	model.Slug = slug
	f.models[slug] = *model
	return model, nil
}

func (f *fakeCatalog) Remove(_ context.Context, slug string) error {
	if _, ok := f.models[slug]; !ok {
		return catalog.ErrNotFound
	}
	delete(f.models, slug)
	return nil
}

type fakeGarage struct {
	cars map[string]garage.GarageCar
}

func (f *fakeGarage) ListByUser(_ context.Context, username string) ([]garage.GarageCar, error) {
	var owned []garage.GarageCar
	for _, car := range f.cars {
		if car.Username == username {
			owned = append(owned, car)
		}
	}
	return owned, nil
}

func (f *fakeGarage) Get(_ context.Context, id string) (*garage.GarageCar, error) {
	if car, ok := f.cars[id]; ok {
		return &car, nil
	}
	return nil, garage.ErrNotFound
}

func (f *fakeGarage) Create(_ context.Context, car *garage.GarageCar) (*garage.GarageCar, error) {
	car.ID = primitive.NewObjectID()
	car.DateAdded = time.Now().UTC()
	if car.Notes == nil {
		car.Notes = garage.NoteList{}
	}
	if car.ServiceLogs == nil {
		car.ServiceLogs = []garage.ServiceLog{}
	}
	f.cars[car.ID.Hex()] = *car
	return car, nil
}

func (f *fakeGarage) Update(_ context.Context, id string, car *garage.GarageCar) (*garage.GarageCar, error) {
	existing, ok := f.cars[id]
	if !ok {
		return nil, garage.ErrNotFound
	}
	existing.Username = car.Username
	existing.Nickname = car.Nickname
	existing.Year = car.Year
	existing.Trim = car.Trim
	f.cars[id] = existing
	return &existing, nil
}

func (f *fakeGarage) Remove(_ context.Context, id string) error {
	if _, ok := f.cars[id]; !ok {
		return garage.ErrNotFound
	}
	delete(f.cars, id)
	return nil
}

func (f *fakeGarage) AddNote(_ context.Context, id string, note garage.Note) (*garage.GarageCar, error) {
	car, ok := f.cars[id]
	if !ok {
		return nil, garage.ErrNotFound
	}
	car.Notes = append(car.Notes, note)
	f.cars[id] = car
	return &car, nil
}

func (f *fakeGarage) UpdateNote(_ context.Context, id, noteID string, patch garage.NotePatch) (*garage.GarageCar, error) {
	car, ok := f.cars[id]
	if !ok {
		return nil, garage.ErrNotFound
	}
	for i := range car.Notes {
		if car.Notes[i].ID == noteID {
			if patch.Content != nil {
				car.Notes[i].Content = *patch.Content
			}
			if patch.Date != nil {
				car.Notes[i].Date = *patch.Date
			}
		}
	}
	f.cars[id] = car
	return &car, nil
}

func (f *fakeGarage) RemoveNote(_ context.Context, id, noteID string) (*garage.GarageCar, error) {
	car, ok := f.cars[id]
	if !ok {
		return nil, garage.ErrNotFound
	}
	kept := car.Notes[:0]
	for _, note := range car.Notes {
		if note.ID != noteID {
			kept = append(kept, note)
		}
	}
	car.Notes = kept
	f.cars[id] = car
	return &car, nil
}

func (f *fakeGarage) AddServiceLog(_ context.Context, id string, log garage.ServiceLog) (*garage.GarageCar, error) {
	car, ok := f.cars[id]
	if !ok {
		return nil, garage.ErrNotFound
	}
	car.ServiceLogs = append(car.ServiceLogs, log)
	f.cars[id] = car
	return &car, nil
}

func newIntegrationHandler(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:integration?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&accounts.Account{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	accountsService, err := accounts.NewService(accounts.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build accounts service: %v", err)
	}

	tokenManager := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(signingSecret),
		TokenTTL:      30 * time.Minute,
	})

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Catalog:  &fakeCatalog{models: map[string]catalog.CarModel{}},
		Garage:   &fakeGarage{cars: map[string]garage.GarageCar{}},
		Accounts: accountsService,
		Tokens:   tokenManager,
		Logger:   zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}
	return handler
}

func do(t *testing.T, handler http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var request *http.Request
	if body == "" {
		request = httptest.NewRequest(method, path, http.NoBody)
	} else {
		request = httptest.NewRequest(method, path, strings.NewReader(body))
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestCatalogAndGarageFlow(t *testing.T) {
	handler := newIntegrationHandler(t)

	// Register and capture the issued bearer token.
	recorder := do(t, handler, http.MethodPost, "/auth/register", `{"username":"alice","password":"hunter2"}`, "")
	if recorder.Code != http.StatusCreated {
		t.Fatalf("register failed with %d: %s", recorder.Code, recorder.Body.String())
	}
	var tokenPayload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &tokenPayload); err != nil {
		t.Fatalf("failed to decode token payload: %v", err)
	}
	token := tokenPayload.AccessToken

	// Authenticated catalog create.
	carBody := `{"slug":"mustang","name":"Ford Mustang","category":"muscle-car","icon":"icon-coupe","href":"/app/models/mustang","years":"2015-2024","overview":{"manufacturer":"Ford","bodyStyle":"Coupe","history":"Sixth generation"},"trims":[],"modifications":[],"history":[]}`
	recorder = do(t, handler, http.MethodPost, "/api/cars", carBody, token)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("car create failed with %d: %s", recorder.Code, recorder.Body.String())
	}

	// Public read of the created model.
	recorder = do(t, handler, http.MethodGet, "/api/cars/mustang", "", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("public car read failed with %d", recorder.Code)
	}

	// Unauthenticated delete must be rejected before handler logic runs.
	recorder = do(t, handler, http.MethodDelete, "/api/cars/mustang", "", "")
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthenticated delete, got %d", recorder.Code)
	}

	// Owner adds a garage car referencing the model.
	garageBody := `{"modelSlug":"mustang","modelName":"Ford Mustang","nickname":"Daily","year":2019,"trim":"GT"}`
	recorder = do(t, handler, http.MethodPost, "/api/garage", garageBody, token)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("garage create failed with %d: %s", recorder.Code, recorder.Body.String())
	}
	var created garage.GarageCar
	if err := json.Unmarshal(recorder.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode created garage car: %v", err)
	}
	if created.Username != "alice" {
		t.Fatalf("expected username stamped from token subject, got %q", created.Username)
	}

	// Round trip: the stored document matches the submitted fields.
	recorder = do(t, handler, http.MethodGet, "/api/garage/"+created.ID.Hex(), "", token)
	if recorder.Code != http.StatusOK {
		t.Fatalf("garage read failed with %d", recorder.Code)
	}
	var fetched garage.GarageCar
	if err := json.Unmarshal(recorder.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("failed to decode fetched garage car: %v", err)
	}
	if fetched.Nickname != "Daily" || fetched.ModelSlug != "mustang" || fetched.Year != 2019 {
		t.Fatalf("unexpected fetched car %+v", fetched)
	}

	// Append a note with no date; the server assigns id and timestamp.
	recorder = do(t, handler, http.MethodPost, "/api/garage/"+created.ID.Hex()+"/notes", `{"content":"Changed oil"}`, token)
	if recorder.Code != http.StatusOK {
		t.Fatalf("note create failed with %d: %s", recorder.Code, recorder.Body.String())
	}
	var noted garage.GarageCar
	if err := json.Unmarshal(recorder.Body.Bytes(), &noted); err != nil {
		t.Fatalf("failed to decode noted garage car: %v", err)
	}
	if len(noted.Notes) != 1 || noted.Notes[0].Content != "Changed oil" {
		t.Fatalf("unexpected notes %+v", noted.Notes)
	}
	if noted.Notes[0].ID == "" || noted.Notes[0].Date.IsZero() {
		t.Fatalf("expected server-assigned note id and date, got %+v", noted.Notes[0])
	}

	// A second registered user must not see or touch alice's car.
	recorder = do(t, handler, http.MethodPost, "/auth/register", `{"username":"bob","password":"secret"}`, "")
	if recorder.Code != http.StatusCreated {
		t.Fatalf("second register failed with %d", recorder.Code)
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &tokenPayload); err != nil {
		t.Fatalf("failed to decode token payload: %v", err)
	}
	bobToken := tokenPayload.AccessToken

	recorder = do(t, handler, http.MethodGet, "/api/garage", "", bobToken)
	if recorder.Code != http.StatusOK {
		t.Fatalf("garage list failed with %d", recorder.Code)
	}
	if strings.TrimSpace(recorder.Body.String()) != "[]" {
		t.Fatalf("expected empty garage for bob, got %s", recorder.Body.String())
	}

	recorder = do(t, handler, http.MethodGet, "/api/garage/"+created.ID.Hex(), "", bobToken)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign car, got %d", recorder.Code)
	}
}
