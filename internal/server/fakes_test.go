package server

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/throttle-vault/vault/internal/accounts"
	"github.com/throttle-vault/vault/internal/catalog"
	"github.com/throttle-vault/vault/internal/garage"
)

// memCatalog is an in-memory CatalogStore used by router tests.
type memCatalog struct {
	models []catalog.CarModel
	fail   error
}

func (m *memCatalog) List(context.Context) ([]catalog.Summary, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	summaries := make([]catalog.Summary, 0, len(m.models))
	for _, model := range m.models {
		summaries = append(summaries, model.Summarize())
	}
	return summaries, nil
}

func (m *memCatalog) Get(_ context.Context, slug string) (*catalog.CarModel, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	for i := range m.models {
		if m.models[i].Slug == slug {
			model := m.models[i]
			return &model, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (m *memCatalog) Create(_ context.Context, model *catalog.CarModel) (*catalog.CarModel, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	for i := range m.models {
		if m.models[i].Slug == model.Slug {
			return nil, catalog.ErrDuplicateSlug
		}
	}
	m.models = append(m.models, *model)
	return model, nil
}

func (m *memCatalog) Update(_ context.Context, slug string, model *catalog.CarModel) (*catalog.CarModel, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	for i := range m.models {
		if m.models[i].Slug == slug {
			model.Slug = slug
			m.models[i] = *model
			return model, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (m *memCatalog) Remove(_ context.Context, slug string) error {
	if m.fail != nil {
		return m.fail
	}
	for i := range m.models {
		if m.models[i].Slug == slug {
			m.models = append(m.models[:i], m.models[i+1:]...)
			return nil
		}
	}
	return catalog.ErrNotFound
}

// memGarage is an in-memory GarageStore used by router tests.
type memGarage struct {
	cars []garage.GarageCar
}

func (m *memGarage) ListByUser(_ context.Context, username string) ([]garage.GarageCar, error) {
	var owned []garage.GarageCar
	for _, car := range m.cars {
		if car.Username == username {
			owned = append(owned, car)
		}
	}
	return owned, nil
}

func (m *memGarage) Get(_ context.Context, id string) (*garage.GarageCar, error) {
	for i := range m.cars {
		if m.cars[i].ID.Hex() == id {
			car := m.cars[i]
			return &car, nil
		}
	}
	return nil, garage.ErrNotFound
}

func (m *memGarage) Create(_ context.Context, car *garage.GarageCar) (*garage.GarageCar, error) {
	car.ID = primitive.NewObjectID()
	car.DateAdded = time.Now().UTC()
	if car.Notes == nil {
		car.Notes = garage.NoteList{}
	}
	if car.ServiceLogs == nil {
		car.ServiceLogs = []garage.ServiceLog{}
	}
	m.cars = append(m.cars, *car)
	created := *car
	return &created, nil
}

func (m *memGarage) Update(_ context.Context, id string, car *garage.GarageCar) (*garage.GarageCar, error) {
	for i := range m.cars {
		if m.cars[i].ID.Hex() == id {
			existing := &m.cars[i]
			existing.Username = car.Username
			existing.ModelSlug = car.ModelSlug
			existing.ModelName = car.ModelName
			existing.Nickname = car.Nickname
			existing.Year = car.Year
			existing.Trim = car.Trim
			if car.Mileage != nil {
				existing.Mileage = car.Mileage
			}
			updated := *existing
			return &updated, nil
		}
	}
	return nil, garage.ErrNotFound
}

func (m *memGarage) Remove(_ context.Context, id string) error {
	for i := range m.cars {
		if m.cars[i].ID.Hex() == id {
			m.cars = append(m.cars[:i], m.cars[i+1:]...)
			return nil
		}
	}
	return garage.ErrNotFound
}

func (m *memGarage) AddNote(_ context.Context, id string, note garage.Note) (*garage.GarageCar, error) {
	for i := range m.cars {
		if m.cars[i].ID.Hex() == id {
			m.cars[i].Notes = append(m.cars[i].Notes, note)
			car := m.cars[i]
			return &car, nil
		}
	}
	return nil, garage.ErrNotFound
}

func (m *memGarage) UpdateNote(_ context.Context, id, noteID string, patch garage.NotePatch) (*garage.GarageCar, error) {
	for i := range m.cars {
		if m.cars[i].ID.Hex() == id {
			for j := range m.cars[i].Notes {
				if m.cars[i].Notes[j].ID == noteID {
					if patch.Content != nil {
						m.cars[i].Notes[j].Content = *patch.Content
					}
					if patch.Date != nil {
						m.cars[i].Notes[j].Date = *patch.Date
					}
				}
			}
			car := m.cars[i]
			return &car, nil
		}
	}
	return nil, garage.ErrNotFound
}

func (m *memGarage) RemoveNote(_ context.Context, id, noteID string) (*garage.GarageCar, error) {
	for i := range m.cars {
		if m.cars[i].ID.Hex() == id {
			kept := m.cars[i].Notes[:0]
			for _, note := range m.cars[i].Notes {
				if note.ID != noteID {
					kept = append(kept, note)
				}
			}
			m.cars[i].Notes = kept
			car := m.cars[i]
			return &car, nil
		}
	}
	return nil, garage.ErrNotFound
}

func (m *memGarage) AddServiceLog(_ context.Context, id string, log garage.ServiceLog) (*garage.GarageCar, error) {
	for i := range m.cars {
		if m.cars[i].ID.Hex() == id {
			m.cars[i].ServiceLogs = append(m.cars[i].ServiceLogs, log)
			car := m.cars[i]
			return &car, nil
		}
	}
	return nil, garage.ErrNotFound
}

// staticAccounts accepts a fixed set of username/password pairs.
type staticAccounts struct {
	registered map[string]string
}

func (s *staticAccounts) Register(_ context.Context, username, password string) (*accounts.Account, error) {
	if s.registered == nil {
		s.registered = map[string]string{}
	}
	if _, exists := s.registered[username]; exists {
		return nil, accounts.ErrUsernameTaken
	}
	s.registered[username] = password
	return &accounts.Account{Username: username}, nil
}

func (s *staticAccounts) Authenticate(_ context.Context, username, password string) (*accounts.Account, error) {
	if stored, ok := s.registered[username]; ok && stored == password {
		return &accounts.Account{Username: username}, nil
	}
	return nil, accounts.ErrInvalidCredentials
}

// staticTokens validates tokens of the form "token-<username>".
type staticTokens struct{}

func (staticTokens) IssueToken(_ context.Context, username string) (string, int64, error) {
	return "token-" + username, 1800, nil
}

func (staticTokens) ValidateToken(token string) (string, error) {
	const prefix = "token-"
	if len(token) > len(prefix) && token[:len(prefix)] == prefix {
		return token[len(prefix):], nil
	}
	return "", errors.New("invalid token")
}
