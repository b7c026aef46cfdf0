// Package client is the Go SDK for the Throttle Vault API. It mirrors the
// browser app's data flow: views dispatch messages into a Store, a pure
// reducer turns them into model updates and pending API effects, and resolved
// effects feed follow-up messages back into the Store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/throttle-vault/vault/internal/catalog"
	"github.com/throttle-vault/vault/internal/garage"
)

// ErrUnauthorized indicates the server rejected the caller's credentials.
var ErrUnauthorized = errors.New("client: unauthorized")

// StatusError reports an unexpected HTTP status from the API.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("client: unexpected status %d", e.Status)
}

// Auth carries the caller's identity. A zero token still issues the request;
// the server decides authorization.
type Auth struct {
	Username string
	Token    string
}

// SaveCallbacks are invoked around a garage save: OnFailure before the error
// is returned, OnSuccess after a successful parse.
type SaveCallbacks struct {
	OnSuccess func()
	OnFailure func(error)
}

// Client performs authenticated HTTP calls against the REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs an API client. A nil httpClient falls back to
// http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// RequestCarModel fetches the full catalog document for a slug.
func (c *Client) RequestCarModel(ctx context.Context, slug string, auth Auth) (*catalog.CarModel, error) {
	response, err := c.do(ctx, http.MethodGet, "/api/cars/"+slug, nil, auth)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, &StatusError{Status: response.StatusCode}
	}

	var model catalog.CarModel
	if err := json.NewDecoder(response.Body).Decode(&model); err != nil {
		return nil, fmt.Errorf("client: decode car model: %w", err)
	}
	return &model, nil
}

// RequestGarage fetches the caller's garage cars.
func (c *Client) RequestGarage(ctx context.Context, auth Auth) ([]garage.GarageCar, error) {
	response, err := c.do(ctx, http.MethodGet, "/api/garage", nil, auth)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	switch response.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	default:
		return nil, &StatusError{Status: response.StatusCode}
	}

	var cars []garage.GarageCar
	if err := json.NewDecoder(response.Body).Decode(&cars); err != nil {
		return nil, fmt.Errorf("client: decode garage: %w", err)
	}
	return cars, nil
}

// SaveGarageCar creates the car when it carries no id and updates it
// otherwise. Callbacks fire on the corresponding outcome.
func (c *Client) SaveGarageCar(ctx context.Context, car garage.GarageCar, auth Auth, callbacks SaveCallbacks) (*garage.GarageCar, error) {
	saved, err := c.saveGarageCar(ctx, car, auth)
	if err != nil {
		if callbacks.OnFailure != nil {
			callbacks.OnFailure(err)
		}
		return nil, err
	}
	if callbacks.OnSuccess != nil {
		callbacks.OnSuccess()
	}
	return saved, nil
}

func (c *Client) saveGarageCar(ctx context.Context, car garage.GarageCar, auth Auth) (*garage.GarageCar, error) {
	method := http.MethodPost
	path := "/api/garage"
	if !car.ID.IsZero() {
		method = http.MethodPut
		path = "/api/garage/" + car.ID.Hex()
	}

	body, err := json.Marshal(car)
	if err != nil {
		return nil, fmt.Errorf("client: encode garage car: %w", err)
	}

	response, err := c.do(ctx, method, path, bytes.NewReader(body), auth)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK && response.StatusCode != http.StatusCreated {
		return nil, &StatusError{Status: response.StatusCode}
	}

	var saved garage.GarageCar
	if err := json.NewDecoder(response.Body).Decode(&saved); err != nil {
		return nil, fmt.Errorf("client: decode saved garage car: %w", err)
	}
	return &saved, nil
}

// DeleteGarageCar removes the caller's garage car by id.
func (c *Client) DeleteGarageCar(ctx context.Context, id string, auth Auth) error {
	response, err := c.do(ctx, http.MethodDelete, "/api/garage/"+id, nil, auth)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK && response.StatusCode != http.StatusNoContent {
		return &StatusError{Status: response.StatusCode}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body *bytes.Reader, auth Auth) (*http.Response, error) {
	var request *http.Request
	var err error
	if body != nil {
		request, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	} else {
		request, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}

	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if auth.Token != "" {
		request.Header.Set("Authorization", "Bearer "+auth.Token)
	}

	response, err := c.http.Do(request)
	if err != nil {
		return nil, fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	return response, nil
}
