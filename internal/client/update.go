package client

import (
	"context"
	"fmt"

	"github.com/throttle-vault/vault/internal/catalog"
	"github.com/throttle-vault/vault/internal/garage"
)

// Model is the application snapshot shared by all views. A nil CarModel means
// no detail document is loaded (or one is loading); a nil GarageCars slice
// means the garage has not been fetched yet.
type Model struct {
	CarModel   *catalog.CarModel
	GarageCars []garage.GarageCar
}

// Effect is a pending asynchronous operation that resolves to a follow-up
// message. The Store awaits it and re-dispatches the result.
type Effect func(ctx context.Context) (Msg, error)

// Update is the pure reducer: it maps a message and the current model to the
// next model, plus an optional pending effect. Unknown message types are a
// programmer error and panic.
func Update(msg Msg, model Model, auth Auth, api *Client) (Model, Effect) {
	switch message := msg.(type) {
	case CarModelRequested:
		// Skip the fetch when the requested model is already loaded.
		if model.CarModel != nil && model.CarModel.Slug == message.Slug {
			return model, nil
		}
		model.CarModel = nil
		slug := message.Slug
		return model, func(ctx context.Context) (Msg, error) {
			carModel, err := api.RequestCarModel(ctx, slug, auth)
			if err != nil {
				return nil, err
			}
			return CarModelLoaded{CarModel: carModel}, nil
		}

	case CarModelLoaded:
		model.CarModel = message.CarModel
		return model, nil

	case GarageRequested:
		// Garage data is always re-fetched; no memoization.
		return model, func(ctx context.Context) (Msg, error) {
			cars, err := api.RequestGarage(ctx, auth)
			if err != nil {
				return nil, err
			}
			return GarageLoaded{Cars: cars}, nil
		}

	case GarageLoaded:
		model.GarageCars = message.Cars
		return model, nil

	case GarageSaveRequested:
		car := message.Car
		callbacks := SaveCallbacks{OnSuccess: message.OnSuccess, OnFailure: message.OnFailure}
		return model, func(ctx context.Context) (Msg, error) {
			saved, err := api.SaveGarageCar(ctx, car, auth, callbacks)
			if err != nil {
				return nil, err
			}
			return GarageSaved{Car: *saved}, nil
		}

	case GarageSaved:
		model.GarageCars = upsertCar(model.GarageCars, message.Car)
		return model, nil

	case GarageDeleteRequested:
		id := message.ID
		return model, func(ctx context.Context) (Msg, error) {
			if err := api.DeleteGarageCar(ctx, id, auth); err != nil {
				return nil, err
			}
			return GarageDeleted{ID: id}, nil
		}

	case GarageDeleted:
		model.GarageCars = removeCar(model.GarageCars, message.ID)
		return model, nil

	default:
		panic(fmt.Sprintf("unhandled store message %T", msg))
	}
}

// upsertCar replaces the entry with a matching id in place, or appends when no
// entry matches. Order is preserved either way.
func upsertCar(cars []garage.GarageCar, car garage.GarageCar) []garage.GarageCar {
	next := make([]garage.GarageCar, len(cars))
	copy(next, cars)
	for i := range next {
		if next[i].ID == car.ID {
			next[i] = car
			return next
		}
	}
	return append(next, car)
}

func removeCar(cars []garage.GarageCar, id string) []garage.GarageCar {
	next := make([]garage.GarageCar, 0, len(cars))
	for _, car := range cars {
		if car.ID.Hex() == id {
			continue
		}
		next = append(next, car)
	}
	return next
}
