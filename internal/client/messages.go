package client

import (
	"github.com/throttle-vault/vault/internal/catalog"
	"github.com/throttle-vault/vault/internal/garage"
)

// Msg is the closed set of store messages. Request messages originate from
// views; load/saved/deleted messages are internal continuations produced after
// an API call resolves.
type Msg interface {
	isMsg()
}

// CarModelRequested asks for the catalog document for a slug.
type CarModelRequested struct {
	Slug string
}

// CarModelLoaded delivers a fetched catalog document.
type CarModelLoaded struct {
	CarModel *catalog.CarModel
}

// GarageRequested asks for a fresh copy of the caller's garage.
type GarageRequested struct{}

// GarageLoaded delivers the fetched garage cars.
type GarageLoaded struct {
	Cars []garage.GarageCar
}

// GarageSaveRequested asks to create or update a garage car. Callbacks, when
// set, fire on the corresponding save outcome.
type GarageSaveRequested struct {
	Car       garage.GarageCar
	OnSuccess func()
	OnFailure func(error)
}

// GarageSaved delivers the persisted garage car after a save.
type GarageSaved struct {
	Car garage.GarageCar
}

// GarageDeleteRequested asks to delete a garage car by id.
type GarageDeleteRequested struct {
	ID string
}

// GarageDeleted confirms a deletion.
type GarageDeleted struct {
	ID string
}

func (CarModelRequested) isMsg()     {}
func (CarModelLoaded) isMsg()        {}
func (GarageRequested) isMsg()       {}
func (GarageLoaded) isMsg()          {}
func (GarageSaveRequested) isMsg()   {}
func (GarageSaved) isMsg()           {}
func (GarageDeleteRequested) isMsg() {}
func (GarageDeleted) isMsg()         {}
