package garage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "garage_cars"

// ErrNotFound indicates no garage car exists for the id. Malformed ids are
// reported the same way so handlers answer a uniform 404.
var ErrNotFound = errors.New("garage: car not found")

// Store handles garage-car document CRUD in MongoDB. Nested note and
// service-log writes use atomic array operators so concurrent appends from two
// sessions cannot lose entries.
type Store struct {
	col   *mongo.Collection
	clock func() time.Time
}

// StoreConfig describes the dependencies for a garage store.
type StoreConfig struct {
	Database *mongo.Database
	Clock    func() time.Time
}

// NewStore constructs a garage store bound to the garage_cars collection.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Database == nil {
		return nil, errors.New("garage: mongo database required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		col:   cfg.Database.Collection(collectionName),
		clock: clock,
	}, nil
}

// ListByUser returns every garage car owned by the username, oldest first.
func (s *Store) ListByUser(ctx context.Context, username string) ([]GarageCar, error) {
	opts := options.Find().SetSort(bson.D{{Key: "dateAdded", Value: 1}})
	cur, err := s.col.Find(ctx, bson.M{"username": username}, opts)
	if err != nil {
		return nil, fmt.Errorf("garage: list for %q: %w", username, err)
	}
	defer cur.Close(ctx)

	var cars []GarageCar
	if err := cur.All(ctx, &cars); err != nil {
		return nil, fmt.Errorf("garage: decode list: %w", err)
	}
	return cars, nil
}

// Get returns the garage car for an id.
func (s *Store) Get(ctx context.Context, id string) (*GarageCar, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var car GarageCar
	err = s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&car)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("garage: get %q: %w", id, err)
	}
	return &car, nil
}

// Create persists a new garage car, stamping id, dateAdded, and empty arrays.
func (s *Store) Create(ctx context.Context, car *GarageCar) (*GarageCar, error) {
	car.ID = primitive.NewObjectID()
	car.DateAdded = s.clock().UTC()
	if car.Notes == nil {
		car.Notes = NoteList{}
	}
	if car.ServiceLogs == nil {
		car.ServiceLogs = []ServiceLog{}
	}
	if _, err := s.col.InsertOne(ctx, car); err != nil {
		return nil, fmt.Errorf("garage: create: %w", err)
	}
	return car, nil
}

// Update applies the scalar fields of car to the stored document. Notes and
// service logs are only replaced when the caller supplies them; they are
// normally mutated through the nested operations below.
func (s *Store) Update(ctx context.Context, id string, car *GarageCar) (*GarageCar, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	fields := bson.M{
		"username":  car.Username,
		"modelSlug": car.ModelSlug,
		"modelName": car.ModelName,
		"nickname":  car.Nickname,
		"year":      car.Year,
		"trim":      car.Trim,
	}
	if car.Mileage != nil {
		fields["mileage"] = *car.Mileage
	}
	if car.Notes != nil {
		fields["notes"] = car.Notes
	}
	if car.ServiceLogs != nil {
		fields["serviceLogs"] = car.ServiceLogs
	}

	return s.findAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": fields}, nil)
}

// Remove deletes the garage car for an id.
func (s *Store) Remove(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	result, err := s.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("garage: remove %q: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddNote atomically appends a note and returns the updated document.
func (s *Store) AddNote(ctx context.Context, id string, note Note) (*GarageCar, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.findAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$push": bson.M{"notes": note}}, nil)
}

// UpdateNote merges the patch into the note with the given id.
func (s *Store) UpdateNote(ctx context.Context, id, noteID string, patch NotePatch) (*GarageCar, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	fields := bson.M{}
	if patch.Content != nil {
		fields["notes.$[note].content"] = *patch.Content
	}
	if patch.Date != nil {
		fields["notes.$[note].date"] = *patch.Date
	}
	if len(fields) == 0 {
		return s.Get(ctx, id)
	}

	arrayFilters := options.ArrayFilters{
		Filters: []interface{}{bson.M{"note._id": noteID}},
	}
	return s.findAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": fields}, &arrayFilters)
}

// RemoveNote atomically removes the note with the given id.
func (s *Store) RemoveNote(ctx context.Context, id, noteID string) (*GarageCar, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	update := bson.M{"$pull": bson.M{"notes": bson.M{"_id": noteID}}}
	return s.findAndUpdate(ctx, bson.M{"_id": oid}, update, nil)
}

// AddServiceLog atomically appends a service log and returns the updated document.
func (s *Store) AddServiceLog(ctx context.Context, id string, log ServiceLog) (*GarageCar, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.findAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$push": bson.M{"serviceLogs": log}}, nil)
}

func (s *Store) findAndUpdate(ctx context.Context, filter, update bson.M, arrayFilters *options.ArrayFilters) (*GarageCar, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if arrayFilters != nil {
		opts.SetArrayFilters(*arrayFilters)
	}

	var car GarageCar
	err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&car)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("garage: update: %w", err)
	}
	return &car, nil
}
