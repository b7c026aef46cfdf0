package garage

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GarageCar is one owned vehicle in a user's garage. Username and modelSlug
// are denormalized references; ownership is enforced in handler code, not by
// the database.
type GarageCar struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Username    string             `bson:"username" json:"username"`
	ModelSlug   string             `bson:"modelSlug" json:"modelSlug"`
	ModelName   string             `bson:"modelName" json:"modelName"`
	Nickname    string             `bson:"nickname" json:"nickname"`
	Year        int                `bson:"year" json:"year"`
	Trim        string             `bson:"trim" json:"trim"`
	Mileage     *int               `bson:"mileage,omitempty" json:"mileage,omitempty"`
	Notes       NoteList           `bson:"notes" json:"notes"`
	ServiceLogs []ServiceLog       `bson:"serviceLogs" json:"serviceLogs"`
	DateAdded   time.Time          `bson:"dateAdded" json:"dateAdded"`
}

// Note is one dated free-text note attached to a garage car.
type Note struct {
	ID      string    `bson:"_id" json:"_id"`
	Date    time.Time `bson:"date" json:"date"`
	Content string    `bson:"content" json:"content"`
}

// NotePatch carries the fields of a note update; nil fields are left as-is.
type NotePatch struct {
	Content *string
	Date    *time.Time
}

// ServiceLog is one maintenance record attached to a garage car.
type ServiceLog struct {
	ID      string    `bson:"_id" json:"_id"`
	Date    time.Time `bson:"date" json:"date"`
	Service string    `bson:"service" json:"service"`
	Mileage *int      `bson:"mileage,omitempty" json:"mileage,omitempty"`
	Cost    *float64  `bson:"cost,omitempty" json:"cost,omitempty"`
	Notes   string    `bson:"notes,omitempty" json:"notes,omitempty"`
}

// NoteList is the canonical array-of-notes representation. Documents written
// by the legacy schema stored notes as a bare string; those decode as a single
// dateless note so old garages keep loading.
type NoteList []Note

// UnmarshalBSONValue accepts both the canonical array shape and the legacy
// string shape.
func (nl *NoteList) UnmarshalBSONValue(valueType bsontype.Type, data []byte) error {
	switch valueType {
	case bson.TypeNull, bson.TypeUndefined:
		*nl = nil
		return nil
	case bson.TypeString:
		raw := bson.RawValue{Type: valueType, Value: data}
		content := strings.TrimSpace(raw.StringValue())
		if content == "" {
			*nl = NoteList{}
			return nil
		}
		*nl = NoteList{{ID: "legacy", Content: content}}
		return nil
	case bson.TypeArray:
		var notes []Note
		if err := bson.UnmarshalValue(valueType, data, &notes); err != nil {
			return err
		}
		*nl = NoteList(notes)
		return nil
	default:
		return fmt.Errorf("garage: cannot decode notes from bson type %s", valueType)
	}
}
