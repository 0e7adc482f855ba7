package mongo

import (
	"context"
	"fmt"
	"time"

	"medical-records-sharing/internal/domain/accessgrants"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "sharing_activity"

type activityDoc struct {
	ID         primitive.ObjectID `bson:"_id"`
	Action     string             `bson:"action"`
	PatientID  string             `bson:"patient_id"`
	DoctorID   string             `bson:"doctor_id"`
	Category   string             `bson:"category,omitempty"`
	GrantID    string             `bson:"grant_id,omitempty"`
	ResourceID *string            `bson:"resource_id,omitempty"`
	Count      int                `bson:"count,omitempty"`
	At         time.Time          `bson:"performed_at"`
}

type inserter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// Recorder escribe el historial de compartidos en Mongo.
type Recorder struct {
	col inserter
}

var _ accessgrants.ActivityRecorder = (*Recorder)(nil)

func NewRecorder(col *mongo.Collection) *Recorder {
	return &Recorder{col: col}
}

// Connect abre el cliente y devuelve el recorder sobre db.sharing_activity.
func Connect(ctx context.Context, uri, db string) (*Recorder, *mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}
	return NewRecorder(client.Database(db).Collection(Collection)), client, nil
}

func toDoc(a accessgrants.Activity) activityDoc {
	return activityDoc{
		ID:         primitive.NewObjectID(),
		Action:     string(a.Action),
		PatientID:  a.PatientID,
		DoctorID:   a.DoctorID,
		Category:   string(a.Category),
		GrantID:    a.GrantID,
		ResourceID: a.ResourceID,
		Count:      a.Count,
		At:         a.At.UTC(),
	}
}

func (r *Recorder) Record(ctx context.Context, a accessgrants.Activity) error {
	if _, err := r.col.InsertOne(ctx, toDoc(a)); err != nil {
		return fmt.Errorf("insert %s activity: %w", a.Action, err)
	}
	return nil
}
