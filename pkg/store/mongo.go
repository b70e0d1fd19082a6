package store

import (
	"context"
	stderrors "errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/graph"
)

// MongoOptions configures [NewMongo].
type MongoOptions struct {
	URI        string
	Database   string
	Collection string
	// Timeout bounds connect and ping; zero means 10s.
	Timeout time.Duration
}

// treeDocument is the stored shape of one tree.
type treeDocument struct {
	ID        string          `bson:"_id"`
	Version   int             `bson:"version"`
	Members   []family.Member `bson:"members"`
	UpdatedAt time.Time       `bson:"updated_at"`
}

func newTreeDocument(treeID string, r *family.Roster, now time.Time) treeDocument {
	doc := graph.NewDocument(treeID, r)
	return treeDocument{ID: treeID, Version: doc.Version, Members: doc.Members, UpdatedAt: now.UTC()}
}

func (d treeDocument) roster() *family.Roster {
	if d.Members == nil {
		return emptyRoster()
	}
	return family.NewRoster(d.Members...)
}

// Mongo stores one document per tree, keyed by tree id.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongo connects and pings the server.
func NewMongo(ctx context.Context, opts MongoOptions) (*Mongo, error) {
	if opts.URI == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "mongo uri is required")
	}
	if opts.Database == "" {
		opts.Database = "legacylink"
	}
	if opts.Collection == "" {
		opts.Collection = "trees"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect to mongo")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "ping mongo")
	}
	return &Mongo{
		client: client,
		coll:   client.Database(opts.Database).Collection(opts.Collection),
	}, nil
}

func (s *Mongo) Load(ctx context.Context, treeID string) (*family.Roster, error) {
	if err := checkTree(treeID); err != nil {
		return nil, err
	}
	var doc treeDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": treeID}).Decode(&doc)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return emptyRoster(), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "load tree %s", treeID)
	}
	return doc.roster(), nil
}

func (s *Mongo) Save(ctx context.Context, treeID string, r *family.Roster) error {
	if err := checkTree(treeID); err != nil {
		return err
	}
	doc := newTreeDocument(treeID, r, time.Now())
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": treeID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "save tree %s", treeID)
	}
	return nil
}

func (s *Mongo) List(ctx context.Context) ([]string, error) {
	findOpts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.D{}, findOpts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list trees")
	}
	defer cur.Close(ctx)

	ids := []string{}
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "decode tree id")
		}
		ids = append(ids, row.ID)
	}
	return ids, cur.Err()
}

func (s *Mongo) Delete(ctx context.Context, treeID string) error {
	if err := checkTree(treeID); err != nil {
		return err
	}
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": treeID}); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "delete tree %s", treeID)
	}
	return nil
}

func (s *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ RosterStore = (*Mongo)(nil)
