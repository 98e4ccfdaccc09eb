package session

import (
	"context"
	stderrors "errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/lanegrid/pkg/errors"
)

// Mongo defaults.
const (
	DefaultMongoDatabase   = "lanegrid"
	DefaultMongoCollection = "projects"
)

// MongoStore keeps one document per project, keyed by project name. Saves
// replace the document filtered on its previous version; first saves insert
// and rely on the unique _id.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	owned  bool
}

// MongoConfig configures NewMongoStore.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// NewMongoStore connects to MongoDB and pings the primary.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeStore, err, "ping mongodb")
	}
	s := NewMongoStoreFromClient(client, cfg.Database, cfg.Collection)
	s.owned = true
	return s, nil
}

// NewMongoStoreFromClient uses an existing client; Close leaves it
// connected. Empty names fall back to the defaults.
func NewMongoStoreFromClient(client *mongo.Client, database, collection string) *MongoStore {
	if database == "" {
		database = DefaultMongoDatabase
	}
	if collection == "" {
		collection = DefaultMongoCollection
	}
	return &MongoStore{client: client, coll: client.Database(database).Collection(collection)}
}

func (s *MongoStore) Load(ctx context.Context, project string) (*Document, error) {
	if err := checkProject(project); err != nil {
		return nil, err
	}
	var doc Document
	err := s.coll.FindOne(ctx, bson.M{"_id": project}).Decode(&doc)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return NewDocument(project), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "load project %s", project)
	}
	if doc.Model == nil {
		return nil, errors.New(errors.ErrCodeStore, "project %s has no model", project)
	}
	return &doc, nil
}

func (s *MongoStore) Save(ctx context.Context, doc *Document) error {
	if err := checkDocument(doc); err != nil {
		return err
	}
	version, at := committed(doc, time.Now())
	next := Document{Project: doc.Project, Version: version, UpdatedAt: at, Model: doc.Model}

	if doc.Version == 0 {
		if _, err := s.coll.InsertOne(ctx, next); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrConflict
			}
			return errors.Wrap(errors.ErrCodeStore, err, "insert project %s", doc.Project)
		}
	} else {
		res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": doc.Project, "version": doc.Version}, next)
		if err != nil {
			return errors.Wrap(errors.ErrCodeStore, err, "replace project %s", doc.Project)
		}
		if res.MatchedCount == 0 {
			return ErrConflict
		}
	}
	doc.Version, doc.UpdatedAt = version, at
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, project string) error {
	if err := checkProject(project); err != nil {
		return err
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": project})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "delete project %s", project)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context) ([]string, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list projects")
	}
	var rows []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list projects")
	}
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.ID
	}
	return sortedNames(names), nil
}

// Close disconnects the client if the store created it.
func (s *MongoStore) Close() error {
	if !s.owned {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
