package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultMongoDatabase   = "tilecraft"
	defaultMongoCollection = "item_counters"
)

// MongoRecorder хранит счётчики документами {_id: "<kind>/<item>", kind, item, count}
type MongoRecorder struct {
	client     *mongo.Client
	collection *mongo.Collection
	ctxTimeout time.Duration
}

type counterDoc struct {
	ID    string `bson:"_id"`
	Kind  string `bson:"kind"`
	Item  string `bson:"item"`
	Count int    `bson:"count"`
}

// NewMongoRecorder подключается к MongoDB и создаёт индекс по виду события.
// database пусто - "tilecraft".
func NewMongoRecorder(ctx context.Context, uri, database string) (*MongoRecorder, error) {
	if uri == "" {
		return nil, errors.New("mongo: не задан stats.dsn (mongodb://...)")
	}
	if database == "" {
		database = defaultMongoDatabase
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	m := &MongoRecorder{
		client:     client,
		collection: client.Database(database).Collection(defaultMongoCollection),
		ctxTimeout: 5 * time.Second,
	}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

func (m *MongoRecorder) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()
	_, err := m.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "kind", Value: 1}},
		Options: options.Index().SetName("kind_idx"),
	})
	if err != nil {
		return fmt.Errorf("mongo index: %w", err)
	}
	return nil
}

func counterID(kind EventKind, itemName string) string {
	return string(kind) + "/" + itemName
}

// Record увеличивает счётчик одним upsert с $inc
func (m *MongoRecorder) Record(ctx context.Context, kind EventKind, itemName string) error {
	if _, err := ParseKind(string(kind)); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	_, err := m.collection.UpdateOne(ctx,
		bson.M{"_id": counterID(kind, itemName)},
		bson.M{
			"$inc":         bson.M{"count": 1},
			"$setOnInsert": bson.M{"kind": string(kind), "item": itemName},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo $inc %s: %w", counterID(kind, itemName), err)
	}
	return nil
}

// Counts читает все документы вида kind
func (m *MongoRecorder) Counts(ctx context.Context, kind EventKind) (map[string]int, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	cur, err := m.collection.Find(ctx, bson.M{"kind": string(kind)})
	if err != nil {
		return nil, fmt.Errorf("mongo find %s: %w", kind, err)
	}
	var docs []counterDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode %s: %w", kind, err)
	}

	out := make(map[string]int, len(docs))
	for _, d := range docs {
		out[d.Item] = d.Count
	}
	return out, nil
}

// Close разрывает соединение
func (m *MongoRecorder) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
