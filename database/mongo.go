package database

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	UsersCollection = "users"
	TasksCollection = "tasks"

	defaultMongoDBName = "tms"
)

// Mongo, MongoDB client'ı ve uygulamanın kullandığı database'i tutar.
type Mongo struct {
	Client *mongodriver.Client
	DB     *mongodriver.Database
}

// NewMongo, MongoDB'ye bağlanır, ping atar ve index'leri oluşturur.
// Database adı URI'nin path kısmından okunur (mongodb://host/tms → "tms").
func NewMongo(ctx context.Context, uri string) (*Mongo, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo: empty connection uri")
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	m := &Mongo{Client: cli, DB: cli.Database(databaseFromURI(uri))}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = m.Close(context.Background())
		return nil, err
	}

	log.Printf("[database] mongo connected (db=%s)", m.DB.Name())
	return m, nil
}

// Close, client bağlantısını kapatır.
func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// ensureIndexes:
//   - users.email unique
//   - tasks: userId + dueDate (liste ve arama sıralaması)
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	if _, err := m.DB.Collection(UsersCollection).Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("uniq_email").SetUnique(true),
	}); err != nil {
		return fmt.Errorf("mongo ensure users indexes: %w", err)
	}

	if _, err := m.DB.Collection(TasksCollection).Indexes().CreateMany(ctx, []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "dueDate", Value: 1}},
			Options: options.Index().SetName("user_due"),
		},
	}); err != nil {
		return fmt.Errorf("mongo ensure tasks indexes: %w", err)
	}

	return nil
}

func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}
	return defaultMongoDBName
}
