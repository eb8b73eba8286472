package database

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskpilot/internal/config"
	"taskpilot/internal/models"
)

// MongoDBClient wraps the MongoDB client for best-effort state snapshots.
// The in-memory store is authoritative; the snapshot only survives restarts.
type MongoDBClient struct {
	client             *mongo.Client
	database           *mongo.Database
	snapshotCollection *mongo.Collection
}

// snapshotID and memoryID are the _ids of the two single-user documents
const (
	snapshotID = "state"
	memoryID   = "memory"
)

// StateSnapshot is the persisted copy of the in-memory state
type StateSnapshot struct {
	ID        string             `bson:"_id" json:"id"`
	Tasks     []models.Task      `bson:"tasks" json:"tasks"`
	Profile   models.UserProfile `bson:"profile" json:"profile"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// MemoryDocument is the persisted quiz history and mastery scores
type MemoryDocument struct {
	ID        string              `bson:"_id" json:"id"`
	History   []models.QuizRecord `bson:"history" json:"history"`
	Skills    map[string]float64  `bson:"skills" json:"skills"`
	UpdatedAt time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// NewMongoDBClient creates a new MongoDB client for state snapshots
func NewMongoDBClient(cfg config.MongoDBConfig) (*MongoDBClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Build connection URI
	uri := cfg.URI
	if uri == "" {
		if cfg.Username != "" && cfg.Password != "" {
			userInfo := url.UserPassword(cfg.Username, cfg.Password)
			uri = fmt.Sprintf("mongodb://%s@%s:%s/%s?authSource=%s",
				userInfo.String(),
				cfg.Host,
				cfg.Port,
				cfg.Database,
				url.QueryEscape(cfg.AuthSource),
			)
		} else {
			uri = fmt.Sprintf("mongodb://%s:%s/%s",
				cfg.Host,
				cfg.Port,
				cfg.Database,
			)
		}
	}

	// Mask password in log
	logURI := uri
	if cfg.Password != "" && cfg.Username != "" {
		logURI = fmt.Sprintf("mongodb://%s:***@%s:%s/%s?authSource=%s",
			url.User(cfg.Username).String(), cfg.Host, cfg.Port, cfg.Database, url.QueryEscape(cfg.AuthSource))
	}
	log.Printf("Attempting to connect to MongoDB at %s", logURI)

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB at %s: %w", logURI, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB at %s: %w", logURI, err)
	}

	database := client.Database(cfg.Database)
	log.Printf("Connected to MongoDB database %q", cfg.Database)

	return &MongoDBClient{
		client:             client,
		database:           database,
		snapshotCollection: database.Collection("snapshots"),
	}, nil
}

// SaveSnapshot upserts the current tasks and profile
func (m *MongoDBClient) SaveSnapshot(ctx context.Context, tasks []models.Task, profile models.UserProfile) error {
	snapshot := StateSnapshot{
		ID:        snapshotID,
		Tasks:     tasks,
		Profile:   profile,
		UpdatedAt: time.Now(),
	}

	opts := options.Replace().SetUpsert(true)
	_, err := m.snapshotCollection.ReplaceOne(ctx, bson.M{"_id": snapshotID}, snapshot, opts)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the persisted snapshot, or nil if none exists
func (m *MongoDBClient) LoadSnapshot(ctx context.Context) (*StateSnapshot, error) {
	var snapshot StateSnapshot
	err := m.snapshotCollection.FindOne(ctx, bson.M{"_id": snapshotID}).Decode(&snapshot)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return &snapshot, nil
}

// SaveMemory upserts the quiz history and mastery scores
func (m *MongoDBClient) SaveMemory(ctx context.Context, history []models.QuizRecord, skills map[string]float64) error {
	doc := MemoryDocument{
		ID:        memoryID,
		History:   history,
		Skills:    skills,
		UpdatedAt: time.Now(),
	}

	opts := options.Replace().SetUpsert(true)
	_, err := m.snapshotCollection.ReplaceOne(ctx, bson.M{"_id": memoryID}, doc, opts)
	if err != nil {
		return fmt.Errorf("failed to save memory: %w", err)
	}
	return nil
}

// LoadMemory returns the persisted memory document, or nil if none exists
func (m *MongoDBClient) LoadMemory(ctx context.Context) (*MemoryDocument, error) {
	var doc MemoryDocument
	err := m.snapshotCollection.FindOne(ctx, bson.M{"_id": memoryID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load memory: %w", err)
	}
	return &doc, nil
}

// Close disconnects from MongoDB
func (m *MongoDBClient) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
