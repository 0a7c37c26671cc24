// Package database provides the MongoDB connection, a cached generic
// DataManager and the collections the bot persists to.
package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/MimirCommunity/MimirBot/pkg/logger"
)

// ErrNotConnected is returned by every operation while MongoDB is unreachable
var ErrNotConnected = errors.New("database: not connected")

const (
	connectTimeout   = 5 * time.Second
	reconnectEvery   = 15 * time.Second
	operationTimeout = 5 * time.Second
)

// Database manages the MongoDB connection
type Database struct {
	mu          sync.RWMutex
	client      *mongo.Client
	db          *mongo.Database
	uri         string
	name        string
	connected   bool
	collections map[string]*mongo.Collection

	stopMonitor chan struct{}
	stopOnce    sync.Once
	monitorOnce sync.Once
}

var (
	database *Database
	dbOnce   sync.Once
)

// Init connects the global database instance. A failed first connection
// still returns the instance: it keeps retrying in the background.
func Init(ctx context.Context, mongoURL, dbName string) (*Database, error) {
	var err error
	dbOnce.Do(func() {
		database = NewDatabase(mongoURL, dbName)
		err = database.Connect(ctx)
	})
	return database, err
}

// Get returns the global database instance
func Get() *Database {
	return database
}

// NewDatabase creates a disconnected Database
func NewDatabase(mongoURL, dbName string) *Database {
	return &Database{
		uri:         mongoURL,
		name:        dbName,
		collections: make(map[string]*mongo.Collection),
		stopMonitor: make(chan struct{}),
	}
}

// Connect establishes the connection and starts the health monitor
func (d *Database) Connect(ctx context.Context) error {
	defer d.monitorOnce.Do(func() { go d.monitor() })
	return d.connect(ctx)
}

func (d *Database) connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return nil
	}

	logger.System("Connexion à la base de données...", "DB")

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if d.client == nil {
		client, err := mongo.Connect(ctx, options.Client().
			ApplyURI(d.uri).
			SetServerSelectionTimeout(connectTimeout))
		if err != nil {
			logger.Critical(fmt.Sprintf("Connexion à la base de données impossible : %v", err), "DB")
			return err
		}
		d.client = client
		d.db = client.Database(d.name)
		d.collections = make(map[string]*mongo.Collection)
	}

	if err := d.client.Ping(ctx, readpref.Primary()); err != nil {
		logger.Critical(fmt.Sprintf("La base de données ne répond pas : %v", err), "DB")
		return err
	}

	d.connected = true
	logger.Success("Connecté à la base de données", "DB")
	return nil
}

// monitor pings the server periodically, flips the connected flag and
// retries while the server is gone.
func (d *Database) monitor() {
	ticker := time.NewTicker(reconnectEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !d.Connected() {
				logger.Info("Nouvelle tentative de connexion à la base de données...", "DB")
				_ = d.connect(context.Background())
				continue
			}
			if _, err := d.Ping(context.Background()); err != nil {
				d.mu.Lock()
				d.connected = false
				d.mu.Unlock()
				logger.Warn("Connexion à la base de données perdue", "DB")
			}
		case <-d.stopMonitor:
			return
		}
	}
}

// Connected reports whether the last connection check succeeded
func (d *Database) Connected() bool {
	if d == nil {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Disconnect stops the monitor and closes the connection
func (d *Database) Disconnect(ctx context.Context) error {
	d.stopOnce.Do(func() { close(d.stopMonitor) })

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := d.client.Disconnect(ctx); err != nil {
		return err
	}
	d.client = nil
	d.db = nil
	d.connected = false
	logger.Warn("Base de données déconnectée", "DB")
	return nil
}

// Ping measures the database response time
func (d *Database) Ping(ctx context.Context) (time.Duration, error) {
	d.mu.RLock()
	client := d.client
	d.mu.RUnlock()

	if client == nil {
		return 0, ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := client.Ping(ctx, readpref.Primary())
	return time.Since(start), err
}

// GetStatus returns a human readable connection status
func (d *Database) GetStatus(ctx context.Context) (string, bool) {
	if d == nil {
		return "🔴 | Déconnectée", false
	}
	if _, err := d.Ping(ctx); err != nil {
		return "🔴 | Déconnectée", false
	}
	return "🟢 | En ligne", true
}

// GetCollection returns a MongoDB collection, nil before the first
// successful connection.
func (d *Database) GetCollection(name string) *mongo.Collection {
	d.mu.RLock()
	col, ok := d.collections[name]
	db := d.db
	d.mu.RUnlock()
	if ok {
		return col
	}
	if db == nil {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if col, ok := d.collections[name]; ok {
		return col
	}
	col = db.Collection(name)
	d.collections[name] = col
	return col
}

// Client returns the underlying MongoDB client
func (d *Database) Client() *mongo.Client {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.client
}

// DB returns the underlying MongoDB database
func (d *Database) DB() *mongo.Database {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}
