package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MimirCommunity/MimirBot/pkg/logger"
)

// DataManagerOptions contains configuration for a DataManager
type DataManagerOptions struct {
	// MaxCacheSize bounds the LRU cache, 0 disables it
	MaxCacheSize int
	// CacheMisses also remembers queries that matched nothing
	CacheMisses bool
}

// DefaultDataManagerOptions returns default options for DataManager
func DefaultDataManagerOptions() DataManagerOptions {
	return DataManagerOptions{MaxCacheSize: 1000}
}

// FindOptions narrows a Find call
type FindOptions struct {
	Sort  bson.D
	Limit int64
}

// DataManager provides typed, cached access to one collection. The cache
// is keyed by the exact query used, so reads and writes of a document must
// use the same query shape.
type DataManager[T any] struct {
	name    string
	db      *Database
	options DataManagerOptions
	cache   *lruCache[T]
}

// NewDataManager creates a DataManager for a collection
func NewDataManager[T any](collectionName string, db *Database, opts ...DataManagerOptions) *DataManager[T] {
	dmOptions := DefaultDataManagerOptions()
	if len(opts) > 0 {
		dmOptions = opts[0]
	}

	return &DataManager[T]{
		name:    collectionName,
		db:      db,
		options: dmOptions,
		cache:   newLRUCache[T](dmOptions.MaxCacheSize),
	}
}

// Name returns the collection name
func (dm *DataManager[T]) Name() string {
	return dm.name
}

// Collection returns the underlying collection or ErrNotConnected
func (dm *DataManager[T]) Collection() (*mongo.Collection, error) {
	if !dm.db.Connected() {
		return nil, ErrNotConnected
	}
	col := dm.db.GetCollection(dm.name)
	if col == nil {
		return nil, ErrNotConnected
	}
	return col, nil
}

// Get returns the document matching query, nil when there is none
func (dm *DataManager[T]) Get(ctx context.Context, query bson.M) (*T, error) {
	key := cacheKey(dm.name, query)
	if v, ok := dm.cache.get(key); ok {
		return v, nil
	}

	col, err := dm.Collection()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	var result T
	if err := col.FindOne(ctx, query).Decode(&result); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if dm.options.CacheMisses {
				dm.cache.put(key, nil)
			}
			return nil, nil
		}
		logger.Warn(fmt.Sprintf("Lecture impossible dans '%s' : %v", dm.name, err), "DataManager")
		return nil, err
	}

	dm.cache.put(key, &result)
	return &result, nil
}

// Find returns every document matching query. Results are not cached.
func (dm *DataManager[T]) Find(ctx context.Context, query bson.M, fo ...FindOptions) ([]T, error) {
	col, err := dm.Collection()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*operationTimeout)
	defer cancel()

	opts := options.Find()
	if len(fo) > 0 {
		if fo[0].Sort != nil {
			opts.SetSort(fo[0].Sort)
		}
		if fo[0].Limit > 0 {
			opts.SetLimit(fo[0].Limit)
		}
	}

	cursor, err := col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	results := make([]T, 0)
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Set upserts data with $set and returns the stored document
func (dm *DataManager[T]) Set(ctx context.Context, query bson.M, data interface{}) (*T, error) {
	return dm.Update(ctx, query, bson.M{"$set": data})
}

// Update applies an arbitrary update document as an upsert and returns the
// stored document
func (dm *DataManager[T]) Update(ctx context.Context, query bson.M, update interface{}) (*T, error) {
	key := cacheKey(dm.name, query)

	col, err := dm.Collection()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var result T
	if err := col.FindOneAndUpdate(ctx, query, update, opts).Decode(&result); err != nil {
		dm.cache.remove(key)
		logger.Error(fmt.Sprintf("Écriture impossible dans '%s' : %v", dm.name, err), "DataManager")
		return nil, err
	}

	dm.cache.put(key, &result)
	return &result, nil
}

// Insert stores a new document
func (dm *DataManager[T]) Insert(ctx context.Context, doc *T) error {
	col, err := dm.Collection()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	_, err = col.InsertOne(ctx, doc)
	return err
}

// Delete removes the document matching query and reports whether one existed
func (dm *DataManager[T]) Delete(ctx context.Context, query bson.M) (bool, error) {
	dm.cache.remove(cacheKey(dm.name, query))

	col, err := dm.Collection()
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	res, err := col.DeleteOne(ctx, query)
	if err != nil {
		logger.Error(fmt.Sprintf("Suppression impossible dans '%s' : %v", dm.name, err), "DataManager")
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// DeleteMany removes every matching document and drops the whole cache,
// since cached queries may overlap the deleted set
func (dm *DataManager[T]) DeleteMany(ctx context.Context, query bson.M) (int64, error) {
	dm.cache.clear()

	col, err := dm.Collection()
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*operationTimeout)
	defer cancel()

	res, err := col.DeleteMany(ctx, query)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ClearCache clears the cache
func (dm *DataManager[T]) ClearCache() {
	dm.cache.clear()
}

// CacheSize returns the current cache size
func (dm *DataManager[T]) CacheSize() int {
	return dm.cache.size()
}

// EnsureIndexes creates the given indexes on the collection
func (dm *DataManager[T]) EnsureIndexes(ctx context.Context, models ...mongo.IndexModel) error {
	col, err := dm.Collection()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*operationTimeout)
	defer cancel()

	if _, err := col.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("index %s: %w", dm.name, err)
	}
	return nil
}
