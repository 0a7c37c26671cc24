package database

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MimirCommunity/MimirBot/pkg/models"
	"github.com/MimirCommunity/MimirBot/pkg/xp"
)

// Collection names
const (
	CollectionXPProgress       = "xp_progress"
	CollectionExcludedChannels = "xp_excluded_channels"
	CollectionGenance          = "genance_data"
	CollectionEvents           = "events"
	CollectionParticipations   = "participations"
	CollectionAbsenceChannel   = "absence_channel"
	CollectionAbsences         = "absences"
)

// XPStore persists XP progress and channel exclusions in MongoDB
type XPStore struct {
	progress *DataManager[models.UserProgress]
	excluded *DataManager[models.ExcludedChannel]
	now      func() time.Time
}

var _ xp.Store = (*XPStore)(nil)

// NewXPStore creates the MongoDB backed XP store
func NewXPStore(db *Database) *XPStore {
	return &XPStore{
		// XP is written by a raw pipeline update, caching it would go stale
		progress: NewDataManager[models.UserProgress](CollectionXPProgress, db, DataManagerOptions{}),
		excluded: NewDataManager[models.ExcludedChannel](CollectionExcludedChannels, db, DataManagerOptions{
			MaxCacheSize: 500,
			CacheMisses:  true,
		}),
		now: time.Now,
	}
}

// EnsureIndexes creates the unique member and exclusion indexes
func (s *XPStore) EnsureIndexes(ctx context.Context) error {
	if err := s.progress.EnsureIndexes(ctx,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "guild_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		mongo.IndexModel{
			Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "xp", Value: -1}},
		},
	); err != nil {
		return err
	}
	return s.excluded.EnsureIndexes(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "guild_id", Value: 1}, {Key: "channel_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
}

func memberQuery(guildID, userID string) bson.M {
	return bson.M{"guild_id": guildID, "user_id": userID}
}

// Progress returns the member record, inserting the zero record when absent
func (s *XPStore) Progress(ctx context.Context, guildID, userID string) (models.UserProgress, error) {
	p, err := s.progress.Update(ctx, memberQuery(guildID, userID), bson.M{
		"$setOnInsert": bson.M{"xp": int64(0), "level": int64(0), "updated_at": s.now()},
	})
	if err != nil {
		return models.UserProgress{}, err
	}
	return *p, nil
}

// xpPipeline adds delta, floors the result at zero and recomputes the level
// in the same server-side update, so xp and level never diverge.
func xpPipeline(delta int64, curve xp.Curve) mongo.Pipeline {
	level := bson.M{"$cond": bson.M{
		"if":   bson.M{"$lte": bson.A{"$xp", 0}},
		"then": int64(0),
		"else": bson.M{"$toLong": bson.M{"$floor": bson.M{"$add": bson.A{
			bson.M{"$pow": bson.A{"$xp", curve.Exponent()}},
			xp.LevelEpsilon,
		}}}},
	}}

	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"xp": bson.M{"$max": bson.A{
				int64(0),
				bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$xp", int64(0)}}, delta}},
			}},
		}}},
		{{Key: "$set", Value: bson.M{
			"level":      level,
			"updated_at": "$$NOW",
		}}},
	}
}

// AddXP applies delta atomically. The pre-image returned by MongoDB is the
// exact state this update started from; the post-image follows from it.
func (s *XPStore) AddXP(ctx context.Context, guildID, userID string, delta int64, curve xp.Curve) (xp.Update, error) {
	col, err := s.progress.Collection()
	if err != nil {
		return xp.Update{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	before := models.UserProgress{GuildID: guildID, UserID: userID}
	err = col.FindOneAndUpdate(ctx, memberQuery(guildID, userID), xpPipeline(delta, curve), opts).Decode(&before)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return xp.Update{}, err
	}

	after := before
	after.XP = max(0, before.XP+delta)
	after.Level = curve.Level(after.XP)
	after.UpdatedAt = s.now()

	return xp.Update{Before: before, After: after}, nil
}

// Top returns the highest ranked members of a guild
func (s *XPStore) Top(ctx context.Context, guildID string, limit int) ([]models.UserProgress, error) {
	return s.progress.Find(ctx,
		bson.M{"guild_id": guildID, "xp": bson.M{"$gt": 0}},
		FindOptions{
			Sort:  bson.D{{Key: "xp", Value: -1}, {Key: "user_id", Value: 1}},
			Limit: int64(limit),
		})
}

func channelQuery(guildID, channelID string) bson.M {
	return bson.M{"guild_id": guildID, "channel_id": channelID}
}

// IsChannelExcluded reports whether a channel is excluded from XP
func (s *XPStore) IsChannelExcluded(ctx context.Context, guildID, channelID string) (bool, error) {
	doc, err := s.excluded.Get(ctx, channelQuery(guildID, channelID))
	if err != nil {
		return false, err
	}
	return doc != nil, nil
}

// SetChannelExcluded adds or removes an exclusion marker
func (s *XPStore) SetChannelExcluded(ctx context.Context, guildID, channelID string, excluded bool) error {
	query := channelQuery(guildID, channelID)
	if !excluded {
		_, err := s.excluded.Delete(ctx, query)
		return err
	}
	_, err := s.excluded.Update(ctx, query, bson.M{
		"$setOnInsert": bson.M{"created_at": s.now()},
	})
	return err
}

// ExcludedChannels lists the excluded channels of a guild
func (s *XPStore) ExcludedChannels(ctx context.Context, guildID string) ([]string, error) {
	docs, err := s.excluded.Find(ctx, bson.M{"guild_id": guildID},
		FindOptions{Sort: bson.D{{Key: "channel_id", Value: 1}}})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ChannelID)
	}
	return ids, nil
}
