package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/MimirCommunity/MimirBot/pkg/models"
)

// AbsenceService stores declared absences and the channel they are posted in
type AbsenceService struct {
	channels *DataManager[models.AbsenceChannel]
	absences *DataManager[models.Absence]
}

// NewAbsenceService creates the service over absence_channel and absences
func NewAbsenceService(db *Database) *AbsenceService {
	return &AbsenceService{
		channels: NewDataManager[models.AbsenceChannel](CollectionAbsenceChannel, db, DataManagerOptions{MaxCacheSize: 100}),
		absences: NewDataManager[models.Absence](CollectionAbsences, db, DataManagerOptions{}),
	}
}

// SetChannel stores the announce channel of a guild
func (s *AbsenceService) SetChannel(ctx context.Context, guildID, channelID string) error {
	_, err := s.channels.Set(ctx, bson.M{"guild_id": guildID}, bson.M{"channel_id": channelID})
	return err
}

// Channel returns the announce channel of a guild, "" when unset
func (s *AbsenceService) Channel(ctx context.Context, guildID string) (string, error) {
	doc, err := s.channels.Get(ctx, bson.M{"guild_id": guildID})
	if err != nil || doc == nil {
		return "", err
	}
	return doc.ChannelID, nil
}

// Add records an absence
func (s *AbsenceService) Add(ctx context.Context, a models.Absence) error {
	return s.absences.Insert(ctx, &a)
}

// RemoveForUser deletes every absence of a member and returns them, so the
// announces can be cleaned up
func (s *AbsenceService) RemoveForUser(ctx context.Context, guildID, userID string) ([]models.Absence, error) {
	query := memberQuery(guildID, userID)
	found, err := s.absences.Find(ctx, query)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	if _, err := s.absences.DeleteMany(ctx, query); err != nil {
		return nil, err
	}
	return found, nil
}

// Expired returns the absences whose end date is not after now
func (s *AbsenceService) Expired(ctx context.Context, now time.Time) ([]models.Absence, error) {
	return s.absences.Find(ctx, bson.M{"end": bson.M{"$lte": now}})
}

// Delete removes one absence by its announce message id
func (s *AbsenceService) Delete(ctx context.Context, id string) error {
	_, err := s.absences.Delete(ctx, bson.M{"_id": id})
	return err
}
