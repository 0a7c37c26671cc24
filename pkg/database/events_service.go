package database

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/MimirCommunity/MimirBot/pkg/models"
)

var (
	ErrEventExists   = errors.New("l'événement existe déjà")
	ErrEventNotFound = errors.New("l'événement n'existe pas")
)

// MaxAutocompleteChoices is the Discord limit on autocomplete results
const MaxAutocompleteChoices = 25

// EventsService manages community events and who took part in them
type EventsService struct {
	events         *DataManager[models.Event]
	participations *DataManager[models.Participation]
}

// NewEventsService creates the service over events and participations
func NewEventsService(db *Database) *EventsService {
	return &EventsService{
		events:         NewDataManager[models.Event](CollectionEvents, db, DataManagerOptions{MaxCacheSize: 200}),
		participations: NewDataManager[models.Participation](CollectionParticipations, db, DataManagerOptions{}),
	}
}

func eventQuery(guildID, name string) bson.M {
	return bson.M{"guild_id": guildID, "name": name}
}

// Add creates an event, ErrEventExists if the name is taken
func (s *EventsService) Add(ctx context.Context, guildID, name string) error {
	existing, err := s.events.Get(ctx, eventQuery(guildID, name))
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrEventExists
	}
	_, err = s.events.Set(ctx, eventQuery(guildID, name), bson.M{"created_at": time.Now()})
	return err
}

// Remove deletes an event together with its participations
func (s *EventsService) Remove(ctx context.Context, guildID, name string) error {
	removed, err := s.events.Delete(ctx, eventQuery(guildID, name))
	if err != nil {
		return err
	}
	if !removed {
		return ErrEventNotFound
	}
	_, err = s.participations.DeleteMany(ctx, bson.M{"guild_id": guildID, "event": name})
	return err
}

// Toggle adds the member to the event, or removes them if already there.
// It reports whether the member now participates.
func (s *EventsService) Toggle(ctx context.Context, guildID, userID, name string) (bool, error) {
	event, err := s.events.Get(ctx, eventQuery(guildID, name))
	if err != nil {
		return false, err
	}
	if event == nil {
		return false, ErrEventNotFound
	}

	query := bson.M{"guild_id": guildID, "user_id": userID, "event": name}
	removed, err := s.participations.Delete(ctx, query)
	if err != nil {
		return false, err
	}
	if removed {
		return false, nil
	}
	if _, err := s.participations.Set(ctx, query, bson.M{"event": name}); err != nil {
		return false, err
	}
	return true, nil
}

// Participations lists the events a member took part in
func (s *EventsService) Participations(ctx context.Context, guildID, userID string) ([]string, error) {
	docs, err := s.participations.Find(ctx, bson.M{"guild_id": guildID, "user_id": userID},
		FindOptions{Sort: bson.D{{Key: "event", Value: 1}}})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.Event)
	}
	return names, nil
}

// List returns every event of a guild sorted by name
func (s *EventsService) List(ctx context.Context, guildID string) ([]models.Event, error) {
	return s.events.Find(ctx, bson.M{"guild_id": guildID},
		FindOptions{Sort: bson.D{{Key: "name", Value: 1}}})
}

// Search returns up to 25 event names starting with prefix, ignoring case
func (s *EventsService) Search(ctx context.Context, guildID, prefix string) ([]string, error) {
	docs, err := s.events.Find(ctx, bson.M{
		"guild_id": guildID,
		"name":     primitive.Regex{Pattern: "^" + regexp.QuoteMeta(prefix), Options: "i"},
	}, FindOptions{Sort: bson.D{{Key: "name", Value: 1}}, Limit: MaxAutocompleteChoices})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.Name)
	}
	return names, nil
}
