package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/MimirCommunity/MimirBot/pkg/models"
)

// GenanceService stores the cringe points of members
type GenanceService struct {
	dm *DataManager[models.GenanceRecord]
}

// NewGenanceService creates the service over genance_data
func NewGenanceService(db *Database) *GenanceService {
	return &GenanceService{
		dm: NewDataManager[models.GenanceRecord](CollectionGenance, db),
	}
}

// AddPoints increments a member's points and returns the new total
func (s *GenanceService) AddPoints(ctx context.Context, guildID, userID string, points int64) (int64, error) {
	rec, err := s.dm.Update(ctx, memberQuery(guildID, userID), bson.M{
		"$inc": bson.M{"genance_points": points},
	})
	if err != nil {
		return 0, err
	}
	return rec.Points, nil
}

// Points returns a member's points, 0 when they never scored
func (s *GenanceService) Points(ctx context.Context, guildID, userID string) (int64, error) {
	rec, err := s.dm.Get(ctx, memberQuery(guildID, userID))
	if err != nil || rec == nil {
		return 0, err
	}
	return rec.Points, nil
}
