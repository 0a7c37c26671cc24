package models

import "time"

// GenanceRecord holds the cringe points of a member
type GenanceRecord struct {
	GuildID string `bson:"guild_id" json:"guildId"`
	UserID  string `bson:"user_id" json:"userId"`
	Points  int64  `bson:"genance_points" json:"points"`
}

// Event is an organised community event members can be credited for
type Event struct {
	GuildID   string    `bson:"guild_id" json:"guildId"`
	Name      string    `bson:"name" json:"name"`
	CreatedAt time.Time `bson:"created_at,omitempty" json:"createdAt,omitempty"`
}

// Participation links a member to an event they took part in
type Participation struct {
	GuildID string `bson:"guild_id" json:"guildId"`
	UserID  string `bson:"user_id" json:"userId"`
	Event   string `bson:"event" json:"event"`
}

// AbsenceChannel is the per-guild channel where absences are announced
type AbsenceChannel struct {
	GuildID   string `bson:"guild_id" json:"guildId"`
	ChannelID string `bson:"channel_id" json:"channelId"`
}

// Absence is a declared period during which a member is away.
// ID is the announce message id, which is unique per absence.
type Absence struct {
	ID        string    `bson:"_id" json:"id"`
	GuildID   string    `bson:"guild_id" json:"guildId"`
	UserID    string    `bson:"user_id" json:"userId"`
	ChannelID string    `bson:"channel_id" json:"channelId"`
	Start     time.Time `bson:"start" json:"start"`
	End       time.Time `bson:"end" json:"end"`
	Reason    string    `bson:"reason" json:"reason"`
}
