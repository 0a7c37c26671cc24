package models

import "time"

// UserProgress is the XP state of one member in one guild.
// Level is always derived from XP and written together with it.
type UserProgress struct {
	GuildID   string    `bson:"guild_id" json:"guildId"`
	UserID    string    `bson:"user_id" json:"userId"`
	XP        int64     `bson:"xp" json:"xp"`
	Level     int64     `bson:"level" json:"level"`
	UpdatedAt time.Time `bson:"updated_at,omitempty" json:"updatedAt,omitempty"`
}

// ExcludedChannel marks a channel that never produces XP
type ExcludedChannel struct {
	GuildID   string    `bson:"guild_id" json:"guildId"`
	ChannelID string    `bson:"channel_id" json:"channelId"`
	CreatedAt time.Time `bson:"created_at,omitempty" json:"createdAt,omitempty"`
}
