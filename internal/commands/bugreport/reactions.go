package bugreport

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/MimirCommunity/MimirBot/pkg/logger"
)

// Session is the part of discordgo.Session the status tracking uses
type Session interface {
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionRemove(channelID, messageID, emojiID, userID string, options ...discordgo.RequestOption) error
}

// OnReactionAdd marks a report with the status the reactor chose and
// drops their other status reactions
func (r *Reporter) OnReactionAdd(s Session, botID string, ev *discordgo.MessageReaction) error {
	if ev.ChannelID != r.channelID || ev.UserID == botID {
		return nil
	}
	emoji := ev.Emoji.Name
	if !isStatus(emoji) {
		return nil
	}

	msg, embed, name, ok, err := r.report(s, ev)
	if err != nil || !ok {
		return err
	}

	for _, other := range statuses {
		if other == emoji || !reacted(msg, other) {
			continue
		}
		if err := s.MessageReactionRemove(ev.ChannelID, ev.MessageID, other, ev.UserID); err != nil {
			logger.Debug("Retrait de réaction impossible : "+err.Error(), "BugReport")
		}
	}

	embed.Title = statusTitle(name, emoji)
	if _, err := s.ChannelMessageEditEmbed(ev.ChannelID, ev.MessageID, embed); err != nil {
		return fmt.Errorf("bugreport: edit title: %w", err)
	}
	return nil
}

// OnReactionRemove restores the plain title once only the bot's own status
// reactions are left
func (r *Reporter) OnReactionRemove(s Session, ev *discordgo.MessageReaction) error {
	if ev.ChannelID != r.channelID || !isStatus(ev.Emoji.Name) {
		return nil
	}

	msg, embed, name, ok, err := r.report(s, ev)
	if err != nil || !ok || embed.Title == statusTitle(name, "") {
		return err
	}
	if !onlyBotReactions(msg) {
		return nil
	}

	embed.Title = statusTitle(name, "")
	if _, err := s.ChannelMessageEditEmbed(ev.ChannelID, ev.MessageID, embed); err != nil {
		return fmt.Errorf("bugreport: restore title: %w", err)
	}
	return nil
}

// report loads a report message; ok is false for anything that is not a report
func (r *Reporter) report(s Session, ev *discordgo.MessageReaction) (*discordgo.Message, *discordgo.MessageEmbed, string, bool, error) {
	msg, err := s.ChannelMessage(ev.ChannelID, ev.MessageID)
	if err != nil {
		return nil, nil, "", false, fmt.Errorf("bugreport: fetch report: %w", err)
	}
	if len(msg.Embeds) == 0 {
		return nil, nil, "", false, nil
	}
	embed := msg.Embeds[0]
	name, ok := baseName(embed.Title)
	return msg, embed, name, ok, nil
}

func reacted(msg *discordgo.Message, emoji string) bool {
	for _, re := range msg.Reactions {
		if re.Emoji != nil && re.Emoji.Name == emoji && re.Count > 0 {
			return true
		}
	}
	return false
}

func onlyBotReactions(msg *discordgo.Message) bool {
	for _, re := range msg.Reactions {
		if re.Me && re.Count > 1 {
			return false
		}
	}
	return true
}
