package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/MimirCommunity/MimirBot/pkg/config"
	"github.com/MimirCommunity/MimirBot/pkg/logger"
)

// CommandHandler keeps the application command definitions and pushes them
// to Discord
type CommandHandler struct {
	client           *ExtendedClient
	slashCommands    []*discordgo.ApplicationCommand
	slashCommandsDev []*discordgo.ApplicationCommand
}

// NewCommandHandler creates a new CommandHandler
func NewCommandHandler(client *ExtendedClient) *CommandHandler {
	return &CommandHandler{
		client:           client,
		slashCommands:    make([]*discordgo.ApplicationCommand, 0),
		slashCommandsDev: make([]*discordgo.ApplicationCommand, 0),
	}
}

// RegisterCommand adds a command to the handler
func (ch *CommandHandler) RegisterCommand(cmd *Command) {
	ch.client.Commands.Set(cmd.Name, cmd)

	appCmd := cmd.ToApplicationCommand()
	if cmd.IsDev {
		ch.slashCommandsDev = append(ch.slashCommandsDev, appCmd)
	} else {
		ch.slashCommands = append(ch.slashCommands, appCmd)
	}

	logger.Debug("Commande enregistrée : "+cmd.Name, "CommandHandler")
}

// RegisterCommandGroup registers subcommands under one top-level command,
// routed as "name.sub"
func (ch *CommandHandler) RegisterCommandGroup(name, description string, subcommands ...*Command) {
	ch.slashCommands = append(ch.slashCommands, ch.buildCommandGroup(name, description, subcommands...))
	logger.Debug(fmt.Sprintf("Groupe enregistré : %s (%d sous-commandes)", name, len(subcommands)), "CommandHandler")
}

func (ch *CommandHandler) buildCommandGroup(name, description string, subcommands ...*Command) *discordgo.ApplicationCommand {
	options := make([]*discordgo.ApplicationCommandOption, 0, len(subcommands))
	for _, cmd := range subcommands {
		ch.client.Commands.Set(name+"."+cmd.Name, cmd)
		options = append(options, &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        cmd.Name,
			Description: cmd.Description,
			Options:     cmd.Options,
		})
	}
	return &discordgo.ApplicationCommand{
		Name:        name,
		Description: description,
		Options:     options,
	}
}

// RegisterModal routes modal submissions with the given route to h
func (ch *CommandHandler) RegisterModal(route string, h ModalFunc) {
	ch.client.Modals.Set(route, h)
	logger.Debug("Modal enregistré : "+route, "CommandHandler")
}

// Definitions returns the global and dev command definitions
func (ch *CommandHandler) Definitions() (global, dev []*discordgo.ApplicationCommand) {
	return ch.slashCommands, ch.slashCommandsDev
}

// RegisterCommands overwrites the application commands known by Discord.
// Without a dev guild every command is global.
func (ch *CommandHandler) RegisterCommands() {
	cfg := config.Get()
	appID := ch.client.Session.State.User.ID

	global := ch.slashCommands
	if cfg.DevGuildID == "" {
		global = append(append([]*discordgo.ApplicationCommand{}, ch.slashCommands...), ch.slashCommandsDev...)
	}

	logger.Info(fmt.Sprintf("🔄 Synchronisation de %d commandes globales...", len(global)), "CommandHandler")
	if _, err := ch.client.Session.ApplicationCommandBulkOverwrite(appID, "", global); err != nil {
		logger.Error("Synchronisation des commandes globales impossible : "+err.Error(), "CommandHandler")
	} else {
		logger.Success("✅ Commandes globales synchronisées", "CommandHandler")
	}

	if cfg.DevGuildID != "" && len(ch.slashCommandsDev) > 0 {
		if _, err := ch.client.Session.ApplicationCommandBulkOverwrite(appID, cfg.DevGuildID, ch.slashCommandsDev); err != nil {
			logger.Error("Synchronisation des commandes de développement impossible : "+err.Error(), "CommandHandler")
			return
		}
		logger.Success("✅ Commandes de développement synchronisées sur "+cfg.DevGuildID, "CommandHandler")
	}
}

// UnregisterCommands removes every command registered for guildID ("" for global)
func (ch *CommandHandler) UnregisterCommands(guildID string) error {
	appID := ch.client.Session.State.User.ID
	commands, err := ch.client.Session.ApplicationCommands(appID, guildID)
	if err != nil {
		return err
	}

	for _, cmd := range commands {
		if err := ch.client.Session.ApplicationCommandDelete(appID, guildID, cmd.ID); err != nil {
			logger.Error("Suppression de la commande "+cmd.Name+" impossible : "+err.Error(), "CommandHandler")
		}
	}

	logger.Success(fmt.Sprintf("%d commandes supprimées", len(commands)), "CommandHandler")
	return nil
}

// ListCommands returns the commands Discord knows for guildID ("" for global)
func (ch *CommandHandler) ListCommands(guildID string) ([]*discordgo.ApplicationCommand, error) {
	return ch.client.Session.ApplicationCommands(ch.client.Session.State.User.ID, guildID)
}

// SyncGuild overwrites the commands of one guild with every definition,
// dev commands included
func (ch *CommandHandler) SyncGuild(guildID string) error {
	all := append(append([]*discordgo.ApplicationCommand{}, ch.slashCommands...), ch.slashCommandsDev...)
	_, err := ch.client.Session.ApplicationCommandBulkOverwrite(ch.client.Session.State.User.ID, guildID, all)
	return err
}
