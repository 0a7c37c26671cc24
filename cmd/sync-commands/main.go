// Package main provides a utility to sync Discord slash commands.
// It removes stale commands from Discord and registers the current definitions.
//
// Usage:
//
//	go run ./cmd/sync-commands [options]
//
// Options:
//
//	-list           List the registered commands
//	-clean          Remove all commands without registering new ones
//	-guild <id>     Target a specific guild instead of global commands
//	-sync           Sync commands (default)
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/bwmarrin/discordgo"

	"github.com/MimirCommunity/MimirBot/internal/commands"
	"github.com/MimirCommunity/MimirBot/pkg/config"
	"github.com/MimirCommunity/MimirBot/pkg/discord"
	"github.com/MimirCommunity/MimirBot/pkg/logger"
)

func main() {
	listCmd := flag.Bool("list", false, "Liste les commandes enregistrées")
	cleanCmd := flag.Bool("clean", false, "Supprime toutes les commandes")
	guildID := flag.String("guild", "", "Serveur ciblé (vide pour les commandes globales)")
	_ = flag.Bool("sync", false, "Synchronise les commandes (comportement par défaut)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Erreur de chargement de la configuration : %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{Debug: !cfg.IsProd()})
	defer log.Close()

	logger.System("Outil de synchronisation des commandes", "SyncCommands")

	client, err := discord.NewClient(cfg.BotToken)
	if err != nil {
		logger.Critical(fmt.Sprintf("Création du client Discord impossible : %v", err), "SyncCommands")
		os.Exit(1)
	}

	if err := client.Session.Open(); err != nil {
		logger.Critical(fmt.Sprintf("Connexion à Discord impossible : %v", err), "SyncCommands")
		os.Exit(1)
	}
	defer client.Session.Close()

	logger.Success("Connecté à Discord", "SyncCommands")

	// Registering only builds the definitions, handlers never run here
	commands.RegisterAll(client, commands.Deps{})

	switch {
	case *listCmd:
		err = listCommands(client, *guildID)
	case *cleanCmd:
		err = client.CommandHandler.UnregisterCommands(*guildID)
	default:
		err = syncCommands(client, *guildID)
	}

	if err != nil {
		logger.Error(fmt.Sprintf("Échec : %v", err), "SyncCommands")
		os.Exit(1)
	}
	logger.Success("Opération terminée", "SyncCommands")
}

func listCommands(client *discord.ExtendedClient, guildID string) error {
	cmds, err := client.CommandHandler.ListCommands(guildID)
	if err != nil {
		return err
	}

	logger.Info(fmt.Sprintf("📋 %d commandes %s", len(cmds), scope(guildID)), "SyncCommands")
	for i, line := range describe(cmds) {
		logger.Info(fmt.Sprintf("  %d. %s", i+1, line), "SyncCommands")
	}
	return nil
}

func syncCommands(client *discord.ExtendedClient, guildID string) error {
	if guildID == "" {
		client.CommandHandler.RegisterCommands()
		return nil
	}

	logger.Info("🔄 Synchronisation "+scope(guildID), "SyncCommands")
	return client.CommandHandler.SyncGuild(guildID)
}

func scope(guildID string) string {
	if guildID == "" {
		return "globales"
	}
	return "du serveur " + guildID
}

func describe(cmds []*discordgo.ApplicationCommand) []string {
	lines := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		lines = append(lines, fmt.Sprintf("/%s - %s (ID : %s)", cmd.Name, cmd.Description, cmd.ID))
	}
	return lines
}
