// Package main is the entry point for the Mimir bot.
// It initializes all systems and starts the Discord bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MimirCommunity/MimirBot/internal/commands"
	"github.com/MimirCommunity/MimirBot/internal/commands/absences"
	"github.com/MimirCommunity/MimirBot/internal/commands/bugreport"
	"github.com/MimirCommunity/MimirBot/internal/commands/genance"
	"github.com/MimirCommunity/MimirBot/internal/commands/leveling"
	"github.com/MimirCommunity/MimirBot/internal/events"
	"github.com/MimirCommunity/MimirBot/pkg/config"
	"github.com/MimirCommunity/MimirBot/pkg/database"
	"github.com/MimirCommunity/MimirBot/pkg/discord"
	"github.com/MimirCommunity/MimirBot/pkg/errors"
	"github.com/MimirCommunity/MimirBot/pkg/logger"
	"github.com/MimirCommunity/MimirBot/pkg/mqtt"
	"github.com/MimirCommunity/MimirBot/pkg/web"
	"github.com/MimirCommunity/MimirBot/pkg/xp"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Erreur de chargement de la configuration : %v\n", err)
		os.Exit(1)
	}
	if cfg.BotToken == "" {
		fmt.Println("DISCORD_TOKEN manquant")
		os.Exit(1)
	}

	// Initialize logger
	log := logger.Init(logger.Options{
		Dir:             cfg.LogsDir,
		ErrorWebhookURL: cfg.ErrorWebhook,
		LogsWebhookURL:  cfg.LogsWebhook,
		Debug:           !cfg.IsProd(),
	})
	defer log.Close()

	logger.System(fmt.Sprintf("Démarrage de Mimir %s (%s)...", config.Version, config.BuildTime), "Main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize error handler
	var engine *xp.Engine
	errors.Init(cfg.ErrorWebhook, func() {
		stop()
		if engine != nil {
			engine.Close()
		}
	})
	defer errors.Get().Stop()

	// Initialize database; a failed first connection keeps retrying
	db, err := database.Init(ctx, cfg.MongoDBURL, cfg.DBName)
	if err != nil {
		logger.Error(fmt.Sprintf("Base de données indisponible au démarrage : %v", err), "Main")
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Disconnect(dctx); err != nil {
			logger.Warn(fmt.Sprintf("Déconnexion de la base de données : %v", err), "Main")
		}
	}()

	// Initialize Discord client
	discordClient, err := discord.Init(cfg.BotToken)
	if err != nil {
		logger.Critical(fmt.Sprintf("Création du client Discord impossible : %v", err), "Main")
		os.Exit(1)
	}

	// XP engine
	engine = xp.NewEngine(newXPStore(ctx, cfg, db), xp.Options{
		Multiplier:      cfg.XPMultiplier,
		MessageCooldown: cfg.XPMessageCooldown,
		VoiceInterval:   cfg.XPVoiceInterval,
		Presence:        xp.VoicePresenceFunc(discordClient.InVoice),
	})
	defer engine.Close()

	engine.OnLevelUp(leveling.NewAnnouncer(discordClient.Session, cfg.XPLevelUpChannel).Handler())

	// Initialize MQTT
	if cfg.MQTTEnabled() {
		clientID := "mimir"
		if !cfg.IsProd() {
			clientID = "mimir_canary"
		}
		mqttClient := mqtt.Init(mqtt.Options{
			Host:     cfg.MQTTHost,
			Port:     cfg.MQTTPort,
			Username: cfg.MQTTUser,
			Password: cfg.MQTTPassword,
			ClientID: clientID,
		})
		defer mqttClient.Destroy()

		engine.OnLevelUp(mqtt.LevelUpPublisher(mqttClient))
		if err := mqtt.ServeXP(mqttClient, engine); err != nil {
			logger.Error(fmt.Sprintf("Abonnement aux requêtes MQTT impossible : %v", err), "Main")
		}
	} else {
		logger.Info("MQTT désactivé (MQTT_HOST vide)", "Main")
	}

	// Community services
	absenceStore := database.NewAbsenceService(db)
	genanceStore := database.NewGenanceService(db)
	reporter := bugreport.NewReporter(cfg.BugReportChannel)

	// Register commands and events
	commands.RegisterAll(discordClient, commands.Deps{
		XP:       engine,
		Genance:  genanceStore,
		Events:   database.NewEventsService(db),
		Absences: absenceStore,
		Reporter: reporter,
		DBStatus: db.GetStatus,
	})
	events.RegisterAll(discordClient, events.Deps{
		XP:       engine,
		Genance:  genance.NewTracker(genanceStore),
		Reporter: reporter,
	})

	// Initialize web server
	webServer := web.Init(web.Options{RateLimit: cfg.APIRateLimit, Debug: !cfg.IsProd()})
	web.SetupAPIRoutes(webServer, &web.API{
		XP:       engine,
		DBStatus: db.GetStatus,
		BotReady: discordClient.IsReady,
		Guilds:   discordClient.GuildCount,
		Version:  config.Version,
	})

	// Start the bot
	if err := discordClient.Start(); err != nil {
		logger.Critical(fmt.Sprintf("Connexion à Discord impossible : %v", err), "Main")
		os.Exit(1)
	}
	defer func() {
		if err := discordClient.Stop(); err != nil {
			logger.Warn(fmt.Sprintf("Fermeture de la session Discord : %v", err), "Main")
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return webServer.Run(gctx, cfg.Port)
	})
	g.Go(func() error {
		absences.NewChecker(absenceStore, discordClient.Session, cfg.AbsenceCheck).Run(gctx)
		return nil
	})

	logger.Success("Mimir démarré !", "Main")

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("Arrêt sur erreur : %v", err), "Main")
	}

	logger.System("Arrêt de Mimir...", "Main")
}

// newXPStore picks the XP backend from XP_STORE
func newXPStore(ctx context.Context, cfg *config.Config, db *database.Database) xp.Store {
	if cfg.UseMemoryStore() {
		logger.Warn("XP stocké en mémoire : il sera perdu à l'arrêt", "Main")
		return xp.NewMemoryStore()
	}

	store := database.NewXPStore(db)
	ictx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.EnsureIndexes(ictx); err != nil {
		logger.Warn(fmt.Sprintf("Index XP non créés : %v", err), "Main")
	}
	return store
}
