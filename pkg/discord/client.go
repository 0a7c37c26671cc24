// Package discord provides the Discord bot client and related structures.
// It wraps discordgo with command, modal and event routing.
package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MimirCommunity/MimirBot/pkg/config"
	"github.com/MimirCommunity/MimirBot/pkg/errors"
	"github.com/MimirCommunity/MimirBot/pkg/logger"
)

func init() {
	discordgo.Logger = func(msgL int, caller int, format string, a ...interface{}) {
		msg := fmt.Sprintf(format, a...)
		switch msgL {
		case discordgo.LogError:
			logger.Error(msg, "DiscordGo")
		case discordgo.LogWarning:
			logger.Warn(msg, "DiscordGo")
		default:
			logger.Debug(msg, "DiscordGo")
		}
	}
}

// interactionTimeout bounds the work done for one interaction
const interactionTimeout = 10 * time.Second

// ExtendedClient wraps discordgo.Session with additional functionality
type ExtendedClient struct {
	Session        *discordgo.Session
	Commands       *CommandCollection
	Modals         *ModalCollection
	CommandHandler *CommandHandler
	EventHandler   *EventHandler
	StartTime      time.Time
	mu             sync.RWMutex
	isReady        bool
}

// CommandCollection holds registered commands
type CommandCollection struct {
	commands map[string]*Command
	mu       sync.RWMutex
}

// NewCommandCollection creates a new CommandCollection
func NewCommandCollection() *CommandCollection {
	return &CommandCollection{
		commands: make(map[string]*Command),
	}
}

// Set adds or updates a command
func (cc *CommandCollection) Set(name string, cmd *Command) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.commands[name] = cmd
}

// Get retrieves a command by name
func (cc *CommandCollection) Get(name string) (*Command, bool) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	cmd, ok := cc.commands[name]
	return cmd, ok
}

// Size returns the number of commands
func (cc *CommandCollection) Size() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.commands)
}

// All returns all commands
func (cc *CommandCollection) All() map[string]*Command {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	result := make(map[string]*Command, len(cc.commands))
	for k, v := range cc.commands {
		result[k] = v
	}
	return result
}

var (
	client *ExtendedClient
	once   sync.Once
)

// Init initializes the global Discord client
func Init(token string) (*ExtendedClient, error) {
	var err error
	once.Do(func() {
		client, err = NewClient(token)
	})
	return client, err
}

// Get returns the global Discord client
func Get() *ExtendedClient {
	return client
}

// Intents the bot needs: message content for XP and genance, reactions for
// XP and bug reports, voice states for voice XP.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildVoiceStates |
	discordgo.IntentsDirectMessages

// NewClient creates a new ExtendedClient
func NewClient(token string) (*ExtendedClient, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = Intents
	session.SyncEvents = false
	session.StateEnabled = true
	session.State.TrackVoice = true
	session.LogLevel = discordgo.LogWarning

	c := &ExtendedClient{
		Session:  session,
		Commands: NewCommandCollection(),
		Modals:   NewModalCollection(),
	}
	c.CommandHandler = NewCommandHandler(c)
	c.EventHandler = NewEventHandler(c)

	return c, nil
}

// Start opens the gateway connection; commands are pushed to Discord once ready
func (c *ExtendedClient) Start() error {
	c.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		c.mu.Lock()
		c.isReady = true
		c.mu.Unlock()

		logger.Success("Bot connecté en tant que "+r.User.Username, "Client")
		c.CommandHandler.RegisterCommands()
	})
	c.Session.AddHandler(c.handleInteraction)

	c.StartTime = time.Now()
	return c.Session.Open()
}

// resolveCommandName joins subcommand names with dots: "group.sub"
func resolveCommandName(data discordgo.ApplicationCommandInteractionData) string {
	name := data.Name
	if len(data.Options) == 0 {
		return name
	}
	opt := data.Options[0]
	switch opt.Type {
	case discordgo.ApplicationCommandOptionSubCommandGroup:
		if len(opt.Options) > 0 {
			return name + "." + opt.Name + "." + opt.Options[0].Name
		}
	case discordgo.ApplicationCommandOptionSubCommand:
		return name + "." + opt.Name
	}
	return name
}

func (c *ExtendedClient) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer errors.RecoverMiddleware()()

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	switch i.Type {
	case discordgo.InteractionApplicationCommandAutocomplete:
		cmd, ok := c.Commands.Get(resolveCommandName(i.ApplicationCommandData()))
		if ok && cmd.AutoComplete != nil {
			cmd.AutoComplete(c.newContext(ctx, s, i))
		}

	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		h, ok := c.Modals.Get(data.CustomID)
		if !ok {
			logger.Warn("Modal inconnu : "+data.CustomID, "Client")
			return
		}
		mctx := &ModalContext{CommandContext: c.newContext(ctx, s, i), Data: data}
		if err := h(mctx); err != nil {
			logger.Error(fmt.Sprintf("Erreur du modal %s : %v", data.CustomID, err), "Client")
		}

	case discordgo.InteractionApplicationCommand:
		name := resolveCommandName(i.ApplicationCommandData())
		cmd, ok := c.Commands.Get(name)
		if !ok {
			logger.Warn("Commande inconnue : "+name, "Client")
			return
		}
		c.runCommand(c.newContext(ctx, s, i), name, cmd)
	}
}

func (c *ExtendedClient) runCommand(ctx *CommandContext, name string, cmd *Command) {
	if cmd.GuildOnly && ctx.Interaction.GuildID == "" {
		_ = ctx.ReplyEphemeral("⛔ Cette commande n'est utilisable que sur un serveur.")
		return
	}
	if cmd.UserPermissions != 0 && !ctx.HasPermission(cmd.UserPermissions) {
		_ = ctx.ReplyEphemeral("⛔ Tu n'as pas la permission d'utiliser cette commande.")
		return
	}

	if err := cmd.Run(ctx); err != nil {
		logger.Error(fmt.Sprintf("Erreur de la commande %s : %v", name, err), "Client")
		if !ctx.Replied() {
			_ = ctx.ReplyEphemeral("❌ Une erreur est survenue, réessaie plus tard.")
		}
	}
}

func (c *ExtendedClient) newContext(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *CommandContext {
	return &CommandContext{
		Ctx:         ctx,
		Session:     s,
		Interaction: i,
		Client:      c,
	}
}

// Stop stops the bot and closes the session
func (c *ExtendedClient) Stop() error {
	c.mu.Lock()
	c.isReady = false
	c.mu.Unlock()

	if c.Session != nil {
		return c.Session.Close()
	}
	return nil
}

// IsReady returns true if the bot is ready
func (c *ExtendedClient) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isReady
}

// GuildCount returns the number of guilds the bot is in
func (c *ExtendedClient) GuildCount() int {
	if c.Session == nil || c.Session.State == nil {
		return 0
	}
	c.Session.State.RLock()
	defer c.Session.State.RUnlock()
	return len(c.Session.State.Guilds)
}

// Uptime returns the time since Start
func (c *ExtendedClient) Uptime() time.Duration {
	if c.StartTime.IsZero() {
		return 0
	}
	return time.Since(c.StartTime)
}

// Latency returns the gateway heartbeat latency
func (c *ExtendedClient) Latency() time.Duration {
	if c.Session == nil {
		return 0
	}
	return c.Session.HeartbeatLatency()
}

// InVoice reports whether a member is currently connected to a voice channel
// of the guild, according to the gateway state cache.
func (c *ExtendedClient) InVoice(guildID, userID string) bool {
	return inVoice(c.Session.State, guildID, userID)
}

func inVoice(state *discordgo.State, guildID, userID string) bool {
	if state == nil {
		return false
	}
	vs, err := state.VoiceState(guildID, userID)
	return err == nil && vs != nil && vs.ChannelID != ""
}

// GetConfig returns the bot configuration
func (c *ExtendedClient) GetConfig() *config.Config {
	return config.Get()
}
