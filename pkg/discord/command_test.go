package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(*CommandContext) error { return nil }

func TestCommandBuilder(t *testing.T) {
	opt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "membre",
		Description: "Le membre visé",
	}

	cmd := NewCommand("xp", "Affiche l'XP", "xp", noop).
		WithOptions(opt).
		WithUserPermissions(discordgo.PermissionManageGuild).
		InGuildOnly().
		AsDev()

	assert.Equal(t, "xp", cmd.Name)
	assert.Equal(t, "xp", cmd.Category)
	assert.Len(t, cmd.Options, 1)
	assert.True(t, cmd.IsDev)
	assert.True(t, cmd.GuildOnly)
	assert.Equal(t, int64(discordgo.PermissionManageGuild), cmd.UserPermissions)
	assert.NotNil(t, cmd.Run)
	assert.Nil(t, cmd.AutoComplete)

	cmd.WithAutoComplete(func(*CommandContext) {})
	assert.NotNil(t, cmd.AutoComplete)
}

func TestToApplicationCommand(t *testing.T) {
	plain := NewCommand("ping", "Pong", "jeux", noop).ToApplicationCommand()
	assert.Equal(t, "ping", plain.Name)
	assert.Nil(t, plain.DefaultMemberPermissions)
	assert.Nil(t, plain.DMPermission)

	restricted := NewCommand("xp-adjust", "Ajuste l'XP", "xp", noop).
		WithUserPermissions(discordgo.PermissionManageGuild).
		InGuildOnly().
		ToApplicationCommand()
	require.NotNil(t, restricted.DefaultMemberPermissions)
	assert.Equal(t, int64(discordgo.PermissionManageGuild), *restricted.DefaultMemberPermissions)
	require.NotNil(t, restricted.DMPermission)
	assert.False(t, *restricted.DMPermission)
}

func TestResolveCommandName(t *testing.T) {
	tests := []struct {
		name string
		data discordgo.ApplicationCommandInteractionData
		want string
	}{
		{"plain", discordgo.ApplicationCommandInteractionData{Name: "xp"}, "xp"},
		{
			"string option",
			discordgo.ApplicationCommandInteractionData{
				Name:    "random",
				Options: []*discordgo.ApplicationCommandInteractionDataOption{{Name: "min", Type: discordgo.ApplicationCommandOptionInteger}},
			},
			"random",
		},
		{
			"subcommand",
			discordgo.ApplicationCommandInteractionData{
				Name:    "event",
				Options: []*discordgo.ApplicationCommandInteractionDataOption{{Name: "add", Type: discordgo.ApplicationCommandOptionSubCommand}},
			},
			"event.add",
		},
		{
			"group",
			discordgo.ApplicationCommandInteractionData{
				Name: "config",
				Options: []*discordgo.ApplicationCommandInteractionDataOption{{
					Name: "xp",
					Type: discordgo.ApplicationCommandOptionSubCommandGroup,
					Options: []*discordgo.ApplicationCommandInteractionDataOption{
						{Name: "exclude", Type: discordgo.ApplicationCommandOptionSubCommand},
					},
				}},
			},
			"config.xp.exclude",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveCommandName(tt.data))
		})
	}
}

func TestFindOptionNested(t *testing.T) {
	opts := []*discordgo.ApplicationCommandInteractionDataOption{{
		Name: "add",
		Type: discordgo.ApplicationCommandOptionSubCommand,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "nom", Type: discordgo.ApplicationCommandOptionString, Value: "soirée", Focused: true},
		},
	}}

	found := findOption(opts, "nom")
	require.NotNil(t, found)
	assert.Equal(t, "soirée", found.StringValue())
	assert.Nil(t, findOption(opts, "absent"))

	focused := findFocused(opts)
	require.NotNil(t, focused)
	assert.Equal(t, "nom", focused.Name)
}

func TestCustomIDRoundTrip(t *testing.T) {
	id := CustomID("rename", "123456")
	assert.Equal(t, "rename:123456", id)

	route, payload := SplitCustomID(id)
	assert.Equal(t, "rename", route)
	assert.Equal(t, "123456", payload)

	route, payload = SplitCustomID("bugreport")
	assert.Equal(t, "bugreport", route)
	assert.Empty(t, payload)
	assert.Equal(t, "bugreport", CustomID("bugreport", ""))
}

func TestModalCollectionRoutesByPrefix(t *testing.T) {
	mc := NewModalCollection()
	called := ""
	mc.Set("rename", func(ctx *ModalContext) error {
		called = ctx.Payload()
		return nil
	})

	h, ok := mc.Get("rename:42")
	require.True(t, ok)
	require.NoError(t, h(&ModalContext{Data: discordgo.ModalSubmitInteractionData{CustomID: "rename:42"}}))
	assert.Equal(t, "42", called)

	_, ok = mc.Get("unknown:42")
	assert.False(t, ok)
}

func TestModalValues(t *testing.T) {
	data := discordgo.ModalSubmitInteractionData{
		CustomID: "bugreport",
		Components: []discordgo.MessageComponent{
			&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				&discordgo.TextInput{CustomID: "title", Value: "  Crash au démarrage "},
			}},
			&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				&discordgo.TextInput{CustomID: "description", Value: "Le bot redémarre en boucle"},
			}},
		},
	}

	values := ModalValues(data)
	assert.Equal(t, "Crash au démarrage", values["title"])
	assert.Equal(t, "Le bot redémarre en boucle", values["description"])

	ctx := &ModalContext{Data: data}
	assert.Equal(t, "Crash au démarrage", ctx.Value("title"))
	assert.Empty(t, ctx.Value("missing"))
}

func TestInVoice(t *testing.T) {
	state := discordgo.NewState()
	require.NoError(t, state.GuildAdd(&discordgo.Guild{
		ID: "g1",
		VoiceStates: []*discordgo.VoiceState{
			{GuildID: "g1", UserID: "alice", ChannelID: "vocal"},
		},
	}))

	assert.True(t, inVoice(state, "g1", "alice"))
	assert.False(t, inVoice(state, "g1", "bob"))
	assert.False(t, inVoice(state, "g2", "alice"))
	assert.False(t, inVoice(nil, "g1", "alice"))
}

func TestHasPermission(t *testing.T) {
	ctx := &CommandContext{Interaction: &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{User: &discordgo.User{ID: "u1"}, Permissions: discordgo.PermissionManageGuild},
	}}}
	assert.True(t, ctx.HasPermission(discordgo.PermissionManageGuild))
	assert.False(t, ctx.HasPermission(discordgo.PermissionBanMembers))

	ctx.Interaction.Member.Permissions = discordgo.PermissionAdministrator
	assert.True(t, ctx.HasPermission(discordgo.PermissionBanMembers))

	dm := &CommandContext{Interaction: &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		User: &discordgo.User{ID: "u1"},
	}}}
	assert.False(t, dm.HasPermission(discordgo.PermissionManageGuild))
	assert.Equal(t, "u1", dm.User().ID)
}

func TestCommandCollection(t *testing.T) {
	cc := NewCommandCollection()
	cc.Set("ping", NewCommand("ping", "Pong", "jeux", noop))

	_, ok := cc.Get("ping")
	assert.True(t, ok)
	assert.Equal(t, 1, cc.Size())

	all := cc.All()
	delete(all, "ping")
	assert.Equal(t, 1, cc.Size())
}

func TestCommandGroupRouting(t *testing.T) {
	c := &ExtendedClient{Commands: NewCommandCollection(), Modals: NewModalCollection()}
	c.CommandHandler = NewCommandHandler(c)

	ping := NewCommand("ping", "Latence", "utils", noop)
	help := NewCommand("help", "Aide", "utils", noop).WithOptions(&discordgo.ApplicationCommandOption{
		Type: discordgo.ApplicationCommandOptionString, Name: "commande", Description: "Commande",
	})
	c.CommandHandler.RegisterCommandGroup("utils", "Commandes utilitaires", ping, help)

	global, dev := c.CommandHandler.Definitions()
	require.Len(t, global, 1)
	assert.Empty(t, dev)

	group := global[0]
	assert.Equal(t, "utils", group.Name)
	require.Len(t, group.Options, 2)
	assert.Equal(t, discordgo.ApplicationCommandOptionSubCommand, group.Options[0].Type)
	assert.Equal(t, "ping", group.Options[0].Name)
	assert.Len(t, group.Options[1].Options, 1)

	got, ok := c.Commands.Get("utils.help")
	require.True(t, ok)
	assert.Same(t, help, got)
	_, ok = c.Commands.Get("ping")
	assert.False(t, ok)
}
