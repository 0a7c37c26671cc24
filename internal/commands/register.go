// Package commands provides a registry for organizing bot commands.
// Commands are organized in subdirectories by category (leveling, genance,
// participation, absences, bugreport, games, utils).
package commands

import (
	"github.com/MimirCommunity/MimirBot/internal/commands/absences"
	"github.com/MimirCommunity/MimirBot/internal/commands/bugreport"
	"github.com/MimirCommunity/MimirBot/internal/commands/games"
	"github.com/MimirCommunity/MimirBot/internal/commands/genance"
	"github.com/MimirCommunity/MimirBot/internal/commands/leveling"
	"github.com/MimirCommunity/MimirBot/internal/commands/participation"
	"github.com/MimirCommunity/MimirBot/internal/commands/utils"
	"github.com/MimirCommunity/MimirBot/pkg/discord"
)

// Deps are the stores and services the commands run against. Registering
// only needs them to be referenced: the sync tool passes a zero Deps.
type Deps struct {
	XP       leveling.Engine
	Genance  genance.Store
	Events   participation.Store
	Absences absences.Store
	Reporter *bugreport.Reporter
	DBStatus utils.StatusFunc
}

// RegisterAll registers all commands with the Discord client
func RegisterAll(client *discord.ExtendedClient, deps Deps) {
	// XP commands (/xp, /leaderboard, /xp-adjust, /xp-exclude)
	leveling.RegisterLevelingCommands(client, deps.XP)

	// Community commands
	genance.RegisterGenanceCommands(client, deps.Genance)
	participation.RegisterParticipationCommands(client, deps.Events)
	absences.RegisterAbsenceCommands(client, deps.Absences)

	reporter := deps.Reporter
	if reporter == nil {
		reporter = bugreport.NewReporter("")
	}
	bugreport.RegisterBugReportCommands(client, reporter)

	// Games (/roll, /random, /soleil, /rename)
	games.RegisterGamesCommands(client)

	// Utility commands (/utils ping, status, help, stats)
	utils.RegisterUtilsCommands(client, deps.DBStatus)
}
