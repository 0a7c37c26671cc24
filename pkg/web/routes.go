package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MimirCommunity/MimirBot/pkg/logger"
	"github.com/MimirCommunity/MimirBot/pkg/xp"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 50
)

// XPReader is the read side of the XP engine
type XPReader interface {
	GetProgress(ctx context.Context, guildID, userID string) (xp.Progress, error)
	Leaderboard(ctx context.Context, guildID string, limit int) ([]xp.Progress, error)
}

// API holds what the routes report on. Nil funcs read as offline.
type API struct {
	XP       XPReader
	DBStatus func(ctx context.Context) (string, bool)
	BotReady func() bool
	Guilds   func() int
	Version  string
}

// SetupAPIRoutes sets up the API routes
func SetupAPIRoutes(s *Server, api *API) {
	group := s.Group("/api")
	{
		group.GET("/health", api.health)
		group.GET("/status", api.status)
		group.GET("/xp/:guild/leaderboard", api.leaderboard)
		group.GET("/xp/:guild/:user", api.progress)
	}
}

func (a *API) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "Mimir est en ligne",
		"version": a.Version,
	})
}

func (a *API) status(c *gin.Context) {
	dbStatus, dbOnline := "🔴 | Déconnectée", false
	if a.DBStatus != nil {
		dbStatus, dbOnline = a.DBStatus(c.Request.Context())
	}

	botOnline := a.BotReady != nil && a.BotReady()
	guilds := 0
	if a.Guilds != nil {
		guilds = a.Guilds()
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"database": gin.H{
			"status":   dbStatus,
			"isOnline": dbOnline,
		},
		"bot": gin.H{
			"isOnline": botOnline,
			"guilds":   guilds,
		},
	})
}

func (a *API) progress(c *gin.Context) {
	if a.XP == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "XP indisponible"})
		return
	}

	p, err := a.XP.GetProgress(c.Request.Context(), c.Param("guild"), c.Param("user"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (a *API) leaderboard(c *gin.Context) {
	if a.XP == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "XP indisponible"})
		return
	}

	limit := defaultLeaderboardSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit doit être un entier positif"})
			return
		}
		limit = min(n, maxLeaderboardSize)
	}

	top, err := a.XP.Leaderboard(c.Request.Context(), c.Param("guild"), limit)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"guildId": c.Param("guild"),
		"entries": top,
	})
}

func (a *API) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, xp.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, xp.ErrStoreUnavailable):
		logger.Warn("API XP : "+err.Error(), "WebServer")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Stockage XP indisponible"})
	default:
		logger.Error("API XP : "+err.Error(), "WebServer")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	}
}
