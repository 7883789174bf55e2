// Package api exposes the game service over HTTP. Clients poll; there is no
// push transport.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/fableweave/fableweave/internal/game"
	"github.com/fableweave/fableweave/internal/service"
)

type Router struct {
	svc *service.GameService
	log zerolog.Logger
}

func NewRouter(svc *service.GameService, log zerolog.Logger) *Router {
	return &Router{svc: svc, log: log}
}

// Handler builds the gin engine with all routes mounted.
func (rt *Router) Handler() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(rt.requestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	api := r.Group("/api")
	{
		api.POST("/games", rt.createGame)
		api.GET("/games/:code", rt.getGame)
		api.POST("/games/:code/join", rt.joinGame)
		api.POST("/games/:code/advance", rt.advanceGame)
		api.POST("/games/:code/submissions", rt.submitText)
		api.GET("/games/:code/submissions", rt.availableSubmissions)
		api.POST("/games/:code/votes", rt.submitVotes)
		api.POST("/games/:code/winners", rt.computeWinners)
		api.POST("/games/:code/select", rt.selectOption)
		api.GET("/games/:code/players/:playerID/outcomes", rt.outcomeAllocation)
	}
	return r
}

func (rt *Router) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		rt.log.Info().
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Int("status", c.Writer.Status()).
			Dur("dur", time.Since(start)).
			Msg("http")
	}
}

// fail maps domain errors onto HTTP statuses.
func (rt *Router) fail(c *gin.Context, err error) {
	switch {
	case game.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case game.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, game.ErrInvalidPhase):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, game.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		rt.log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (rt *Router) createGame(c *gin.Context) {
	var req struct {
		ProfileID string `json:"profileId"`
	}
	_ = c.BindJSON(&req) // empty body is fine
	sess, err := rt.svc.CreateSession(c.Request.Context(), req.ProfileID)
	if err != nil {
		rt.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (rt *Router) getGame(c *gin.Context) {
	sess, err := rt.svc.GetSession(c.Request.Context(), c.Param("code"))
	if err != nil {
		rt.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (rt *Router) joinGame(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	player, err := rt.svc.JoinSession(c.Request.Context(), c.Param("code"), req.Name)
	if err != nil {
		rt.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, player)
}

func (rt *Router) advanceGame(c *gin.Context) {
	var req struct {
		From string `json:"from"`
	}
	_ = c.BindJSON(&req)
	sess, err := rt.svc.AdvanceGameState(c.Request.Context(), c.Param("code"), game.GameState(req.From))
	if err != nil {
		rt.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (rt *Router) submitText(c *gin.Context) {
	var req struct {
		AuthorID           string `json:"authorId"`
		Text               string `json:"text"`
		ParentSubmissionID string `json:"parentSubmissionId"`
		OutcomeTypeHint    string `json:"outcomeTypeHint"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	phase, err := rt.svc.SubmitText(c.Request.Context(), c.Param("code"),
		req.AuthorID, req.Text, req.ParentSubmissionID, req.OutcomeTypeHint)
	if err != nil {
		rt.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, phase)
}

func (rt *Router) availableSubmissions(c *gin.Context) {
	count := 0
	if v := c.Query("count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			count = n
		}
	}
	subs, err := rt.svc.GetAvailableSubmissions(c.Request.Context(), c.Param("code"), c.Query("playerId"), count)
	if err != nil {
		rt.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

func (rt *Router) submitVotes(c *gin.Context) {
	var req struct {
		Votes []game.PlayerVote `json:"votes"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	phase, err := rt.svc.SubmitVotes(c.Request.Context(), c.Param("code"), req.Votes)
	if err != nil {
		rt.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, phase)
}

func (rt *Router) computeWinners(c *gin.Context) {
	winners, err := rt.svc.ComputeWinners(c.Request.Context(), c.Param("code"))
	if err != nil {
		rt.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, winners)
}

func (rt *Router) selectOption(c *gin.Context) {
	var req struct {
		PlayerID string `json:"playerId"`
		StoryID  string `json:"storyId"`
		OptionID string `json:"optionId"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	sess, err := rt.svc.SelectStoryOption(c.Request.Context(), c.Param("code"), req.PlayerID, req.StoryID, req.OptionID)
	if err != nil {
		rt.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (rt *Router) outcomeAllocation(c *gin.Context) {
	alloc, err := rt.svc.GetOutcomeAllocationForPlayer(c.Request.Context(), c.Param("code"), c.Param("playerID"))
	if err != nil {
		rt.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, alloc)
}
