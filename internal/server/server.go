// Package server is the thin HTTP adapter over the answering pipeline.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"rag-chatbot/internal/rag"
)

// requestTimeout bounds one exchange end to end; embedding, store, and
// generation calls all inherit it through the request context.
const requestTimeout = 2 * time.Minute

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Response    string   `json:"response"`
	ContextUsed bool     `json:"context_used"`
	Sources     []string `json:"sources"`
}

// New builds the echo application around the pipeline.
func New(pipeline *rag.Pipeline, corsOrigins []string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: true,
	}))
	e.Use(requestLogger)

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		log.Error().Err(err).Int("status", code).Str("path", c.Request().URL.Path).Msg("Request failed")
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]string{"error": msg})
		}
	}

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"message": "RAG ChatBot API",
			"endpoints": map[string]string{
				"chat":          "/api/chat",
				"clear_history": "/api/clear-history",
				"health":        "/api/health",
			},
		})
	})

	api := e.Group("/api")
	api.POST("/chat", chatHandler(pipeline))
	api.POST("/clear-history", clearHistoryHandler(pipeline))
	api.GET("/health", healthHandler)

	return e
}

func chatHandler(pipeline *rag.Pipeline) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req ChatRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		if req.Message == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "message is required")
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
		defer cancel()

		answer, err := pipeline.Answer(ctx, req.Message)
		if err != nil {
			return err
		}

		sources := answer.Sources
		if sources == nil {
			sources = []string{}
		}
		return c.JSON(http.StatusOK, ChatResponse{
			Response:    answer.Text,
			ContextUsed: answer.ContextUsed,
			Sources:     sources,
		})
	}
}

func clearHistoryHandler(pipeline *rag.Pipeline) echo.HandlerFunc {
	return func(c echo.Context) error {
		pipeline.ResetConversation()
		return c.JSON(http.StatusOK, map[string]string{"message": "Chat history cleared"})
	}
}

func healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := uuid.NewString()
		start := time.Now()

		log.Debug().
			Str("request_id", requestID).
			Str("method", c.Request().Method).
			Str("path", c.Request().URL.Path).
			Str("client", c.RealIP()).
			Msg("Request started")

		err := next(c)

		log.Info().
			Str("request_id", requestID).
			Int("status", c.Response().Status).
			Dur("took", time.Since(start)).
			Msg("Request completed")
		return err
	}
}
