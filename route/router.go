package route

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voice-aftercare/api"
	"voice-aftercare/internal/tts"
	"voice-aftercare/service"
)

// Services everything the HTTP surface dispatches to
type Services struct {
	Chat           *service.ChatService
	Voice          *service.VoiceService
	Speech         tts.Provider
	SpeechTimeout  time.Duration
	AllowedOrigins []string
	Log            *zap.SugaredLogger
}

func Register(r *gin.Engine, svc Services) {

	// 헬스 체크
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	sessionGroup := r.Group("/sessions")
	{
		sessionGroup.POST("", api.StartSessionHandler(svc.Chat))
		sessionGroup.GET("/:id", api.GetSessionHandler(svc.Chat))
		sessionGroup.DELETE("/:id", api.EndSessionHandler(svc.Chat))
		sessionGroup.POST("/:id/turns", api.TurnHandler(svc.Chat))
	}

	archiveGroup := r.Group("/archive")
	{
		archiveGroup.GET("", api.ListArchiveHandler(svc.Chat))
		archiveGroup.GET("/:id", api.GetArchiveHandler(svc.Chat))
	}

	r.POST("/speech", api.SpeechHandler(svc.Speech, svc.SpeechTimeout))
}

// NewHandler registers the gin routes and mounts the websocket voice channel in
// front of them; the upgrade must hijack the raw connection.
func NewHandler(r *gin.Engine, svc Services) http.Handler {
	Register(r, svc)

	mux := http.NewServeMux()
	mux.Handle("GET /voice", api.VoiceHandler(svc.Voice, svc.AllowedOrigins, svc.Log))
	mux.Handle("/", r)
	return mux
}
