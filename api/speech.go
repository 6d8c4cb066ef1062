package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"voice-aftercare/internal/tts"
	"voice-aftercare/model"
)

// SpeechHandler renders text through the speech chain and returns the mp3 bytes
func SpeechHandler(speech tts.Provider, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.SpeechRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		audio, err := speech.Synthesize(ctx, req.Text)
		switch {
		case err == nil:
		case errors.Is(err, tts.ErrTTSDisabled):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "speech synthesis unavailable"})
			return
		case errors.Is(err, tts.ErrEmptyText):
			c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to speak"})
			return
		case errors.Is(err, context.DeadlineExceeded):
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "speech synthesis timed out"})
			return
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		if audio.Duration > 0 {
			c.Header("X-Audio-Duration-Ms", strconv.FormatInt(audio.Duration.Milliseconds(), 10))
		}
		c.Data(http.StatusOK, "audio/mpeg", audio.Data)
	}
}
