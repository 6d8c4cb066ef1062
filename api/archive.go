package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"voice-aftercare/service"
)

func ListArchiveHandler(chatSvc *service.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		records, err := chatSvc.Archive(c.Request.Context(), limit)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"consultations": records, "count": len(records)})
	}
}

func GetArchiveHandler(chatSvc *service.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := chatSvc.ArchivedSession(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}
