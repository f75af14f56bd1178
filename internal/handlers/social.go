package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nlp-tlp/quickgraph-sub000/internal/requestdata"
	"github.com/nlp-tlp/quickgraph-sub000/internal/services"
)

type SocialHandler struct {
	socialService services.SocialService
}

func NewSocialHandler(socialService services.SocialService) *SocialHandler {
	return &SocialHandler{socialService: socialService}
}

type commentRequest struct {
	DatasetItemID string `json:"dataset_item_id" binding:"required"`
	Context       string `json:"context"`
	Text          string `json:"text" binding:"required"`
}

func (sh *SocialHandler) AddComment(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.Username == "" {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	itemID, err := uuid.Parse(req.DatasetItemID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	comment, err := sh.socialService.AddComment(c.Request.Context(), projectID, rd.Username, itemID, req.Context, req.Text)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, comment)
}

func (sh *SocialHandler) ListNotifications(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.Username == "" {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	unreadOnly := c.Query("unread") == "true"

	rows, err := sh.socialService.ListNotifications(c.Request.Context(), rd.Username, unreadOnly)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"notifications": rows})
}
