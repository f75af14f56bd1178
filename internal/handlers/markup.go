package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/nlp-tlp/quickgraph-sub000/internal/domain"
	"github.com/nlp-tlp/quickgraph-sub000/internal/requestdata"
	"github.com/nlp-tlp/quickgraph-sub000/internal/services"
)

type MarkupHandler struct {
	markupService services.MarkupService
}

func NewMarkupHandler(markupService services.MarkupService) *MarkupHandler {
	return &MarkupHandler{markupService: markupService}
}

type applyMarkupRequest struct {
	ProjectID      string `json:"project_id" binding:"required"`
	DatasetItemID  string `json:"dataset_item_id" binding:"required"`
	AnnotationType string `json:"annotation_type" binding:"required"`
	LabelID        string `json:"label_id" binding:"required"`
	StartIndex     int    `json:"start_index"`
	EndIndex       int    `json:"end_index"`
	SourceID       string `json:"source_id"`
	TargetID       string `json:"target_id"`
	Suggested      bool   `json:"suggested"`
	ApplyAll       bool   `json:"apply_all"`
}

func (mh *MarkupHandler) Apply(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.Username == "" {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req applyMarkupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	in := services.ApplyMarkupInput{
		Username:       rd.Username,
		AnnotationType: req.AnnotationType,
		LabelID:        req.LabelID,
		StartIndex:     req.StartIndex,
		EndIndex:       req.EndIndex,
		Suggested:      req.Suggested,
		ApplyAll:       req.ApplyAll,
	}
	var err error
	if in.ProjectID, err = uuid.Parse(req.ProjectID); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if in.DatasetItemID, err = uuid.Parse(req.DatasetItemID); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if req.AnnotationType == types.ClassificationRelation {
		if in.SourceID, err = uuid.Parse(req.SourceID); err != nil {
			RespondError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
		if in.TargetID, err = uuid.Parse(req.TargetID); err != nil {
			RespondError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
	}

	out, err := mh.markupService.Apply(c.Request.Context(), in)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, out)
}

func (mh *MarkupHandler) Accept(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.Username == "" {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	markupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	applyAll := c.Query("apply_all") == "true"

	out, err := mh.markupService.Accept(c.Request.Context(), rd.Username, markupID, applyAll)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, out)
}

func (mh *MarkupHandler) Delete(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.Username == "" {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	markupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	applyAll := c.Query("apply_all") == "true"

	out, err := mh.markupService.Delete(c.Request.Context(), rd.Username, markupID, applyAll)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, out)
}
