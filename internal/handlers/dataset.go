package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nlp-tlp/quickgraph-sub000/internal/requestdata"
	"github.com/nlp-tlp/quickgraph-sub000/internal/services"
)

type DatasetHandler struct {
	datasetService services.DatasetService
	pretagService  services.PretagService
}

func NewDatasetHandler(datasetService services.DatasetService, pretagService services.PretagService) *DatasetHandler {
	return &DatasetHandler{datasetService: datasetService, pretagService: pretagService}
}

func (dh *DatasetHandler) Filter(c *gin.Context) {
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
	var filters services.DatasetFilters
	if err := c.ShouldBindJSON(&filters); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	out, err := dh.datasetService.Filter(c.Request.Context(), projectID, rd.Username, filters)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, out)
}

type saveRequest struct {
	DatasetItemIDs []string `json:"dataset_item_ids" binding:"required"`
	Saved          bool     `json:"saved"`
}

func (dh *DatasetHandler) Save(c *gin.Context) {
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
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	itemIDs := make([]uuid.UUID, 0, len(req.DatasetItemIDs))
	for _, raw := range req.DatasetItemIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
		itemIDs = append(itemIDs, id)
	}

	changed, err := dh.datasetService.SetSaveState(c.Request.Context(), projectID, rd.Username, itemIDs, req.Saved)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"count": changed, "saved": req.Saved})
}

type flagRequest struct {
	DatasetItemID string `json:"dataset_item_id" binding:"required"`
	State         string `json:"state" binding:"required"`
	Active        bool   `json:"active"`
}

func (dh *DatasetHandler) Flag(c *gin.Context) {
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
	var req flagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	itemID, err := uuid.Parse(req.DatasetItemID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	if err := dh.datasetService.SetFlag(c.Request.Context(), projectID, rd.Username, itemID, req.State, req.Active); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"dataset_item_id": req.DatasetItemID, "state": req.State, "active": req.Active})
}

type pretagRequest struct {
	ResourceID string `json:"resource_id" binding:"required"`
}

func (dh *DatasetHandler) Pretag(c *gin.Context) {
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
	var req pretagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	resourceID, err := uuid.Parse(req.ResourceID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	out, err := dh.pretagService.ApplyGazetteer(c.Request.Context(), projectID, rd.Username, resourceID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, out)
}
