package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nlp-tlp/quickgraph-sub000/internal/requestdata"
	"github.com/nlp-tlp/quickgraph-sub000/internal/services"
)

type AgreementHandler struct {
	agreementService services.AgreementService
}

func NewAgreementHandler(agreementService services.AgreementService) *AgreementHandler {
	return &AgreementHandler{agreementService: agreementService}
}

func (ah *AgreementHandler) Get(c *gin.Context) {
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
	itemID, err := uuid.Parse(c.Query("dataset_item_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	out, err := ah.agreementService.ComputeForItem(c.Request.Context(), projectID, itemID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, out)
}
