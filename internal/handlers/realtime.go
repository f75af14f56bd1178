package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/logger"
	"github.com/nlp-tlp/quickgraph-sub000/internal/realtime"
	"github.com/nlp-tlp/quickgraph-sub000/internal/requestdata"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.Hub

	mu      sync.RWMutex
	clients map[uuid.UUID]*realtime.Client
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{
		log:     log.With("handler", "RealtimeHandler"),
		hub:     hub,
		clients: make(map[uuid.UUID]*realtime.Client),
	}
}

func (h *RealtimeHandler) Stream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.Username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	client := h.hub.NewClient(rd.Username)
	h.log.Info("realtime stream open", "annotator", rd.Username, "client_id", client.ID)

	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	// A project channel may be requested up front; subscribe/unsubscribe
	// handle the rest of the session.
	if ch := c.Query("channel"); ch != "" {
		h.hub.AddChannel(client, ch)
	}
	// The client id travels in the first event so the browser can address
	// subscribe/unsubscribe calls.
	client.Outbound <- realtime.Message{Event: "connected", Data: gin.H{"client_id": client.ID}}

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	delete(h.clients, client.ID)
	h.mu.Unlock()
	h.hub.CloseClient(client)
}

type channelRequest struct {
	ClientID string `json:"client_id" binding:"required"`
	Channel  string `json:"channel" binding:"required"`
}

func (h *RealtimeHandler) Subscribe(c *gin.Context) {
	client, channel, ok := h.resolve(c)
	if !ok {
		return
	}
	h.hub.AddChannel(client, channel)
	c.JSON(http.StatusOK, gin.H{"message": "subscribed", "channel": channel})
}

func (h *RealtimeHandler) Unsubscribe(c *gin.Context) {
	client, channel, ok := h.resolve(c)
	if !ok {
		return
	}
	h.hub.RemoveChannel(client, channel)
	c.JSON(http.StatusOK, gin.H{"message": "unsubscribed", "channel": channel})
}

func (h *RealtimeHandler) resolve(c *gin.Context) (*realtime.Client, string, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.Username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return nil, "", false
	}
	var req channelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel request"})
		return nil, "", false
	}
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client id"})
		return nil, "", false
	}

	h.mu.RLock()
	client, exists := h.clients[clientID]
	h.mu.RUnlock()
	if !exists || client.Username != rd.Username {
		c.JSON(http.StatusConflict, gin.H{"error": "no active stream for this client"})
		return nil, "", false
	}
	return client, req.Channel, true
}
