package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portal-service/internal/repositories"
	"portal-service/internal/ws"
)

// PresenceHandler reports which users currently hold a live channel
// connection for a request.
type PresenceHandler struct {
	presence    *ws.Presence
	profileRepo repositories.ProfileRepository
	requests    *RequestHandler
}

// NewPresenceHandler builds a PresenceHandler.
func NewPresenceHandler(presence *ws.Presence, profileRepo repositories.ProfileRepository, requests *RequestHandler) *PresenceHandler {
	return &PresenceHandler{presence: presence, profileRepo: profileRepo, requests: requests}
}

// GetPresence lists the members connected to a request's channel.
func (h *PresenceHandler) GetPresence(c *gin.Context) {
	req, ok := h.requests.loadAccessibleRequest(c, c.Query("request_id"))
	if !ok {
		return
	}

	ctx := c.Request.Context()
	memberIDs, err := h.presence.Members(ctx, req.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load presence"})
		return
	}

	profiles, err := h.profileRepo.BulkProfiles(ctx, memberIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load members"})
		return
	}

	type member struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	members := make([]member, 0, len(profiles))
	for _, p := range profiles {
		members = append(members, member{ID: p.ID, Name: p.Name})
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}
