package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"portal-service/internal/middleware"
	"portal-service/internal/models"
	"portal-service/internal/repositories"
	"portal-service/internal/storage"
	"portal-service/internal/telemetry"
)

// RequestHandler manages the service-request lifecycle endpoints.
type RequestHandler struct {
	requestRepo repositories.RequestRepository
	fileRepo    repositories.FileRepository
	messageRepo repositories.MessageRepository
	profileRepo repositories.ProfileRepository
	store       storage.Store
	audit       *telemetry.AuditEmitter
}

// NewRequestHandler builds a RequestHandler.
func NewRequestHandler(requestRepo repositories.RequestRepository, fileRepo repositories.FileRepository, messageRepo repositories.MessageRepository, profileRepo repositories.ProfileRepository, store storage.Store, audit *telemetry.AuditEmitter) *RequestHandler {
	return &RequestHandler{
		requestRepo: requestRepo,
		fileRepo:    fileRepo,
		messageRepo: messageRepo,
		profileRepo: profileRepo,
		store:       store,
		audit:       audit,
	}
}

// ListRequests returns requests visible to the caller: all of them for
// admins, own requests for clients. Admin listings carry the client's
// profile so staff can tell whose request it is.
func (h *RequestHandler) ListRequests(c *gin.Context) {
	userID := c.GetInt("userID")
	role := middleware.RoleFromContext(c)

	var (
		requests []models.Request
		err      error
	)
	switch role {
	case models.RoleAdmin:
		requests, err = h.requestRepo.ListRequests(c.Request.Context())
	case models.RoleClient:
		requests, err = h.requestRepo.ListRequestsForClient(c.Request.Context(), userID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load requests"})
		return
	}

	type requestResponse struct {
		models.Request
		ClientName  string `json:"client_name,omitempty"`
		ClientEmail string `json:"client_email,omitempty"`
	}

	responses := make([]requestResponse, 0, len(requests))
	if role == models.RoleAdmin {
		clientIDs := make([]int, 0, len(requests))
		seen := map[int]struct{}{}
		for _, req := range requests {
			if _, ok := seen[req.ClientID]; !ok {
				seen[req.ClientID] = struct{}{}
				clientIDs = append(clientIDs, req.ClientID)
			}
		}
		profiles, err := h.profileRepo.BulkProfiles(c.Request.Context(), clientIDs)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load client profiles"})
			return
		}
		byID := map[int]models.Profile{}
		for _, p := range profiles {
			byID[p.ID] = p
		}
		for _, req := range requests {
			responses = append(responses, requestResponse{
				Request:     req,
				ClientName:  byID[req.ClientID].Name,
				ClientEmail: byID[req.ClientID].Email,
			})
		}
	} else {
		for _, req := range requests {
			responses = append(responses, requestResponse{Request: req})
		}
	}

	c.JSON(http.StatusOK, gin.H{"requests": responses})
}

// GetRequest returns a single request the caller can access.
func (h *RequestHandler) GetRequest(c *gin.Context) {
	req, ok := h.loadAccessibleRequest(c, c.Param("request_id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": req})
}

// CreateRequest opens a new pending request for the caller.
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var body struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	title := strings.TrimSpace(body.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	userID := c.GetInt("userID")
	req, err := h.requestRepo.CreateRequest(c.Request.Context(), userID, title, strings.TrimSpace(body.Description))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create request"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "request_created", strconv.Itoa(req.ID), req.Title, requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusCreated, gin.H{"request": req})
}

// UpdateStatus advances a request exactly one step through the lifecycle.
// Admin only; non-adjacent targets are rejected without mutation.
func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	if middleware.RoleFromContext(c) != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
		return
	}

	requestID, err := strconv.Atoi(c.Query("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	var body struct {
		Status models.RequestStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !body.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	req, err := h.requestRepo.GetRequest(c.Request.Context(), requestID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRequestNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "request not found"})
		return
	}

	if !req.Status.CanTransitionTo(body.Status) {
		c.JSON(http.StatusConflict, gin.H{"error": "status can only advance one step forward"})
		return
	}

	updated, err := h.requestRepo.UpdateStatus(c.Request.Context(), requestID, req.Status, body.Status)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRequestNotFound) {
			// The guarded update lost a race with another transition.
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": "failed to update request status"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "request_status_changed", strconv.Itoa(updated.ID), string(updated.Status), requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusOK, gin.H{
		"request":      updated,
		"status_label": updated.Status.Label(),
	})
}

// CancelRequest deletes a pending request along with its files and messages.
// Owner or admin only; requests past pending cannot be cancelled.
func (h *RequestHandler) CancelRequest(c *gin.Context) {
	requestID, err := strconv.Atoi(c.Query("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	userID := c.GetInt("userID")
	role := middleware.RoleFromContext(c)

	req, err := h.requestRepo.GetRequest(c.Request.Context(), requestID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRequestNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "request not found"})
		return
	}

	if role != models.RoleAdmin && req.ClientID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
		return
	}
	if req.Status != models.StatusPending {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only pending requests can be cancelled"})
		return
	}

	// Remove stored objects first; the row delete cascades the records.
	// A storage failure is logged and the cancellation continues, matching
	// the best-effort contract for external-store inconsistencies.
	files, err := h.fileRepo.ListFilesForRequest(c.Request.Context(), requestID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load request files"})
		return
	}
	for _, file := range files {
		if err := h.store.Delete(c.Request.Context(), file.ObjectKey); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			log.Printf("storage delete failed for %s: %v", file.ObjectKey, err)
		}
	}

	if err := h.requestRepo.DeleteRequest(c.Request.Context(), requestID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRequestNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "failed to cancel request"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "request_cancelled", strconv.Itoa(requestID), req.Title, requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusOK, gin.H{"message": "request cancelled"})
}

// loadAccessibleRequest parses an id, loads the request and enforces the
// owner-or-admin access rule shared by several handlers.
func (h *RequestHandler) loadAccessibleRequest(c *gin.Context, rawID string) (models.Request, bool) {
	requestID, err := strconv.Atoi(rawID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return models.Request{}, false
	}

	req, err := h.requestRepo.GetRequest(c.Request.Context(), requestID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRequestNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "request not found"})
		return models.Request{}, false
	}

	if !callerCanAccess(c, req) {
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
		return models.Request{}, false
	}
	return req, true
}

// callerCanAccess applies the owner-or-admin rule against the session.
func callerCanAccess(c *gin.Context, req models.Request) bool {
	switch middleware.RoleFromContext(c) {
	case models.RoleAdmin:
		return true
	case models.RoleClient:
		return req.ClientID == c.GetInt("userID")
	}
	return false
}
