package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"portal-service/internal/middleware"
	"portal-service/internal/models"
	"portal-service/internal/repositories"
	"portal-service/internal/storage"
	"portal-service/internal/telemetry"
)

const maxUploadBytes = 10 << 20

var allowedUploadTypes = map[string]bool{
	"image/jpeg":         true,
	"image/png":          true,
	"image/webp":         true,
	"application/pdf":    true,
	"text/plain":         true,
	"application/zip":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// FileHandler manages uploads and download links for request attachments.
type FileHandler struct {
	fileRepo    repositories.FileRepository
	profileRepo repositories.ProfileRepository
	paymentRepo repositories.PaymentRepository
	store       storage.Store
	signer      *storage.URLSigner
	requests    *RequestHandler
	audit       *telemetry.AuditEmitter
}

// NewFileHandler builds a FileHandler.
func NewFileHandler(fileRepo repositories.FileRepository, profileRepo repositories.ProfileRepository, paymentRepo repositories.PaymentRepository, store storage.Store, signer *storage.URLSigner, requests *RequestHandler, audit *telemetry.AuditEmitter) *FileHandler {
	return &FileHandler{
		fileRepo:    fileRepo,
		profileRepo: profileRepo,
		paymentRepo: paymentRepo,
		store:       store,
		signer:      signer,
		requests:    requests,
		audit:       audit,
	}
}

// Upload stores a multipart file against a request. The blob goes into the
// object store first; if the database insert fails the blob is removed again.
func (h *FileHandler) Upload(c *gin.Context) {
	req, ok := h.requests.loadAccessibleRequest(c, c.PostForm("request_id"))
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if header.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file exceeds the 10MB limit"})
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !allowedUploadTypes[contentType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
		return
	}

	src, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
		return
	}
	defer src.Close()

	userID := c.GetInt("userID")
	objectKey := fmt.Sprintf("%d/%d/%s%s", req.ID, userID, uuid.NewString(), filepath.Ext(header.Filename))

	ctx := c.Request.Context()
	if err := h.store.Put(ctx, objectKey, contentType, src); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to store file"})
		return
	}

	file, err := h.fileRepo.CreateFile(ctx, models.File{
		RequestID:    req.ID,
		UploaderID:   userID,
		ObjectKey:    objectKey,
		OriginalName: header.Filename,
		ContentType:  contentType,
		SizeBytes:    header.Size,
	})
	if err != nil {
		if delErr := h.store.Delete(ctx, objectKey); delErr != nil {
			log.Printf("orphaned object %s after failed insert: %v", objectKey, delErr)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record file"})
		return
	}

	h.audit.Emit(ctx, "INFO", "file_uploaded", strconv.Itoa(file.ID), file.OriginalName, requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusCreated, gin.H{"file": file})
}

// ListFiles returns a request's files with expiring download links. Admin
// deliverables on a completed request stay locked for the client until the
// request has a paid payment.
func (h *FileHandler) ListFiles(c *gin.Context) {
	req, ok := h.requests.loadAccessibleRequest(c, c.Query("request_id"))
	if !ok {
		return
	}

	ctx := c.Request.Context()
	files, err := h.fileRepo.ListFilesForRequest(ctx, req.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load files"})
		return
	}

	adminUploaders, err := h.adminUploaders(c, files)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load uploaders"})
		return
	}

	gateDeliverables := false
	if middleware.RoleFromContext(c) == models.RoleClient && req.Status == models.StatusCompleted {
		paid, err := h.paymentRepo.HasPaidPayment(ctx, req.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check payment"})
			return
		}
		gateDeliverables = !paid
	}

	type fileResponse struct {
		models.File
		DownloadURL string `json:"download_url,omitempty"`
		Locked      bool   `json:"locked"`
	}

	resp := make([]fileResponse, 0, len(files))
	for _, f := range files {
		entry := fileResponse{File: f}
		if gateDeliverables && adminUploaders[f.UploaderID] {
			entry.Locked = true
		} else {
			url, err := h.signer.SignedURL(f.ID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign download link"})
				return
			}
			entry.DownloadURL = url
		}
		resp = append(resp, entry)
	}

	c.JSON(http.StatusOK, gin.H{"files": resp})
}

// Download streams a file identified by a signed token. The token itself is
// the authorization; no session is required.
func (h *FileHandler) Download(c *gin.Context) {
	fileID, err := strconv.Atoi(c.Param("file_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	grantedID, err := h.signer.VerifyToken(c.Query("token"))
	if err != nil || grantedID != fileID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired download token"})
		return
	}

	ctx := c.Request.Context()
	file, err := h.fileRepo.GetFile(ctx, fileID)
	if err != nil {
		if errors.Is(err, repositories.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load file"})
		return
	}

	body, err := h.store.Get(ctx, file.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch file"})
		return
	}
	defer body.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.OriginalName))
	c.DataFromReader(http.StatusOK, file.SizeBytes, file.ContentType, body, nil)
}

// DeleteFile removes a file record and its blob. Allowed for the uploader,
// the request owner and admins.
func (h *FileHandler) DeleteFile(c *gin.Context) {
	fileID, err := strconv.Atoi(c.Param("file_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	ctx := c.Request.Context()
	file, err := h.fileRepo.GetFile(ctx, fileID)
	if err != nil {
		if errors.Is(err, repositories.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load file"})
		return
	}

	req, ok := h.requests.loadAccessibleRequest(c, strconv.Itoa(file.RequestID))
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	isAdmin := middleware.RoleFromContext(c) == models.RoleAdmin
	if !isAdmin && file.UploaderID != userID && req.ClientID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
		return
	}

	if err := h.fileRepo.DeleteFile(ctx, fileID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete file"})
		return
	}
	if err := h.store.Delete(ctx, file.ObjectKey); err != nil {
		log.Printf("failed to delete object %s: %v", file.ObjectKey, err)
	}

	h.audit.Emit(ctx, "INFO", "file_deleted", strconv.Itoa(fileID), file.OriginalName, requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusOK, gin.H{"message": "file deleted"})
}

// adminUploaders maps uploader ids that belong to admin profiles.
func (h *FileHandler) adminUploaders(c *gin.Context, files []models.File) (map[int]bool, error) {
	ids := make([]int, 0, len(files))
	seen := map[int]struct{}{}
	for _, f := range files {
		if _, ok := seen[f.UploaderID]; !ok {
			seen[f.UploaderID] = struct{}{}
			ids = append(ids, f.UploaderID)
		}
	}

	profiles, err := h.profileRepo.BulkProfiles(c.Request.Context(), ids)
	if err != nil {
		return nil, err
	}

	admins := map[int]bool{}
	for _, p := range profiles {
		if p.Role == models.RoleAdmin {
			admins[p.ID] = true
		}
	}
	return admins, nil
}
