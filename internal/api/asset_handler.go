package api

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"menufolio/internal/api/middleware"
	"menufolio/internal/apperr"
	"menufolio/internal/storage"
)

// assetMIMEExtensions maps the accepted image types to the stored suffix.
var assetMIMEExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// AssetHandler 负责处理菜品图片原件的上传与访问。
// Items persist their image inline as a data URI; the asset endpoints keep
// the original upload in object storage so clients can link to it without
// shipping the base64 payload around.
type AssetHandler struct {
	Storage   storage.ObjectStore
	Logger    *slog.Logger
	ClamdAddr string
	MaxBytes  int64
}

// NewAssetHandler 返回 AssetHandler 实例。
func NewAssetHandler(storageClient storage.ObjectStore, logger *slog.Logger, clamdAddr string, maxBytes int64) *AssetHandler {
	return &AssetHandler{
		Storage:   storageClient,
		Logger:    logger,
		ClamdAddr: clamdAddr,
		MaxBytes:  maxBytes,
	}
}

// UploadAsset 处理受保护的图片上传，按需在上传前扫描病毒。
func (h *AssetHandler) UploadAsset(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	if file.Size > h.MaxBytes {
		BadRequest(c, "Invalid image file: Must be JPEG/PNG/WEBP under 5MB")
		return
	}

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	data, err := io.ReadAll(io.LimitReader(fileReader, h.MaxBytes+1))
	fileReader.Close()
	if err != nil || int64(len(data)) > h.MaxBytes {
		BadRequest(c, "Invalid image file: Must be JPEG/PNG/WEBP under 5MB")
		return
	}

	contentType := http.DetectContentType(data)
	ext, allowed := assetMIMEExtensions[contentType]
	if !allowed {
		BadRequest(c, "Invalid image file: Must be JPEG/PNG/WEBP under 5MB")
		return
	}

	if h.ClamdAddr != "" {
		if err := h.scanData(data); err != nil {
			Fail(c, h.Logger, apperr.Wrap(apperr.ValidationFailed, "malicious file detected", err), "", "failed to scan file")
			return
		}
	}

	objectKey := fmt.Sprintf("menu-assets/%d/%s%s", principal.ID, uuid.NewString(), ext)
	if _, err := h.Storage.UploadFile(c.Request.Context(), objectKey, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		h.Logger.Error("upload file", slog.Any("error", err))
		Internal(c, "failed to upload file")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"objectKey": objectKey})
}

// scanData streams the upload through clamd and refuses anything that is
// not a clean verdict.
func (h *AssetHandler) scanData(data []byte) error {
	clamdClient := clamd.NewClamd(h.ClamdAddr)
	abortChan := make(chan bool)
	scanChan, err := clamdClient.ScanStream(bytes.NewReader(data), abortChan)
	if err != nil {
		return fmt.Errorf("scan stream: %w", err)
	}
	defer close(abortChan)
	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return fmt.Errorf("scan verdict: %s", result.Status)
		}
	}
	return nil
}

// ListAssets 列出用户上传的图片原件。
func (h *AssetHandler) ListAssets(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	limitStr := c.DefaultQuery("limit", "60")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 60
	}
	if limit > 200 {
		limit = 200
	}

	prefix := fmt.Sprintf("menu-assets/%d/", principal.ID)
	objects, err := h.Storage.ListObjects(c.Request.Context(), prefix, limit)
	if err != nil {
		h.Logger.Error("list assets", slog.Any("error", err))
		Internal(c, "failed to list assets")
		return
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})

	items := make([]gin.H, 0, len(objects))
	for _, obj := range objects {
		url, err := h.Storage.GeneratePresignedURL(c.Request.Context(), obj.Key, 10*time.Minute)
		if err != nil {
			h.Logger.Error("generate asset url", slog.String("objectKey", obj.Key), slog.Any("error", err))
			continue
		}
		items = append(items, gin.H{
			"objectKey":    obj.Key,
			"previewUrl":   url,
			"size":         obj.Size,
			"lastModified": obj.LastModified,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetAssetURL 返回图片原件的临时预签名 URL。
func (h *AssetHandler) GetAssetURL(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	objectKey := c.Query("key")
	if !isValidMenuAssetObjectKey(principal.ID, objectKey) {
		BadRequest(c, "invalid object key")
		return
	}

	signedURL, err := h.Storage.GeneratePresignedURL(c.Request.Context(), objectKey, 15*time.Minute)
	if err != nil {
		h.Logger.Error("generate presigned url", slog.Any("error", err))
		Internal(c, "failed to generate url")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

// DeleteAsset 删除图片原件，幂等。
func (h *AssetHandler) DeleteAsset(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	objectKey := c.Query("key")
	if !isValidMenuAssetObjectKey(principal.ID, objectKey) {
		BadRequest(c, "invalid object key")
		return
	}

	if err := h.Storage.DeleteObject(c.Request.Context(), objectKey); err != nil {
		h.Logger.Error("delete asset", slog.Any("error", err))
		Internal(c, "failed to delete asset")
		return
	}

	c.Status(http.StatusNoContent)
}
