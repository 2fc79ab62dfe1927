package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Shanayardptrial/Passport-Photo-maker/config"
	"github.com/Shanayardptrial/Passport-Photo-maker/model"
	"github.com/Shanayardptrial/Passport-Photo-maker/service"
	"github.com/Shanayardptrial/Passport-Photo-maker/utils"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgNoImage          = "No image file provided"
	msgTooLarge         = "Image exceeds the upload size limit"
	msgUnsupportedType  = "Only image files are allowed (jpeg, jpg, png, webp)"
	msgProcessingFailed = "Failed to process image"
	msgNotFound         = "Photo not found"
)

// multipartOverhead is allowed on top of the file size limit for the
// multipart envelope.
const multipartOverhead = 1 << 20

// PhotoProcessor runs the passport photo pipeline.
type PhotoProcessor interface {
	Process(ctx context.Context, raw model.RawImage) *model.ProcessingResult
}

// ResultCache stores finished photos by content key.
type ResultCache interface {
	GetPhotoResult(ctx context.Context, key string) (*model.ProcessingResult, error)
	SetPhotoResult(ctx context.Context, key string, result *model.ProcessingResult) error
}

type PassportHandler struct {
	upload    *config.UploadConfig
	processor PhotoProcessor
	cache     ResultCache
	qualifier string
}

// NewPassportHandler builds the upload handler. cache may be nil; qualifier
// is mixed into cache keys so results for different geometries never collide.
func NewPassportHandler(upload *config.UploadConfig, processor PhotoProcessor, cache ResultCache, qualifier string) *PassportHandler {
	return &PassportHandler{
		upload:    upload,
		processor: processor,
		cache:     cache,
		qualifier: qualifier,
	}
}

// Create accepts a multipart "image" upload and answers with the finished
// passport photo as a PNG data URI.
func (h *PassportHandler) Create(c *gin.Context) {
	requestID := c.GetString(utils.RequestIDField)
	logger := utils.WithOperation("handler.passport", requestID)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.upload.MaxSize+multipartOverhead)

	file, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			reject(c, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		logger.Info("upload rejected", zap.Error(err))
		reject(c, http.StatusBadRequest, msgNoImage)
		return
	}

	if file.Size > h.upload.MaxSize {
		reject(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("%s (%d MB)", msgTooLarge, h.upload.MaxSize/(1024*1024)))
		return
	}

	declared := file.Header.Get("Content-Type")
	if !h.isAllowedType(declared) {
		reject(c, http.StatusUnsupportedMediaType, msgUnsupportedType)
		return
	}

	src, err := file.Open()
	if err != nil {
		reject(c, http.StatusBadRequest, msgNoImage)
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, h.upload.MaxSize+1))
	if err != nil {
		logger.Error("failed to read upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Error:   msgProcessingFailed,
			Details: err.Error(),
		})
		return
	}
	if len(data) == 0 {
		reject(c, http.StatusBadRequest, msgNoImage)
		return
	}

	sniffed := mimetype.Detect(data)
	if !h.isAllowedType(sniffed.String()) {
		logger.Info("upload content does not match an allowed type",
			zap.String("declared", declared),
			zap.String("detected", sniffed.String()))
		reject(c, http.StatusUnsupportedMediaType, msgUnsupportedType)
		return
	}

	logger.Info("file uploaded",
		zap.String("filename", file.Filename),
		zap.String("mime", sniffed.String()),
		zap.Int64("size", file.Size))

	ctx := service.WithRequestID(c.Request.Context(), requestID)
	cacheKey := utils.ContentKey(data, h.qualifier)

	if cached := h.lookup(ctx, logger, cacheKey); cached != nil {
		c.Header("X-Photo-Key", cacheKey)
		c.JSON(http.StatusOK, cached)
		return
	}

	result := h.processor.Process(ctx, model.RawImage{
		Data:     data,
		MIMEType: sniffed.String(),
		Filename: file.Filename,
	})

	if !result.Success {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Error:   msgProcessingFailed,
			Details: result.Error,
		})
		return
	}

	if result.BackgroundRemoved && h.cache != nil {
		if err := h.cache.SetPhotoResult(ctx, cacheKey, result); err != nil {
			logger.Warn("failed to set cache", zap.Error(err))
		}
	}

	c.Header("X-Photo-Key", cacheKey)
	c.JSON(http.StatusOK, result)
}

// Get returns a previously cached photo by key.
func (h *PassportHandler) Get(c *gin.Context) {
	key := c.Param("key")
	if key == "" || h.cache == nil {
		reject(c, http.StatusNotFound, msgNotFound)
		return
	}

	result, err := h.cache.GetPhotoResult(c.Request.Context(), key)
	if err != nil {
		utils.Logger.Error("failed to get photo result", zap.String("key", key), zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Error:   "Failed to look up photo",
			Details: err.Error(),
		})
		return
	}
	if result == nil {
		reject(c, http.StatusNotFound, msgNotFound)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *PassportHandler) lookup(ctx context.Context, logger *zap.Logger, key string) *model.ProcessingResult {
	if h.cache == nil {
		return nil
	}

	cached, err := h.cache.GetPhotoResult(ctx, key)
	if err != nil {
		logger.Warn("failed to get cache", zap.Error(err))
		return nil
	}
	if cached != nil {
		logger.Info("cache hit", zap.String("cache_key", key))
	}
	return cached
}

func (h *PassportHandler) isAllowedType(contentType string) bool {
	contentType, _, _ = strings.Cut(contentType, ";")
	contentType = strings.TrimSpace(contentType)
	for _, allowed := range h.upload.AllowedTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}

func reject(c *gin.Context, status int, message string) {
	c.JSON(status, model.ErrorResponse{
		Success: false,
		Error:   message,
	})
}
