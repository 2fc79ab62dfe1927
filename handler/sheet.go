package handler

import (
	"errors"
	"net/http"

	"github.com/Shanayardptrial/Passport-Photo-maker/model"
	"github.com/Shanayardptrial/Passport-Photo-maker/service"
	"github.com/Shanayardptrial/Passport-Photo-maker/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// SheetRenderer tiles a finished photo onto a print sheet.
type SheetRenderer interface {
	Compose(photo []byte, count int) ([]byte, error)
	Layout() service.SheetLayout
}

type SheetHandler struct {
	renderer SheetRenderer
	validate *validator.Validate
}

func NewSheetHandler(renderer SheetRenderer) *SheetHandler {
	return &SheetHandler{
		renderer: renderer,
		validate: validator.New(),
	}
}

// Create renders count copies of a photo data URI onto one sheet.
func (h *SheetHandler) Create(c *gin.Context) {
	logger := utils.WithOperation("handler.sheet", c.GetString(utils.RequestIDField))

	var req model.SheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Error:   "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Error:   "Invalid sheet request",
			Details: err.Error(),
		})
		return
	}

	_, photo, err := service.DecodeDataURI(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Error:   "Invalid image",
			Details: err.Error(),
		})
		return
	}

	sheet, err := h.renderer.Compose(photo, req.Count)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrSheetCapacity) || errors.Is(err, service.ErrDecode) {
			status = http.StatusBadRequest
		}
		logger.Warn("sheet rendering failed", zap.Int("count", req.Count), zap.Error(err))
		c.JSON(status, model.ErrorResponse{
			Success: false,
			Error:   "Failed to render sheet",
			Details: err.Error(),
		})
		return
	}

	uri, err := service.EncodeDataURI(service.MIMEPNG, sheet)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Error:   "Failed to render sheet",
			Details: err.Error(),
		})
		return
	}

	layout := h.renderer.Layout()
	logger.Info("sheet rendered", zap.Int("count", req.Count), zap.Int("bytes", len(sheet)))

	c.JSON(http.StatusOK, model.SheetResponse{
		Success: true,
		Image:   uri,
		Count:   req.Count,
		Width:   layout.Width,
		Height:  layout.Height,
	})
}
