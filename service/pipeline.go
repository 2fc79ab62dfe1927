package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Shanayardptrial/Passport-Photo-maker/model"
	"github.com/Shanayardptrial/Passport-Photo-maker/utils"
	"go.uber.org/zap"
)

const (
	MessageWithRemoval = "Passport photo created with AI background removal"
	MessageFallback    = "Passport photo created (background removal unavailable)"
)

// Stage is a step of the passport photo pipeline.
type Stage string

const (
	StageReceived            Stage = "received"
	StageRemovingBackground  Stage = "removing_background"
	StageCompositingCutout   Stage = "compositing_cutout"
	StageCompositingFallback Stage = "compositing_fallback"
	StageDone                Stage = "done"
	StageFailed              Stage = "failed"
)

// Pipeline turns an upload into a bordered passport photo. A remover
// failure is absorbed by compositing the original upload instead; only
// compositing and encoding failures end the request in error.
type Pipeline struct {
	remover    Remover
	compositor Compositor
	geometry   Geometry
	timeout    time.Duration
}

func NewPipeline(remover Remover, compositor Compositor, geometry Geometry, timeout time.Duration) *Pipeline {
	return &Pipeline{
		remover:    remover,
		compositor: compositor,
		geometry:   geometry,
		timeout:    timeout,
	}
}

func (p *Pipeline) Geometry() Geometry {
	return p.geometry
}

// Process runs one request to completion. It never returns nil.
func (p *Pipeline) Process(ctx context.Context, raw model.RawImage) *model.ProcessingResult {
	requestID, _ := ctx.Value(RequestIDKey).(string)
	if requestID == "" {
		requestID = utils.NewRequestID()
	}
	logger := utils.WithOperation("pipeline.process", requestID)
	start := time.Now()

	logger.Info("stage", zap.String("stage", string(StageReceived)),
		zap.String("filename", raw.Filename),
		zap.String("mime", raw.MIMEType),
		zap.Int("size", len(raw.Data)))

	logger.Info("stage", zap.String("stage", string(StageRemovingBackground)))
	cutout, err := p.removeBackground(ctx, raw)

	var (
		source  = cutout
		mode    = ModeCutout
		stage   = StageCompositingCutout
		message = MessageWithRemoval
	)
	if err != nil {
		logger.Warn("background removal unavailable, falling back", zap.Error(err))
		source, mode, stage, message = raw.Data, ModeOpaque, StageCompositingFallback, MessageFallback
	}

	logger.Info("stage", zap.String("stage", string(stage)))
	photo, err := p.compositor.Compose(source, mode, p.geometry)
	if err != nil {
		return p.fail(logger, utils.NewOperationError("pipeline."+string(stage), requestID, err))
	}

	uri, err := EncodeDataURI(MIMEPNG, photo)
	if err != nil {
		return p.fail(logger, utils.NewOperationError("pipeline.encode", requestID, err))
	}

	logger.Info("stage", zap.String("stage", string(StageDone)),
		zap.String("mode", mode.String()),
		zap.Int("bytes", len(photo)),
		zap.Duration("duration", time.Since(start)))

	return &model.ProcessingResult{
		Success:           true,
		Image:             uri,
		Message:           message,
		BackgroundRemoved: mode == ModeCutout,
	}
}

func (p *Pipeline) fail(logger *zap.Logger, err error) *model.ProcessingResult {
	logger.Error("stage", zap.String("stage", string(StageFailed)), zap.Error(err))
	return &model.ProcessingResult{
		Success: false,
		Error:   err.Error(),
	}
}

// removeBackground waits for the remover at most p.timeout. A remover that
// ignores cancellation is abandoned, not awaited.
func (p *Pipeline) removeBackground(ctx context.Context, raw model.RawImage) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type outcome struct {
		data []byte
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: remover panic: %v", ErrRemovalFailed, r)}
			}
		}()
		data, err := p.remover.Remove(ctx, raw)
		done <- outcome{data: data, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return nil, o.err
		}
		if len(o.data) == 0 {
			return nil, fmt.Errorf("%w: no cutout produced", ErrRemovalFailed)
		}
		return o.data, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrRemovalFailed, ctx.Err())
	}
}

type contextKey string

// RequestIDKey carries the request ID through the context.
const RequestIDKey contextKey = "request_id"

// WithRequestID stores id in ctx for the pipeline's logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}
