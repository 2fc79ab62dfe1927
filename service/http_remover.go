package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/Shanayardptrial/Passport-Photo-maker/config"
	"github.com/Shanayardptrial/Passport-Photo-maker/model"
)

// maxCutoutSize caps the response body read from the removal service.
const maxCutoutSize = 50 << 20

// HTTPRemover calls a remove.bg compatible API: the image is posted as the
// image_file multipart field and the cutout comes back as the response body.
type HTTPRemover struct {
	endpoint string
	apiKey   string
	size     string
	client   *http.Client
}

// NewHTTPRemover builds a remover without a client timeout; the caller's
// context bounds each request.
func NewHTTPRemover(cfg *config.HTTPConfig, client *http.Client) *HTTPRemover {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPRemover{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		size:     cfg.Size,
		client:   client,
	}
}

func (r *HTTPRemover) Remove(ctx context.Context, img model.RawImage) ([]byte, error) {
	body, contentType, err := r.buildBody(img)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrRemovalFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemovalFailed, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "image/png")
	if r.apiKey != "" {
		req.Header.Set("X-Api-Key", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemovalFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCutoutSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrRemovalFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrRemovalFailed, resp.StatusCode, truncate(data, 256))
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "image/") || len(data) == 0 {
		return nil, fmt.Errorf("%w: response is not an image (Content-Type: %s)", ErrRemovalFailed, resp.Header.Get("Content-Type"))
	}

	return data, nil
}

func (r *HTTPRemover) buildBody(img model.RawImage) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if r.size != "" {
		if err := writer.WriteField("size", r.size); err != nil {
			return nil, "", err
		}
	}

	filename := img.Filename
	if filename == "" {
		filename = "upload" + inputExt(img)
	}
	part, err := writer.CreateFormFile("image_file", filepath.Base(filename))
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}
