package landmarks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type httpSource struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTP constructs a Source backed by a pose detection service.
//
// It uses the REST endpoint:
//
//	POST {baseURL}/detect
//
// with the raw image bytes as body and the image MIME type as Content-Type.
// The response is a landmarks document (see the sidecar format).
func NewHTTP(baseURL, token string, timeout time.Duration) Source {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *httpSource) Name() string {
	return "http:" + s.baseURL
}

func (s *httpSource) Detect(ctx context.Context, imagePath string) (Detection, error) {
	img, err := os.ReadFile(imagePath)
	if err != nil {
		return Detection{}, fmt.Errorf("cannot read image %s: %w", imagePath, err)
	}
	if len(img) == 0 {
		return Detection{}, fmt.Errorf("image %s is empty", imagePath)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/detect", bytes.NewReader(img))
	if err != nil {
		return Detection{}, err
	}
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(imagePath)))
	if ct == "" {
		ct = "application/octet-stream"
	}
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Detection{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Detection{}, fmt.Errorf("detect request failed: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	det, err := decodeDocument(bytes.NewReader(body))
	if err != nil {
		return Detection{}, err
	}
	return det, nil
}
