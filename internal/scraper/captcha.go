package scraper

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// The slider background is rendered into the first canvas inside the
// #slideVerify widget.
const captchaCanvasJS = `document.getElementById("slideVerify").childNodes[0].toDataURL("image/png")`

// Empirical correction for the model's systematic bias: the reported gap
// offset lands short of the real one by a constant factor.
const offsetCompensation = 1.06

// OffsetSolver infers the horizontal pixel offset of the captcha gap from
// the background image. Implementations must be stateless.
type OffsetSolver interface {
	Solve(ctx context.Context, image []byte) (float64, error)
}

// HTTPSolver calls the inference model over HTTP. The model itself is a
// black box; the only contract is image in, offset out.
type HTTPSolver struct {
	url    string
	client *http.Client
}

// NewHTTPSolver creates a solver client for the given inference endpoint.
func NewHTTPSolver(url string) *HTTPSolver {
	return &HTTPSolver{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Solve posts the PNG to the inference endpoint and returns the offset.
func (s *HTTPSolver) Solve(ctx context.Context, image []byte) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", s.url, bytes.NewReader(image))
	if err != nil {
		return 0, &CaptchaSolveError{Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "image/png")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, &CaptchaSolveError{Err: fmt.Errorf("calling solver: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, &CaptchaSolveError{Err: fmt.Errorf("solver returned status %d: %s", resp.StatusCode, string(body))}
	}

	var result struct {
		Offset float64 `json:"offset"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, &CaptchaSolveError{Err: fmt.Errorf("decoding solver response: %w", err)}
	}

	return result.Offset, nil
}

// captureCaptcha reads the slider background canvas out of the page and
// returns it as validated PNG bytes.
func (s *Session) captureCaptcha() ([]byte, error) {
	var dataURL string
	if err := s.run(chromedp.Evaluate(captchaCanvasJS, &dataURL)); err != nil {
		return nil, &CaptchaSolveError{Err: fmt.Errorf("reading captcha canvas: %w", err)}
	}

	image, err := decodeCanvasPNG(dataURL)
	if err != nil {
		return nil, &CaptchaSolveError{Err: err}
	}
	return image, nil
}

// decodeCanvasPNG turns a canvas data URL into raw PNG bytes, rejecting
// payloads that do not decode as an image.
func decodeCanvasPNG(dataURL string) ([]byte, error) {
	_, b64, found := strings.Cut(dataURL, ",")
	if !found {
		return nil, fmt.Errorf("canvas data URL has no payload")
	}

	image, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decoding canvas base64: %w", err)
	}

	if _, err := png.DecodeConfig(bytes.NewReader(image)); err != nil {
		return nil, fmt.Errorf("canvas payload is not a PNG: %w", err)
	}

	return image, nil
}
