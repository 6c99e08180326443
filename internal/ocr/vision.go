// Package ocr talks to the OCR collaborator. It only transports text blocks
// and their geometry; layout interpretation lives in the layout package.
package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/mygoreply/internal/config"
	"github.com/timmy/mygoreply/internal/domain"
)

// ErrOCR marks a failed recognition call. It is never reported as an empty
// result.
var ErrOCR = errors.New("ocr: recognition failed")

const (
	defaultEndpoint = "https://vision.googleapis.com/v1/images:annotate"
	defaultFeature  = "DOCUMENT_TEXT_DETECTION"
)

// Recognizer returns the text blocks found in an image, one slice per page.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) ([][]domain.Block, error)
}

// VisionClient calls the Google Cloud Vision images:annotate REST endpoint.
type VisionClient struct {
	client   *resty.Client
	endpoint string
	apiKey   string
	feature  string
}

// NewVisionClient creates a Vision client from the OCR configuration.
func NewVisionClient(cfg *config.OCRConfig) *VisionClient {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client.SetTimeout(timeout)

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	feature := cfg.Feature
	if feature == "" {
		feature = defaultFeature
	}

	return &VisionClient{
		client:   client,
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		feature:  feature,
	}
}

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image    imageContent `json:"image"`
	Features []feature    `json:"features"`
}

type imageContent struct {
	Content string `json:"content"`
}

type feature struct {
	Type string `json:"type"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type annotateResponse struct {
	Responses []struct {
		FullTextAnnotation *struct {
			Pages []page `json:"pages"`
		} `json:"fullTextAnnotation"`
		Error *apiError `json:"error,omitempty"`
	} `json:"responses"`
	Error *apiError `json:"error,omitempty"`
}

type page struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Blocks []block `json:"blocks"`
}

type block struct {
	BoundingBox struct {
		Vertices []domain.Point `json:"vertices"`
	} `json:"boundingBox"`
	Paragraphs []struct {
		Words []struct {
			Symbols []struct {
				Text string `json:"text"`
			} `json:"symbols"`
		} `json:"words"`
	} `json:"paragraphs"`
}

// Recognize sends one image and converts every page's blocks.
// Parameters:
//   - ctx: request context.
//   - image: raw image bytes (png, jpeg, webp, ...).
//
// Returns:
//   - [][]domain.Block: blocks per page, each carrying its page width. An
//     image without text yields no pages.
//   - error: wraps ErrOCR on transport or service failure.
func (c *VisionClient) Recognize(ctx context.Context, image []byte) ([][]domain.Block, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrOCR)
	}

	req := annotateRequest{Requests: []imageRequest{{
		Image:    imageContent{Content: base64.StdEncoding.EncodeToString(image)},
		Features: []feature{{Type: c.feature}},
	}}}

	var resp annotateResponse
	r := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp)
	if c.apiKey != "" {
		r.SetQueryParam("key", c.apiKey)
	}
	httpResp, err := r.Post(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to call Vision API: %v", ErrOCR, err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errorMsg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
		if resp.Error != nil && resp.Error.Message != "" {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		}
		return nil, fmt.Errorf("%w: Vision API returned error: %s", ErrOCR, errorMsg)
	}
	if len(resp.Responses) == 0 {
		return nil, fmt.Errorf("%w: no response from Vision API", ErrOCR)
	}

	first := resp.Responses[0]
	if first.Error != nil && first.Error.Message != "" {
		return nil, fmt.Errorf("%w: Vision API error: %s", ErrOCR, first.Error.Message)
	}
	if first.FullTextAnnotation == nil {
		return nil, nil
	}

	pages := make([][]domain.Block, 0, len(first.FullTextAnnotation.Pages))
	for _, p := range first.FullTextAnnotation.Pages {
		blocks := make([]domain.Block, 0, len(p.Blocks))
		for _, b := range p.Blocks {
			blocks = append(blocks, domain.Block{
				Text:      blockText(b),
				Polygon:   b.BoundingBox.Vertices,
				PageWidth: p.Width,
			})
		}
		pages = append(pages, blocks)
	}
	return pages, nil
}

// blockText joins symbols into words and words into paragraphs without
// separators, with one space after each paragraph, then trims.
func blockText(b block) string {
	var sb strings.Builder
	for _, para := range b.Paragraphs {
		for _, w := range para.Words {
			for _, s := range w.Symbols {
				sb.WriteString(s.Text)
			}
		}
		sb.WriteString(" ")
	}
	return strings.TrimSpace(sb.String())
}
