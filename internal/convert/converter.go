// Package convert turns submitted items (text, base64 files, links)
// into plain text for extraction.
//
// File conversion is delegated to a document conversion sidecar (POST
// /convert with the decoded bytes); link items are fetched over HTTP
// and, when no sidecar is configured, reduced to text locally.
// Converted output carries a "# Source:" provenance header so the
// extraction prompts can see where the text came from.
package convert

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mwierzba/factgraph/internal/config"
	"github.com/mwierzba/factgraph/internal/models"
	"github.com/mwierzba/factgraph/internal/parser"
)

// maxFetchBytes caps how much of a linked page is read.
const maxFetchBytes = 2 << 20

// Converted is an item's content reduced to analyzable text.
type Converted struct {
	Content    string
	SourceType string
}

// Converter converts a single item to text. Errors are per-item: the
// caller skips the item and continues with the rest of the batch.
type Converter interface {
	Convert(ctx context.Context, item models.Item) (Converted, error)
}

// HTTPConverter implements Converter with a conversion sidecar for
// files and plain HTTP fetches for links.
type HTTPConverter struct {
	convertURL string
	client     *http.Client
}

var _ Converter = (*HTTPConverter)(nil)

// New creates a converter from configuration. An empty ConvertURL
// disables file conversion; file items then fail per-item.
func New(cfg *config.Config) *HTTPConverter {
	timeout := cfg.FetchTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPConverter{
		convertURL: cfg.ConvertURL,
		client:     &http.Client{Timeout: timeout},
	}
}

// Convert reduces one item to text based on its type.
func (c *HTTPConverter) Convert(ctx context.Context, item models.Item) (Converted, error) {
	switch item.Type {
	case models.ItemTypeText:
		return Converted{Content: item.Content, SourceType: "text"}, nil

	case models.ItemTypeFile:
		return c.convertFile(ctx, item.Content)

	case models.ItemTypeLink:
		return c.convertLink(ctx, item.Content)

	default:
		return Converted{}, fmt.Errorf("unsupported item type: %s", item.Type)
	}
}

// convertRequest is the sidecar's conversion request payload.
type convertRequest struct {
	Content   string `json:"content"` // base64
	Extension string `json:"extension,omitempty"`
}

// convertResponse is the sidecar's conversion response payload.
type convertResponse struct {
	Text string `json:"text"`
}

func (c *HTTPConverter) convertFile(ctx context.Context, b64 string) (Converted, error) {
	if c.convertURL == "" {
		return Converted{}, fmt.Errorf("file conversion not configured")
	}
	// Validation already checked the encoding at submit time; decode
	// again so a stale row cannot reach the sidecar malformed.
	if _, err := base64.StdEncoding.DecodeString(b64); err != nil {
		return Converted{}, fmt.Errorf("decode file content: %w", err)
	}

	text, err := c.callSidecar(ctx, convertRequest{Content: b64})
	if err != nil {
		return Converted{}, err
	}

	return Converted{
		Content:    "# Source: File\n\n" + text,
		SourceType: "file",
	}, nil
}

func (c *HTTPConverter) convertLink(ctx context.Context, url string) (Converted, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return Converted{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Converted{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Converted{}, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return Converted{}, fmt.Errorf("read %s: %w", url, err)
	}

	var text string
	if c.convertURL != "" {
		// Let the sidecar strip the fetched page down to markdown.
		converted, err := c.callSidecar(ctx, convertRequest{
			Content:   base64.StdEncoding.EncodeToString(body),
			Extension: ".html",
		})
		if err != nil {
			return Converted{}, err
		}
		text = converted
	} else {
		text = parser.HTMLToText(string(body))
	}

	return Converted{
		Content:    fmt.Sprintf("# Source: %s\n\n%s", url, text),
		SourceType: "link",
	}, nil
}

func (c *HTTPConverter) callSidecar(ctx context.Context, payload convertRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal convert request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.convertURL+"/convert", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create convert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("convert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("convert: status %d: %s", resp.StatusCode, msg)
	}

	var parsed convertResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode convert response: %w", err)
	}
	return parsed.Text, nil
}
