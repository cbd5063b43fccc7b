package convert

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mwierzba/factgraph/internal/config"
	"github.com/mwierzba/factgraph/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConverter(convertURL string) *HTTPConverter {
	return New(&config.Config{
		ConvertURL:   convertURL,
		FetchTimeout: 5 * time.Second,
	})
}

func TestConvertTextPassthrough(t *testing.T) {
	c := newTestConverter("")

	got, err := c.Convert(context.Background(), models.Item{
		Type:    models.ItemTypeText,
		Content: "plain text content",
	})
	require.NoError(t, err)
	assert.Equal(t, "plain text content", got.Content)
	assert.Equal(t, "text", got.SourceType)
}

func TestConvertFileViaSidecar(t *testing.T) {
	raw := []byte("%PDF-1.4 pretend document")

	sidecar := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/convert", r.URL.Path)

		var req convertRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		decoded, err := base64.StdEncoding.DecodeString(req.Content)
		require.NoError(t, err)
		assert.Equal(t, raw, decoded)

		_ = json.NewEncoder(w).Encode(convertResponse{Text: "extracted document text"})
	}))
	defer sidecar.Close()

	c := newTestConverter(sidecar.URL)

	got, err := c.Convert(context.Background(), models.Item{
		Type:    models.ItemTypeFile,
		Content: base64.StdEncoding.EncodeToString(raw),
	})
	require.NoError(t, err)
	assert.Equal(t, "# Source: File\n\nextracted document text", got.Content)
	assert.Equal(t, "file", got.SourceType)
}

func TestConvertFileWithoutSidecarFails(t *testing.T) {
	c := newTestConverter("")

	_, err := c.Convert(context.Background(), models.Item{
		Type:    models.ItemTypeFile,
		Content: base64.StdEncoding.EncodeToString([]byte("data")),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestConvertFileInvalidBase64(t *testing.T) {
	c := newTestConverter("http://localhost:1")

	_, err := c.Convert(context.Background(), models.Item{
		Type:    models.ItemTypeFile,
		Content: "not-valid-base64!!!",
	})
	require.Error(t, err)
}

func TestConvertLinkPlainFetch(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("page body"))
	}))
	defer page.Close()

	c := newTestConverter("")

	got, err := c.Convert(context.Background(), models.Item{
		Type:    models.ItemTypeLink,
		Content: page.URL,
	})
	require.NoError(t, err)
	assert.Equal(t, "# Source: "+page.URL+"\n\npage body", got.Content)
	assert.Equal(t, "link", got.SourceType)
}

func TestConvertLinkStripsHTMLWithoutSidecar(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><head><script>track()</script></head>" +
			"<body><h1>Headline</h1><p>First paragraph.</p></body></html>"))
	}))
	defer page.Close()

	c := newTestConverter("")

	got, err := c.Convert(context.Background(), models.Item{
		Type:    models.ItemTypeLink,
		Content: page.URL,
	})
	require.NoError(t, err)
	assert.Equal(t, "# Source: "+page.URL+"\n\nHeadline\n\nFirst paragraph.", got.Content)
}

func TestConvertLinkViaSidecar(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer page.Close()

	sidecar := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req convertRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, ".html", req.Extension)
		_ = json.NewEncoder(w).Encode(convertResponse{Text: "hello"})
	}))
	defer sidecar.Close()

	c := newTestConverter(sidecar.URL)

	got, err := c.Convert(context.Background(), models.Item{
		Type:    models.ItemTypeLink,
		Content: page.URL,
	})
	require.NoError(t, err)
	assert.Equal(t, "# Source: "+page.URL+"\n\nhello", got.Content)
}

func TestConvertLinkErrorStatus(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer page.Close()

	c := newTestConverter("")

	_, err := c.Convert(context.Background(), models.Item{
		Type:    models.ItemTypeLink,
		Content: page.URL,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestConvertUnknownType(t *testing.T) {
	c := newTestConverter("")

	_, err := c.Convert(context.Background(), models.Item{Type: "video", Content: "x"})
	require.Error(t, err)
}
