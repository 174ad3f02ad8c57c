package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"uebergabe/models"
)

// SubmissionMeta is the summary sent next to the full document.
type SubmissionMeta struct {
	ID         string   `json:"id"`
	Address    string   `json:"address"`
	Date       string   `json:"date"`
	Recipients []string `json:"recipients"`
}

// SubmitResult holds what the intake endpoint told us about the stored file.
type SubmitResult struct {
	ArtifactURL string `json:"pdfDriveUrl"`
}

func NewSubmissionMeta(doc *models.Document) SubmissionMeta {
	return SubmissionMeta{
		ID:         doc.ID,
		Address:    doc.Address,
		Date:       doc.Date,
		Recipients: doc.Recipients(),
	}
}

// WebhookClient posts finished protocols to the intake endpoint.
type WebhookClient struct {
	URL    string
	Client *http.Client
	Logger *zap.Logger
}

func NewWebhookClient(url string, log *zap.Logger) *WebhookClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookClient{
		URL:    url,
		Client: &http.Client{Timeout: 60 * time.Second},
		Logger: log.With(zap.String("service", "webhook")),
	}
}

// Submit sends the PDF as "file", the document JSON as "data" and the
// summary as "meta" in one multipart request. Any non-2xx status is an error.
func (c *WebhookClient) Submit(ctx context.Context, pdf []byte, filename string, doc *models.Document) (*SubmitResult, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("webhook url not configured")
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	meta, err := json.Marshal(NewSubmissionMeta(doc))
	if err != nil {
		return nil, fmt.Errorf("encode meta: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(pdf); err != nil {
		return nil, err
	}
	if err := mw.WriteField("data", string(data)); err != nil {
		return nil, err
	}
	if err := mw.WriteField("meta", string(meta)); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit protocol: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("submit protocol: server status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	result := &SubmitResult{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			// the upload went through; a reply we cannot read only loses the link
			c.logger().Warn("unreadable webhook response", zap.Error(err), zap.String("document_id", doc.ID))
		}
	}
	c.logger().Info("protocol submitted",
		zap.String("document_id", doc.ID),
		zap.Int("bytes", len(pdf)),
		zap.Bool("has_link", result.ArtifactURL != ""))
	return result, nil
}

func (c *WebhookClient) client() *http.Client {
	if c.Client == nil {
		return http.DefaultClient
	}
	return c.Client
}

func (c *WebhookClient) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
