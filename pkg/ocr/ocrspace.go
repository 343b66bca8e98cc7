package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kidneysync/platform/pkg/common/httpclient"
)

// OCRSpace calls the OCR.Space parse API. Transport failures, non-2xx
// responses and malformed payloads all surface as TransportError so the
// pipeline can degrade to manual entry.
type OCRSpace struct {
	endpoint  string
	apiKey    string
	language  string
	engine    int
	client    *http.Client
	attempts  int
	baseDelay time.Duration
}

type OCRSpaceConfig struct {
	Endpoint      string
	APIKey        string
	Language      string
	Engine        int
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

func NewOCRSpace(cfg OCRSpaceConfig) *OCRSpace {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.Engine <= 0 {
		cfg.Engine = 2
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	return &OCRSpace{
		endpoint:  cfg.Endpoint,
		apiKey:    cfg.APIKey,
		language:  cfg.Language,
		engine:    cfg.Engine,
		client:    httpclient.New(cfg.Timeout),
		attempts:  cfg.RetryAttempts,
		baseDelay: cfg.RetryDelay,
	}
}

type ocrSpaceResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

func (o *OCRSpace) ExtractText(ctx context.Context, data []byte, filename string) (string, error) {
	var text string
	err := httpclient.Retry(ctx, o.attempts, o.baseDelay, func() error {
		parsed, err := o.parseOnce(ctx, data, filename)
		if err != nil {
			return err
		}
		text = parsed
		return nil
	})
	if err != nil {
		if IsTransportError(err) {
			return "", err
		}
		return "", NewTransportError(err)
	}
	return text, nil
}

func (o *OCRSpace) parseOnce(ctx context.Context, data []byte, filename string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", NewTransportError(err)
	}
	if _, err := part.Write(data); err != nil {
		return "", NewTransportError(err)
	}
	writer.WriteField("apikey", o.apiKey)
	writer.WriteField("language", o.language)
	writer.WriteField("OCREngine", strconv.Itoa(o.engine))
	if err := writer.Close(); err != nil {
		return "", NewTransportError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, &body)
	if err != nil {
		return "", NewTransportError(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := o.client.Do(req)
	if err != nil {
		return "", NewTransportError(httpclient.Retriable(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := fmt.Errorf("unexpected status %d", resp.StatusCode)
		// Server-side and throttling failures may clear; 4xx will not.
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return "", NewTransportError(httpclient.Retriable(statusErr))
		}
		return "", NewTransportError(statusErr)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewTransportError(err)
	}

	var parsed ocrSpaceResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", NewTransportError(fmt.Errorf("malformed response: %w", err))
	}

	if parsed.IsErroredOnProcessing {
		return "", NewTransportError(fmt.Errorf("ocr.space: %s", flattenErrorMessage(parsed.ErrorMessage)))
	}
	if len(parsed.ParsedResults) == 0 {
		return "", nil
	}
	return parsed.ParsedResults[0].ParsedText, nil
}

// ErrorMessage arrives as either a string or a list of strings.
func flattenErrorMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "unknown error"
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return strings.Join(many, "; ")
	}
	return "unknown error"
}
