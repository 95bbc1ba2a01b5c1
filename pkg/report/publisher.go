package report

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"depsweep-go/pkg/logger"
)

// PublisherConfig configures the optional report submission endpoint.
type PublisherConfig struct {
	Endpoint   string        `json:"endpoint"`
	APIKey     string        `json:"api_key"`
	Timeout    time.Duration `json:"timeout"`
	EnableGzip bool          `json:"enable_gzip"`
}

// Publisher POSTs finished reports to a configured collector endpoint.
type Publisher struct {
	config PublisherConfig
	client *fasthttp.Client
	log    *logger.Logger
}

// NewPublisher creates a report publisher. The endpoint is required.
func NewPublisher(config PublisherConfig) (*Publisher, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("publisher endpoint is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	client := &fasthttp.Client{
		ReadTimeout:         config.Timeout,
		WriteTimeout:        config.Timeout,
		MaxIdleConnDuration: 90 * time.Second,
	}

	return &Publisher{
		config: config,
		client: client,
		log:    logger.GetLogger().WithField("component", "report_publisher"),
	}, nil
}

// Publish submits the report as JSON, gzip-compressed when enabled.
func (p *Publisher) Publish(r *Report) error {
	jsonData, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	body := jsonData
	contentEncoding := ""
	if p.config.EnableGzip {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(jsonData); err != nil {
			gz.Close()
			return fmt.Errorf("failed to compress report: %w", err)
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("failed to finish compression: %w", err)
		}
		body = buf.Bytes()
		contentEncoding = "gzip"
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(p.config.Endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if p.config.APIKey != "" {
		req.Header.Set("X-API-Key", p.config.APIKey)
	}
	if contentEncoding != "" {
		req.Header.Set("Content-Encoding", contentEncoding)
	}
	req.SetBody(body)

	p.log.WithFields(map[string]interface{}{
		"endpoint": p.config.Endpoint,
		"run_id":   r.RunID,
		"size":     len(body),
	}).Debug("Publishing report")

	if err := p.client.DoTimeout(req, resp, p.config.Timeout); err != nil {
		return fmt.Errorf("report submission failed: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("report submission rejected: HTTP %d", resp.StatusCode())
	}

	p.log.WithField("run_id", r.RunID).Info("Report published")
	return nil
}
