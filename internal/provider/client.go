package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/ordinals-plus/indexer/config"
	"github.com/ordinals-plus/indexer/internal/log"
)

// httpClient implements Provider over HTTP. It is shared by the node and
// api provider types: both call the same endpoint paths under IndexerURL,
// and the only difference between the two is the bearer credential the api
// type attaches, resolved once in New.
type httpClient struct {
	rc      *retryablehttp.Client
	base    string
	apiKey  string
	timeout time.Duration
	log     log.Logger
}

// New constructs a Provider from cfg, selecting the node or api flavour per
// cfg.ProviderType. This is the adapter's only exported constructor; callers
// never branch on provider type themselves.
func New(cfg *config.Config, logger log.Logger) (Provider, error) {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil // go-ethereum-style structured logging below, not retryablehttp's own
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			logger.Debug("retrying upstream request", "url", req.URL.String(), "attempt", attempt)
		}
	}

	c := &httpClient{
		rc:      rc,
		base:    cfg.IndexerURL,
		timeout: cfg.ProviderTimeout,
		log:     logger,
	}
	if cfg.ProviderType == config.ProviderTypeAPI {
		c.apiKey = cfg.OrdiscanAPIKey
	}
	return c, nil
}

// do issues a GET for path under the per-call timeout. The timeout's context
// stays live until the caller closes the returned response body, so the body
// can still be read after do returns.
func (c *httpClient) do(ctx context.Context, path string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		cancel()
		return nil, &TransportError{Op: "build request", Err: err}
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.rc.Do(req)
	if err != nil {
		cancel()
		return nil, &TransportError{Op: "request " + path, Err: err}
	}
	resp.Body = cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose releases a request's timeout context when its body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func (c *httpClient) InscriptionByNumber(ctx context.Context, number int64) (*Inscription, error) {
	resp, err := c.do(ctx, fmt.Sprintf("/inscription/%d", number))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotYetExists
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: "inscriptionByNumber", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var body struct {
		ID          string `json:"id"`
		ContentType string `json:"content_type"`
		Sat         int64  `json:"sat"`
	}
	if err := decodeJSON(resp.Body, &body); err != nil {
		return nil, &TransportError{Op: "inscriptionByNumber: decode", Err: err}
	}
	contentType := body.ContentType
	if contentType == "" {
		contentType = "unknown"
	}
	return &Inscription{InscriptionID: body.ID, ContentType: contentType, Sat: body.Sat}, nil
}

func (c *httpClient) InscriptionByID(ctx context.Context, id string) (*Details, error) {
	resp, err := c.do(ctx, "/inscription/"+id)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &TransportError{Op: "inscriptionByID", Err: fmt.Errorf("id %q not found", id)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: "inscriptionByID", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var body struct {
		Sat int64 `json:"sat"`
	}
	if err := decodeJSON(resp.Body, &body); err != nil {
		return nil, &TransportError{Op: "inscriptionByID: decode", Err: err}
	}
	return &Details{InscriptionID: id, Sat: body.Sat}, nil
}

func (c *httpClient) SatInfo(ctx context.Context, sat int64) (*SatInfo, error) {
	resp, err := c.do(ctx, fmt.Sprintf("/sat/%d", sat))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &TransportError{Op: "satInfo", Err: fmt.Errorf("sat %d not found", sat)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: "satInfo", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var body struct {
		InscriptionIDs []string `json:"inscription_ids"`
	}
	if err := decodeJSON(resp.Body, &body); err != nil {
		return nil, &TransportError{Op: "satInfo: decode", Err: err}
	}
	return &SatInfo{InscriptionIDs: body.InscriptionIDs}, nil
}

func (c *httpClient) Metadata(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.do(ctx, "/inscription/"+id+"/metadata")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: "metadata", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "metadata: read", Err: err}
	}
	return raw, nil
}

func decodeJSON(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	return dec.Decode(v)
}
