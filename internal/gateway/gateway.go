package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dcm-project/instance-dashboard/internal/config"
	"github.com/dcm-project/instance-dashboard/internal/credentials"
	"github.com/dcm-project/instance-dashboard/internal/instances"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-resty/resty/v2"
)

const fetchInstancesPath = "/instance/fetchInstances"

// Gateway talks to the external messaging API.
type Gateway struct {
	httpClient     *resty.Client
	defaultBaseURL string
	timeout        time.Duration
	logger         log.Logger
}

func NewGateway(cfg *config.GatewayConfig, logger log.Logger) *Gateway {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWait)

	return &Gateway{
		httpClient:     client,
		defaultBaseURL: cfg.BaseURL,
		timeout:        cfg.Timeout,
		logger:         logger,
	}
}

// FetchAll retrieves every instance visible to the given credentials.
func (g *Gateway) FetchAll(ctx context.Context, creds credentials.Credentials) ([]instances.Instance, error) {
	baseURL := creds.APIURL
	if baseURL == "" {
		baseURL = g.defaultBaseURL
	}
	if !creds.HasKey() || baseURL == "" {
		return nil, ErrMissingCredentials
	}

	endpoint := strings.TrimRight(baseURL, "/") + fetchInstancesPath
	resp, err := g.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("apikey", creds.APIKey).
		Get(endpoint)
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Timeout: g.timeout, Err: err}
		}
		return nil, &NetworkError{Err: err}
	}

	if !resp.IsSuccess() {
		level.Warn(g.logger).Log("msg", "messaging API returned an error", "endpoint", endpoint, "status", resp.StatusCode())
		return nil, &APIError{Status: resp.StatusCode(), StatusText: statusText(resp)}
	}

	items, err := decodeInstances(resp.Body())
	if err != nil {
		level.Warn(g.logger).Log("msg", "malformed instance list", "endpoint", endpoint, "err", err)
		return nil, err
	}

	level.Debug(g.logger).Log("msg", "fetched instances", "endpoint", endpoint, "count", len(items))
	return items, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// statusText prefers the reason phrase sent by the server.
func statusText(resp *resty.Response) string {
	code := resp.StatusCode()
	if text := strings.TrimSpace(strings.TrimPrefix(resp.Status(), strconv.Itoa(code))); text != "" {
		return text
	}
	return http.StatusText(code)
}

// decodeInstances accepts either a bare array or an object carrying an
// "instances" array.
func decodeInstances(body []byte) ([]instances.Instance, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, &MalformedResponseError{Reason: "empty body"}
	}

	var raw []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, &MalformedResponseError{Reason: "invalid instance array", Err: err}
		}
	case '{':
		var envelope struct {
			Instances *[]json.RawMessage `json:"instances"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, &MalformedResponseError{Reason: "invalid response object", Err: err}
		}
		if envelope.Instances == nil {
			return nil, &MalformedResponseError{Reason: `response object has no "instances" array`}
		}
		raw = *envelope.Instances
	default:
		return nil, &MalformedResponseError{Reason: "expected a JSON array or object"}
	}

	items := make([]instances.Instance, 0, len(raw))
	for i, element := range raw {
		inst, err := decodeInstance(element)
		if err != nil {
			return nil, &MalformedResponseError{Reason: fmt.Sprintf("instance at index %d", i), Err: err}
		}
		items = append(items, inst)
	}
	return items, nil
}

func decodeInstance(element json.RawMessage) (instances.Instance, error) {
	var required struct {
		ID *int64 `json:"id"`
	}
	if err := json.Unmarshal(element, &required); err != nil {
		return instances.Instance{}, err
	}
	if required.ID == nil {
		return instances.Instance{}, errors.New("missing id")
	}

	var inst instances.Instance
	if err := json.Unmarshal(element, &inst); err != nil {
		return instances.Instance{}, err
	}
	status, err := instances.ParseConnectionStatus(string(inst.ConnectionStatus))
	if err != nil {
		return instances.Instance{}, err
	}
	inst.ConnectionStatus = status
	return inst, nil
}
