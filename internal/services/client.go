package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotstat/internal/shared"
)

// TokenSource supplies access tokens to a [Client]. [*TokenManager] implements it.
type TokenSource interface {
	AccessToken() (string, bool)
	Renew(ctx context.Context, stale string) error
}

// Request describes one outbound call. It is copied for every attempt and never mutated.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a provider response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type executeState int

const (
	stateInitial executeState = iota
	stateRefreshing
	stateRetrying
)

func (s executeState) String() string {
	switch s {
	case stateInitial:
		return "initial"
	case stateRefreshing:
		return "refreshing"
	case stateRetrying:
		return "retrying"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Client sends authorized requests and recovers from an expired access token
// with at most one refresh and one retry per call.
type Client struct {
	tokens     TokenSource
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient creates a [Client] that authorizes requests with tokens.
func NewClient(tokens TokenSource, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Client{tokens: tokens, httpClient: httpClient, logger: logger}
}

// Execute sends req with the current access token.
//
// A 401 moves the call through refreshing and retrying exactly once; the retry's
// outcome is returned as is. Any other failure is returned without a retry.
// Non-2xx responses are returned together with a [*RequestError].
func (c *Client) Execute(ctx context.Context, req Request) (*Response, error) {
	token, err := c.currentToken(ctx)
	if err != nil {
		return nil, err
	}

	var (
		resp       *Response
		refreshErr error
	)

	for state := stateInitial; ; {
		c.logger.Debug("execute", "state", state, "method", req.Method, "url", req.URL)

		switch state {
		case stateInitial:
			resp, err = c.send(ctx, req, token)
			if !isUnauthorized(err) {
				return resp, err
			}
			c.logger.Warn("access token rejected, refreshing", "url", req.URL)
			state = stateRefreshing

		case stateRefreshing:
			if refreshErr = c.tokens.Renew(ctx, token); refreshErr != nil {
				c.logger.Error("refresh before retry failed", "error", refreshErr)
			}
			if renewed, ok := c.tokens.AccessToken(); ok {
				token = renewed
			}
			state = stateRetrying

		case stateRetrying:
			resp, err = c.send(ctx, req, token)
			if err != nil && refreshErr != nil {
				err = errors.Join(err, refreshErr)
			}
			return resp, err
		}
	}
}

// currentToken returns the held access token, refreshing first when none is held.
func (c *Client) currentToken(ctx context.Context) (string, error) {
	if token, ok := c.tokens.AccessToken(); ok {
		return token, nil
	}

	c.logger.Info("no access token held, refreshing")
	err := c.tokens.Renew(ctx, "")
	if token, ok := c.tokens.AccessToken(); ok {
		return token, nil
	}
	if err != nil {
		return "", err
	}
	return "", shared.ErrNotAuthenticated
}

func (c *Client) send(ctx context.Context, req Request, token string) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, &RequestError{Method: method, URL: req.URL, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &RequestError{Method: method, URL: req.URL, Err: err}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &RequestError{Method: method, URL: req.URL, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	resp := &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: data}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return resp, &RequestError{
			Method:     method,
			URL:        req.URL,
			StatusCode: httpResp.StatusCode,
			Message:    upstreamMessage(httpResp.StatusCode, data),
		}
	}

	c.logger.Debug("request succeeded", "method", method, "url", req.URL, "status", httpResp.StatusCode)
	return resp, nil
}

func isUnauthorized(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.Unauthorized()
}
