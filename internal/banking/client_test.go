package banking

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/recorrente/recorrente/internal/config"
	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/recorrente/recorrente/internal/httpclient"
	"github.com/recorrente/recorrente/internal/logger"
)

// scriptedProviderClient serves the billing-instrument endpoints from a
// reply queue and records the bearer token of every call
type scriptedProviderClient struct {
	mu      sync.Mutex
	replies []providerReply
	tokens  []string
	calls   int
}

type providerReply struct {
	status int
	body   string
}

func (c *scriptedProviderClient) Send(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tokens = append(c.tokens, req.Headers["Authorization"])
	reply := c.replies[0]
	if len(c.replies) > 1 {
		c.replies = c.replies[1:]
	}
	c.calls++

	if reply.status >= 400 {
		return nil, httpclient.NewError(reply.status, []byte(reply.body))
	}
	return &httpclient.Response{StatusCode: reply.status, Body: []byte(reply.body)}, nil
}

func newTestClient(t *testing.T, provider *scriptedProviderClient, tokenHTTP *scriptedHTTPClient) *client {
	t.Helper()

	m, _ := newTestTokenManager(t, tokenHTTP)
	log, err := logger.NewLogger(config.GetDefaultConfig())
	require.NoError(t, err)

	return &client{
		cfg:     m.cfg,
		http:    provider,
		tokens:  m,
		limiter: rate.NewLimiter(rate.Inf, 1),
		logger:  log,
	}
}

func TestSendRegeneratesTokenOnceOnUnauthorized(t *testing.T) {
	tokenHTTP := &scriptedHTTPClient{responses: []string{
		`{"access_token":"tok-1","token_type":"Bearer","expires_in":600}`,
		`{"access_token":"tok-2","token_type":"Bearer","expires_in":600}`,
	}}
	provider := &scriptedProviderClient{replies: []providerReply{
		{status: 401, body: `{"error":"token expired"}`},
		{status: 200, body: `{"external_id":"ext-1","status":"REGISTRADO"}`},
	}}
	c := newTestClient(t, provider, tokenHTTP)

	detail, raw, err := c.GetCharge(context.Background(), newTestCredential(), "ext-1")
	require.NoError(t, err)
	assert.Equal(t, "REGISTRADO", detail.Status)
	assert.NotEmpty(t, raw)

	// the rejected call plus exactly one retry carrying the new token
	assert.Equal(t, 2, provider.calls)
	assert.Equal(t, 2, tokenHTTP.calls)
	assert.Equal(t, []string{"Bearer tok-1", "Bearer tok-2"}, provider.tokens)
}

func TestSendSecondUnauthorizedIsFatal(t *testing.T) {
	tokenHTTP := &scriptedHTTPClient{responses: []string{
		`{"access_token":"tok-1","token_type":"Bearer","expires_in":600}`,
		`{"access_token":"tok-2","token_type":"Bearer","expires_in":600}`,
	}}
	provider := &scriptedProviderClient{replies: []providerReply{
		{status: 401, body: `{}`},
		{status: 401, body: `{}`},
	}}
	c := newTestClient(t, provider, tokenHTTP)

	_, _, err := c.GetCharge(context.Background(), newTestCredential(), "ext-1")
	require.Error(t, err)
	assert.True(t, ierr.IsProvider(err))

	// one regeneration, never a third attempt
	assert.Equal(t, 2, provider.calls)
	assert.Equal(t, 2, tokenHTTP.calls)
}

func TestSendDoesNotRetryOtherProviderErrors(t *testing.T) {
	tokenHTTP := &scriptedHTTPClient{responses: []string{
		`{"access_token":"tok-1","token_type":"Bearer","expires_in":600}`,
	}}
	provider := &scriptedProviderClient{replies: []providerReply{
		{status: 500, body: `{"error":"internal"}`},
	}}
	c := newTestClient(t, provider, tokenHTTP)

	_, _, err := c.GetCharge(context.Background(), newTestCredential(), "ext-1")
	require.Error(t, err)
	assert.True(t, ierr.IsProvider(err))

	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, 1, tokenHTTP.calls)
}
