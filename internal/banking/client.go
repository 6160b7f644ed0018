package banking

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/recorrente/recorrente/internal/config"
	"github.com/recorrente/recorrente/internal/domain/bankaccount"
	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/recorrente/recorrente/internal/httpclient"
	"github.com/recorrente/recorrente/internal/logger"
)

// Client is the banking API surface the billing engine consumes
type Client interface {
	// CreateCharge issues a new charge with the provider
	CreateCharge(ctx context.Context, cred *bankaccount.Credential, req *CreateChargeRequest) (*CreateChargeResponse, error)

	// GetCharge fetches the provider's current view of a charge. The raw
	// response body is returned alongside the decoded detail so callers
	// can snapshot it.
	GetCharge(ctx context.Context, cred *bankaccount.Credential, externalID string) (*ChargeDetail, []byte, error)

	// GetChargePDF fetches the charge document, following the embedded
	// PDF when present and the dedicated endpoint otherwise
	GetChargePDF(ctx context.Context, cred *bankaccount.Credential, externalID string) ([]byte, error)
}

type client struct {
	cfg     *config.Configuration
	http    httpclient.Client
	tokens  *TokenManager
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewClient creates a new banking API client. All outbound calls share
// one rate limiter so overlapping jobs stay under the provider limit.
func NewClient(cfg *config.Configuration, tokens *TokenManager, logger *logger.Logger) Client {
	rps := cfg.Bank.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	return &client{
		cfg:     cfg,
		http:    httpclient.NewDefaultClient(cfg.Bank.Timeout),
		tokens:  tokens,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger,
	}
}

func (c *client) CreateCharge(ctx context.Context, cred *bankaccount.Credential, req *CreateChargeRequest) (*CreateChargeResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Charge creation payload could not be encoded").
			Mark(ierr.ErrSystem)
	}

	resp, err := c.send(ctx, cred, http.MethodPost, "/billing-instruments", body)
	if err != nil {
		return nil, err
	}

	var out CreateChargeResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Charge creation response could not be decoded").
			Mark(ierr.ErrProvider)
	}
	if out.ExternalID == "" {
		return nil, ierr.NewError("charge created without external id").
			WithHint("The banking API returned no correlation id").
			Mark(ierr.ErrProvider)
	}

	return &out, nil
}

func (c *client) GetCharge(ctx context.Context, cred *bankaccount.Credential, externalID string) (*ChargeDetail, []byte, error) {
	resp, err := c.send(ctx, cred, http.MethodGet, "/billing-instruments/"+externalID, nil)
	if err != nil {
		return nil, nil, err
	}

	var detail ChargeDetail
	if err := json.Unmarshal(resp.Body, &detail); err != nil {
		return nil, nil, ierr.WithError(err).
			WithHint("Charge detail response could not be decoded").
			Mark(ierr.ErrProvider)
	}

	return &detail, resp.Body, nil
}

func (c *client) GetChargePDF(ctx context.Context, cred *bankaccount.Credential, externalID string) ([]byte, error) {
	detail, _, err := c.GetCharge(ctx, cred, externalID)
	if err != nil {
		return nil, err
	}
	if detail.PDFBase64 != nil && *detail.PDFBase64 != "" {
		pdf, err := base64.StdEncoding.DecodeString(*detail.PDFBase64)
		if err == nil {
			return pdf, nil
		}
		c.logger.Warnw("embedded pdf could not be decoded, falling back to pdf endpoint",
			"external_id", externalID,
			"error", err)
	}

	resp, err := c.send(ctx, cred, http.MethodGet, fmt.Sprintf("/billing-instruments/%s/pdf", externalID), nil)
	if err != nil {
		return nil, err
	}

	// some environments base64-wrap the binary body
	if pdf, err := base64.StdEncoding.DecodeString(string(resp.Body)); err == nil {
		return pdf, nil
	}
	return resp.Body, nil
}

// send performs one provider call with the credential's bearer token,
// regenerating the token and retrying exactly once on 401. A second 401
// is fatal for the item being processed.
func (c *client) send(ctx context.Context, cred *bankaccount.Credential, method, path string, body []byte) (*httpclient.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Rate limiter wait was interrupted").
			Mark(ierr.ErrSystem)
	}

	token, err := c.tokens.GetToken(ctx, cred)
	if err != nil {
		return nil, err
	}

	resp, err := c.doSend(ctx, cred, token, method, path, body)
	if httpErr, ok := httpclient.IsHTTPError(err); ok && httpErr.StatusCode == http.StatusUnauthorized {
		c.logger.Infow("provider rejected token, regenerating once",
			"bank_account_id", cred.ID,
			"path", path)

		c.tokens.Invalidate(cred.ID)
		token, err = c.tokens.Refresh(ctx, cred)
		if err != nil {
			return nil, err
		}
		resp, err = c.doSend(ctx, cred, token, method, path, body)
	}
	if err != nil {
		if httpErr, ok := httpclient.IsHTTPError(err); ok {
			return nil, ierr.WithError(err).
				WithHint("The banking API rejected the request").
				WithReportableDetails(map[string]any{
					"status_code": httpErr.StatusCode,
					"path":        path,
				}).
				Mark(ierr.ErrProvider)
		}
		return nil, err
	}

	return resp, nil
}

func (c *client) doSend(ctx context.Context, cred *bankaccount.Credential, token, method, path string, body []byte) (*httpclient.Response, error) {
	return c.http.Send(ctx, &httpclient.Request{
		Method: method,
		URL:    c.cfg.Bank.BaseURL + path,
		Headers: map[string]string{
			"Authorization":  "Bearer " + token,
			"x-bank-account": cred.Alias,
		},
		Body: body,
	})
}
