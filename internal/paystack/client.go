package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// Domain errors the client translates provider responses into. Callers match
// with errors.Is and never see raw HTTP details.
var (
	ErrTransactionNotFound = errors.New("paystack: transaction not found")
	ErrUnauthorized        = errors.New("paystack: invalid secret key")
)

// Client calls the Paystack REST API. Requests ride a retrying HTTP client,
// so transient 5xx responses and connection resets are absorbed here.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient builds a Client against baseURL (no trailing slash needed)
// authenticated with the account secret key.
func NewClient(baseURL, secret string, log zerolog.Logger) *Client {
	retry := retryablehttp.NewClient()
	retry.RetryMax = 3
	retry.Logger = nil
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		http:    retry.StandardClient(),
		log:     log.With().Str("component", "paystack_client").Logger(),
	}
}

// InitializeRequest is the payload for POST /transaction/initialize.
type InitializeRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"` // kobo
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// InitializeResult is what the buyer needs to complete checkout.
type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// envelope mirrors Paystack's {status, message, data} response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializeTransaction registers a pending transaction with Paystack and
// returns the hosted checkout details.
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal initialize request: %w", err)
	}

	var result InitializeResult
	if err := c.call(ctx, http.MethodPost, "/transaction/initialize", bytes.NewReader(body), &result); err != nil {
		return nil, err
	}

	c.log.Info().
		Str("reference", req.Reference).
		Int64("amount", req.Amount).
		Msg("transaction initialized")
	return &result, nil
}

// VerifyTransaction asks Paystack for the settled state of a reference. The
// reconciliation sweep uses this to catch webhooks that never arrived.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*ChargeData, error) {
	var data ChargeData
	if err := c.call(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) call(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call paystack %s: %w", path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read paystack response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode paystack response (http %d): %w", res.StatusCode, err)
	}

	if res.StatusCode >= 400 || !env.Status {
		return c.mapError(res.StatusCode, env.Message)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode paystack data: %w", err)
		}
	}
	return nil
}

// mapError translates provider responses into domain errors at the boundary.
func (c *Client) mapError(status int, message string) error {
	switch status {
	case http.StatusNotFound:
		return ErrTransactionNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		return fmt.Errorf("paystack: %s (http %d)", message, status)
	}
}
