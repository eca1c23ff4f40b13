// Package client is the Go SDK for the registrar HTTP API. Writes run the
// challenge-sign-submit flow automatically using the configured Signer.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ProvenanceLabs/registrar/pkg/auth"
	"github.com/ProvenanceLabs/registrar/pkg/errors"
	"github.com/ProvenanceLabs/registrar/pkg/events"
	"github.com/ProvenanceLabs/registrar/pkg/registrar"
)

// Config configures a Client.
type Config struct {
	// BaseURL of the gateway, e.g. "http://localhost:6001".
	BaseURL string

	// Timeout for individual HTTP requests. Zero means 30 seconds.
	Timeout time.Duration
}

// Client talks to a registrar gateway.
type Client struct {
	baseURL string
	http    *http.Client
	signer  *Signer
}

// New creates a client. The signer may be nil for read-only use; write
// methods then fail with Unauthorized.
func New(cfg Config, signer *Signer) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		signer:  signer,
	}
}

// Register registers a username for the signer's address.
func (c *Client) Register(ctx context.Context, username string) (*registrar.User, error) {
	nonce, sig, err := c.solveChallenge(ctx)
	if err != nil {
		return nil, err
	}

	var user registrar.User
	err = c.post(ctx, "/v1/register", map[string]string{
		"address":   c.signer.Address().Hex(),
		"username":  username,
		"nonce":     nonce,
		"signature": sig,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SubmitEntry appends a ledger entry for the signer's address.
func (c *Client) SubmitEntry(ctx context.Context, dataHash common.Hash, category, metadataURI string) (*registrar.Entry, error) {
	nonce, sig, err := c.solveChallenge(ctx)
	if err != nil {
		return nil, err
	}

	var entry registrar.Entry
	err = c.post(ctx, "/v1/entries", map[string]string{
		"address":      c.signer.Address().Hex(),
		"data_hash":    dataHash.Hex(),
		"category":     category,
		"metadata_uri": metadataURI,
		"nonce":        nonce,
		"signature":    sig,
	}, &entry)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// EntryCount returns the total number of entries.
func (c *Client) EntryCount(ctx context.Context) (int64, error) {
	var body struct {
		Count int64 `json:"count"`
	}
	if err := c.get(ctx, "/v1/entries/count", &body); err != nil {
		return 0, err
	}
	return body.Count, nil
}

// Entry fetches a single entry by id.
func (c *Client) Entry(ctx context.Context, id int64) (*registrar.Entry, error) {
	var entry registrar.Entry
	if err := c.get(ctx, "/v1/entries/"+strconv.FormatInt(id, 10), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// VerifyEntry checks a candidate hash against the stored entry.
func (c *Client) VerifyEntry(ctx context.Context, id int64, candidate common.Hash) (bool, error) {
	var body struct {
		Match bool `json:"match"`
	}
	path := fmt.Sprintf("/v1/entries/%d/verify?hash=%s", id, url.QueryEscape(candidate.Hex()))
	if err := c.get(ctx, path, &body); err != nil {
		return false, err
	}
	return body.Match, nil
}

// User fetches the registration record for an address.
func (c *Client) User(ctx context.Context, addr common.Address) (*registrar.User, error) {
	var user registrar.User
	if err := c.get(ctx, "/v1/users/"+addr.Hex(), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Events fetches persisted events after the given sequence number.
func (c *Client) Events(ctx context.Context, afterSeq int64, limit int) ([]events.Event, error) {
	var body struct {
		Events []events.Event `json:"events"`
	}
	path := fmt.Sprintf("/v1/events?after=%d&limit=%d", afterSeq, limit)
	if err := c.get(ctx, path, &body); err != nil {
		return nil, err
	}
	return body.Events, nil
}

// Health reports whether the gateway answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/health", &body); err != nil {
		return err
	}
	if body.Status != "ok" {
		return errors.Newf("gateway unhealthy: %s", body.Status)
	}
	return nil
}

// solveChallenge requests a nonce for the signer's address and signs it.
func (c *Client) solveChallenge(ctx context.Context) (nonce, signature string, err error) {
	if c.signer == nil {
		return "", "", errors.NewUnauthorizedError("client has no signer configured")
	}

	var ch auth.Challenge
	err = c.post(ctx, "/v1/auth/challenge", map[string]string{
		"address": c.signer.Address().Hex(),
	}, &ch)
	if err != nil {
		return "", "", err
	}

	sig, err := c.signer.Sign(ch.Nonce)
	if err != nil {
		return "", "", fmt.Errorf("sign challenge: %w", err)
	}
	return ch.Nonce, sig, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeAPIError turns a gateway error body back into a typed error.
func decodeAPIError(resp *http.Response) error {
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error.Code == "" {
		return errors.Newf("gateway returned status %d", resp.StatusCode)
	}
	return errors.FromCode(body.Error.Code, body.Error.Message)
}
