// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"blockwatch.cc/carbonpay/pkg/carbonpay"
	"blockwatch.cc/carbonpay/pkg/chain"
	"blockwatch.cc/carbonpay/pkg/ledger"
)

// APIError is a failed node call. Program failures unwrap to their
// carbonpay.ErrorCode.
type APIError struct {
	Status  int
	Message string
	Code    uint32
	Name    string
	Receipt *ledger.Receipt
}

func (e *APIError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("node: %s (%d): %s", e.Name, e.Code, e.Message)
	}
	return fmt.Sprintf("node: status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	if code, ok := carbonpay.ParseErrorCode(e.Code); ok {
		return code
	}
	return nil
}

type Client struct {
	base string
	http *http.Client
}

func NewClient(base string, c *http.Client) *Client {
	if c == nil {
		c = http.DefaultClient
	}
	return &Client{base: base, http: c}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, result interface{}) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	if resp.StatusCode != http.StatusOK {
		var e ErrorResponse
		if err := dec.Decode(&e); err != nil {
			return &APIError{Status: resp.StatusCode, Message: resp.Status}
		}
		return &APIError{
			Status:  resp.StatusCode,
			Message: e.Error,
			Code:    e.Code,
			Name:    e.Name,
			Receipt: e.Receipt,
		}
	}
	return dec.Decode(result)
}

// Submit sends a signed transaction and waits for its receipt.
func (c *Client) Submit(ctx context.Context, t *ledger.Transaction) (*ledger.Receipt, error) {
	stx, err := EncodeTransaction(t)
	if err != nil {
		return nil, err
	}
	var r ledger.Receipt
	if err := c.do(ctx, http.MethodPost, "/tx", nil, stx, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) Airdrop(ctx context.Context, addr chain.Pubkey, lamports chain.Lamports) (BalanceInfo, error) {
	var b BalanceInfo
	err := c.do(ctx, http.MethodPost, "/airdrop", url.Values{
		"address":  {addr.String()},
		"lamports": {strconv.FormatUint(uint64(lamports), 10)},
	}, nil, &b)
	return b, err
}

func (c *Client) Balance(ctx context.Context, addr chain.Pubkey) (BalanceInfo, error) {
	var b BalanceInfo
	err := c.do(ctx, http.MethodGet, "/balance", url.Values{"address": {addr.String()}}, nil, &b)
	return b, err
}

func (c *Client) Token(ctx context.Context, addr chain.Pubkey) (TokenInfo, error) {
	var t TokenInfo
	err := c.do(ctx, http.MethodGet, "/token", url.Values{"address": {addr.String()}}, nil, &t)
	return t, err
}

func (c *Client) Registry(ctx context.Context) (RegistryInfo, error) {
	var r RegistryInfo
	err := c.do(ctx, http.MethodGet, "/registry", nil, nil, &r)
	return r, err
}

func (c *Client) Project(ctx context.Context, owner, certificate chain.Pubkey) (ProjectInfo, error) {
	var p ProjectInfo
	err := c.do(ctx, http.MethodGet, "/project", url.Values{
		"owner":       {owner.String()},
		"certificate": {certificate.String()},
	}, nil, &p)
	return p, err
}

func (c *Client) Purchase(ctx context.Context, buyer, project, certificate chain.Pubkey) (PurchaseInfo, error) {
	var p PurchaseInfo
	err := c.do(ctx, http.MethodGet, "/purchase", url.Values{
		"buyer":       {buyer.String()},
		"project":     {project.String()},
		"certificate": {certificate.String()},
	}, nil, &p)
	return p, err
}

func (c *Client) OffsetRequest(ctx context.Context, requester, purchase chain.Pubkey, requestID string) (OffsetRequestInfo, error) {
	var o OffsetRequestInfo
	err := c.do(ctx, http.MethodGet, "/offset", url.Values{
		"requester":  {requester.String()},
		"purchase":   {purchase.String()},
		"request_id": {requestID},
	}, nil, &o)
	return o, err
}
