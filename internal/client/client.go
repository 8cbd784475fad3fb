package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/api"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/entity"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/marketplace"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// APIError is a rejected request. errors.Is matches the marketplace error with the same code.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	code := marketplace.Code(target)
	return code != "Internal" && code == e.Code
}

type noRetryKey struct{}

type Client struct {
	url    string
	caller entity.Address
	http   *retryablehttp.Client
}

// New returns a client acting as caller. Only reads are retried.
func New(url string, caller entity.Address, retries int, timeout time.Duration) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil
	retryClient.RetryMax = retries
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.HTTPClient.Timeout = timeout
	retryClient.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Value(noRetryKey{}) != nil {
			return false, ctx.Err()
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{url: url, caller: caller, http: retryClient}
}

func (c *Client) Listings(ctx context.Context) ([]entity.Listing, error) {
	listings := make([]entity.Listing, 0)
	err := c.get(ctx, "/listings", &listings)
	return listings, err
}

func (c *Client) GetListing(ctx context.Context, collection entity.Address, assetId uint64) (entity.Listing, error) {
	var listing entity.Listing
	err := c.get(ctx, assetPath("/listings", collection, assetId), &listing)
	return listing, err
}

func (c *Client) List(ctx context.Context, collection entity.Address, assetId uint64, price, value uint64) (entity.Listing, error) {
	var listing entity.Listing
	err := c.send(ctx, http.MethodPost, assetPath("/listings", collection, assetId), api.ListRequest{Price: price, Value: value}, &listing)
	return listing, err
}

func (c *Client) Buy(ctx context.Context, collection entity.Address, assetId uint64, value uint64) error {
	return c.send(ctx, http.MethodPost, assetPath("/listings", collection, assetId)+"/buy", api.BuyRequest{Value: value}, nil)
}

func (c *Client) Cancel(ctx context.Context, collection entity.Address, assetId uint64) error {
	return c.send(ctx, http.MethodDelete, assetPath("/listings", collection, assetId), nil, nil)
}

func (c *Client) Fees(ctx context.Context) (marketplace.Summary, error) {
	var summary marketplace.Summary
	err := c.get(ctx, "/fees", &summary)
	return summary, err
}

func (c *Client) WithdrawFees(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, "/fees/withdraw", nil, nil)
}

func (c *Client) SetListFeeRate(ctx context.Context, rate uint) error {
	return c.send(ctx, http.MethodPut, "/fees/list-rate", api.RateRequest{Rate: rate}, nil)
}

func (c *Client) SetBuyFeeRate(ctx context.Context, rate uint) error {
	return c.send(ctx, http.MethodPut, "/fees/buy-rate", api.RateRequest{Rate: rate}, nil)
}

func (c *Client) Pause(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, "/pause", nil, nil)
}

func (c *Client) Unpause(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, "/unpause", nil, nil)
}

func (c *Client) TransferOperator(ctx context.Context, operator entity.Address) error {
	return c.send(ctx, http.MethodPut, "/operator", api.OperatorRequest{Operator: operator.String()}, nil)
}

func (c *Client) History(ctx context.Context, collection entity.Address, assetId uint64, size int) ([]entity.MarketplaceAction, error) {
	actions := make([]entity.MarketplaceAction, 0)
	err := c.get(ctx, assetPath("/actions", collection, assetId)+"?size="+strconv.Itoa(size), &actions)
	return actions, err
}

func (c *Client) Holder(ctx context.Context, collection entity.Address, assetId uint64) (entity.Address, error) {
	var holder api.HolderResponse
	err := c.get(ctx, "/assets/"+collection.String()+"/"+strconv.FormatUint(assetId, 10)+"/holder", &holder)
	return holder.Holder, err
}

func (c *Client) Balance(ctx context.Context, account entity.Address) (uint64, error) {
	var balance api.BalanceResponse
	err := c.get(ctx, "/accounts/"+account.String()+"/balance", &balance)
	return balance.Balance, err
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// send issues a state-changing request. It is never retried.
func (c *Client) send(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	return c.do(context.WithValue(ctx, noRetryKey{}, true), method, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequest(method, c.url+path, reader)
	if err != nil {
		return err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	if !c.caller.IsNull() {
		req.Header.Set(api.CallerHeader, c.caller.String())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("method", method), zap.String("path", path)).Debug("Client: Request failed")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
			e = api.ErrorResponse{Error: http.StatusText(resp.StatusCode), Code: "Internal"}
		}
		return &APIError{Status: resp.StatusCode, Code: e.Code, Message: e.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func assetPath(prefix string, collection entity.Address, assetId uint64) string {
	return fmt.Sprintf("%s/%s/%d", prefix, collection, assetId)
}
