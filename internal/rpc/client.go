package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
	"github.com/LeJamon/goickb/internal/core/tx"
	"github.com/LeJamon/goickb/internal/log"
)

var (
	// ErrHTTPStatus is returned when the node answers with a non-200 status.
	ErrHTTPStatus = errors.New("unexpected http status")

	// ErrEmptyResult is returned when a response carries neither result nor error.
	ErrEmptyResult = errors.New("empty rpc result")
)

const (
	defaultPageSize = 100
	defaultTimeout  = 30 * time.Second
)

// Client speaks CKB JSON-RPC over HTTP and implements tx.Client.
type Client struct {
	url     string
	http    *http.Client
	limiter *rate.Limiter
	logger  log.Logger
	nextID  atomic.Uint64
}

var _ tx.Client = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithRateLimit caps outgoing requests per second. Zero disables the limit.
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithClientLogger sets the logger used for request tracing.
func WithClientLogger(l log.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a client for the node at url.
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url:    url,
		http:   &http.Client{Timeout: defaultTimeout},
		logger: log.NewNopLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// call performs one request and decodes its result into out. A JSON null
// result leaves out untouched and reports found=false.
func (c *Client) call(ctx context.Context, method string, out interface{}, params ...interface{}) (found bool, err error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return false, err
		}
	}
	if params == nil {
		params = []interface{}{}
	}
	req := JsonRpcRequest{JsonRpc: "2.0", Method: method, Params: params, ID: c.nextID.Add(1)}
	body, err := json.Marshal(req)
	if err != nil {
		return false, fmt.Errorf("encode %s: %w", method, err)
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	hreq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(hreq)
	if err != nil {
		return false, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return false, fmt.Errorf("%w: %s: %d", ErrHTTPStatus, method, resp.StatusCode)
	}

	var r JsonRpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return false, fmt.Errorf("decode %s: %w", method, err)
	}
	c.logger.Debug("rpc call", "method", method, "id", req.ID, "elapsed", time.Since(start))
	if r.Error != nil {
		return false, fmt.Errorf("%s: %w", method, r.Error)
	}
	if len(r.Result) == 0 {
		return false, fmt.Errorf("%w: %s", ErrEmptyResult, method)
	}
	if bytes.Equal(r.Result, []byte("null")) {
		return false, nil
	}
	if err := json.Unmarshal(r.Result, out); err != nil {
		return false, fmt.Errorf("decode %s result: %w", method, err)
	}
	return true, nil
}

// FindCells pages through get_cells until the indexer runs dry or the
// consumer stops.
func (c *Client) FindCells(ctx context.Context, key tx.SearchKey, order tx.SearchOrder, limit int) iter.Seq2[cell.Cell, error] {
	if limit <= 0 {
		limit = defaultPageSize
	}
	view := newSearchKeyView(key)
	return func(yield func(cell.Cell, error) bool) {
		var cursor interface{}
		for {
			var page getCellsResult
			if _, err := c.call(ctx, "get_cells", &page, view, string(order), hexUint64(limit), cursor); err != nil {
				yield(cell.Cell{}, err)
				return
			}
			for _, obj := range page.Objects {
				out, err := obj.Output.output()
				if err != nil {
					yield(cell.Cell{}, fmt.Errorf("get_cells: %w", err))
					return
				}
				var data []byte
				if obj.OutputData != nil {
					data = *obj.OutputData
				}
				op := obj.OutPoint.outPoint()
				if !yield(cell.New(out, data, &op), nil) {
					return
				}
			}
			if len(page.Objects) < limit || page.LastCursor == "" {
				return
			}
			cursor = page.LastCursor
		}
	}
}

func (c *Client) header(ctx context.Context, method string, params ...interface{}) (cell.Header, error) {
	var v headerView
	found, err := c.call(ctx, method, &v, params...)
	if err != nil {
		return cell.Header{}, err
	}
	if !found {
		return cell.Header{}, fmt.Errorf("%w: %s", tx.ErrNotFound, method)
	}
	return v.header(), nil
}

func (c *Client) GetTipHeader(ctx context.Context) (cell.Header, error) {
	return c.header(ctx, "get_tip_header")
}

func (c *Client) GetHeaderByNumber(ctx context.Context, number uint64) (cell.Header, error) {
	return c.header(ctx, "get_header_by_number", hexUint64(number))
}

func (c *Client) GetHeaderByHash(ctx context.Context, h cell.Hash) (cell.Header, error) {
	return c.header(ctx, "get_header", hash(h))
}

// GetTransaction returns the transaction with its status. Transactions the
// node has never seen yield tx.ErrNotFound.
func (c *Client) GetTransaction(ctx context.Context, h cell.Hash) (*tx.TransactionRecord, error) {
	var v transactionWithStatusView
	found, err := c.call(ctx, "get_transaction", &v, hash(h))
	if err != nil {
		return nil, err
	}
	if !found || (v.Transaction == nil && tx.TxStatus(v.TxStatus.Status) == tx.StatusUnknown) {
		return nil, fmt.Errorf("%w: transaction %s", tx.ErrNotFound, h)
	}
	return v.record(h)
}

// GetFeeRate returns the median of recent fee rates, never below the default.
func (c *Client) GetFeeRate(ctx context.Context) (ckbamount.FeeRate, error) {
	var v feeRateStatistics
	found, err := c.call(ctx, "get_fee_rate_statistics", &v)
	if err != nil {
		return 0, err
	}
	if !found {
		return ckbamount.DefaultFeeRate, nil
	}
	return ckbamount.FeeRate(v.Median).Max(ckbamount.DefaultFeeRate), nil
}

func (c *Client) SendTransaction(ctx context.Context, t *tx.Transaction) (cell.Hash, error) {
	var h hash
	if _, err := c.call(ctx, "send_transaction", &h, newTransactionView(t), "passthrough"); err != nil {
		return cell.Hash{}, err
	}
	return cell.Hash(h), nil
}

// Call invokes an arbitrary method and returns the raw result, which is
// JSON null when the node has nothing to report.
func (c *Client) Call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	var raw json.RawMessage
	found, err := c.call(ctx, method, &raw, params...)
	if err != nil {
		return nil, err
	}
	if !found {
		return json.RawMessage("null"), nil
	}
	return raw, nil
}
