package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/mr-tron/base58"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
	DefaultCommitment  = "confirmed"
)

// RPC error codes returned for slots without a block.
const (
	rpcErrBlockNotAvailable     = -32004
	rpcErrSlotSkipped           = -32007
	rpcErrLongTermStorageMissed = -32009
)

// CallObserver is notified after every RPC call.
type CallObserver func(method string, elapsed time.Duration, err error)

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	commitment  string
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	observer    CallObserver
	requestID   atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithCommitment sets the commitment level sent with block queries.
func WithCommitment(commitment string) ClientOption {
	return func(c *HTTPClient) {
		c.commitment = commitment
	}
}

// WithObserver registers a callback invoked after each call.
func WithObserver(fn CallObserver) ClientOption {
	return func(c *HTTPClient) {
		c.observer = fn
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		commitment:  DefaultCommitment,
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ RPCClient = (*HTTPClient)(nil)

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) (err error) {
	if c.observer != nil {
		start := time.Now()
		defer func() { c.observer(method, time.Since(start), err) }()
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		respBody, status, err := c.post(ctx, body)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		if status == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}
		if status != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", status, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		// RPC errors are not retried
		if rpcResp.Error != nil {
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal %s result: %w", method, err)
			}
		}
		return nil
	}

	return fmt.Errorf("%s: max retries exceeded: %w", method, lastErr)
}

func (c *HTTPClient) post(ctx context.Context, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

// GetSlot retrieves the current slot.
func (c *HTTPClient) GetSlot(ctx context.Context) (uint64, error) {
	params := []interface{}{map[string]interface{}{"commitment": c.commitment}}
	var result uint64
	if err := c.call(ctx, "getSlot", params, &result); err != nil {
		return 0, err
	}
	return result, nil
}

// GetBlocks returns confirmed block slots within [start, end].
func (c *HTTPClient) GetBlocks(ctx context.Context, start, end uint64) ([]uint64, error) {
	params := []interface{}{start, end, map[string]interface{}{"commitment": c.commitment}}
	var result []uint64
	if err := c.call(ctx, "getBlocks", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetBlock retrieves a block by slot number with full transaction details.
// Account indexes are resolved against static keys followed by loaded addresses.
func (c *HTTPClient) GetBlock(ctx context.Context, slot uint64) (*Block, error) {
	params := []interface{}{
		slot,
		map[string]interface{}{
			"encoding":                       "json",
			"transactionDetails":             "full",
			"rewards":                        false,
			"commitment":                     c.commitment,
			"maxSupportedTransactionVersion": 0,
		},
	}

	var result *getBlockResult
	if err := c.call(ctx, "getBlock", params, &result); err != nil {
		var rpcErr *rpcError
		if errors.As(err, &rpcErr) && isSkippedSlot(rpcErr.Code) {
			return nil, fmt.Errorf("%w: slot %d: %s", ErrSlotSkipped, slot, rpcErr.Message)
		}
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%w: slot %d", ErrSlotSkipped, slot)
	}

	block := &Block{
		Slot:         slot,
		ParentSlot:   result.ParentSlot,
		Transactions: make([]Transaction, 0, len(result.Transactions)),
	}
	if result.BlockTime != nil {
		block.BlockTime = *result.BlockTime
	}

	for i, txWrapper := range result.Transactions {
		tx, err := txWrapper.decode(slot, block.BlockTime)
		if err != nil {
			return nil, fmt.Errorf("decode transaction %d in slot %d: %w", i, slot, err)
		}
		block.Transactions = append(block.Transactions, *tx)
	}

	return block, nil
}

func isSkippedSlot(code int) bool {
	switch code {
	case rpcErrBlockNotAvailable, rpcErrSlotSkipped, rpcErrLongTermStorageMissed:
		return true
	}
	return false
}

// getBlockResult is the raw RPC response for getBlock.
type getBlockResult struct {
	ParentSlot   uint64              `json:"parentSlot"`
	BlockTime    *int64              `json:"blockTime"`
	Transactions []getBlockTxWrapper `json:"transactions"`
}

type getBlockTxWrapper struct {
	Transaction rawTransaction `json:"transaction"`
	RawMeta     *rawMeta       `json:"meta"`
}

type rawTransaction struct {
	Signatures []string    `json:"signatures"`
	Message    *rawMessage `json:"message"`
}

type rawMessage struct {
	AccountKeys  []string         `json:"accountKeys"`
	Instructions []rawInstruction `json:"instructions"`
}

type rawInstruction struct {
	ProgramIDIndex int    `json:"programIdIndex"`
	Accounts       []int  `json:"accounts"`
	Data           string `json:"data"` // base58
}

type rawInnerInstructions struct {
	Index        int              `json:"index"`
	Instructions []rawInstruction `json:"instructions"`
}

type rawLoadedAddresses struct {
	Writable []string `json:"writable"`
	Readonly []string `json:"readonly"`
}

type rawMeta struct {
	Err               interface{}            `json:"err"`
	LogMessages       []string               `json:"logMessages"`
	InnerInstructions []rawInnerInstructions `json:"innerInstructions"`
	LoadedAddresses   *rawLoadedAddresses    `json:"loadedAddresses"`
}

func (w *getBlockTxWrapper) decode(slot uint64, blockTime int64) (*Transaction, error) {
	tx := &Transaction{
		Slot:      slot,
		BlockTime: blockTime,
	}
	if len(w.Transaction.Signatures) > 0 {
		tx.Signature = w.Transaction.Signatures[0]
	}
	if w.RawMeta != nil {
		tx.Err = w.RawMeta.Err
		tx.LogMessages = w.RawMeta.LogMessages
	}
	if w.Transaction.Message == nil {
		return tx, nil
	}

	keys := append([]string(nil), w.Transaction.Message.AccountKeys...)
	if w.RawMeta != nil && w.RawMeta.LoadedAddresses != nil {
		keys = append(keys, w.RawMeta.LoadedAddresses.Writable...)
		keys = append(keys, w.RawMeta.LoadedAddresses.Readonly...)
	}

	inner := make(map[int][]rawInstruction)
	if w.RawMeta != nil {
		for _, group := range w.RawMeta.InnerInstructions {
			inner[group.Index] = append(inner[group.Index], group.Instructions...)
		}
	}

	for i, raw := range w.Transaction.Message.Instructions {
		ix, err := raw.resolve(keys)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		ix.Index = i
		for j, rawInner := range inner[i] {
			innerIx, err := rawInner.resolve(keys)
			if err != nil {
				return nil, fmt.Errorf("inner instruction %d.%d: %w", i, j, err)
			}
			innerIx.Index = i
			ix.Inner = append(ix.Inner, *innerIx)
		}
		tx.Instructions = append(tx.Instructions, *ix)
	}

	return tx, nil
}

func (r *rawInstruction) resolve(keys []string) (*Instruction, error) {
	if r.ProgramIDIndex < 0 || r.ProgramIDIndex >= len(keys) {
		return nil, fmt.Errorf("program index %d out of range (%d keys)", r.ProgramIDIndex, len(keys))
	}

	data, err := base58.Decode(r.Data)
	if err != nil {
		return nil, fmt.Errorf("decode instruction data: %w", err)
	}

	accounts := make([]string, len(r.Accounts))
	for i, idx := range r.Accounts {
		if idx < 0 || idx >= len(keys) {
			return nil, fmt.Errorf("account index %d out of range (%d keys)", idx, len(keys))
		}
		accounts[i] = keys[idx]
	}

	return &Instruction{
		ProgramID: keys[r.ProgramIDIndex],
		Accounts:  accounts,
		Data:      data,
	}, nil
}
