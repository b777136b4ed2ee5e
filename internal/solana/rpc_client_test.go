package solana

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rpcServer(t *testing.T, handle func(req rpcRequest) map[string]interface{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := handle(req)
		resp["jsonrpc"] = "2.0"
		resp["id"] = req.ID
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPClient_GetBlock(t *testing.T) {
	outer := base58.Encode([]byte{1, 2, 3})
	inner := base58.Encode([]byte{9, 9})

	server := rpcServer(t, func(req rpcRequest) map[string]interface{} {
		assert.Equal(t, "getBlock", req.Method)
		return map[string]interface{}{
			"result": map[string]interface{}{
				"parentSlot": 99,
				"blockTime":  1700000000,
				"transactions": []interface{}{
					map[string]interface{}{
						"transaction": map[string]interface{}{
							"signatures": []string{"sig1"},
							"message": map[string]interface{}{
								"accountKeys": []string{"payer", "program", "mint"},
								"instructions": []interface{}{
									map[string]interface{}{"programIdIndex": 1, "accounts": []int{0, 2, 3}, "data": outer},
								},
							},
						},
						"meta": map[string]interface{}{
							"err":         nil,
							"logMessages": []string{"Program log: Instruction: Buy"},
							"loadedAddresses": map[string]interface{}{
								"writable": []string{"lookupW"},
								"readonly": []string{"lookupR"},
							},
							"innerInstructions": []interface{}{
								map[string]interface{}{
									"index": 0,
									"instructions": []interface{}{
										map[string]interface{}{"programIdIndex": 4, "accounts": []int{}, "data": inner},
									},
								},
							},
						},
					},
					map[string]interface{}{
						"transaction": map[string]interface{}{
							"signatures": []string{"sig2"},
							"message": map[string]interface{}{
								"accountKeys":  []string{"payer"},
								"instructions": []interface{}{},
							},
						},
						"meta": map[string]interface{}{
							"err": map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
						},
					},
				},
			},
		}
	})

	client := NewHTTPClient(server.URL)
	block, err := client.GetBlock(context.Background(), 100)
	require.NoError(t, err)

	assert.Equal(t, uint64(100), block.Slot)
	assert.Equal(t, uint64(99), block.ParentSlot)
	assert.Equal(t, int64(1700000000000), block.TimestampMs())
	require.Len(t, block.Transactions, 2)

	tx := block.Transactions[0]
	assert.Equal(t, "sig1", tx.Signature)
	assert.False(t, tx.Failed())
	require.Len(t, tx.Instructions, 1)

	ix := tx.Instructions[0]
	assert.Equal(t, "program", ix.ProgramID)
	assert.Equal(t, []string{"payer", "mint", "lookupW"}, ix.Accounts)
	assert.Equal(t, []byte{1, 2, 3}, ix.Data)
	require.Len(t, ix.Inner, 1)
	assert.Equal(t, "lookupR", ix.Inner[0].ProgramID)
	assert.Equal(t, []byte{9, 9}, ix.Inner[0].Data)

	assert.True(t, block.Transactions[1].Failed())
}

func TestHTTPClient_GetBlock_Skipped(t *testing.T) {
	for _, code := range []int{rpcErrSlotSkipped, rpcErrLongTermStorageMissed, rpcErrBlockNotAvailable} {
		server := rpcServer(t, func(req rpcRequest) map[string]interface{} {
			return map[string]interface{}{
				"error": map[string]interface{}{"code": code, "message": "Slot was skipped"},
			}
		})

		_, err := NewHTTPClient(server.URL).GetBlock(context.Background(), 5)
		assert.ErrorIs(t, err, ErrSlotSkipped, "code %d", code)
	}
}

func TestHTTPClient_GetBlock_BadAccountIndex(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) map[string]interface{} {
		return map[string]interface{}{
			"result": map[string]interface{}{
				"parentSlot": 1,
				"transactions": []interface{}{
					map[string]interface{}{
						"transaction": map[string]interface{}{
							"signatures": []string{"sig"},
							"message": map[string]interface{}{
								"accountKeys": []string{"a"},
								"instructions": []interface{}{
									map[string]interface{}{"programIdIndex": 0, "accounts": []int{7}, "data": ""},
								},
							},
						},
						"meta": map[string]interface{}{},
					},
				},
			},
		}
	})

	_, err := NewHTTPClient(server.URL).GetBlock(context.Background(), 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account index 7 out of range")
}

func TestHTTPClient_GetBlocksAndSlot(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) map[string]interface{} {
		switch req.Method {
		case "getBlocks":
			return map[string]interface{}{"result": []uint64{10, 12, 13}}
		case "getSlot":
			return map[string]interface{}{"result": 4242}
		}
		return map[string]interface{}{"error": map[string]interface{}{"code": -32601, "message": "method not found"}}
	})

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	slots, err := client.GetBlocks(ctx, 10, 13)
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 12, 13}, slots)

	slot, err := client.GetSlot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4242), slot)
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		var req rpcRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": 7})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithRetryDelay(10*time.Millisecond), WithMaxRetries(3))
	slot, err := client.GetSlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), slot)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestHTTPClient_RPCErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := rpcServer(t, func(req rpcRequest) map[string]interface{} {
		attempts.Add(1)
		return map[string]interface{}{"error": map[string]interface{}{"code": -32602, "message": "Invalid params"}}
	})

	_, err := NewHTTPClient(server.URL, WithRetryDelay(time.Millisecond)).GetSlot(context.Background())
	var rpcErr *rpcError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32602, rpcErr.Code)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestHTTPClient_Observer(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) map[string]interface{} {
		return map[string]interface{}{"result": 1}
	})

	var methods []string
	client := NewHTTPClient(server.URL, WithObserver(func(method string, _ time.Duration, err error) {
		assert.NoError(t, err)
		methods = append(methods, method)
	}))
	_, err := client.GetSlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"getSlot"}, methods)
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTPClient(server.URL).GetSlot(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
