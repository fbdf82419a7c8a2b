package walletbridge

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// CodeUserRejected is the EIP-1193 code for a request the user declined in the wallet.
const CodeUserRejected = 4001

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	ID     uint64              `json:"id"`
	Result jsoniter.RawMessage `json:"result"`
	Error  *RPCError           `json:"error"`
}

// RPCError is an error object returned by the wallet bridge.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("wallet error %d: %s", e.Code, e.Message)
}

// UserRejected reports whether the user declined the request.
func (e *RPCError) UserRejected() bool {
	return e.Code == CodeUserRejected
}

// rpcClient posts JSON-RPC 2.0 requests to the bridge endpoint.
type rpcClient struct {
	client  *fasthttp.Client
	url     string
	timeout time.Duration
	nextID  atomic.Uint64
	logger  *zap.Logger
}

func newRPCClient(url string, timeout time.Duration, logger *zap.Logger) *rpcClient {
	return &rpcClient{
		client:  &fasthttp.Client{},
		url:     strings.TrimRight(url, "/"),
		timeout: timeout,
		logger:  logger,
	}
}

// call performs method and decodes its result into out. timeout applies when ctx carries no
// deadline of its own.
func (c *rpcClient) call(ctx context.Context, method string, params []any, out any, timeout time.Duration) error {
	if params == nil {
		params = []any{}
	}
	id := c.nextID.Add(1)
	body, err := jsonAPI.Marshal(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(c.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentTypeBytes([]byte("application/json"))
	req.SetBodyRaw(body)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	c.logger.Debug("Calling wallet bridge", zap.String("method", method), zap.Uint64("id", id))
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			c.logger.Error("Wallet bridge request failed", zap.String("method", method), zap.Error(err))
			return fmt.Errorf("failed to execute %s request: %w", method, err)
		}
	} else {
		if timeout <= 0 {
			timeout = c.timeout
		}
		if err := c.client.DoTimeout(req, resp, timeout); err != nil {
			c.logger.Error("Wallet bridge request failed (with default timeout)", zap.String("method", method), zap.Duration("timeout", timeout), zap.Error(err))
			return fmt.Errorf("failed to execute %s request with default timeout: %w", method, err)
		}
	}

	rawBody := resp.Body()
	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Error("Wallet bridge returned an unexpected status",
			zap.String("method", method),
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("responseBody", rawBody),
		)
		return fmt.Errorf("%s request failed with status %d: %s", method, resp.StatusCode(), string(rawBody))
	}

	var decoded rpcResponse
	if err := jsonAPI.Unmarshal(rawBody, &decoded); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if decoded.Error != nil {
		c.logger.Warn("Wallet bridge rejected request",
			zap.String("method", method),
			zap.Int("code", decoded.Error.Code),
			zap.String("message", decoded.Error.Message),
		)
		return decoded.Error
	}
	if len(decoded.Result) == 0 || string(decoded.Result) == "null" {
		return fmt.Errorf("%s returned no result", method)
	}
	if err := jsonAPI.Unmarshal(decoded.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}
