package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"wallet_console/internal/domain/entity"
	"wallet_console/internal/pkg/erc20"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

const (
	accountA  = "0xaAaAaAaaAaAaAaaAaAAAAAAAAaaaAaAaAaaAaaAa"
	accountB  = "0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB"
	recipient = "0x1111111111111111111111111111111111111111"
	tokAddr   = "0x2222222222222222222222222222222222222222"
	linkAddr  = "0x779877A7B0D9E8603169DdbD7836e478b4624789"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type staticRegistry []entity.RegistryEntry

func (r staticRegistry) Entries() []entity.RegistryEntry {
	return append([]entity.RegistryEntry(nil), r...)
}

type fakeToken struct {
	symbol     string
	decimals   uint8
	balances   map[string]*big.Int
	failMethod string
	delay      time.Duration
}

// gate holds back every chain read for one account until it is opened.
type gate struct {
	entered     chan struct{}
	release     chan struct{}
	enteredOnce sync.Once
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) wait(ctx context.Context) error {
	g.enteredOnce.Do(func() { close(g.entered) })
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fakeChain answers eth_getBalance and ERC20 eth_calls from memory.
type fakeChain struct {
	mu        sync.Mutex
	native    map[string]*big.Int
	nativeErr error
	tokens    map[string]*fakeToken
	gates     map[string]*gate
	calls     map[string]int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		native: make(map[string]*big.Int),
		tokens: make(map[string]*fakeToken),
		gates:  make(map[string]*gate),
		calls:  make(map[string]int),
	}
}

func (c *fakeChain) setNative(account string, wei *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.native[strings.ToLower(account)] = wei
}

func (c *fakeChain) addToken(address string, tok *fakeToken) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[strings.ToLower(address)] = tok
}

func (c *fakeChain) setTokenBalance(address, account string, v *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[strings.ToLower(address)].balances[strings.ToLower(account)] = v
}

func (c *fakeChain) gateAccount(account string) *gate {
	c.mu.Lock()
	defer c.mu.Unlock()
	g := newGate()
	c.gates[strings.ToLower(account)] = g
	return g
}

func (c *fakeChain) ungate(account string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.gates, strings.ToLower(account))
}

func (c *fakeChain) callCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

func (c *fakeChain) totalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}

func (c *fakeChain) waitGate(ctx context.Context, account string) error {
	c.mu.Lock()
	g := c.gates[strings.ToLower(account)]
	c.mu.Unlock()
	if g == nil {
		return nil
	}
	return g.wait(ctx)
}

func (c *fakeChain) GetNativeBalance(ctx context.Context, account string) (*big.Int, error) {
	c.mu.Lock()
	c.calls["getBalance"]++
	c.mu.Unlock()
	if err := c.waitGate(ctx, account); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nativeErr != nil {
		return nil, c.nativeErr
	}
	if v, ok := c.native[strings.ToLower(account)]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (c *fakeChain) Call(ctx context.Context, contract string, data []byte) ([]byte, error) {
	method, ok := erc20.MethodBySelector(data)
	if !ok {
		return nil, errors.New("unknown selector")
	}

	c.mu.Lock()
	c.calls[method]++
	tok, known := c.tokens[strings.ToLower(contract)]
	c.mu.Unlock()
	if !known {
		// An address without code answers eth_call with empty data.
		return []byte{}, nil
	}
	if tok.delay > 0 {
		time.Sleep(tok.delay)
	}
	if tok.failMethod == method {
		return nil, fmt.Errorf("execution reverted: %s", method)
	}

	switch method {
	case erc20.MethodBalanceOf:
		args, err := erc20.UnpackInputs(method, data)
		if err != nil {
			return nil, err
		}
		owner := args[0].(common.Address).Hex()
		if err := c.waitGate(ctx, owner); err != nil {
			return nil, err
		}
		c.mu.Lock()
		bal, ok := tok.balances[strings.ToLower(owner)]
		c.mu.Unlock()
		if !ok {
			bal = big.NewInt(0)
		}
		return erc20.PackResult(method, bal)
	case erc20.MethodDecimals:
		return erc20.PackResult(method, tok.decimals)
	case erc20.MethodSymbol:
		return erc20.PackResult(method, tok.symbol)
	default:
		return nil, fmt.Errorf("%s is not a read call", method)
	}
}

type sentCall struct {
	from     string
	to       string
	amount   *big.Int
	contract string
	data     []byte
}

// fakeSigner records every signing request.
type fakeSigner struct {
	mu       sync.Mutex
	txHash   string
	err      error
	onSend   func()
	native   []sentCall
	contract []sentCall
}

func (s *fakeSigner) SendNative(_ context.Context, from, to string, amount *big.Int) (string, error) {
	s.mu.Lock()
	s.native = append(s.native, sentCall{from: from, to: to, amount: new(big.Int).Set(amount)})
	hook := s.onSend
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return s.result()
}

func (s *fakeSigner) SendContractCall(_ context.Context, from, contract string, data []byte) (string, error) {
	s.mu.Lock()
	s.contract = append(s.contract, sentCall{from: from, contract: contract, data: append([]byte(nil), data...)})
	hook := s.onSend
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return s.result()
}

func (s *fakeSigner) result() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return s.txHash, nil
}

func (s *fakeSigner) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.native) + len(s.contract)
}

// fakeWallet hands out accounts and relays account changes through an event.Feed.
type fakeWallet struct {
	mu       sync.Mutex
	accounts []string
	err      error
	held     *gate
	feed     event.Feed
}

// hold makes the next RequestAccounts wait until the returned gate is released.
func (w *fakeWallet) hold() *gate {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.held = newGate()
	return w.held
}

func (w *fakeWallet) setAccounts(accounts ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.accounts = accounts
}

func (w *fakeWallet) RequestAccounts(ctx context.Context) ([]string, error) {
	w.mu.Lock()
	g := w.held
	w.held = nil
	w.mu.Unlock()
	if g != nil {
		if err := g.wait(ctx); err != nil {
			return nil, err
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return nil, w.err
	}
	return append([]string(nil), w.accounts...), nil
}

func (w *fakeWallet) SubscribeAccountsChanged(ch chan<- []string) event.Subscription {
	return w.feed.Subscribe(ch)
}

func (w *fakeWallet) emit(accounts ...string) int {
	return w.feed.Send(accounts)
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

// tokUnits returns n whole units of a 6-decimal token.
func tokUnits(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000))
}

// newTestChain serves account A with 2 ETH and 100 TOK (6 decimals).
func newTestChain() *fakeChain {
	chain := newFakeChain()
	chain.setNative(accountA, ether(2))
	chain.addToken(tokAddr, &fakeToken{
		symbol:   "TOK",
		decimals: 6,
		balances: map[string]*big.Int{strings.ToLower(accountA): tokUnits(100)},
	})
	return chain
}

func testRegistry() staticRegistry {
	return staticRegistry{{DisplayName: "Test Token", ContractAddress: tokAddr}}
}

func assetIDs(assets []entity.Asset) []string {
	ids := make([]string, len(assets))
	for i, a := range assets {
		ids[i] = a.ID()
	}
	return ids
}
