package exchange

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrUnavailable 交易所集成不可用（未注册或未编译进来）
var ErrUnavailable = errors.New("exchange integration unavailable")

// Factory 根据凭证创建交易所客户端
type Factory func(creds Credentials) (Exchange, error)

// Registry 交易所注册表
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register 注册交易所，名称大小写不敏感，重复注册会覆盖
func (r *Registry) Register(venue string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(venue)] = factory
}

// Venues 已注册的交易所名称
func (r *Registry) Venues() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	venues := make([]string, 0, len(r.factories))
	for venue := range r.factories {
		venues = append(venues, venue)
	}
	sort.Strings(venues)
	return venues
}

// Open 创建交易所客户端，未注册的交易所返回 Unavailable 占位实现
func (r *Registry) Open(venue string, creds Credentials) (Exchange, error) {
	r.mu.RLock()
	factory, ok := r.factories[strings.ToLower(venue)]
	r.mu.RUnlock()
	if !ok || factory == nil {
		return &Unavailable{Venue: venue}, nil
	}
	return factory(creds)
}

// CheckAvailable 检查客户端是否为可用的实现
func CheckAvailable(ex Exchange) error {
	if ex == nil {
		return fmt.Errorf("%w: no client", ErrUnavailable)
	}
	if u, ok := ex.(*Unavailable); ok {
		return u.err()
	}
	return nil
}

// Unavailable 占位实现，所有调用立即失败
type Unavailable struct {
	Venue string
}

var _ Exchange = (*Unavailable)(nil)

func (u *Unavailable) err() error {
	return fmt.Errorf("%w: venue %q is not registered", ErrUnavailable, u.Venue)
}

func (u *Unavailable) GetBalances(ctx context.Context) ([]*Balance, error) {
	return nil, u.err()
}

func (u *Unavailable) BuyMarketOrder(ctx context.Context, market string, amount decimal.Decimal) (*OrderResult, error) {
	return nil, u.err()
}

func (u *Unavailable) SellMarketOrder(ctx context.Context, market string, volume decimal.Decimal) (*OrderResult, error) {
	return nil, u.err()
}
