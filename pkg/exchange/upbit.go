package exchange

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	UpbitBaseURL        = "https://api.upbit.com"
	defaultUpbitTimeout = 10 * time.Second
)

// UpbitClient Upbit REST API客户端
type UpbitClient struct {
	baseURL    string
	accessKey  string
	secretKey  string
	httpClient *http.Client
}

// UpbitOption 客户端选项
type UpbitOption func(c *UpbitClient)

// WithUpbitBaseURL 自定义API地址
func WithUpbitBaseURL(baseURL string) UpbitOption {
	return func(c *UpbitClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithUpbitHTTPClient 自定义HTTP客户端（超时、代理）
func WithUpbitHTTPClient(client *http.Client) UpbitOption {
	return func(c *UpbitClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewUpbitClient 创建Upbit客户端
func NewUpbitClient(accessKey, secretKey string, options ...UpbitOption) *UpbitClient {
	client := &UpbitClient{
		baseURL:    UpbitBaseURL,
		accessKey:  accessKey,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: defaultUpbitTimeout},
	}
	for _, option := range options {
		option(client)
	}
	return client
}

var _ Exchange = (*UpbitClient)(nil)

// APIError Upbit接口返回的错误
type APIError struct {
	StatusCode int
	Name       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("upbit api error: status=%d %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upbit api error: status=%d %s: %s", e.StatusCode, e.Name, e.Message)
}

// GetBalances 获取账户余额
// GET /v1/accounts
func (u *UpbitClient) GetBalances(ctx context.Context) ([]*Balance, error) {
	var balances []*Balance
	if err := u.do(ctx, http.MethodGet, "/v1/accounts", nil, &balances); err != nil {
		return nil, fmt.Errorf("failed to get balances: %w", err)
	}
	return balances, nil
}

// BuyMarketOrder 市价买入，按计价货币金额下单
// POST /v1/orders ord_type=price
func (u *UpbitClient) BuyMarketOrder(ctx context.Context, market string, amount decimal.Decimal) (*OrderResult, error) {
	params := url.Values{}
	params.Set("market", market)
	params.Set("side", "bid")
	params.Set("ord_type", "price")
	params.Set("price", amount.String())

	order, err := u.placeOrder(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create market buy order: %w", err)
	}
	return order, nil
}

// SellMarketOrder 市价卖出，按币的数量下单
// POST /v1/orders ord_type=market
func (u *UpbitClient) SellMarketOrder(ctx context.Context, market string, volume decimal.Decimal) (*OrderResult, error) {
	params := url.Values{}
	params.Set("market", market)
	params.Set("side", "ask")
	params.Set("ord_type", "market")
	params.Set("volume", volume.String())

	order, err := u.placeOrder(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create market sell order: %w", err)
	}
	return order, nil
}

func (u *UpbitClient) placeOrder(ctx context.Context, params url.Values) (*OrderResult, error) {
	var raw map[string]interface{}
	if err := u.do(ctx, http.MethodPost, "/v1/orders", params, &raw); err != nil {
		return nil, err
	}

	str := func(key string) string {
		if v, ok := raw[key].(string); ok {
			return v
		}
		return ""
	}

	return &OrderResult{
		UUID:      str("uuid"),
		Market:    str("market"),
		Side:      str("side"),
		OrdType:   str("ord_type"),
		Price:     str("price"),
		Volume:    str("volume"),
		State:     str("state"),
		CreatedAt: str("created_at"),
		Raw:       raw,
	}, nil
}

// do 发送签名请求并解析JSON响应
func (u *UpbitClient) do(ctx context.Context, method, path string, params url.Values, out interface{}) error {
	token, err := u.sign(params)
	if err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}

	var body io.Reader
	if method == http.MethodPost && len(params) > 0 {
		// query_hash 基于按键排序的参数计算，JSON body 的键也是有序的
		payload := make(map[string]string, len(params))
		for k := range params {
			payload[k] = params.Get(k)
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	endpoint := u.baseURL + path
	if method == http.MethodGet && len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error struct {
				Name    string `json:"name"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(data, &envelope) == nil && envelope.Error.Message != "" {
			apiErr.Name = envelope.Error.Name
			apiErr.Message = envelope.Error.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// sign 生成JWT鉴权令牌，有参数时附带 SHA512 query_hash
func (u *UpbitClient) sign(params url.Values) (string, error) {
	claims := jwt.MapClaims{
		"access_key": u.accessKey,
		"nonce":      uuid.NewString(),
	}
	if len(params) > 0 {
		sum := sha512.Sum512([]byte(params.Encode()))
		claims["query_hash"] = hex.EncodeToString(sum[:])
		claims["query_hash_alg"] = "SHA512"
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(u.secretKey))
}
