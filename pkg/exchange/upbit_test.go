package exchange

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
)

func parseUpbitToken(t *testing.T, r *http.Request, secret string) jwt.MapClaims {
	t.Helper()
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		t.Fatalf("missing bearer token: %q", header)
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	return claims
}

func TestUpbitGetBalances(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/accounts" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		claims := parseUpbitToken(t, r, "secret")
		if claims["access_key"] != "access" {
			t.Fatalf("unexpected access_key: %v", claims["access_key"])
		}
		if claims["nonce"] == "" || claims["nonce"] == nil {
			t.Fatalf("expected nonce claim")
		}
		if _, ok := claims["query_hash"]; ok {
			t.Fatalf("query_hash must be absent without params")
		}
		_, _ = w.Write([]byte(`[
			{"currency":"KRW","balance":"1000000.0","locked":"0.0","avg_buy_price":"0","unit_currency":"KRW"},
			{"currency":"BTC","balance":"0.5","locked":"0.0","avg_buy_price":"50000000","unit_currency":"KRW"}
		]`))
	}))
	defer srv.Close()

	client := NewUpbitClient("access", "secret", WithUpbitBaseURL(srv.URL))
	balances, err := client.GetBalances(context.Background())
	if err != nil {
		t.Fatalf("GetBalances error: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("expected 2 balances, got %d", len(balances))
	}
	if balances[1].Currency != "BTC" || balances[1].AvgBuyPrice != "50000000" {
		t.Fatalf("unexpected balance: %+v", balances[1])
	}
}

func TestUpbitBuyMarketOrderSignsQueryHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/orders" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["market"] != "KRW-BTC" || body["side"] != "bid" || body["ord_type"] != "price" || body["price"] != "10000" {
			t.Fatalf("unexpected body: %+v", body)
		}

		claims := parseUpbitToken(t, r, "secret")
		sum := sha512.Sum512([]byte("market=KRW-BTC&ord_type=price&price=10000&side=bid"))
		if claims["query_hash"] != hex.EncodeToString(sum[:]) {
			t.Fatalf("unexpected query_hash: %v", claims["query_hash"])
		}
		if claims["query_hash_alg"] != "SHA512" {
			t.Fatalf("unexpected query_hash_alg: %v", claims["query_hash_alg"])
		}
		_, _ = w.Write([]byte(`{"uuid":"abc-123","side":"bid","ord_type":"price","price":"10000","state":"wait","market":"KRW-BTC"}`))
	}))
	defer srv.Close()

	client := NewUpbitClient("access", "secret", WithUpbitBaseURL(srv.URL))
	order, err := client.BuyMarketOrder(context.Background(), "KRW-BTC", decimal.NewFromInt(10000))
	if err != nil {
		t.Fatalf("BuyMarketOrder error: %v", err)
	}
	if order.UUID != "abc-123" || order.State != "wait" {
		t.Fatalf("unexpected order: %+v", order)
	}
	if order.Raw["market"] != "KRW-BTC" {
		t.Fatalf("raw response not kept: %+v", order.Raw)
	}
}

func TestUpbitSellMarketOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["side"] != "ask" || body["ord_type"] != "market" || body["volume"] != "0.25" {
			t.Fatalf("unexpected body: %+v", body)
		}
		_, _ = w.Write([]byte(`{"uuid":"sell-1","side":"ask","ord_type":"market","volume":"0.25","state":"wait","market":"KRW-ETH"}`))
	}))
	defer srv.Close()

	client := NewUpbitClient("access", "secret", WithUpbitBaseURL(srv.URL))
	order, err := client.SellMarketOrder(context.Background(), "KRW-ETH", decimal.RequireFromString("0.25"))
	if err != nil {
		t.Fatalf("SellMarketOrder error: %v", err)
	}
	if order.UUID != "sell-1" || order.Volume != "0.25" {
		t.Fatalf("unexpected order: %+v", order)
	}
}

func TestUpbitAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"name":"insufficient_funds_bid","message":"not enough KRW"}}`))
	}))
	defer srv.Close()

	client := NewUpbitClient("access", "secret", WithUpbitBaseURL(srv.URL))
	_, err := client.BuyMarketOrder(context.Background(), "KRW-BTC", decimal.NewFromInt(10000))
	if err == nil {
		t.Fatalf("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Name != "insufficient_funds_bid" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}
