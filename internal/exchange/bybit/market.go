package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/ducminhle1904/crypto-safety-monitor/internal/exchange"
)

// GetTicker fetches the current ticker for one symbol
func (c *Client) GetTicker(ctx context.Context, symbol string) (exchange.Ticker, error) {
	if symbol == "" {
		return exchange.Ticker{}, fmt.Errorf("symbol must not be empty")
	}

	params := map[string]interface{}{
		"category": c.category,
		"symbol":   symbol,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	if err != nil {
		return exchange.Ticker{}, fmt.Errorf("failed to get ticker for %s: %w", symbol, err)
	}

	tickers, err := c.parseTickersResponse(result)
	if err != nil {
		return exchange.Ticker{}, fmt.Errorf("failed to parse ticker response: %w", err)
	}
	if len(tickers) == 0 {
		return exchange.Ticker{}, fmt.Errorf("no ticker returned for %s", symbol)
	}

	return tickers[0], nil
}

// GetAllTickers fetches tickers for every symbol in the configured category
func (c *Client) GetAllTickers(ctx context.Context) ([]exchange.Ticker, error) {
	params := map[string]interface{}{
		"category": c.category,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickers: %w", err)
	}

	tickers, err := c.parseTickersResponse(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tickers response: %w", err)
	}

	return tickers, nil
}

// parseTickersResponse parses the API response into Ticker structs
func (c *Client) parseTickersResponse(response interface{}) ([]exchange.Ticker, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}

	if serverResp.RetCode != 0 {
		return nil, fmt.Errorf("API error: %s (code: %d)", serverResp.RetMsg, serverResp.RetCode)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var tickerResult struct {
		Category string `json:"category"`
		List     []struct {
			Symbol       string `json:"symbol"`
			LastPrice    string `json:"lastPrice"`
			Bid1Price    string `json:"bid1Price"`
			Ask1Price    string `json:"ask1Price"`
			Volume24h    string `json:"volume24h"`
			Turnover24h  string `json:"turnover24h"`
			Price24hPcnt string `json:"price24hPcnt"`
			HighPrice24h string `json:"highPrice24h"`
			LowPrice24h  string `json:"lowPrice24h"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &tickerResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ticker list: %w", err)
	}

	tickers := make([]exchange.Ticker, 0, len(tickerResult.List))
	for _, raw := range tickerResult.List {
		ticker := exchange.Ticker{
			Symbol:                raw.Symbol,
			LastPrice:             parseFloat(raw.LastPrice),
			Bid1Price:             parseFloat(raw.Bid1Price),
			Ask1Price:             parseFloat(raw.Ask1Price),
			Volume24h:             parseFloat(raw.Volume24h),
			Turnover24h:           parseFloat(raw.Turnover24h),
			PriceChange24hPercent: parseFloat(raw.Price24hPcnt) * 100, // API reports a fraction
			HighPrice24h:          parseFloat(raw.HighPrice24h),
			LowPrice24h:           parseFloat(raw.LowPrice24h),
		}
		tickers = append(tickers, ticker)
	}

	return tickers, nil
}

// parseFloat converts the API's string numbers, empty strings become 0
func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
