// Package common provides shared configuration, logging and symbol helpers.
package common

import (
	"strings"
)

// Ticker is a tracked symbol qualified by its listing exchange.
// Format: EXCHANGE:CODE (e.g. "NASDAQ:AAPL"); bare codes use DefaultExchange.
type Ticker struct {
	Exchange string
	Code     string
	Raw      string
}

// ExchangeToSuffix maps exchange codes to EODHD API suffixes.
var ExchangeToSuffix = map[string]string{
	"US":     ".US",
	"NYSE":   ".US",
	"NASDAQ": ".US",
	"ASX":    ".AU",
	"LSE":    ".LSE",
	"TSX":    ".TO",
	"XETRA":  ".XETRA",
}

// DefaultExchange applies to tickers without an exchange prefix.
var DefaultExchange = "US"

// ParseTicker parses a ticker string.
//   - "NASDAQ:AAPL" -> Exchange="NASDAQ", Code="AAPL"
//   - "NYSE.IBM"    -> Exchange="NYSE", Code="IBM" (known exchanges only)
//   - "brk.b"       -> Exchange=DefaultExchange, Code="BRK.B"
func ParseTicker(ticker string) Ticker {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return Ticker{}
	}

	if idx := strings.Index(ticker, ":"); idx > 0 {
		return Ticker{
			Exchange: strings.ToUpper(ticker[:idx]),
			Code:     strings.ToUpper(ticker[idx+1:]),
			Raw:      ticker,
		}
	}

	if idx := strings.Index(ticker, "."); idx > 0 {
		possibleExchange := strings.ToUpper(ticker[:idx])
		if _, ok := ExchangeToSuffix[possibleExchange]; ok {
			return Ticker{
				Exchange: possibleExchange,
				Code:     strings.ToUpper(ticker[idx+1:]),
				Raw:      ticker,
			}
		}
	}

	return Ticker{
		Exchange: DefaultExchange,
		Code:     strings.ToUpper(ticker),
		Raw:      ticker,
	}
}

// Symbol is the natural key used for the stocks table (the bare code).
func (t Ticker) Symbol() string {
	return t.Code
}

// String returns the exchange-qualified ticker string.
func (t Ticker) String() string {
	if t.Exchange == "" || t.Code == "" {
		return t.Code
	}
	return t.Exchange + ":" + t.Code
}

// EODHDSymbol returns the EODHD API symbol format, e.g. "NASDAQ:AAPL" -> "AAPL.US".
func (t Ticker) EODHDSymbol() string {
	if t.Code == "" {
		return ""
	}
	suffix, ok := ExchangeToSuffix[t.Exchange]
	if !ok {
		suffix = ".US"
	}
	return t.Code + suffix
}

// ParseTickers parses a list of tickers, dropping blanks and duplicate symbols.
func ParseTickers(raw []string) []Ticker {
	seen := make(map[string]bool, len(raw))
	tickers := make([]Ticker, 0, len(raw))
	for _, r := range raw {
		t := ParseTicker(r)
		if t.Code == "" || seen[t.Code] {
			continue
		}
		seen[t.Code] = true
		tickers = append(tickers, t)
	}
	return tickers
}
