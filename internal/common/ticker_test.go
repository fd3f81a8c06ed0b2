package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTicker(t *testing.T) {
	originalDefault := DefaultExchange
	DefaultExchange = "US"
	defer func() { DefaultExchange = originalDefault }()

	tests := []struct {
		input        string
		wantExchange string
		wantCode     string
		wantString   string
		wantEODHD    string
	}{
		{"NASDAQ:AAPL", "NASDAQ", "AAPL", "NASDAQ:AAPL", "AAPL.US"},
		{"NYSE.IBM", "NYSE", "IBM", "NYSE:IBM", "IBM.US"},
		{"ASX:BHP", "ASX", "BHP", "ASX:BHP", "BHP.AU"},
		{"MSFT", "US", "MSFT", "US:MSFT", "MSFT.US"},
		{"msft", "US", "MSFT", "US:MSFT", "MSFT.US"},
		{"  googl  ", "US", "GOOGL", "US:GOOGL", "GOOGL.US"},
		// dotted codes that are not exchange prefixes stay intact
		{"BRK.B", "US", "BRK.B", "US:BRK.B", "BRK.B.US"},
		{"XYZ:ABC", "XYZ", "ABC", "XYZ:ABC", "ABC.US"},
		{"", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseTicker(tt.input)

			if result.Exchange != tt.wantExchange {
				t.Errorf("Exchange = %q, want %q", result.Exchange, tt.wantExchange)
			}
			if result.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", result.Code, tt.wantCode)
			}
			if result.String() != tt.wantString {
				t.Errorf("String() = %q, want %q", result.String(), tt.wantString)
			}
			if result.EODHDSymbol() != tt.wantEODHD {
				t.Errorf("EODHDSymbol() = %q, want %q", result.EODHDSymbol(), tt.wantEODHD)
			}
		})
	}
}

func TestParseTickers_DedupesBySymbol(t *testing.T) {
	tickers := ParseTickers([]string{"AAPL", "nasdaq:aapl", " ", "MSFT"})

	assert.Len(t, tickers, 2)
	assert.Equal(t, "AAPL", tickers[0].Symbol())
	assert.Equal(t, "MSFT", tickers[1].Symbol())
}
