package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSpreadPercent_NormalBook tests the spread math on a two-sided book
func TestSpreadPercent_NormalBook(t *testing.T) {
	ticker := Ticker{Bid1Price: 99.5, Ask1Price: 100.5}

	assert.InDelta(t, 1.0, ticker.SpreadPercent(), 0.001)
}

// TestSpreadPercent_EmptyBook tests the zero guard on missing quotes
func TestSpreadPercent_EmptyBook(t *testing.T) {
	assert.Equal(t, 0.0, Ticker{}.SpreadPercent())
	assert.Equal(t, 0.0, Ticker{Bid1Price: -1, Ask1Price: 1}.SpreadPercent())
}
