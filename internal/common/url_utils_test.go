package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceNameFromURL(t *testing.T) {
	tests := []struct {
		link string
		want string
	}{
		{"https://www.reuters.com/markets/us/story", "reuters.com"},
		{"https://finance.Yahoo.com/news/a.html", "finance.yahoo.com"},
		{"http://example.com:8080/x", "example.com"},
		{"not a url", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			assert.Equal(t, tt.want, SourceNameFromURL(tt.link))
		})
	}
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "plain text here", PlainText("  plain \n text   here "))
	assert.Equal(t, "Apple shares rose 3%.",
		PlainText(`<p>Apple <b>shares</b> rose 3%.</p><script>track()</script>`))
	assert.Equal(t, "", PlainText(""))
}
