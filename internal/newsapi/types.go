// Package newsapi provides a client for the newsapi.org v2 API and adapts it
// to the news provider interface.
package newsapi

import "fmt"

// Response is the envelope returned by /top-headlines and /everything.
type Response struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
	Code         string    `json:"code,omitempty"`
	Message      string    `json:"message,omitempty"`
}

// Article is one entry of Response.Articles. Any field may be null.
type Article struct {
	Source      Source  `json:"source"`
	Author      *string `json:"author"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	URL         *string `json:"url"`
	PublishedAt *string `json:"publishedAt"`
	Content     *string `json:"content"`
}

// Source identifies the publisher of an Article.
type Source struct {
	ID   *string `json:"id"`
	Name string  `json:"name"`
}

// APIError is a non-200 response or a body with status "error".
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("NewsAPI error: %s: %s (status: %d, endpoint: %s)", e.Code, e.Message, e.StatusCode, e.Endpoint)
	}
	return fmt.Sprintf("NewsAPI error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
