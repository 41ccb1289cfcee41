package httpds

import (
	"context"
	"io"
)

// Source adapts a Client and URL to the datasource.Source shape. Open
// performs the download request (with retries) and hands the response body
// to the caller as the raw CSV stream.
type Source struct {
	client *Client
	url    string
}

// NewSource binds a client to a fixed URL.
func NewSource(client *Client, url string) *Source {
	return &Source{client: client, url: url}
}

// Open issues the GET and returns the response body. The caller owns the
// body and must close it.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
