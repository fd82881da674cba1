// Package graphql contains the thin query transport the quest engine
// talks to. The engine only depends on the Execute call; this client is
// the default HTTP implementation.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wagerdeck/questline/questline/quest"
)

const defaultTimeout = 15 * time.Second

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   any `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Client posts GraphQL queries to a single endpoint and returns the
// decoded payload with the "data" envelope already stripped, so path
// resolution downstream never has to special-case it.
type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) Execute(ctx context.Context, query string, variables map[string]any) (any, error) {
	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", quest.ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", quest.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", quest.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", quest.ErrTransport, c.endpoint, resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", quest.ErrTransport, err)
	}

	var decoded response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", quest.ErrTransport, err)
	}

	if len(decoded.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", quest.ErrTransport, decoded.Errors[0].Message)
	}

	return decoded.Data, nil
}
