// Package googleads fetches GAQL reports through the Google Ads REST
// searchStream endpoint.
package googleads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/adstack/ingest-api/internal/rows"
)

const (
	DefaultBaseURL = "https://googleads.googleapis.com/v19"
	scope          = "https://www.googleapis.com/auth/adwords"
)

// Credentials is the Google Ads secret payload shape.
type Credentials struct {
	DeveloperToken  string `json:"developer_token"`
	ClientID        string `json:"client_id"`
	ClientSecret    string `json:"client_secret"`
	RefreshToken    string `json:"refresh_token"`
	LoginCustomerID string `json:"login_customer_id"`
}

func (c Credentials) Validate() error {
	if c.DeveloperToken == "" || c.ClientID == "" || c.ClientSecret == "" || c.RefreshToken == "" {
		return fmt.Errorf("google ads secret must contain developer_token, client_id, client_secret and refresh_token")
	}
	return nil
}

type Client struct {
	httpClient      *http.Client
	baseURL         string
	developerToken  string
	loginCustomerID string
	logger          zerolog.Logger
}

func NewClient(ctx context.Context, creds Credentials, logger zerolog.Logger) *Client {
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{scope},
	}
	return &Client{
		httpClient:      conf.Client(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken}),
		baseURL:         DefaultBaseURL,
		developerToken:  creds.DeveloperToken,
		loginCustomerID: creds.LoginCustomerID,
		logger:          logger.With().Str("component", "googleads_client").Logger(),
	}
}

// WithBaseURL points the client at a different endpoint; used in tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type streamChunk struct {
	Results   []map[string]any `json:"results"`
	FieldMask string           `json:"fieldMask"`
}

// Search runs one GAQL query for a customer and flattens the streamed
// result batches into a table whose columns follow the response field mask.
func (c *Client) Search(ctx context.Context, customerID, query string) (rows.Table, error) {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return rows.Table{}, err
	}
	url := fmt.Sprintf("%s/customers/%s/googleAds:searchStream", c.baseURL, customerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return rows.Table{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("developer-token", c.developerToken)
	if c.loginCustomerID != "" {
		req.Header.Set("login-customer-id", c.loginCustomerID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return rows.Table{}, errors.Wrapf(err, "search stream for customer %s", customerID)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return rows.Table{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return rows.Table{}, fmt.Errorf("search stream for customer %s: status %d: %s", customerID, resp.StatusCode, truncate(payload))
	}

	var chunks []streamChunk
	if err := json.Unmarshal(payload, &chunks); err != nil {
		return rows.Table{}, errors.Wrap(err, "decode search stream response")
	}

	var table rows.Table
	for _, chunk := range chunks {
		if len(chunk.Results) == 0 {
			continue
		}
		columns := strings.Split(chunk.FieldMask, ",")
		if len(table.Columns) == 0 {
			table = rows.New(columns...)
		}
		for _, result := range chunk.Results {
			values := make([]string, len(columns))
			for i, path := range columns {
				values[i] = lookupPath(result, path)
			}
			table.Rows = append(table.Rows, values)
		}
	}
	c.logger.Debug().Str("customer_id", customerID).Int("rows", table.RowCount()).Msg("search stream fetched")
	return table, nil
}

// lookupPath walks a dotted field-mask path through the decoded result.
// Proto field names in the mask are snake_case while the JSON keys are
// camelCase, so each segment falls back to its camel form.
func lookupPath(result map[string]any, path string) string {
	var current any = result
	for _, segment := range strings.Split(strings.TrimSpace(path), ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		value, ok := node[segment]
		if !ok {
			value, ok = node[snakeToCamel(segment)]
		}
		if !ok {
			return ""
		}
		current = value
	}
	return formatValue(current)
}

func snakeToCamel(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

func formatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

func truncate(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
