// Package tiktok fetches synchronous integrated reports from the TikTok
// Business API.
package tiktok

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const DefaultBaseURL = "https://business-api.tiktok.com/open_api/v1.3"

const pageSize = 1000

type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	logger      zerolog.Logger
}

func NewClient(accessToken string, logger zerolog.Logger) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     DefaultBaseURL,
		accessToken: accessToken,
		logger:      logger.With().Str("component", "tiktok_client").Logger(),
	}
}

func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// ReportQuery describes one integrated-report request. Start and end dates
// are YYYY-MM-DD and inclusive.
type ReportQuery struct {
	AdvertiserID string
	StartDate    string
	EndDate      string
	Dimensions   []string
	Metrics      []string
	DataLevel    string
	ReportType   string
}

type reportResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		List []struct {
			Dimensions map[string]any `json:"dimensions"`
			Metrics    map[string]any `json:"metrics"`
		} `json:"list"`
		PageInfo struct {
			Page      int `json:"page"`
			TotalPage int `json:"total_page"`
		} `json:"page_info"`
	} `json:"data"`
}

// Report fetches every page of the report and returns one record per list
// item, dimensions and metrics merged.
func (c *Client) Report(ctx context.Context, query ReportQuery) ([]map[string]string, error) {
	var records []map[string]string
	page := 1
	for {
		resp, err := c.fetchPage(ctx, query, page)
		if err != nil {
			return nil, err
		}
		for _, item := range resp.Data.List {
			record := make(map[string]string, len(item.Dimensions)+len(item.Metrics))
			for key, value := range item.Dimensions {
				record[key] = stringify(value)
			}
			for key, value := range item.Metrics {
				record[key] = stringify(value)
			}
			records = append(records, record)
		}
		if resp.Data.PageInfo.Page >= resp.Data.PageInfo.TotalPage {
			break
		}
		page++
	}
	c.logger.Debug().
		Str("advertiser_id", query.AdvertiserID).
		Str("start_date", query.StartDate).
		Int("rows", len(records)).
		Msg("report fetched")
	return records, nil
}

func (c *Client) fetchPage(ctx context.Context, query ReportQuery, page int) (*reportResponse, error) {
	dimensions, err := json.Marshal(query.Dimensions)
	if err != nil {
		return nil, err
	}
	metrics, err := json.Marshal(query.Metrics)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("advertiser_id", query.AdvertiserID)
	params.Set("report_type", query.ReportType)
	params.Set("data_level", query.DataLevel)
	params.Set("dimensions", string(dimensions))
	params.Set("metrics", string(metrics))
	params.Set("start_date", query.StartDate)
	params.Set("end_date", query.EndDate)
	params.Set("page_size", strconv.Itoa(pageSize))
	params.Set("page", strconv.Itoa(page))

	endpoint := fmt.Sprintf("%s/report/integrated/get/?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Access-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "report request for advertiser %s", query.AdvertiserID)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("report request for advertiser %s: status %d", query.AdvertiserID, httpResp.StatusCode)
	}

	var resp reportResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decode report response")
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("report request for advertiser %s rejected: %s", query.AdvertiserID, resp.Message)
	}
	return &resp, nil
}

func stringify(v any) string {
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
