// Package linkedin reads organization pages, followers, posts and share
// statistics from the LinkedIn REST API.
package linkedin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const DefaultBaseURL = "https://api.linkedin.com/v2"

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
		logger:      logger.With().Str("component", "linkedin_client").Logger(),
	}
}

func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Post is one UGC post with the fields the posts table records.
type Post struct {
	ID           string
	Author       string
	CreatedDate  string // YYYY-MM-DD, derived from the epoch-millis created time
	Type         string
	Text         string
	ThumbnailURL string
}

// Statistics is the total share statistics block for one post.
type Statistics struct {
	UniqueImpressions string
	Shares            string
	Engagement        string
	Clicks            string
	Likes             string
	Impressions       string
	Comments          string
}

// CompanyInfo finds the administered organization whose localized name
// matches clientName and returns its target URN.
func (c *Client) CompanyInfo(ctx context.Context, clientName string) (orgID, orgName string, err error) {
	endpoint := c.baseURL + "/organizationalEntityAcls" +
		"?q=roleAssignee&role=ADMINISTRATOR&state=APPROVED" +
		"&projection=(elements*(organizationalTarget~(localizedName)))"
	data, err := c.get(ctx, endpoint, true)
	if err != nil {
		return "", "", err
	}
	for _, element := range listField(data, "elements") {
		name := nested(element, "organizationalTarget~", "localizedName")
		if name == clientName {
			return stringField(element, "organizationalTarget"), name, nil
		}
	}
	return "", "", fmt.Errorf("organization not found for client name %q", clientName)
}

func (c *Client) Followers(ctx context.Context, organizationURN string) (int64, error) {
	endpoint := fmt.Sprintf("%s/networkSizes/%s?edgeType=CompanyFollowedByMember", c.baseURL, organizationURN)
	data, err := c.get(ctx, endpoint, false)
	if err != nil {
		return 0, err
	}
	if size, ok := data["firstDegreeSize"].(float64); ok {
		return int64(size), nil
	}
	return 0, nil
}

func (c *Client) Posts(ctx context.Context, organizationURN string, count int) ([]Post, error) {
	endpoint := fmt.Sprintf("%s/ugcPosts?q=authors&authors=List(%s)&sortBy=CREATED&count=%d",
		c.baseURL, url.QueryEscape(organizationURN), count)
	data, err := c.get(ctx, endpoint, true)
	if err != nil {
		return nil, err
	}

	var posts []Post
	for _, element := range listField(data, "elements") {
		id := stringField(element, "id")
		if id == "" {
			continue
		}
		post := Post{
			ID:     id,
			Author: stringField(element, "author"),
			Type:   nested(element, "specificContent", "com.linkedin.ugc.ShareContent", "shareMediaCategory"),
		}
		text := nested(element, "specificContent", "com.linkedin.ugc.ShareContent", "shareCommentary", "text")
		post.Text = strings.NewReplacer("\n", " ", "\r", " ").Replace(text)
		if created, ok := walk(element, "created", "time").(float64); ok {
			post.CreatedDate = time.UnixMilli(int64(created)).UTC().Format("2006-01-02")
		}
		if media, ok := walk(element, "specificContent", "com.linkedin.ugc.ShareContent", "media").([]any); ok && len(media) > 0 {
			if first, ok := media[0].(map[string]any); ok {
				post.ThumbnailURL = stringField(first, "originalUrl")
			}
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// ShareStatistics fetches the aggregate statistics for one post. Shares and
// UGC posts use different query parameters on the same endpoint.
func (c *Client) ShareStatistics(ctx context.Context, organizationURN, postID string) (Statistics, error) {
	param := "ugcPosts[0]"
	if strings.Contains(postID, "share") {
		param = "shares[0]"
	}
	endpoint := fmt.Sprintf("%s/organizationalEntityShareStatistics?q=organizationalEntity&organizationalEntity=%s&%s=%s",
		c.baseURL, organizationURN, param, postID)
	data, err := c.get(ctx, endpoint, false)
	if err != nil {
		return Statistics{}, err
	}

	elements := listField(data, "elements")
	if len(elements) == 0 {
		return Statistics{}, nil
	}
	stats, ok := walk(elements[0], "totalShareStatistics").(map[string]any)
	if !ok {
		return Statistics{}, nil
	}
	return Statistics{
		UniqueImpressions: numberField(stats, "uniqueImpressionsCount"),
		Shares:            numberField(stats, "shareCount"),
		Engagement:        numberField(stats, "engagement"),
		Clicks:            numberField(stats, "clickCount"),
		Likes:             numberField(stats, "likeCount"),
		Impressions:       numberField(stats, "impressionCount"),
		Comments:          numberField(stats, "commentCount"),
	}, nil
}

// get performs an authorized GET. The Restli protocol header is required on
// projection queries and harmless elsewhere, but mirrored from the original
// integration per endpoint.
func (c *Client) get(ctx context.Context, endpoint string, restli bool) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if restli {
		req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "linkedin request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("linkedin request %s: status %d", req.URL.Path, resp.StatusCode)
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, errors.Wrap(err, "decode linkedin response")
	}
	return data, nil
}

func walk(data map[string]any, path ...string) any {
	var current any = data
	for _, key := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = node[key]
		if !ok {
			return nil
		}
	}
	return current
}

func nested(data map[string]any, path ...string) string {
	if value, ok := walk(data, path...).(string); ok {
		return value
	}
	return ""
}

func stringField(data map[string]any, key string) string {
	if value, ok := data[key].(string); ok {
		return value
	}
	return ""
}

func numberField(data map[string]any, key string) string {
	switch value := data[key].(type) {
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", value), "0"), ".")
	case string:
		return value
	default:
		return ""
	}
}

func listField(data map[string]any, key string) []map[string]any {
	raw, ok := data[key].([]any)
	if !ok {
		return nil
	}
	elements := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if element, ok := item.(map[string]any); ok {
			elements = append(elements, element)
		}
	}
	return elements
}
