package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	vkAPIURL      = "https://api.vk.com/method"
	vkOAuthURL    = "https://oauth.vk.com"
	vkAPIVersion  = "5.131"
	vkTimeout     = 30 * time.Second
	vkUserAgent   = "firstcomment/1.0"
	vkMaxBodySize = 4 << 20
)

// APIError is an error object returned in place of a method response.
type APIError struct {
	Method  string `json:"-"`
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vk: %s: error %d: %s", e.Method, e.Code, e.Message)
}

// AuthError is returned by the OAuth endpoint when a token cannot be issued.
type AuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *AuthError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("vk: authorize: %s", e.Code)
	}
	return fmt.Sprintf("vk: authorize: %s: %s", e.Code, e.Description)
}

// VK talks to the VK HTTP API on behalf of a single user token.
type VK struct {
	client   *http.Client
	apiURL   string
	oauthURL string
	version  string
	token    string
}

// NewVK creates a client. A non-empty token skips Authorize.
func NewVK(token string) *VK {
	return &VK{
		client:   &http.Client{Timeout: vkTimeout},
		apiURL:   vkAPIURL,
		oauthURL: vkOAuthURL,
		version:  vkAPIVersion,
		token:    token,
	}
}

// Authorized reports whether the client holds an access token.
func (v *VK) Authorized() bool {
	return v.token != ""
}

// Authorize exchanges login and password for an access token using the
// direct password grant.
func (v *VK) Authorize(ctx context.Context, creds Credentials) error {
	if creds.ApplicationID == 0 {
		return errors.New("vk: authorize: application id is required")
	}
	if creds.Login == "" || creds.Password == "" {
		return errors.New("vk: authorize: login and password are required")
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", strconv.FormatInt(creds.ApplicationID, 10))
	if creds.ClientSecret != "" {
		form.Set("client_secret", creds.ClientSecret)
	}
	form.Set("username", creds.Login)
	form.Set("password", creds.Password)
	if creds.Scope != "" {
		form.Set("scope", creds.Scope)
	}
	form.Set("v", v.version)

	body, status, err := v.post(ctx, v.oauthURL+"/token", form)
	if err != nil {
		return fmt.Errorf("vk: authorize: %w", err)
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		AuthError
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("vk: authorize: status %d: decode: %w", status, err)
	}
	if resp.Code != "" {
		authErr := resp.AuthError
		return &authErr
	}
	if resp.AccessToken == "" {
		return fmt.Errorf("vk: authorize: status %d: no access token in response", status)
	}

	v.token = resp.AccessToken
	return nil
}

// FetchWall returns wall entries in the order VK lists them, newest first
// with pinned posts on top.
func (v *VK) FetchWall(ctx context.Context, q WallQuery) ([]Post, error) {
	if strings.TrimSpace(q.Domain) == "" {
		return nil, errors.New("vk: wall.get: domain is required")
	}

	params := url.Values{}
	params.Set("domain", q.Domain)
	params.Set("count", strconv.Itoa(q.Count))
	params.Set("offset", strconv.Itoa(q.Offset))
	filter := q.Filter
	if filter == "" {
		filter = FilterAll
	}
	params.Set("filter", string(filter))

	var resp struct {
		Count int      `json:"count"`
		Items []vkPost `json:"items"`
	}
	if err := v.call(ctx, "wall.get", params, &resp); err != nil {
		return nil, err
	}

	posts := make([]Post, 0, len(resp.Items))
	for _, item := range resp.Items {
		posts = append(posts, item.toPost())
	}
	return posts, nil
}

// CreateComment posts message under the given wall post and returns the new comment id.
func (v *VK) CreateComment(ctx context.Context, c Comment) (int64, error) {
	if c.PostID == 0 {
		return 0, errors.New("vk: wall.createComment: post id is required")
	}

	params := url.Values{}
	params.Set("owner_id", strconv.FormatInt(c.OwnerID, 10))
	params.Set("post_id", strconv.FormatInt(c.PostID, 10))
	params.Set("message", c.Message)

	var resp struct {
		CommentID int64 `json:"comment_id"`
	}
	if err := v.call(ctx, "wall.createComment", params, &resp); err != nil {
		return 0, err
	}
	return resp.CommentID, nil
}

func (v *VK) call(ctx context.Context, method string, params url.Values, out any) error {
	if v.token == "" {
		return fmt.Errorf("vk: %s: not authorized", method)
	}
	params.Set("access_token", v.token)
	params.Set("v", v.version)

	body, status, err := v.post(ctx, v.apiURL+"/"+method, params)
	if err != nil {
		return fmt.Errorf("vk: %s: %w", method, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("vk: %s: status %d", method, status)
	}

	var envelope struct {
		Response json.RawMessage `json:"response"`
		Error    *APIError       `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("vk: %s: decode: %w", method, err)
	}
	if envelope.Error != nil {
		envelope.Error.Method = method
		return envelope.Error
	}
	if len(envelope.Response) == 0 {
		return fmt.Errorf("vk: %s: empty response", method)
	}
	if err := json.Unmarshal(envelope.Response, out); err != nil {
		return fmt.Errorf("vk: %s: decode response: %w", method, err)
	}
	return nil
}

// post sends form as the request body so credentials never end up in a URL.
func (v *VK) post(ctx context.Context, endpoint string, form url.Values) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", vkUserAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, vkMaxBodySize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

type vkPost struct {
	ID       *int64 `json:"id"`
	OwnerID  int64  `json:"owner_id"`
	Date     *int64 `json:"date"`
	IsPinned *int   `json:"is_pinned"`
}

func (p vkPost) toPost() Post {
	post := Post{
		ID:      p.ID,
		OwnerID: p.OwnerID,
	}
	if p.Date != nil {
		ts := time.Unix(*p.Date, 0).UTC()
		post.Date = &ts
	}
	if p.IsPinned != nil {
		pinned := *p.IsPinned != 0
		post.IsPinned = &pinned
	}
	return post
}
