// Package rest talks to the hosted PostgREST data service.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/typeme/internal/backend"
	"github.com/verte-zerg/typeme/internal/model"
)

const (
	resultsTable  = "typing_results"
	profilesTable = "profiles"
	maxErrorBody  = 64 << 10
)

// Client implements backend.Backend over the PostgREST HTTP interface.
type Client struct {
	base   *url.URL
	key    string
	http   *http.Client
	logger *zap.Logger
}

var _ backend.Backend = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New builds a client for the project at endpoint using the access key.
func New(endpoint, key string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("backend url is empty")
	}
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("backend access key is empty")
	}
	base, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend url %q: scheme must be http or https", endpoint)
	}
	c := &Client{
		base:   base,
		key:    key,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type insertRow struct {
	UserID            string  `json:"user_id"`
	WPM               int     `json:"wpm"`
	Accuracy          float64 `json:"accuracy"`
	TestDuration      *int    `json:"test_duration"`
	CharactersTyped   int     `json:"characters_typed"`
	CorrectCharacters int     `json:"correct_characters"`
	WordsTyped        int     `json:"words_typed"`
	TestType          string  `json:"test_type"`
}

type profileRow struct {
	ID          string  `json:"id"`
	DisplayName *string `json:"display_name"`
	UpdatedAt   string  `json:"updated_at"`
}

type nameRow struct {
	ID          string  `json:"id"`
	DisplayName *string `json:"display_name"`
}

// InsertResult posts one row and returns the stored representation.
func (c *Client) InsertResult(ctx context.Context, result model.TypingResult) (model.TypingResult, error) {
	row := insertRow{
		UserID:            result.UserID,
		WPM:               result.WPM,
		Accuracy:          result.Accuracy,
		TestDuration:      result.TestDuration,
		CharactersTyped:   result.CharactersTyped,
		CorrectCharacters: result.CorrectCharacters,
		WordsTyped:        result.WordsTyped,
		TestType:          string(result.TestType),
	}
	var stored []model.TypingResult
	err := c.do(ctx, "insert result", http.MethodPost, resultsTable, nil, []insertRow{row},
		map[string]string{"Prefer": "return=representation"}, &stored)
	if err != nil {
		return model.TypingResult{}, err
	}
	if len(stored) != 1 {
		return model.TypingResult{}, &backend.Error{Op: "insert result", Message: fmt.Sprintf("expected 1 row, got %d", len(stored))}
	}
	return stored[0], nil
}

// SelectResults issues a filtered, ordered and ranged select.
func (c *Client) SelectResults(ctx context.Context, q backend.ResultQuery) ([]model.TypingResult, error) {
	params := url.Values{}
	params.Set("select", "*")
	if q.UserID != "" {
		params.Set("user_id", "eq."+q.UserID)
	}
	if q.TestType != "" {
		params.Set("test_type", "eq."+string(q.TestType))
	}
	if q.Duration > 0 {
		params.Set("test_duration", "eq."+strconv.Itoa(q.Duration))
	}
	if q.Order == backend.OrderWPM {
		params.Set("order", "wpm.desc,created_at.asc")
	} else {
		params.Set("order", "created_at.desc")
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	var results []model.TypingResult
	if err := c.do(ctx, "select results", http.MethodGet, resultsTable, params, nil, nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// SelectDisplayNames looks up display names for ids in one request.
func (c *Client) SelectDisplayNames(ctx context.Context, ids []string) (map[string]*string, error) {
	names := map[string]*string{}
	if len(ids) == 0 {
		return names, nil
	}
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = strconv.Quote(id)
	}
	params := url.Values{}
	params.Set("select", "id,display_name")
	params.Set("id", "in.("+strings.Join(quoted, ",")+")")
	var rows []nameRow
	if err := c.do(ctx, "select display names", http.MethodGet, profilesTable, params, nil, nil, &rows); err != nil {
		return nil, err
	}
	for _, row := range rows {
		names[row.ID] = row.DisplayName
	}
	return names, nil
}

// SelectProfile fetches one profile by id.
func (c *Client) SelectProfile(ctx context.Context, id string) (model.UserProfile, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("id", "eq."+id)
	params.Set("limit", "1")
	var rows []model.UserProfile
	if err := c.do(ctx, "select profile", http.MethodGet, profilesTable, params, nil, nil, &rows); err != nil {
		return model.UserProfile{}, err
	}
	if len(rows) == 0 {
		return model.UserProfile{}, backend.ErrNotFound
	}
	return rows[0], nil
}

// UpsertProfile merges the display name into the profile keyed by id.
func (c *Client) UpsertProfile(ctx context.Context, update backend.ProfileUpdate) error {
	params := url.Values{}
	params.Set("on_conflict", "id")
	row := profileRow{
		ID:          update.ID,
		DisplayName: update.DisplayName,
		UpdatedAt:   update.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	return c.do(ctx, "upsert profile", http.MethodPost, profilesTable, params, []profileRow{row},
		map[string]string{"Prefer": "resolution=merge-duplicates,return=minimal"}, nil)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (c *Client) do(ctx context.Context, op, method, table string, params url.Values, body any, headers map[string]string, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/rest/v1/" + table
	if params != nil {
		u.RawQuery = params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &backend.Error{Op: op, Err: err}
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return &backend.Error{Op: op, Err: err}
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("backend request failed", zap.String("op", op), zap.Error(err))
		return &backend.Error{Op: op, Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()
	c.logger.Debug("backend request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("table", table),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)))

	if resp.StatusCode >= 300 {
		return decodeError(op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &backend.Error{Op: op, Status: resp.StatusCode, Message: "invalid response body", Err: err}
	}
	return nil
}

func decodeError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	be := &backend.Error{Op: op, Status: resp.StatusCode}
	var apiErr apiError
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
		be.Code = apiErr.Code
		be.Message = apiErr.Message
		if apiErr.Details != "" {
			be.Message += ": " + apiErr.Details
		}
		return be
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	be.Message = text
	return be
}
