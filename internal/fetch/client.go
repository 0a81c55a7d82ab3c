package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"wagerboard/internal/board"
)

// Failure taxonomy for upstream calls. A RemoteError is an application-level
// rejection reported by the provider; the sentinels cover transport faults
// and unusable payloads.
var (
	ErrUnreachable     = errors.New("stats provider unreachable")
	ErrInvalidResponse = errors.New("stats provider returned an unusable payload")
)

// RemoteError carries the provider's own error message.
type RemoteError struct {
	Msg string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("stats provider rejected request: %s", e.Msg)
}

// Client calls the affiliate stats endpoint. One attempt per call, no
// internal retry. The scheduler's next tick is the retry.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
	log    zerolog.Logger
}

func NewClient(url, apiKey string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
		log:    log,
	}
}

type statsRequest struct {
	APIKey string `json:"apikey"`
	From   string `json:"from"`
	To     string `json:"to"`
}

type statsResponse struct {
	Error bool   `json:"error"`
	Msg   string `json:"msg"`
	Data  struct {
		SummarizedBets []board.WagerRecord `json:"summarizedBets"`
	} `json:"data"`
}

// Fetch requests wager records for the inclusive [from, to] date range.
// The raw response body is returned alongside the parsed records so callers
// can persist it for debugging.
func (c *Client) Fetch(ctx context.Context, from, to time.Time) ([]board.WagerRecord, []byte, error) {
	payload, err := json.Marshal(statsRequest{
		APIKey: c.apiKey,
		From:   from.Format("2006-01-02"),
		To:     to.Format("2006-01-02"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal stats request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("build stats request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read body: %v", ErrUnreachable, err)
	}

	var parsed statsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if parsed.Error {
		return nil, nil, &RemoteError{Msg: parsed.Msg}
	}

	// The provider omits summarizedBets when a week has no activity.
	records := parsed.Data.SummarizedBets
	if records == nil {
		records = []board.WagerRecord{}
	}

	c.log.Debug().Int("records", len(records)).
		Str("from", from.Format("2006-01-02")).
		Str("to", to.Format("2006-01-02")).
		Msg("stats fetched")

	return records, raw, nil
}
