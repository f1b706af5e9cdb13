package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"log/slog"

	"github.com/sboruta/tracker/pkg/models"
)

// Client speaks the sync endpoint protocol: one idempotent upload and one
// idempotent download operation per table. Re-sending an already-applied
// batch is harmless because the remote side applies the same
// last-writer-wins rule this agent does.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

type uploadRequest struct {
	Table   string       `json:"table"`
	Changes []models.Row `json:"changes"`
}

type downloadResponse struct {
	Changes []json.RawMessage `json:"changes"`
}

// Upload pushes a batch of locally dirty rows.
func (c *Client) Upload(ctx context.Context, table models.Table, rows []models.Row) error {
	body, err := json.Marshal(uploadRequest{Table: table.Name, Changes: rows})
	if err != nil {
		return fmt.Errorf("marshal upload %s: %w", table.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sync/upload", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", table.Name, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upload %s: unexpected status %d", table.Name, resp.StatusCode)
	}
	return nil
}

// Download fetches rows changed after since. employeeID scopes the result
// for tables that carry an employee_id column; pass "" for unscoped tables.
// Malformed elements in the response are logged and skipped; one bad row
// must not abort the batch.
func (c *Client) Download(ctx context.Context, table models.Table, since int64, employeeID string) ([]models.Row, error) {
	q := url.Values{}
	q.Set("table", table.Name)
	q.Set("since", strconv.FormatInt(since, 10))
	if employeeID != "" {
		q.Set("employee_id", employeeID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/sync/download?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", table.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("download %s: unexpected status %d", table.Name, resp.StatusCode)
	}

	var dr downloadResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("decode download %s: %w", table.Name, err)
	}

	rows := make([]models.Row, 0, len(dr.Changes))
	for _, raw := range dr.Changes {
		row := table.New()
		if err := json.Unmarshal(raw, row); err != nil {
			c.logger.Warn("skipping malformed row",
				slog.String("table", table.Name),
				slog.Any("err", err),
			)
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}
