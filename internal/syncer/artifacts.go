package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"log/slog"

	"github.com/sboruta/tracker/pkg/models"
	"github.com/sboruta/tracker/pkg/repository"
)

// Presign asks the central store for a one-time PUT URL for a screenshot
// artifact. The returned key becomes the row's image_path once the file is
// uploaded.
func (c *Client) Presign(ctx context.Context) (key, putURL string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/screenshots/presign", nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("presign: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", "", fmt.Errorf("presign: unexpected status %d", resp.StatusCode)
	}

	var pr struct {
		Key string `json:"key"`
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", "", fmt.Errorf("decode presign: %w", err)
	}
	return pr.Key, pr.URL, nil
}

// ArtifactUploader moves captured screenshot files off the agent into
// S3-compatible object storage, rewriting each row's image_path from a
// local filesystem path to the storage key. Rows whose path is not a local
// absolute path are considered already uploaded.
type ArtifactUploader struct {
	store  repository.LocalStore
	client *Client
	http   *http.Client
	logger *slog.Logger
}

func NewArtifactUploader(store repository.LocalStore, client *Client, logger *slog.Logger) *ArtifactUploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArtifactUploader{store: store, client: client, http: client.http, logger: logger}
}

// UploadPending uploads the image file behind every dirty screenshot row
// still carrying a local path. A row whose file cannot be read or uploaded
// is logged and left as-is; its row still syncs and the file is retried on
// the next cycle.
func (u *ArtifactUploader) UploadPending(ctx context.Context, rows []models.Row) error {
	for _, row := range rows {
		shot, ok := row.(*models.Screenshot)
		if !ok || shot.Deleted() || !filepath.IsAbs(shot.ImagePath) {
			continue
		}

		key, err := u.uploadFile(ctx, shot.ImagePath)
		if err != nil {
			u.logger.Warn("screenshot upload failed",
				slog.String("id", shot.ID),
				slog.String("path", shot.ImagePath),
				slog.Any("err", err),
			)
			continue
		}

		shot.ImagePath = key
		if err := u.store.UpsertLocal(ctx, models.Screenshots, shot); err != nil {
			return fmt.Errorf("rewrite screenshot %s: %w", shot.ID, err)
		}
	}
	return nil
}

func (u *ArtifactUploader) uploadFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	key, putURL, err := u.client.Presign(ctx)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, putURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "image/png")

	resp, err := u.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("put object: unexpected status %d", resp.StatusCode)
	}
	return key, nil
}
