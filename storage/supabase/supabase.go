// Package supabase talks to the Supabase Storage REST API with a
// service-role key. This is the bucket the browser client uploads into.
package supabase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/kbukum/audiolens/httpclient"
	"github.com/kbukum/audiolens/logger"
	"github.com/kbukum/audiolens/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderSupabase, func(cfg storage.Config, _ *logger.Logger) (storage.Storage, error) {
		return NewStorage(cfg.URL, cfg.Bucket, cfg.SecretKey, nil)
	})
}

// Storage implements storage.Storage against one Supabase bucket.
type Storage struct {
	client *httpclient.Client
	bucket string
}

var (
	_ storage.Storage           = (*Storage)(nil)
	_ storage.SignedURLProvider = (*Storage)(nil)
)

// NewStorage builds a client for projectURL (https://xyz.supabase.co). A nil
// httpClient keeps the default five minute timeout.
func NewStorage(projectURL, bucket, secretKey string, httpClient *http.Client) (*Storage, error) {
	if projectURL == "" {
		return nil, fmt.Errorf("supabase: project url is required")
	}
	client, err := httpclient.New(httpclient.Config{
		Name:    "supabase",
		BaseURL: strings.TrimRight(projectURL, "/") + "/storage/v1",
		Timeout: 5 * time.Minute,
		Headers: map[string]string{"apikey": secretKey},
		Auth:    httpclient.BearerAuth(secretKey),
	})
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		client = client.WithHTTPClient(httpClient)
	}
	return &Storage{client: client, bucket: bucket}, nil
}

func (s *Storage) objectPath(path string) string {
	return fmt.Sprintf("/object/%s/%s", s.bucket, strings.TrimLeft(path, "/"))
}

func (s *Storage) Upload(ctx context.Context, path string, reader io.Reader) error {
	_, err := s.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   s.objectPath(path),
		Body:   reader,
		Headers: map[string]string{
			"Content-Type": "application/octet-stream",
			"x-upsert":     "true",
		},
	})
	if err != nil {
		return fmt.Errorf("supabase: upload %s: %w", path, err)
	}
	return nil
}

// Download treats both 404 and the 400 "not_found" body Supabase sometimes
// returns for missing objects as a miss.
func (s *Storage) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	resp, err := s.client.Stream(ctx, httpclient.Request{Method: http.MethodGet, Path: s.objectPath(path)})
	if err == nil {
		return resp.Body, nil
	}
	if isMissing(err) {
		return nil, fmt.Errorf("supabase: %s: %w", path, storage.ErrNotFound)
	}
	return nil, fmt.Errorf("supabase: download %s: %w", path, err)
}

func isMissing(err error) bool {
	if httpclient.IsNotFound(err) {
		return true
	}
	var herr *httpclient.Error
	if errors.As(err, &herr) && herr.StatusCode == http.StatusBadRequest {
		return bytes.Contains(bytes.ToLower(herr.Body), []byte("not_found"))
	}
	return false
}

func (s *Storage) Delete(ctx context.Context, path string) error {
	_, err := s.client.Do(ctx, httpclient.Request{Method: http.MethodDelete, Path: s.objectPath(path)})
	if err != nil && !httpclient.IsNotFound(err) {
		return fmt.Errorf("supabase: delete %s: %w", path, err)
	}
	return nil
}

func (s *Storage) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.client.Do(ctx, httpclient.Request{Method: http.MethodHead, Path: s.objectPath(path)})
	if err == nil {
		return true, nil
	}
	var herr *httpclient.Error
	if errors.As(err, &herr) && (herr.StatusCode == http.StatusNotFound || herr.StatusCode == http.StatusBadRequest) {
		return false, nil
	}
	return false, fmt.Errorf("supabase: head %s: %w", path, err)
}

// URL is the public object URL; it only resolves for public buckets.
func (s *Storage) URL(_ context.Context, path string) (string, error) {
	return fmt.Sprintf("%s/object/public/%s/%s", s.client.BaseURL(), s.bucket, strings.TrimLeft(path, "/")), nil
}

type listItem struct {
	Name      string `json:"name"`
	UpdatedAt string `json:"updated_at"`
	Metadata  *struct {
		Size     int64  `json:"size"`
		MimeType string `json:"mimetype"`
	} `json:"metadata"`
}

func (s *Storage) List(ctx context.Context, prefix string) ([]storage.FileInfo, error) {
	folder, search := "", prefix
	if idx := strings.LastIndex(prefix, "/"); idx >= 0 {
		folder, search = prefix[:idx+1], prefix[idx+1:]
	}
	items, err := httpclient.DoJSON[[]listItem](ctx, s.client, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/object/list/" + s.bucket,
		Body:   map[string]any{"prefix": folder, "search": search, "limit": 1000},
	})
	if err != nil {
		return nil, fmt.Errorf("supabase: list: %w", err)
	}

	files := make([]storage.FileInfo, 0, len(*items))
	for _, item := range *items {
		// folders come back without metadata
		if item.Metadata == nil {
			continue
		}
		fi := storage.FileInfo{Path: folder + item.Name, Size: item.Metadata.Size, ContentType: item.Metadata.MimeType}
		if t, err := time.Parse(time.RFC3339, item.UpdatedAt); err == nil {
			fi.LastModified = t
		}
		files = append(files, fi)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// SignedURL asks Supabase to sign a download link for path.
func (s *Storage) SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	out, err := httpclient.DoJSON[struct {
		SignedURL string `json:"signedURL"`
	}](ctx, s.client, httpclient.Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/object/sign/%s/%s", s.bucket, strings.TrimLeft(path, "/")),
		Body:   map[string]int{"expiresIn": int(expiry.Seconds())},
	})
	if err != nil {
		return "", fmt.Errorf("supabase: sign %s: %w", path, err)
	}
	if out.SignedURL == "" {
		return "", fmt.Errorf("supabase: sign returned an empty url")
	}
	if strings.HasPrefix(out.SignedURL, "http") {
		return out.SignedURL, nil
	}
	return s.client.BaseURL() + out.SignedURL, nil
}
