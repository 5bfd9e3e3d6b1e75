package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultTimeout = 15 * time.Second
	maxBody        = 1 << 20
)

// Client はバックエンド REST API 用の JSON クライアント
type Client struct {
	HTTP    *http.Client
	BaseURL string
	// Timeout は DoJSON 1 回ごとの上限。Upload には掛けない（呼び出し側の ctx で切る）
	Timeout time.Duration

	newRequestID func() string
}

func New(baseURL string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	return &Client{
		HTTP:         &http.Client{},
		BaseURL:      strings.TrimRight(baseURL, "/"),
		Timeout:      timeout,
		newRequestID: uuid.NewString,
	}, nil
}

// DoJSON: in を JSON で送り、2xx なら out に展開する。in/out は nil 可
func (c *Client) DoJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("apiclient: marshal json: %w", err)
		}
		body = bytes.NewReader(b)
	}
	reqCtx := ctx
	if c != nil && c.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	req, err := c.newRequest(reqCtx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// 期限切れの判定は呼び出し側の ctx で行う。Timeout 超過は接続エラー扱い
	return c.do(ctx, req, out)
}

// Upload: multipart/form-data でファイルを 1 つ送る。上限は ctx の期限だけ
func (c *Client) Upload(ctx context.Context, path, field, filename string, content io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("apiclient: create form file: %w", err)
	}
	if _, err := io.Copy(fw, content); err != nil {
		return fmt.Errorf("apiclient: copy file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("apiclient: close multipart: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(ctx, req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if c == nil || c.HTTP == nil {
		return nil, errors.New("apiclient: nil client")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("apiclient: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.newRequestID != nil {
		req.Header.Set("X-Request-ID", c.newRequestID())
	}
	if creds, ok := CredentialsFrom(ctx); ok {
		if tok := creds.Token(ctx); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		// 呼び出し側のキャンセル・期限はそのまま返す
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		log.Printf("[ERROR] %s %s: %v", req.Method, req.URL.Path, err)
		return wrapTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return wrapTransport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		he := newHTTPError(resp.StatusCode, bytes.TrimSpace(raw))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			if creds, ok := CredentialsFrom(ctx); ok && req.Header.Get("Authorization") != "" {
				creds.Expire(ctx)
				he.expired = true
				log.Printf("[WARN] %s %s: status=%d, session expired", req.Method, req.URL.Path, resp.StatusCode)
			}
		}
		return he
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("apiclient: unmarshal json: %w", err)
	}
	return nil
}
