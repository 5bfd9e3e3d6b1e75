package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// 401/403。セッションは Expire 済み
	ErrSessionExpired = errors.New("Sesión expirada o inválida")
	// レスポンスが得られなかった
	ErrConnection = errors.New("Error de conexión con el servidor")
)

const GenericMessage = "Error inesperado del servidor"

// HTTPError は 2xx 以外のレスポンス
type HTTPError struct {
	StatusCode int
	Message    string
	Body       []byte

	expired bool
}

func (e *HTTPError) Error() string {
	if e.expired {
		return ErrSessionExpired.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	if e.expired {
		return ErrSessionExpired
	}
	return nil
}

// Decode はエラーボディを v に展開する（errores 付きの取込結果など）
func (e *HTTPError) Decode(v any) error {
	if len(e.Body) == 0 {
		return errors.New("empty error body")
	}
	return json.Unmarshal(e.Body, v)
}

func newHTTPError(status int, body []byte) *HTTPError {
	return &HTTPError{
		StatusCode: status,
		Message:    messageFrom(body),
		Body:       body,
	}
}

// detail / message を優先。FastAPI のバリデーションエラー（配列）も拾う
func messageFrom(body []byte) string {
	var env struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return GenericMessage
	}
	if len(env.Detail) > 0 {
		var s string
		if err := json.Unmarshal(env.Detail, &s); err == nil && s != "" {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(env.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	if env.Message != "" {
		return env.Message
	}
	return GenericMessage
}

// Status: ゲートウェイ側で返す HTTP ステータスとコードに変換する
func Status(err error) (int, string) {
	var he *HTTPError
	switch {
	case errors.Is(err, ErrSessionExpired):
		return http.StatusUnauthorized, "UNAUTHENTICATED"
	case errors.Is(err, ErrConnection):
		return http.StatusBadGateway, "CONNECTION"
	case errors.As(err, &he):
		if he.StatusCode >= 400 && he.StatusCode < 500 {
			return he.StatusCode, "UPSTREAM"
		}
		return http.StatusBadGateway, "UPSTREAM"
	default:
		return 0, ""
	}
}

func wrapTransport(err error) error {
	return fmt.Errorf("%w: %v", ErrConnection, err)
}
