package apiclient

import "context"

// Credentials はリクエストに付与するトークンの供給元（セッション）
type Credentials interface {
	Token(ctx context.Context) string
	// 401/403 を受けたときに 1 回だけ呼ばれる
	Expire(ctx context.Context)
}

type credsKey struct{}

func WithCredentials(ctx context.Context, c Credentials) context.Context {
	return context.WithValue(ctx, credsKey{}, c)
}

func CredentialsFrom(ctx context.Context) (Credentials, bool) {
	c, ok := ctx.Value(credsKey{}).(Credentials)
	return c, ok && c != nil
}

// StaticToken: CLI 等でトークンを直接渡す場合
type StaticToken string

func (t StaticToken) Token(context.Context) string { return string(t) }
func (StaticToken) Expire(context.Context)         {}
