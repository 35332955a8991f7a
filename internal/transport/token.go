// ABOUTME: Access token source for the QQ open API Authorization header
// ABOUTME: Credential refresh stays behind this seam so the gateway never manages auth itself

package transport

import "context"

// TokenSource supplies the bot access token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns a fixed token. Suitable for development and for
// deployments where an external process rotates the credential file.
type StaticTokenSource struct {
	token string
}

// NewStaticTokenSource creates a TokenSource that always returns token.
func NewStaticTokenSource(token string) *StaticTokenSource {
	return &StaticTokenSource{token: token}
}

// Token returns the fixed token.
func (s *StaticTokenSource) Token(_ context.Context) (string, error) {
	return s.token, nil
}

// Verify interface compliance.
var _ TokenSource = (*StaticTokenSource)(nil)
