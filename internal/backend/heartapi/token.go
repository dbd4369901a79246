package heartapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"heartwork/internal/service"
)

// Login exchanges the shared password for a token. httpClient may be nil.
func Login(ctx context.Context, baseURL, password string, httpClient *http.Client) (*oauth2.Token, error) {
	if strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("password is empty: %w", service.ErrValidation)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := NewWithHTTPClient(baseURL, httpClient)

	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"password": password}, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, errors.New("login response missing token")
	}
	return TokenFromJWT(out.Token)
}

// TokenFromJWT wraps a bearer JWT in an oauth2.Token carrying its expiry.
// The signature is not checked; only the server can do that.
func TokenFromJWT(raw string) (*oauth2.Token, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	tok := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("parsing token expiry: %w", err)
	}
	if exp != nil {
		tok.Expiry = exp.Time
	}
	return tok, nil
}

// LoadToken reads a stored token. A missing file is service.ErrUnauthorized.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("not logged in (run: heartwork login): %w", service.ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}
	return &tok, nil
}

// SaveToken writes a token readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tok); err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write token.json: %w", err)
	}
	return nil
}
