package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/IsnuMdr/todo-app/internal/common"
	"github.com/IsnuMdr/todo-app/internal/logging"
	"github.com/IsnuMdr/todo-app/internal/models"
	"github.com/IsnuMdr/todo-app/internal/storage"
)

const (
	ProviderGoogle = "google"

	defaultGoogleAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	defaultGoogleTokenURL    = "https://oauth2.googleapis.com/token"
	defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	defaultGoogleRevokeURL   = "https://oauth2.googleapis.com/revoke"
)

var ErrInvalidState = errors.New("invalid oauth state")

// GoogleConfig configures GoogleProvider. The endpoint URLs default to
// Google's and are overridable for tests.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL     string
	TokenURL    string
	UserInfoURL string
	RevokeURL   string
}

// GoogleProvider runs the auth-code flow. The login URL is handed to Open
// (the CLI prints it); Google then redirects the browser to the loopback
// callback, which calls HandleCallback.
type GoogleProvider struct {
	config GoogleConfig
	store  storage.DurableStore
	log    logging.Logger
	client *http.Client

	// Open presents the login URL to the user.
	Open func(loginURL string) error

	mu      sync.Mutex
	pending map[string]string // state -> redirect target
	subs    common.Observers[*Session]
	now     func() time.Time
}

var _ Provider = (*GoogleProvider)(nil)

func NewGoogleProvider(config GoogleConfig, store storage.DurableStore, log logging.Logger) *GoogleProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultGoogleAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultGoogleTokenURL
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = defaultGoogleUserInfoURL
	}
	if config.RevokeURL == "" {
		config.RevokeURL = defaultGoogleRevokeURL
	}
	return &GoogleProvider{
		config:  config,
		store:   store,
		log:     log,
		client:  &http.Client{Timeout: 15 * time.Second},
		Open:    func(string) error { return nil },
		pending: make(map[string]string),
		now:     time.Now,
	}
}

// GetLoginURL builds the consent URL for state.
func (p *GoogleProvider) GetLoginURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.RedirectURL},
		"response_type": {"code"},
		"scope":         {"openid email profile"},
		"state":         {state},
		"prompt":        {"select_account"},
	}
	return p.config.AuthURL + "?" + params.Encode()
}

func (p *GoogleProvider) Initiate(ctx context.Context, redirectTarget string) error {
	state, err := common.MakeRandHexString(16)
	if err != nil {
		return fmt.Errorf("generate state: %w", err)
	}

	p.mu.Lock()
	p.pending[state] = redirectTarget
	p.mu.Unlock()

	p.log.Debug(ctx, "oauth flow started", "provider", ProviderGoogle)
	return p.Open(p.GetLoginURL(state))
}

// HandleCallback completes a flow started by Initiate. It returns the
// redirect target recorded for state.
func (p *GoogleProvider) HandleCallback(ctx context.Context, state, code string) (*Session, string, error) {
	p.mu.Lock()
	target, ok := p.pending[state]
	delete(p.pending, state)
	p.mu.Unlock()
	if !ok || state == "" {
		return nil, "", ErrInvalidState
	}
	if code == "" {
		return nil, "", errors.New("missing authorization code")
	}

	tok, err := p.exchangeToken(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("failed to exchange token: %w", err)
	}

	info, err := p.fetchUserInfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch user info: %w", err)
	}

	s := &Session{
		AccessToken: tok.AccessToken,
		Email:       info.Email,
		Profile: models.ExternalProfile{
			Provider:       ProviderGoogle,
			ProviderUserID: info.Sub,
			Name:           info.Name,
			Picture:        info.Picture,
		},
	}
	if tok.ExpiresIn > 0 {
		s.ExpiresAt = p.now().UTC().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}

	if err := p.store.Set(ctx, common.KeyExternalSession, s); err != nil {
		return nil, "", err
	}

	p.log.Info(ctx, "oauth sign-in completed", "provider", ProviderGoogle, "email", s.Email)
	p.subs.Notify(s)
	return s, target, nil
}

// ActiveSession returns the persisted session, or nil when there is none or
// it has expired.
func (p *GoogleProvider) ActiveSession(ctx context.Context) (*Session, error) {
	var s Session
	found, err := p.store.Get(ctx, common.KeyExternalSession, &s)
	if err != nil || !found {
		return nil, err
	}
	if s.Expired(p.now()) {
		return nil, nil
	}
	return &s, nil
}

func (p *GoogleProvider) Subscribe(fn func(*Session)) func() {
	return p.subs.Add(fn)
}

// SignOut revokes the access token and forgets the session. Subscribers
// are told even when revocation fails.
func (p *GoogleProvider) SignOut(ctx context.Context) error {
	var s Session
	found, err := p.store.Get(ctx, common.KeyExternalSession, &s)
	if err != nil {
		return err
	}

	var revokeErr error
	if found && s.AccessToken != "" {
		revokeErr = p.revoke(ctx, s.AccessToken)
	}

	if err := p.store.Remove(ctx, common.KeyExternalSession); err != nil {
		return err
	}
	p.subs.Notify(nil)
	return revokeErr
}

type googleTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type googleUserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (p *GoogleProvider) exchangeToken(ctx context.Context, code string) (*googleTokenResponse, error) {
	data := url.Values{
		"code":          {code},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"redirect_uri":  {p.config.RedirectURL},
		"grant_type":    {"authorization_code"},
	}

	body, err := p.postForm(ctx, p.config.TokenURL, data)
	if err != nil {
		return nil, err
	}

	var tok googleTokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, errors.New("empty access token in response")
	}
	return &tok, nil
}

func (p *GoogleProvider) fetchUserInfo(ctx context.Context, accessToken string) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	body, err := p.do(req)
	if err != nil {
		return nil, err
	}

	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse user info response: %w", err)
	}
	if info.Sub == "" || info.Email == "" {
		return nil, errors.New("user info response lacks sub or email")
	}
	return &info, nil
}

func (p *GoogleProvider) revoke(ctx context.Context, token string) error {
	_, err := p.postForm(ctx, p.config.RevokeURL, url.Values{"token": {token}})
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (p *GoogleProvider) postForm(ctx context.Context, endpoint string, data url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return p.do(req)
}

func (p *GoogleProvider) do(req *http.Request) ([]byte, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
