package skydropxhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// refreshMargin renews the token before it actually expires so in-flight
// requests never race the expiry.
const refreshMargin = 5 * time.Minute

// tokenProvider caches the OAuth bearer token. Concurrent callers hitting an
// expired cache share a single refresh via singleflight, and the cache is
// dropped on auth failure instead of serving a known-bad token until expiry.
type tokenProvider struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpc        *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	group singleflight.Group
	now   func() time.Time
}

func newTokenProvider(baseURL, clientID, clientSecret string, httpc *http.Client) *tokenProvider {
	return &tokenProvider{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpc:        httpc,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (p *tokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	if p.token != "" && p.now().Before(p.expiresAt.Add(-refreshMargin)) {
		t := p.token
		p.mu.Unlock()
		return t, nil
	}
	p.mu.Unlock()

	v, err, _ := p.group.Do("token", func() (any, error) {
		return p.fetch(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token. Called on 401 so the next request
// re-authenticates instead of replaying the bad token until natural expiry.
func (p *tokenProvider) Invalidate() {
	p.mu.Lock()
	p.token = ""
	p.expiresAt = time.Time{}
	p.mu.Unlock()
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (p *tokenProvider) fetch(ctx context.Context) (string, error) {
	body := strings.NewReader(`{"grant_type":"client_credentials","client_id":"` +
		p.clientID + `","client_secret":"` + p.clientSecret + `"}`)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/v1/oauth/token", body)
	if err != nil {
		return "", errors.Wrap(err, "new token request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpc.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "do token request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", errors.Errorf("skydropx token http %d", resp.StatusCode)
	}

	var tr tokenResp
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", errors.Wrap(err, "decode token")
	}
	if tr.AccessToken == "" {
		return "", errors.New("skydropx token response without access_token")
	}

	ttl := time.Duration(tr.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}

	p.mu.Lock()
	p.token = tr.AccessToken
	p.expiresAt = p.now().Add(ttl)
	p.mu.Unlock()

	return tr.AccessToken, nil
}
