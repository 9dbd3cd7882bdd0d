package services

import (
	"context"
	"errors"
	"fmt"
	"gitviewer/internal/models"
	"gitviewer/internal/providers"
	"gitviewer/internal/structures"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const (
	maxUsernameLength      = 39
	identityCachePrefix    = "identity:"
	defaultIdentityTimeout = 3 * time.Second
)

var (
	ErrIdentityUnavailable = errors.New("identity lookup unavailable")

	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9]+(-[A-Za-z0-9]+)*$`)
)

// ValidUsername checks GitHub login syntax: alphanumerics and single
// hyphens, not starting or ending with a hyphen, at most 39 characters.
func ValidUsername(username string) bool {
	return len(username) <= maxUsernameLength && usernamePattern.MatchString(username)
}

type IdentityServiceInterface interface {
	// Lookup returns nil without error when the user does not exist.
	Lookup(ctx context.Context, username string) (*models.GitHubUser, error)
	Exists(ctx context.Context, username string) (bool, error)
}

type IdentityService struct {
	enabled bool
	baseURL string
	token   string
	agent   string
	client  *http.Client
	cache   providers.CacheProviderInterface
	logger  providers.Logger
}

func (is *IdentityService) Exists(ctx context.Context, username string) (bool, error) {
	user, err := is.Lookup(ctx, username)
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

func (is *IdentityService) Lookup(ctx context.Context, username string) (*models.GitHubUser, error) {
	if !ValidUsername(username) {
		return nil, ErrInvalidUsername
	}
	if !is.enabled {
		return &models.GitHubUser{Login: username}, nil
	}

	key := identityCachePrefix + strings.ToLower(username)
	if cached, ok := is.cache.Get(key); ok {
		var user *models.GitHubUser
		if err := json.Unmarshal(cached, &user); err == nil {
			return user, nil
		}
	}

	user, err := is.fetch(ctx, username)
	if err != nil {
		is.logger.Warnf(providers.TypeApp, "Identity lookup for %s failed: %v", username, err)
		return nil, err
	}

	if data, err := json.Marshal(user); err == nil {
		is.cache.Set(key, data)
	}
	return user, nil
}

func (is *IdentityService) fetch(ctx context.Context, username string) (*models.GitHubUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, is.baseURL+"/users/"+url.PathEscape(username), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", is.agent)
	if is.token != "" {
		req.Header.Set("Authorization", "Bearer "+is.token)
	}

	resp, err := is.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIdentityUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrIdentityUnavailable, resp.StatusCode)
	}

	var user models.GitHubUser
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIdentityUnavailable, err)
	}
	if user.Login == "" {
		user.Login = username
	}
	return &user, nil
}

func NewIdentityService(conf *structures.Config, cache providers.CacheProviderInterface, logger providers.Logger) IdentityServiceInterface {
	timeout := conf.Identity.Timeout
	if timeout <= 0 {
		timeout = defaultIdentityTimeout
	}
	agent := conf.AppName
	if agent == "" {
		agent = "GitViewer"
	}
	return &IdentityService{
		enabled: conf.Identity.Enabled,
		baseURL: strings.TrimRight(conf.Identity.BaseURL, "/"),
		token:   conf.Identity.Token,
		agent:   agent,
		client:  &http.Client{Timeout: timeout},
		cache:   cache,
		logger:  logger,
	}
}
