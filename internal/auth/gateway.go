package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	shoperrors "github.com/abgdnv/storesim/internal/errors"
	"github.com/abgdnv/storesim/internal/storage"
	"github.com/abgdnv/storesim/pkg/config"
	"github.com/go-playground/validator/v10"
)

// Authenticator defines the account operations.
type Authenticator interface {
	// Authenticate checks username and password.
	// Returns ErrInvalidCredentials on any mismatch, without telling which part was wrong.
	Authenticate(ctx context.Context, username, password string) (Identity, error)

	// Register creates a customer account.
	// Returns a ValidationError for a malformed form and ErrUsernameTaken for a duplicate.
	Register(ctx context.Context, reg Registration) (Identity, error)
}

// Gateway implements Authenticator over a storage.Store.
type Gateway struct {
	mu          sync.Mutex
	admin       config.AdminConfig
	profiles    *storage.Entity[[]Profile]
	credentials *storage.Entity[credential]
	hasher      PasswordHasher
	validate    *validator.Validate
	now         func() time.Time
	logger      *slog.Logger
}

// NewGateway creates a Gateway. The admin account is taken from admin and never persisted.
func NewGateway(store storage.Store, admin config.AdminConfig, hasher PasswordHasher, logger *slog.Logger) *Gateway {
	return &Gateway{
		admin:       admin,
		profiles:    storage.NewEntity[[]Profile](store, storage.KindUsers, nil),
		credentials: storage.NewEntity[credential](store, storage.KindCredentials, nil),
		hasher:      hasher,
		validate:    validator.New(),
		now:         time.Now,
		logger:      logger.With("component", "auth"),
	}
}

func (g *Gateway) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Identity{}, shoperrors.ErrInvalidCredentials
	}

	if g.isAdmin(username) {
		if subtle.ConstantTimeCompare([]byte(password), []byte(g.admin.Password)) != 1 {
			return Identity{}, shoperrors.ErrInvalidCredentials
		}
		return Identity{Username: g.admin.Username, Role: RoleAdmin}, nil
	}

	profiles, err := g.loadProfiles(ctx)
	if err != nil {
		return Identity{}, err
	}
	profile, ok := findProfile(profiles, username)
	if !ok {
		return Identity{}, shoperrors.ErrInvalidCredentials
	}

	cred, found, err := g.credentials.Load(ctx, profile.Username)
	if err != nil && !errors.Is(err, shoperrors.ErrCorruptState) {
		return Identity{}, fmt.Errorf("failed to load credentials: %w", err)
	}
	if !found {
		g.logger.WarnContext(ctx, "Profile has no usable credentials", "username", profile.Username)
		return Identity{}, shoperrors.ErrInvalidCredentials
	}
	if err := g.hasher.Compare(cred.Hash, password); err != nil {
		return Identity{}, shoperrors.ErrInvalidCredentials
	}
	return Identity{Username: profile.Username, Role: profile.Role}, nil
}

func (g *Gateway) Register(ctx context.Context, reg Registration) (Identity, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	if err := g.validate.Struct(reg); err != nil {
		return Identity{}, shoperrors.FromValidator(err)
	}
	if g.isAdmin(reg.Username) {
		return Identity{}, shoperrors.ErrUsernameTaken
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	profiles, err := g.loadProfiles(ctx)
	if err != nil {
		return Identity{}, err
	}
	if _, ok := findProfile(profiles, reg.Username); ok {
		return Identity{}, shoperrors.ErrUsernameTaken
	}

	hash, err := g.hasher.Hash(reg.Password)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to hash password: %w", err)
	}
	// credentials go first: a failure below leaves an orphan credential, never a profile without one
	if err := g.credentials.Save(ctx, reg.Username, credential{Hash: hash}); err != nil {
		return Identity{}, err
	}

	profile := Profile{
		Username:  reg.Username,
		Name:      reg.Name,
		Email:     reg.Email,
		Role:      RoleCustomer,
		CreatedAt: g.now().UTC(),
	}
	if err := g.profiles.Save(ctx, "", append(profiles, profile)); err != nil {
		return Identity{}, err
	}
	g.logger.InfoContext(ctx, "Account registered", "username", profile.Username)
	return Identity{Username: profile.Username, Role: profile.Role}, nil
}

// Profiles returns every registered profile.
func (g *Gateway) Profiles(ctx context.Context) ([]Profile, error) {
	return g.loadProfiles(ctx)
}

func (g *Gateway) isAdmin(username string) bool {
	return strings.EqualFold(username, g.admin.Username)
}

func (g *Gateway) loadProfiles(ctx context.Context) ([]Profile, error) {
	profiles, _, err := g.profiles.Load(ctx, "")
	if err != nil {
		if !errors.Is(err, shoperrors.ErrCorruptState) {
			return nil, fmt.Errorf("failed to load profiles: %w", err)
		}
		g.logger.WarnContext(ctx, "Stored profiles are unreadable, using empty list", "error", err)
		return []Profile{}, nil
	}
	return profiles, nil
}

// findProfile matches usernames case-insensitively.
func findProfile(profiles []Profile, username string) (Profile, bool) {
	for _, p := range profiles {
		if strings.EqualFold(p.Username, username) {
			return p, true
		}
	}
	return Profile{}, false
}
