// Package accounts registers and authenticates users and provisions users
// arriving through an external OAuth provider.
package accounts

import (
	"context"
	"errors"
	"fmt"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gramm/media"
	"gramm/storage"
	"gramm/storage/models"
	"gramm/storage/queries"
	"gramm/validation"
	"strings"
	"time"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

const maxUsernameAttempts = 1000

type Config struct {
	BcryptCost   int
	MediaTimeout time.Duration
}

type Service struct {
	manager      *storage.Manager
	store        media.Store
	preprocessor *media.Preprocessor
	config       Config
}

func NewService(manager *storage.Manager, store media.Store, preprocessor *media.Preprocessor, config Config) *Service {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if config.MediaTimeout <= 0 {
		config.MediaTimeout = 10 * time.Second
	}
	return &Service{manager: manager, store: store, preprocessor: preprocessor, config: config}
}

type registration struct {
	Username string `validate:"required,max=150,username"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=8,max=72"`
}

// Register creates a password user together with its profile.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	form := registration{
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
		Password: password,
	}
	if err := validation.Struct(form); err != nil {
		return nil, err
	}
	db := s.manager.DB(ctx)
	if taken, err := queries.UsernameTaken(db, form.Username); err != nil {
		return nil, err
	} else if taken {
		return nil, validation.Errorf("username %q is already taken", form.Username)
	}
	if _, err := queries.GetUserByEmailFold(db, form.Email); err == nil {
		return nil, validation.Errorf("an account with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	user, err := s.createUser(ctx, form.Username, form.Email, string(hash), false)
	if storage.IsDuplicate(err) {
		return nil, validation.Errorf("username or email is already taken")
	}
	return user, err
}

// Authenticate returns the user owning email when password matches.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := queries.GetUserByEmail(s.manager.DB(ctx), strings.TrimSpace(email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// FindOrAssociateByEmail looks the address up exactly, then ignoring case.
func (s *Service) FindOrAssociateByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, storage.ErrNotFound
	}
	db := s.manager.DB(ctx)
	user, err := queries.GetUserByEmail(db, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err = queries.GetUserByEmailFold(db, email)
	}
	if err != nil {
		return nil, storage.Translate(err)
	}
	return user, nil
}

func (s *Service) EnsureProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	return s.manager.EnsureProfile(ctx, userID)
}

// UniqueUsername derives a free username from preferred, falling back to the
// local part of email and then to "user_<provider>". Taken names get a
// numeric suffix: name, name_1, name_2...
func (s *Service) UniqueUsername(ctx context.Context, preferred, email, provider string) (string, error) {
	base := strings.TrimSpace(preferred)
	if base == "" {
		base, _, _ = strings.Cut(strings.TrimSpace(email), "@")
	}
	if base == "" {
		base = "user_" + provider
	}
	db := s.manager.DB(ctx)
	candidate := base
	for i := 1; i <= maxUsernameAttempts; i++ {
		taken, err := queries.UsernameTaken(db, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
	return "", fmt.Errorf("no free username for %q", base)
}

// Identity is what an OAuth provider tells us about a signing-in user.
type Identity struct {
	Provider string
	UID      string
	Email    string
	Username string
}

// ProvisionOAuthUser resolves identity to a user: an existing provider link
// wins, then an account with the same email, and otherwise a new user is
// created. The provider link and the profile are ensured in every case.
func (s *Service) ProvisionOAuthUser(ctx context.Context, identity Identity) (*models.User, bool, error) {
	if identity.Provider == "" || identity.UID == "" {
		return nil, false, validation.Errorf("provider and uid are required")
	}
	entry := log.WithFields(log.Fields{"provider": identity.Provider, "uid": identity.UID})
	db := s.manager.DB(ctx)

	link, err := queries.GetSocialAuth(db, identity.Provider, identity.UID)
	if err == nil {
		user, err := s.manager.GetUser(ctx, link.UserID)
		if err != nil {
			return nil, false, err
		}
		if _, err := s.EnsureProfile(ctx, user.ID); err != nil {
			return nil, false, err
		}
		return user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	created := false
	user, err := s.FindOrAssociateByEmail(ctx, identity.Email)
	if errors.Is(err, storage.ErrNotFound) {
		user, err = s.createOAuthUser(ctx, identity)
		created = err == nil
	}
	if err != nil {
		return nil, false, err
	}

	err = queries.CreateSocialAuth(db, &models.SocialAuth{
		UserID:    user.ID,
		Provider:  identity.Provider,
		UID:       identity.UID,
		CreatedAt: s.manager.Now(),
	})
	if err != nil && !storage.IsDuplicate(err) {
		return nil, false, fmt.Errorf("linking %s account: %w", identity.Provider, err)
	}
	if _, err := s.EnsureProfile(ctx, user.ID); err != nil {
		return nil, false, err
	}
	entry.WithField("user_id", user.ID).Infof("Linked OAuth identity (new user: %v)", created)
	return user, created, nil
}

func (s *Service) createOAuthUser(ctx context.Context, identity Identity) (*models.User, error) {
	email := strings.TrimSpace(identity.Email)
	if email == "" {
		email = fmt.Sprintf("%s-%s@users.noreply.invalid", identity.Provider, identity.UID)
	}
	for attempt := 0; attempt < 3; attempt++ {
		username, err := s.UniqueUsername(ctx, identity.Username, identity.Email, identity.Provider)
		if err != nil {
			return nil, err
		}
		user, err := s.createUser(ctx, username, email, "", identity.Email != "")
		if !storage.IsDuplicate(err) {
			return user, err
		}
	}
	return nil, fmt.Errorf("could not allocate a username for %s user %s", identity.Provider, identity.UID)
}

func (s *Service) createUser(ctx context.Context, username, email, passwordHash string, verified bool) (*models.User, error) {
	now := s.manager.Now()
	user := models.User{
		Username:        username,
		Email:           email,
		PasswordHash:    passwordHash,
		IsEmailVerified: verified,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.manager.CreateUserWithProfile(ctx, &user, nil); err != nil {
		return nil, err
	}
	return &user, nil
}
