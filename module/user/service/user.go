package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"PChat/logger"
	"PChat/module/user/model"
	"PChat/service/storage"
	errs "PChat/tools/errs"
	"PChat/tools/security"
)

var (
	phoneRe    = regexp.MustCompile(`^\+998[0-9]{9}$`)
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Service owns accounts and sessions: registration, the login/lockout
// state machine, logout, search.
type Service struct {
	users    storage.UserStore
	sessions storage.SessionStore
	jwt      security.Options

	maxAttempts int
	lockTime    time.Duration
	now         func() time.Time
}

func New(users storage.UserStore, sessions storage.SessionStore, jwt security.Options, maxAttempts int, lockTime time.Duration) *Service {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if lockTime <= 0 {
		lockTime = 15 * time.Minute
	}
	return &Service{
		users:       users,
		sessions:    sessions,
		jwt:         jwt,
		maxAttempts: maxAttempts,
		lockTime:    lockTime,
		now:         time.Now,
	}
}

// RegisterInput carries the signup form.
type RegisterInput struct {
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	DeviceInfo string `json:"device_info"`
}

// Register validates and creates the account. Phone is mandatory and the
// primary identifier; email and username are optional but unique when
// present.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	in.FirstName = strings.TrimSpace(in.FirstName)

	if !phoneRe.MatchString(in.Phone) {
		return nil, errs.ErrInvalidUser.WrapMsg("bad phone format")
	}
	if in.FirstName == "" {
		return nil, errs.ErrInvalidName.WrapMsg("first name required")
	}
	if len(in.Password) < 8 {
		return nil, errs.ErrPasswordTooWeak.WrapMsg("minimum 8 characters")
	}
	if in.Email != "" && !emailRe.MatchString(in.Email) {
		return nil, errs.ErrInvalidUser.WrapMsg("bad email format")
	}
	if in.Username != "" && !usernameRe.MatchString(in.Username) {
		return nil, errs.ErrInvalidUser.WrapMsg("bad username format")
	}

	if _, err := s.users.FindByIdentifier(ctx, in.Phone); err == nil {
		return nil, errs.ErrPhoneExists.Wrap()
	}
	if in.Email != "" {
		if _, err := s.users.FindByIdentifier(ctx, in.Email); err == nil {
			return nil, errs.ErrEmailExists.Wrap()
		}
	}
	if in.Username != "" {
		if _, err := s.users.FindByIdentifier(ctx, in.Username); err == nil {
			return nil, errs.ErrUsernameExists.Wrap()
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errs.WrapMsg(err, "hash password")
	}

	u := &model.User{
		UserID:       uuid.NewString(),
		Phone:        in.Phone,
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: string(hash),
		FirstName:    in.FirstName,
		LastName:     strings.TrimSpace(in.LastName),
		Status:       model.StatusOffline,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
}

// Login resolves the identifier (phone, email or username), checks the
// lockout window, verifies the password, and issues a session. Five
// consecutive failures lock the account for the configured window;
// a success resets the counter.
func (s *Service) Login(ctx context.Context, identifier, password, deviceInfo, ip string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, errs.ErrInvalidCredentials.WrapMsg("missing identifier or password")
	}

	u, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		// Same answer as a wrong password; no account probing.
		return nil, errs.ErrInvalidCredentials.Wrap()
	}

	now := s.now()
	if u.AccountLockedUntil != nil && u.AccountLockedUntil.After(now) {
		return nil, errs.ErrAccountLocked.WrapMsg("", "until", u.AccountLockedUntil.Format(time.RFC3339))
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		u.FailedLoginAttempts++
		if u.FailedLoginAttempts >= s.maxAttempts {
			until := now.Add(s.lockTime)
			u.AccountLockedUntil = &until
			u.FailedLoginAttempts = 0
		}
		if err := s.users.Update(ctx, u); err != nil {
			logger.Warnf("[user] record failed attempt user=%s err=%v", u.UserID, err)
		}
		if u.AccountLockedUntil != nil && u.AccountLockedUntil.After(now) {
			return nil, errs.ErrAccountLocked.Wrap()
		}
		return nil, errs.ErrInvalidCredentials.Wrap()
	}

	if u.FailedLoginAttempts != 0 || u.AccountLockedUntil != nil {
		u.FailedLoginAttempts = 0
		u.AccountLockedUntil = nil
		if err := s.users.Update(ctx, u); err != nil {
			logger.Warnf("[user] reset attempts user=%s err=%v", u.UserID, err)
		}
	}

	token, tokenHash, expiresAt, err := security.Generate(s.jwt, u.UserID, nil)
	if err != nil {
		return nil, errs.WrapMsg(err, "sign token")
	}
	sess := &model.Session{
		TokenHash:    tokenHash,
		UserID:       u.UserID,
		DeviceInfo:   deviceInfo,
		IPAddress:    ip,
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	return &LoginResult{User: u, Token: token, ExpiresAt: expiresAt}, nil
}

// Logout revokes the session behind the raw token. Unknown tokens are
// fine; logout is idempotent.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	if strings.TrimSpace(rawToken) == "" {
		return nil
	}
	err := s.sessions.Delete(ctx, security.HashToken(rawToken))
	if err != nil && errs.ErrNotFound.Is(err) {
		return nil
	}
	return err
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Search finds accounts by name, username, phone or email fragment.
func (s *Service) Search(ctx context.Context, q string) ([]*model.User, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	return s.users.Search(ctx, q)
}
