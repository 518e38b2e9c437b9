package admin

import (
	"crypto/subtle"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	cfg Config
	now func() time.Time
}

func NewService(cfg Config) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	return &Service{cfg: cfg, now: time.Now}
}

func (s *Service) Enabled() bool { return s.cfg.Enabled() }

// Authenticate checks the operator's credentials against the bcrypt hash.
func (s *Service) Authenticate(username, password string) error {
	if !s.Enabled() {
		return ErrDisabled
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.User)) == 1
	// always run bcrypt so a wrong username costs the same as a wrong password
	passErr := bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(password))
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// IssueToken signs an HS256 token for username and returns it with its
// expiry.
func (s *Service) IssueToken(username string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.cfg.TokenTTL)
	claims := jwt.MapClaims{
		"sub": username,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (s *Service) secret() []byte { return []byte(s.cfg.Secret) }
