package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"epay/config"
	"epay/internal/auth"
	"epay/internal/models"
	"epay/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailExists  = errors.New("email already registered")
	ErrInvalidCreds = errors.New("invalid email or password")
	ErrNotVerified  = errors.New("email not verified")
	ErrInvalidOTP   = errors.New("invalid or expired code")
	ErrMailFailed   = errors.New("failed to send verification code")
)

type AuthService struct {
	cfg       *config.Config
	userRepo  *repository.UserRepository
	tokenRepo *repository.TokenRepository
	mail      *MailService
}

func NewAuthService(cfg *config.Config, userRepo *repository.UserRepository, tokenRepo *repository.TokenRepository, mail *MailService) *AuthService {
	return &AuthService{cfg: cfg, userRepo: userRepo, tokenRepo: tokenRepo, mail: mail}
}

// Signup creates an unverified user and emails them a one-time code.
func (s *AuthService) Signup(email, name, phone, password string) (*models.User, error) {
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	_, err := s.userRepo.GetByEmail(email)
	if err == nil {
		return nil, ErrEmailExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Email:        email,
		Name:         name,
		Phone:        phone,
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(u); err != nil {
		return nil, err
	}
	if err := s.issueOTP(u); err != nil {
		return nil, err
	}
	return u, nil
}

// ResendOTP issues a fresh code for an unverified account.
func (s *AuthService) ResendOTP(email string) error {
	u, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidOTP
		}
		return err
	}
	if u.IsVerified {
		return nil
	}
	return s.issueOTP(u)
}

func (s *AuthService) issueOTP(u *models.User) error {
	code := generateOTP()
	_ = s.tokenRepo.DeleteForEmail(u.Email)
	t := &models.VerificationToken{
		UserID:    u.ID,
		Email:     u.Email,
		Code:      code,
		ExpiresAt: time.Now().Add(s.cfg.Payment.OTPExpiry),
	}
	if err := s.tokenRepo.Create(t); err != nil {
		return err
	}
	if !s.mail.Send(u.Email, code) {
		return ErrMailFailed
	}
	return nil
}

// VerifyOTP marks the user verified and consumes the code.
func (s *AuthService) VerifyOTP(email, code string) (*models.User, error) {
	t, err := s.tokenRepo.FindValid(email, code, time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidOTP
		}
		return nil, err
	}
	u, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	u.IsVerified = true
	if err := s.userRepo.Update(u); err != nil {
		return nil, err
	}
	_ = s.tokenRepo.Delete(t.ID)
	return u, nil
}

// Login checks credentials and returns access and refresh tokens.
// Unverified accounts are refused.
func (s *AuthService) Login(email, password string) (*models.User, string, string, error) {
	u, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", "", ErrInvalidCreds
		}
		return nil, "", "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", "", ErrInvalidCreds
	}
	if !u.IsVerified {
		return nil, "", "", ErrNotVerified
	}
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Email)
	if err != nil {
		return nil, "", "", err
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, u.ID)
	if err != nil {
		return nil, "", "", err
	}
	return u, access, refresh, nil
}

// Profile returns the account for an authenticated user id.
func (s *AuthService) Profile(userID uint) (*models.User, error) {
	return s.userRepo.GetByID(userID)
}

// generateOTP returns a 6-digit numeric code.
func generateOTP() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	n := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	return fmt.Sprintf("%06d", n%1000000)
}
