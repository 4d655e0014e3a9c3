package service

import (
	"Whisper/internal/model"
	"Whisper/internal/repo"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrLoginTaken         = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrInvalidUsername    = errors.New("username must be 3-32 characters of a-z, 0-9 or _")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
)

const (
	minPasswordLength  = 6
	maxPasswordBytes   = 72 // предел bcrypt
	maxDisplayNameRune = 64
)

var usernameRe = regexp.MustCompile(`^[a-z0-9_]{3,32}$`)

// NormalizeUsername приводит handle к каноничному виду (нижний регистр, без пробелов и @).
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "@"))
}

// UserService - регистрация, вход и профили получателей.
type UserService struct {
	repo repo.UserRepository
}

func NewUserService(r repo.UserRepository) *UserService {
	return &UserService{repo: r}
}

// Register создаёт аккаунт и сразу же профиль: username неизменяем, display name
// по умолчанию совпадает с username.
func (s *UserService) Register(ctx context.Context, username, password, displayName string) (*model.User, error) {
	username = NormalizeUsername(username)
	if !usernameRe.MatchString(username) {
		return nil, ErrInvalidUsername
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	if len(password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	existing, err := s.repo.GetUserByLogin(ctx, username)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return nil, ErrLoginTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = username
	}
	if r := []rune(displayName); len(r) > maxDisplayNameRune {
		displayName = string(r[:maxDisplayNameRune])
	}

	user, err := s.repo.CreateUser(ctx, &model.User{
		Username:    username,
		DisplayName: displayName,
		Password:    string(hash),
	})
	if err != nil {
		// гонка двух регистраций: уникальный индекс сработал раньше нашей проверки
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrLoginTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login проверяет пароль. Неизвестный логин и неверный пароль неразличимы.
func (s *UserService) Login(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.repo.GetUserByLogin(ctx, NormalizeUsername(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetProfileByHandle ищет публичный профиль по username.
func (s *UserService) GetProfileByHandle(ctx context.Context, handle string) (*model.User, error) {
	handle = NormalizeUsername(handle)
	if !usernameRe.MatchString(handle) {
		return nil, ErrProfileNotFound
	}
	user, err := s.repo.GetUserByLogin(ctx, handle)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if user == nil {
		return nil, ErrProfileNotFound
	}
	return user, nil
}

// GetProfile возвращает профиль по id (текущий пользователь).
func (s *UserService) GetProfile(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return user, nil
}
