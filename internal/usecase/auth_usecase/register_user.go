package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"canteen/internal/domain/model"
	"canteen/internal/repository"
)

const (
	minPasswordLen = 8
	maxFullNameLen = 100
)

var (
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrWeakPassword       = errors.New("password must contain a letter and a digit")
	ErrInvalidFullName    = errors.New("invalid full name")
	ErrEmailAlreadyExists = errors.New("email already exists")
)

type Clock interface {
	Now() time.Time
}

type RegisterUserInput struct {
	FullName string
	Email    string
	Password string
}

type RegisterUserOutput struct {
	User model.User
}

// 学生・職員の会員登録。roleは常にuser（adminはDBで付与する）
type RegisterUserUsecase struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	clock    Clock
}

func NewRegisterUserUsecase(userRepo repository.UserRepository, hasher PasswordHasher, clock Clock) *RegisterUserUsecase {
	return &RegisterUserUsecase{userRepo: userRepo, hasher: hasher, clock: clock}
}

func (u *RegisterUserUsecase) Execute(ctx context.Context, in RegisterUserInput) (RegisterUserOutput, error) {
	name := strings.TrimSpace(in.FullName)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := checkRegistration(name, email, in.Password); err != nil {
		return RegisterUserOutput{}, err
	}

	if _, err := u.userRepo.FindByEmail(ctx, email); err == nil {
		return RegisterUserOutput{}, ErrEmailAlreadyExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return RegisterUserOutput{}, err
	}

	hash, err := u.hasher.Hash(in.Password)
	if err != nil {
		return RegisterUserOutput{}, err
	}

	now := u.clock.Now()
	user := &model.User{
		FullName:     name,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// FindByEmailの後に同じemailが入った場合はunique制約で弾かれる
	if err := u.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return RegisterUserOutput{}, ErrEmailAlreadyExists
		}
		return RegisterUserOutput{}, err
	}

	safe := *user
	safe.PasswordHash = ""
	return RegisterUserOutput{User: safe}, nil
}

func checkRegistration(name, email, password string) error {
	if name == "" || utf8.RuneCountInString(name) > maxFullNameLen {
		return ErrInvalidFullName
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return ErrInvalidEmailFormat
	}
	if len(password) < minPasswordLen {
		return ErrPasswordTooShort
	}

	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return ErrWeakPassword
	}
	return nil
}
