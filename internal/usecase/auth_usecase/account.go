package auth

import (
	"context"

	"canteen/internal/domain/model"
	"canteen/internal/repository"
)

// 自分の情報と、管理者による強制ログアウト
type AccountUsecase struct {
	userRepo repository.UserRepository
}

func NewAccountUsecase(userRepo repository.UserRepository) *AccountUsecase {
	return &AccountUsecase{userRepo: userRepo}
}

func (u *AccountUsecase) Me(ctx context.Context, userID int64) (model.User, error) {
	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	if !user.IsActive {
		return model.User{}, ErrUserInactive
	}
	safe := *user
	safe.PasswordHash = ""
	return safe, nil
}

type ForceLogoutOutput struct {
	UserID          int64 `json:"userId"`
	NewTokenVersion int   `json:"newTokenVersion"`
}

// token_version を上げて、発行済みのAccessTokenを全部無効にする
func (u *AccountUsecase) ForceLogout(ctx context.Context, targetUserID int64) (ForceLogoutOutput, error) {
	if targetUserID <= 0 {
		return ForceLogoutOutput{}, repository.ErrUserNotFound
	}
	if err := u.userRepo.IncrementTokenVersion(ctx, targetUserID); err != nil {
		return ForceLogoutOutput{}, err
	}

	//更新後を取得して new_token_version を返す
	user, err := u.userRepo.FindByID(ctx, targetUserID)
	if err != nil {
		return ForceLogoutOutput{}, err
	}
	return ForceLogoutOutput{UserID: user.ID, NewTokenVersion: user.TokenVersion}, nil
}
