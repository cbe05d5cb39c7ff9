package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	repo "canteen/internal/repository"
)

// ErrorKind はクライアントが機械的に判定するための分類
type ErrorKind string

const (
	KindValidation     ErrorKind = "ValidationError"
	KindUnauthorized   ErrorKind = "AuthenticationError"
	KindNotFound       ErrorKind = "NotFoundError"
	KindAuthorization  ErrorKind = "AuthorizationError"
	KindConflict       ErrorKind = "ConflictError"
	KindTransient      ErrorKind = "TransientError"
	KindInternal       ErrorKind = "InternalError"
	KindEmptyCart      ErrorKind = "EmptyCart"
	KindItemUnavail    ErrorKind = "ItemUnavailable"
	KindInsufficient   ErrorKind = "InsufficientStock"
	KindInvalidStatus  ErrorKind = "InvalidStatus"
	KindIllegalMove    ErrorKind = "IllegalTransition"
	KindAlreadyTerm    ErrorKind = "AlreadyTerminal"
	KindNotCompleted   ErrorKind = "NotCompleted"
	KindOutOfRange     ErrorKind = "OutOfRange"
	KindDuplicateOrder ErrorKind = "DuplicateOrderNumber"
)

type HTTPError struct {
	Status  int
	Kind    ErrorKind
	Message string
	// ログ用。レスポンスには出さない
	Err error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %s: %v", e.Status, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Kind, e.Message)
}

func (e *HTTPError) Unwrap() error { return e.Err }

// NewHTTPError はステータスから分類を決める
func NewHTTPError(status int, message string) error {
	return &HTTPError{Status: status, Kind: kindForStatus(status), Message: message}
}

func NewKindError(status int, kind ErrorKind, message string) error {
	return &HTTPError{Status: status, Kind: kind, Message: message}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func kindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindAuthorization
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return KindTransient
	}
	return KindInternal
}

// storageError はDBエラーを500か503（タイムアウト、再試行可）にする
func storageError(err error) error {
	// 中に業務エラーがあっても、ロールバック失敗は500を優先する
	if errors.Is(err, repo.ErrRollbackFailed) {
		return &HTTPError{
			Status:  http.StatusInternalServerError,
			Kind:    KindInternal,
			Message: "db error",
			Err:     err,
		}
	}
	if he, ok := AsHTTPError(err); ok {
		return he
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &HTTPError{
			Status:  http.StatusServiceUnavailable,
			Kind:    KindTransient,
			Message: "storage timeout, please retry",
			Err:     err,
		}
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Kind:    KindInternal,
		Message: "db error",
		Err:     err,
	}
}
