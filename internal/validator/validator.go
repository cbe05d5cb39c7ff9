// Package validator plugs go-playground/validator into echo.
package validator

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"canteen/internal/usecase"

	"github.com/go-playground/validator/v10"
)

// echo.Validator の実装。c.Validate(&req) で呼ばれる
type RequestValidator struct {
	validate *validator.Validate
}

func New() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// エラーにはJSONのフィールド名を出す
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &RequestValidator{validate: v}
}

// 失敗は400 ValidationError（最初の項目だけ返す）
func (rv *RequestValidator) Validate(i any) error {
	err := rv.validate.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	return usecase.NewHTTPError(http.StatusBadRequest, message(verrs[0]))
}

func message(fe validator.FieldError) string {
	field := fe.Namespace()
	// 先頭の構造体名を落とす（placeOrderRequest.deliveryType -> deliveryType）
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	}
	return fmt.Sprintf("%s is invalid", field)
}
