package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/ignatzorin/lemon-backend/internal/pkg/apperror"
)

var registerOnce sync.Once

// RegisterBindingTags добавляет в валидатор gin теги mobile, country_code, otp_code
// и strong_password, а в ошибках использует имена полей из json тегов.
func RegisterBindingTags() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("validation: binding engine is not go-playground/validator")
			return
		}
		err = RegisterTags(v)
	})
	return err
}

// RegisterTags регистрирует собственные теги на переданном валидаторе.
func RegisterTags(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	tags := map[string]func(string) error{
		"mobile":          ValidateMobileNumber,
		"country_code":    ValidateCountryCode,
		"otp_code":        ValidateOTPCode,
		"strong_password": ValidatePassword,
		"permission_name": ValidatePermissionName,
	}
	for tag, fn := range tags {
		fn := fn
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return fn(fl.Field().String()) == nil
		}); err != nil {
			return fmt.Errorf("validation: register %s: %w", tag, err)
		}
	}
	return nil
}

// FieldErrors переводит ошибку привязки запроса в сообщения по полям.
// Для ошибок, не связанных с валидацией (битый JSON), возвращает nil.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	value, _ := fe.Value().(string)
	switch fe.Tag() {
	case "required":
		return "обязательное поле"
	case "email":
		return "некорректный формат email"
	case "oneof":
		return "допустимые значения: " + fe.Param()
	case "min":
		return "минимальная длина " + fe.Param()
	case "max":
		return "максимальная длина " + fe.Param()
	case "uuid":
		return "ожидается UUID"
	case "mobile":
		return messageOf(ValidateMobileNumber(value))
	case "country_code":
		return messageOf(ValidateCountryCode(value))
	case "otp_code":
		return messageOf(ValidateOTPCode(value))
	case "strong_password":
		return messageOf(ValidatePassword(value))
	case "permission_name":
		return messageOf(ValidatePermissionName(value))
	default:
		return "некорректное значение"
	}
}

func messageOf(err error) string {
	if err == nil {
		return "некорректное значение"
	}
	if appErr, ok := apperror.As(err); ok {
		return appErr.Message
	}
	return err.Error()
}
