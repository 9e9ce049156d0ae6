package registration

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	personNamePattern = regexp.MustCompile(`^[A-Za-z\s]+$`)
	digitsPattern     = regexp.MustCompile(`^[0-9]+$`)
)

// fieldMessages はフィールドとタグの組み合わせごとの表示メッセージ。
var fieldMessages = map[string]map[string]string{
	"firstName": {
		"min":        "First name is too short",
		"personname": "First name must contain only letters",
	},
	"lastName": {
		"min":        "Last name is too short",
		"personname": "Last name must contain only letters",
	},
	"email": {
		"required": "Invalid email",
		"email":    "Invalid email",
	},
	"phone": {
		"min":    "Phone number must be at least 10 digits and contain only numbers",
		"digits": "Phone number must be at least 10 digits and contain only numbers",
	},
	"address": {
		"min": "Address is required",
	},
}

// getValidator はカスタムルールを登録済みのバリデータを返す。
// 構造体情報をキャッシュするため、プロセスで1つだけ生成する。
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// エラーのフィールド名をJSONのキーで報告する
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})

		// 英字と空白のみ
		mustRegister("personname", func(fl validator.FieldLevel) bool {
			return personNamePattern.MatchString(fl.Field().String())
		})
		// 数字のみ（符号や小数点を含まない）
		mustRegister("digits", func(fl validator.FieldLevel) bool {
			return digitsPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

func mustRegister(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic("failed to register validation " + tag + ": " + err.Error())
	}
}

// validateStruct は構造体を検証し、フィールドごとの最初のエラーメッセージを返す。
// 問題がなければnilを返す。
func validateStruct(s any) (map[string]string, error) {
	err := getValidator().Struct(s)
	if err == nil {
		return nil, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := details[field]; seen {
			continue
		}
		details[field] = messageFor(field, fe.Tag())
	}
	return details, nil
}

func messageFor(field, tag string) string {
	if msg, ok := fieldMessages[field][tag]; ok {
		return msg
	}
	return "Invalid value"
}
