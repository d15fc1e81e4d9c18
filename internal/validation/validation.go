// Package validation запускает правила go-playground/validator, описанные
// тегами на DTO, и превращает каждое упавшее поле в сообщение для клиента.
//
// В отличие от стандартной ошибки валидатора здесь собираются ВСЕ нарушения:
// API отвечает на плохой запрос полным списком, а не первой ошибкой.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Messages сопоставляет JSON-имя поля и сообщение, которое уходит клиенту,
// если на поле упало любое правило. Элементы слайса ("tags[3]") берут
// сообщение своего поля. Ключ "поле.правило" ("password.maxbytes")
// перекрывает общее сообщение поля для одного правила.
type Messages map[string]string

// Error содержит все нарушенные правила одного запроса.
type Error struct {
	Messages []string

	// fields[i] — поле, давшее Messages[i]; нужно Merge для порядка.
	fields []string
}

func (e *Error) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// Validator — обёртка над настроенным *validator.Validate.
type Validator struct {
	validate *validator.Validate
}

// New создаёт Validator, который называет поля по json-тегам и знает
// правила "isodate" и "maxbytes" (длина строки в байтах, а не в символах).
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})

	// Ошибка возможна только при пустом теге или nil-функции.
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			panic(fmt.Sprintf("maxbytes: bad parameter %q", fl.Param()))
		}
		return len(fl.Field().String()) <= limit
	})

	return &Validator{validate: v}
}

// Check проверяет s и возвращает *Error с сообщениями всех упавших полей
// в порядке объявления. Одинаковые сообщения не повторяются.
func (v *Validator) Check(s any, messages Messages) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate %T: %w", s, err)
	}

	out := &Error{Messages: make([]string, 0, len(fieldErrs))}
	seen := make(map[string]struct{}, len(fieldErrs))
	for _, fe := range fieldErrs {
		field, _, _ := strings.Cut(fe.Field(), "[")
		out.add(field, messageFor(field, fe.Tag(), messages), seen)
	}
	return out
}

func (e *Error) add(field, msg string, seen map[string]struct{}) {
	if _, dup := seen[msg]; dup {
		return
	}
	seen[msg] = struct{}{}
	e.Messages = append(e.Messages, msg)
	e.fields = append(e.fields, field)
}

func messageFor(field, rule string, messages Messages) string {
	if msg, ok := messages[field+"."+rule]; ok {
		return msg
	}
	if msg, ok := messages[field]; ok {
		return msg
	}
	return fmt.Sprintf("%s is invalid", field)
}

// dateLayouts — допустимые записи dueDate: полный RFC 3339 или значение
// HTML-инпута date / datetime-local.
var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

// ParseDate разбирает дату или метку времени ISO 8601.
// Значения без часового пояса считаются UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
