package validation

import (
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"strings"
)

// TypeError переводит ошибку разбора JSON, в которой значение поля не
// подошло по типу ("tags": "x", "priority": 5), в *Error с сообщением этого
// поля. Сначала ищется ключ "поле.type", затем общее сообщение поля.
// Для синтаксических и прочих ошибок ok == false.
func TypeError(err error, messages Messages) (vErr *Error, ok bool) {
	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) || typeErr.Field == "" {
		return nil, false
	}
	field, _, _ := strings.Cut(typeErr.Field, ".")
	return &Error{
		Messages: []string{messageFor(field, "type", messages)},
		fields:   []string{field},
	}, true
}

// Merge объединяет ошибку типа с результатом Check для того же DTO s.
// Сообщения идут в порядке объявления полей s, повторы убираются.
// Ошибка, не являющаяся *Error, возвращается как есть.
func Merge(s any, typeErr *Error, err error) error {
	var checked *Error
	switch {
	case err == nil:
		return typeErr
	case !errors.As(err, &checked):
		return err
	}

	type entry struct {
		field, msg string
	}
	entries := make([]entry, 0, len(typeErr.Messages)+len(checked.Messages))
	for _, e := range []*Error{typeErr, checked} {
		for i, msg := range e.Messages {
			var field string
			if i < len(e.fields) {
				field = e.fields[i]
			}
			entries = append(entries, entry{field: field, msg: msg})
		}
	}

	order := fieldOrder(reflect.TypeOf(s))
	rank := func(field string) int {
		if i, ok := order[field]; ok {
			return i
		}
		return len(order)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return rank(entries[i].field) < rank(entries[j].field)
	})

	out := &Error{Messages: make([]string, 0, len(entries))}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		out.add(e.field, e.msg, seen)
	}
	return out
}

// fieldOrder — позиция каждого json-поля структуры.
func fieldOrder(t reflect.Type) map[string]int {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	order := make(map[string]int)
	if t == nil || t.Kind() != reflect.Struct {
		return order
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = f.Name
		}
		order[name] = i
	}
	return order
}
