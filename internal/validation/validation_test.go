package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string   `json:"name" validate:"required,max=5"`
	When  string   `json:"when" validate:"omitempty,isodate"`
	Tags  []string `json:"tags" validate:"omitempty,dive,max=3"`
	Inner string   `json:"-" validate:"omitempty,max=1"`
}

var sampleMessages = Messages{
	"name": "Name is bad",
	"when": "When is bad",
	"tags": "Tag is bad",
}

func TestCheck_Valid(t *testing.T) {
	v := New()
	err := v.Check(sample{Name: "ok", When: "2024-01-02", Tags: []string{"a", "bc"}}, sampleMessages)
	assert.NoError(t, err)
}

func TestCheck_CollectsAllMessagesInOrder(t *testing.T) {
	v := New()
	err := v.Check(sample{
		Name: "too-long",
		When: "yesterday",
		Tags: []string{"long1", "ok", "long2"},
	}, sampleMessages)

	var vErr *Error
	require.True(t, errors.As(err, &vErr))
	// Два плохих тега дают одно сообщение.
	assert.Equal(t, []string{"Name is bad", "When is bad", "Tag is bad"}, vErr.Messages)
}

func TestCheck_UnknownFieldFallsBackToGenericMessage(t *testing.T) {
	v := New()
	err := v.Check(sample{Name: "ok", Inner: "xx"}, sampleMessages)

	var vErr *Error
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, []string{"Inner is invalid"}, vErr.Messages)
}

type secret struct {
	Password string `json:"password" validate:"required,min=6,maxbytes=8"`
}

func TestCheck_MaxBytesAndRuleMessage(t *testing.T) {
	v := New()
	messages := Messages{
		"password":          "Password is too short",
		"password.maxbytes": "Password is too long",
	}

	// 6 символов, 12 байт.
	err := v.Check(secret{Password: "пароль"}, messages)
	var vErr *Error
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, []string{"Password is too long"}, vErr.Messages)

	err = v.Check(secret{Password: "abc"}, messages)
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, []string{"Password is too short"}, vErr.Messages)

	assert.NoError(t, v.Check(secret{Password: "abcdefgh"}, messages))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-10", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"2024-03-10T14:30", time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)},
		{"2024-03-10T14:30:00Z", time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)},
		{"2024-03-10T14:30:00+03:00", time.Date(2024, 3, 10, 11, 30, 0, 0, time.UTC)},
		{" 2024-03-10T14:30:00.123Z ", time.Date(2024, 3, 10, 14, 30, 0, 123e6, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	for _, bad := range []string{"", "tomorrow", "2024-13-01", "10/03/2024"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}
