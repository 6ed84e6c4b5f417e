package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrepareContent(t *testing.T) {
	cases := []struct {
		name string
		in   string
		max  int
		want string
		err  error
	}{
		{"trims", "  hello \n", 10, "hello", nil},
		{"crlf to lf", "a\r\nb\rc", 10, "a\nb\nc", nil},
		{"nfc", "é", 10, "é", nil},
		{"blank", " \t\r\n ", 10, "", ErrEmptyContent},
		{"exact limit", strings.Repeat("가", 5), 5, strings.Repeat("가", 5), nil},
		{"over limit in runes", strings.Repeat("가", 6), 5, "", ErrContentTooLong},
		{"invalid utf-8", "ok\xffok", 10, "", ErrInvalidContent},
		{"truncated sequence", "\xe2\x82", 10, "", ErrInvalidContent},
		{"invalid but blank otherwise", " \xc3 ", 10, "", ErrInvalidContent},
		{"default limit", strings.Repeat("x", DefaultMaxContentRunes+1), 0, "", ErrContentTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := prepareContent(tc.in, tc.max)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
