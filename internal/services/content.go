package services

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultMaxContentRunes is used when a CommentService has no explicit limit.
const DefaultMaxContentRunes = 1000

// normalizeContent canonicalizes comment text: NFC, LF line endings, trimmed.
func normalizeContent(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}

// prepareContent rejects invalid UTF-8, normalizes s and enforces the
// non-empty and length rules.
func prepareContent(s string, maxRunes int) (string, error) {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxContentRunes
	}
	if !utf8.ValidString(s) {
		return "", ErrInvalidContent
	}
	s = normalizeContent(s)
	if s == "" {
		return "", ErrEmptyContent
	}
	if utf8.RuneCountInString(s) > maxRunes {
		return "", ErrContentTooLong
	}
	return s, nil
}
