package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"shopBackend/models"
	"shopBackend/repository"
)

const cursorSeparator = "|"

// encodeCursor builds an opaque page token from an order's (created_at, id) position.
func encodeCursor(c repository.OrderCursor) string {
	raw := models.FormatTimestamp(c.CreatedAt) + cursorSeparator + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// decodeCursor parses a page token produced by encodeCursor.
func decodeCursor(token string) (*repository.OrderCursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("base64: %w", err)
	}
	parts := strings.SplitN(string(b), cursorSeparator, 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, errors.New("invalid cursor format")
	}
	ts, err := models.ParseTimestamp(parts[0])
	if err != nil {
		return nil, fmt.Errorf("cursor timestamp: %w", err)
	}
	return &repository.OrderCursor{CreatedAt: ts, ID: parts[1]}, nil
}
