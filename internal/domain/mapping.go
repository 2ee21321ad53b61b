package domain

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

var (
	ErrNotFound      = errors.New("short url not found")
	ErrInactiveLink  = errors.New("short url is inactive")
	ErrInvalidURL    = errors.New("invalid url")
	ErrInvalidStatus = errors.New("invalid status")
)

// Status is the lifecycle state of a mapping.
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

// ParseStatus accepts the canonical spelling only.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusInactive:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Mapping is the durable record linking a short code to its target.
// ShortCode is empty only while the row is being created and never leaves
// the store in that state.
type Mapping struct {
	ID          int64     `db:"id" json:"id"`
	ShortCode   string    `db:"short_code" json:"short_code"`
	OriginalURL string    `db:"original_url" json:"original_url"`
	Status      Status    `db:"status" json:"status"`
	VisitCount  int64     `db:"visit_count" json:"visit_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

func (m *Mapping) IsActive() bool {
	return m.Status == StatusActive
}

// ValidateOriginalURL checks that raw is an absolute http or https URL.
func ValidateOriginalURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
