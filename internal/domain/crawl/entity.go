package crawl

import (
	"strings"
	"time"
)

// SessionID identifier type
type SessionID string

// DocumentType enum
type DocumentType string

const (
	TypePrivacyPolicy      DocumentType = "privacy_policy"
	TypeTermsOfService     DocumentType = "terms_of_service"
	TypeTermsAndConditions DocumentType = "terms_and_conditions"
	TypeTermsOfUse         DocumentType = "terms_of_use"
)

// AllDocumentTypes is the default set requested when a client sends none.
func AllDocumentTypes() []DocumentType {
	return []DocumentType{TypePrivacyPolicy, TypeTermsOfService, TypeTermsAndConditions, TypeTermsOfUse}
}

// ParseDocumentType accepts the frontend aliases ("tos", "privacy") as well
// as the canonical names.
func ParseDocumentType(s string) (DocumentType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "privacy", "privacy_policy":
		return TypePrivacyPolicy, true
	case "tos", "terms_of_service":
		return TypeTermsOfService, true
	case "terms_and_conditions":
		return TypeTermsAndConditions, true
	case "terms_of_use":
		return TypeTermsOfUse, true
	}
	return "", false
}

// Status enum
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the session can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Aggregate Root: Session
type Session struct {
	ID            SessionID      `json:"session_id"`
	UserID        string         `json:"user_id"`
	URL           string         `json:"url"`
	DocumentTypes []DocumentType `json:"document_types"`
	Status        Status         `json:"status"`
	DocumentCount int            `json:"documents_found"`
	AnalyzedCount int            `json:"documents_analyzed"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Progress is analyzed/found, always within [0,1].
func (s *Session) Progress() float64 {
	if s.DocumentCount <= 0 {
		return 0
	}
	p := float64(s.AnalyzedCount) / float64(s.DocumentCount)
	if p > 1 {
		return 1
	}
	return p
}

// PaginatedSessions represents a paginated history response
type PaginatedSessions struct {
	Data       []*Session `json:"data"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	Total      int64      `json:"totalItems"`
	TotalPages int        `json:"totalPages"`
}
