package helpers

import (
	"database/sql"
	"html/template"
	"strings"
	"time"

	"github.com/kaymio/productcast/internal/social"
)

// FormatDateTime formats a time.Time as "Jan 2, 2006 3:04 PM"
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("Jan 2, 2006 3:04 PM")
}

// FormatNullString returns the string, or defaultVal if null
func FormatNullString(s sql.NullString, defaultVal string) string {
	if s.Valid && s.String != "" {
		return s.String
	}
	return defaultVal
}

// Truncate shortens long provider errors for table cells.
func Truncate(s string, n int) string {
	return social.TruncateText(s, n)
}

// StatusClass maps a workflow or publish status to a badge class.
func StatusClass(status string) string {
	switch strings.ToLower(status) {
	case "published":
		return "badge badge-success"
	case "pending":
		return "badge badge-pending"
	case "failed":
		return "badge badge-error"
	case "skipped":
		return "badge badge-muted"
	case "":
		return "badge badge-empty"
	}
	return "badge"
}

// StatusLabel is the text shown for an empty status.
func StatusLabel(status string) string {
	if status == "" {
		return "not started"
	}
	return status
}

// Hashtags renders tags as a "#a #b" block.
func Hashtags(tags []string) string {
	return social.HashtagBlock(tags)
}

// JoinTags renders tags as a comma separated list.
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// Funcs is the template function map used by the page templates.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"datetime":    FormatDateTime,
		"nullstr":     FormatNullString,
		"truncate":    Truncate,
		"statusClass": StatusClass,
		"statusLabel": StatusLabel,
		"hashtags":    Hashtags,
		"join":        JoinTags,
	}
}
