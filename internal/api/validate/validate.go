package validate

import (
	"fmt"
	"regexp"
	"time"

	"github.com/isaac-evs/side-b/internal/model"
)

var emailRx = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Usernames are lowercase letters, digits, underscore and dot, 3-30 chars.
var usernameRx = regexp.MustCompile(`^[a-z0-9_.]{3,30}$`)

const (
	maxEntryText   = 9000
	maxDisplayName = 100
	maxURL         = 2048
)

// FileTypes are the media kinds an entry can carry.
var FileTypes = map[string]bool{"image": true, "audio": true, "video": true, "book": true, "document": true}

func NonEmpty(field, v string) error {
	if v == "" {
		return model.NewValidationError(field, "is required")
	}
	return nil
}

func MaxLen(field, v string, limit int) error {
	if len(v) > limit {
		return model.NewValidationError(field, fmt.Sprintf("exceeds %d characters", limit))
	}
	return nil
}

func Email(v string) error {
	if v == "" {
		return model.NewValidationError("email", "is required")
	}
	if len(v) > 320 || !emailRx.MatchString(v) {
		return model.NewValidationError("email", "is invalid")
	}
	return nil
}

// Date parses a calendar day (2006-01-02) in loc or a full RFC 3339 timestamp.
func Date(v string, loc *time.Location) (time.Time, error) {
	if v == "" {
		return time.Time{}, model.NewValidationError("date", "is required")
	}
	if t, err := time.ParseInLocation("2006-01-02", v, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, model.NewValidationError("date", "must be YYYY-MM-DD or RFC 3339")
	}
	return t, nil
}

// -------- Request specific helpers ----------

func CreateUser(username, email, name string) error {
	if !usernameRx.MatchString(username) {
		return model.NewValidationError("username", "must match "+usernameRx.String())
	}
	if err := Email(email); err != nil {
		return err
	}
	return MaxLen("name", name, maxDisplayName)
}

func EntryText(text string) error {
	return MaxLen("text", text, maxEntryText)
}

func Media(fileType, url string) error {
	if err := NonEmpty("fileType", fileType); err != nil {
		return err
	}
	if !FileTypes[fileType] {
		return model.NewValidationError("fileType", fmt.Sprintf("unsupported file type %q", fileType))
	}
	return MaxLen("url", url, maxURL)
}

// ClassifyText requires the free text a mood is inferred from.
func ClassifyText(text string) error {
	if err := NonEmpty("text", text); err != nil {
		return err
	}
	return EntryText(text)
}
