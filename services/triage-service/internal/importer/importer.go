// Package importer turns uploaded files into emails ready for the store.
package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jhillyerd/enmime"

	"github.com/stoik/triage/internal/models"
)

// SampleFilename is recorded in the import log when demo data is loaded.
const SampleFilename = "sample_demo_data"

var (
	// ErrNoEmails means the input parsed but held no emails.
	ErrNoEmails = errors.New("no emails found in file")

	// ErrArchiveUnsupported is returned for PST and MBOX archives.
	ErrArchiveUnsupported = errors.New("pst/mbox archives are not supported")

	// ErrUnsupportedFormat is returned for any other extension.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// UserMessage returns the message shown to the uploader for an import error.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoEmails):
		return "파일에서 이메일을 찾을 수 없습니다."
	case errors.Is(err, ErrArchiveUnsupported):
		return "PST/MBOX 파일은 지원되지 않습니다. JSON 또는 EML 형식의 이메일 파일을 사용해 주세요."
	case errors.Is(err, ErrUnsupportedFormat):
		return "지원되지 않는 파일 형식입니다. JSON 또는 EML 파일을 사용해 주세요."
	}
	return "가져오기 중 오류가 발생했습니다."
}

// Parse dispatches on the file extension. The result is never empty when err is nil.
func Parse(filename string, data []byte) ([]models.NewEmail, error) {
	var (
		emails []models.NewEmail
		err    error
	)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		emails = ParseJSON(data)
	case ".eml":
		var email models.NewEmail
		email, err = ParseEML(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		emails = []models.NewEmail{email}
	case ".pst", ".mbox":
		return nil, ErrArchiveUnsupported
	default:
		return nil, ErrUnsupportedFormat
	}

	if len(emails) == 0 {
		return nil, ErrNoEmails
	}
	return emails, nil
}

// ParseJSON accepts either an array of emails or an object with an "emails" array.
// Invalid JSON yields no emails.
func ParseJSON(data []byte) []models.NewEmail {
	var entries []map[string]any
	if err := json.Unmarshal(data, &entries); err != nil {
		var wrapped struct {
			Emails []map[string]any `json:"emails"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return []models.NewEmail{}
		}
		entries = wrapped.Emails
	}

	emails := make([]models.NewEmail, 0, len(entries))
	for _, entry := range entries {
		email := models.NewEmail{
			Subject: firstString(entry, "subject", "Subject"),
			Sender:  firstString(entry, "sender", "from", "From"),
			Date:    firstString(entry, "date", "Date", "sent_date"),
			Body:    firstString(entry, "body", "content", "text", "Body"),
		}
		if v := firstString(entry, "importance"); v != "" {
			email.Importance = &v
		}
		if v := firstString(entry, "label"); v != "" {
			email.Label = &v
		}
		emails = append(emails, email)
	}
	return emails
}

// ParseEML reads a single RFC 5322 message. HTML-only bodies are down-converted to text.
func ParseEML(r io.Reader) (models.NewEmail, error) {
	envelope, err := enmime.ReadEnvelope(r)
	if err != nil {
		return models.NewEmail{}, fmt.Errorf("failed to parse email: %w", err)
	}

	body := envelope.Text
	if strings.TrimSpace(body) == "" {
		body = envelope.HTML
	}

	return models.NewEmail{
		Subject: envelope.GetHeader("Subject"),
		Sender:  envelope.GetHeader("From"),
		Date:    envelope.GetHeader("Date"),
		Body:    strings.TrimSpace(body),
	}, nil
}

// firstString returns the first key holding a non-empty value, rendered as a string.
func firstString(entry map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := entry[key].(type) {
		case nil:
		case string:
			if v != "" {
				return v
			}
		case bool:
			if v {
				return "true"
			}
		case float64:
			if v != 0 {
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}
