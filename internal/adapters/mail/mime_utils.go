package mail

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"
)

// ParsedMessage is the part of a MIME message the poll pipeline needs
type ParsedMessage struct {
	From    string
	Subject string
	Date    time.Time
	Body    string
}

var (
	htmlBreaks = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/tr|/li)\s*/?>`)
	htmlTags   = regexp.MustCompile(`(?s)<[^>]*>`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// ParseMessage reads an RFC 5322 message. The body is the concatenation of its
// text/plain parts, or the text of its first text/html part when it has none.
// Attachments are ignored.
func ParseMessage(r io.Reader) (*ParsedMessage, error) {
	mr, err := gomail.CreateReader(r)
	if err != nil && mr == nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	defer mr.Close()

	msg := &ParsedMessage{}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = from[0].Address
	}
	if subject, err := mr.Header.Subject(); err == nil {
		msg.Subject = subject
	} else {
		msg.Subject = mr.Header.Get("Subject")
	}
	if date, err := mr.Header.Date(); err == nil {
		msg.Date = date
	}

	var plain strings.Builder
	var htmlBody string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if plain.Len() > 0 || htmlBody != "" {
				break
			}
			return nil, fmt.Errorf("failed to read message part: %w", err)
		}

		h, ok := p.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, err := h.ContentType()
		if err != nil {
			contentType = "text/plain"
		}

		switch contentType {
		case "text/plain":
			body, err := io.ReadAll(p.Body)
			if err != nil {
				continue
			}
			if plain.Len() > 0 {
				plain.WriteString("\n")
			}
			plain.Write(body)
		case "text/html":
			if htmlBody != "" {
				continue
			}
			body, err := io.ReadAll(p.Body)
			if err != nil {
				continue
			}
			htmlBody = HTMLToText(string(body))
		}
	}

	if plain.Len() > 0 {
		msg.Body = plain.String()
	} else {
		msg.Body = htmlBody
	}
	return msg, nil
}

// HTMLToText strips tags from an HTML body, keeping line breaks
func HTMLToText(s string) string {
	s = htmlBreaks.ReplaceAllString(s, "\n")
	s = htmlTags.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// BuildMessage renders a single part text/html message
func BuildMessage(from, to, subject, htmlBody string, date time.Time) ([]byte, error) {
	var h gomail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*gomail.Address{{Address: from}})
	h.SetAddressList("To", []*gomail.Address{{Address: to}})
	h.SetSubject(subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}
	h.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	var buf bytes.Buffer
	w, err := gomail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}
	if _, err := io.WriteString(w, htmlBody); err != nil {
		return nil, fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish message: %w", err)
	}
	return buf.Bytes(), nil
}
