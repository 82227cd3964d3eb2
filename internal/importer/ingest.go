package importer

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// Upload is one file received with a submission.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ComposeSubmission joins pasted text and uploaded files into one raw
// submission, separated by blank lines. Text, markdown and CSV are used as
// is; HTML is flattened to markdown so link targets stay visible.
func ComposeSubmission(text string, uploads []Upload) (string, error) {
	parts := make([]string, 0, len(uploads)+1)
	if t := strings.TrimSpace(text); t != "" {
		parts = append(parts, t)
	}

	for _, u := range uploads {
		data := bytes.TrimPrefix(u.Data, utf8BOM)
		if !utf8.Valid(data) {
			return "", &UnsupportedUploadError{Name: u.Name, Reason: "not a UTF-8 text file"}
		}
		if bytes.IndexByte(data, 0) >= 0 {
			return "", &UnsupportedUploadError{Name: u.Name, Reason: "binary content"}
		}

		content := string(data)
		if isHTML(u) {
			md, err := htmltomarkdown.ConvertString(content)
			if err != nil {
				return "", &UnsupportedUploadError{Name: u.Name, Reason: "unreadable HTML"}
			}
			content = md
		}

		if c := strings.TrimSpace(content); c != "" {
			parts = append(parts, c)
		}
	}

	return strings.Join(parts, "\n\n"), nil
}

func isHTML(u Upload) bool {
	switch strings.ToLower(filepath.Ext(u.Name)) {
	case ".html", ".htm":
		return true
	}
	return strings.HasPrefix(strings.ToLower(u.ContentType), "text/html")
}
