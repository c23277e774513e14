package httpclient

import (
	"fmt"
	"io"
	"net/http"

	"github.com/ternarybob/findata/internal/models"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/charmap"
)

// decodeBody reads the response as UTF-8. Windows-1252 is forced when requested, otherwise the
// declared charset is honoured.
func decodeBody(resp *http.Response, encoding models.TextEncoding) (string, error) {
	var reader io.Reader

	switch encoding {
	case models.EncodingWindows1252:
		reader = charmap.Windows1252.NewDecoder().Reader(resp.Body)
	case models.EncodingDefault:
		r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
		if err != nil {
			return "", fmt.Errorf("failed to detect charset: %w", err)
		}
		reader = r
	default:
		return "", fmt.Errorf("unsupported encoding %q", encoding)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(data), nil
}
