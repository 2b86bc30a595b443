package extract

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// extractPlain decodes content for indexing. UTF-8 is tried first, then GBK
// and GB18030, and finally Latin-1, which accepts any byte sequence. A decode
// counts only if it produces no replacement characters.
func extractPlain(content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(content), nil
	}
	for _, enc := range []interface {
		Bytes([]byte) ([]byte, error)
	}{
		simplifiedchinese.GBK.NewDecoder(),
		simplifiedchinese.GB18030.NewDecoder(),
	} {
		decoded, err := enc.Bytes(content)
		if err == nil && !strings.ContainsRune(string(decoded), utf8.RuneError) {
			return string(decoded), nil
		}
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(content)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
