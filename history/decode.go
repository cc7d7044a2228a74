package history

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	EncodingUTF8 = "utf-8"
	EncodingGBK  = "gbk"
)

// decodeReader converts the history file to UTF-8. Spreadsheet exports on
// Chinese-locale systems are usually GBK; UTF-8 input may carry a BOM.
func decodeReader(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", EncodingUTF8, "utf8":
		return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
	case EncodingGBK, "gb18030":
		return transform.NewReader(r, simplifiedchinese.GB18030.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported history encoding %q", encoding)
	}
}
