package extract

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

var metaCharsetPattern = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?([a-zA-Z0-9_-]+)`)

// NormalizeToUTF8 detects the declared or sniffed encoding of body and
// transcodes it to UTF-8. A detection failure degrades to returning body
// unchanged (spec.md §7 Parse error class: never fatal).
func NormalizeToUTF8(body []byte, contentType string) []byte {
	enc, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || enc == nil {
		if m := metaCharsetPattern.FindSubmatch(body); m != nil && !strings.EqualFold(string(m[1]), "utf-8") {
			if e, _ := charset.Lookup(string(m[1])); e != nil {
				return transcode(body, e)
			}
		}
		return body
	}
	return transcode(body, enc)
}

func transcode(body []byte, enc encoding.Encoding) []byte {
	reader := transform.NewReader(bytes.NewReader(body), enc.NewDecoder())
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return body
	}
	return buf.Bytes()
}
