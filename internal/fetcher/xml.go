package fetcher

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// DecodeXML decodes body into T. Documents declaring a non-UTF-8 encoding
// (EDGAR filings often say ISO-8859-1) are transcoded first.
func DecodeXML[T any](body []byte) (*T, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "xml: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}
	decoder.Strict = false

	var doc T
	if err := decoder.Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "xml: decode document")
	}
	return &doc, nil
}
