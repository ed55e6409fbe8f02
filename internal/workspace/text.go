package workspace

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Text is a string field that tolerates any JSON value. Extraction output is
// produced by language models and is not always typed as asked: numbers keep
// their literal form, arrays and objects are flattened into their non-empty
// leaf values joined by spaces (in document order), and null decodes as empty.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var parts []string
	if err := flatten(dec, &parts, true); err != nil {
		return err
	}
	*t = Text(strings.Join(parts, " "))
	return nil
}

func flatten(dec *json.Decoder, parts *[]string, top bool) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch v := tok.(type) {
	case json.Delim:
		object := v == '{'
		for dec.More() {
			if object {
				if _, err := dec.Token(); err != nil {
					return err
				}
			}
			if err := flatten(dec, parts, false); err != nil {
				return err
			}
		}
		_, err := dec.Token()
		return err
	case string:
		if v != "" {
			*parts = append(*parts, v)
		}
	case json.Number:
		*parts = append(*parts, v.String())
	case bool:
		if v || top {
			*parts = append(*parts, strconv.FormatBool(v))
		}
	}
	return nil
}

func (t Text) String() string {
	return string(t)
}

// Trim returns the value with surrounding whitespace removed.
func (t Text) Trim() string {
	return strings.TrimSpace(string(t))
}

// Empty reports whether the value is blank.
func (t Text) Empty() bool {
	return t.Trim() == ""
}
