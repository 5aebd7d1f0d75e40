package utils

import (
	"bytes"

	gojson "github.com/goccy/go-json" //nolint:depguard
)

var encodeOptions = []gojson.EncodeOptionFunc{gojson.DisableHTMLEscape(), gojson.DisableNormalizeUTF8()}

func MarshalJSON(val any) ([]byte, error) {
	return gojson.MarshalWithOption(val, encodeOptions...)
}

func UnmarshalJSON(data []byte, val any) error {
	return gojson.UnmarshalWithOption(data, val)
}

// UnmarshalJSONStrict fails on object keys val does not declare
func UnmarshalJSONStrict(data []byte, val any) error {
	d := gojson.NewDecoder(bytes.NewReader(data))
	d.DisallowUnknownFields()
	return d.Decode(val)
}
