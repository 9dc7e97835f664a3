package snap

import (
	"bytes"
	"encoding/json"
	"strconv"

	foundationerrors "git.home.luguber.info/inful/snapbridge/internal/foundation/errors"
)

// Merge returns the shallow union of current and params; keys in params win.
// Nested values are replaced wholesale. Neither input is modified.
func Merge(current, params Document) Document {
	merged := make(Document, len(current)+len(params))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	return merged
}

// DecodeParams turns a raw params payload into a Document. Absent or null
// params decode to an empty document; arrays become index-keyed documents.
func DecodeParams(raw json.RawMessage) (Document, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Document{}, nil
	}

	switch trimmed[0] {
	case '{':
		var doc Document
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, foundationerrors.InvalidParamsError("params must be a JSON object").WithCause(err).Build()
		}
		if doc == nil {
			doc = Document{}
		}
		return doc, nil
	case '[':
		var items []any
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, foundationerrors.InvalidParamsError("params must be a JSON array").WithCause(err).Build()
		}
		doc := make(Document, len(items))
		for i, item := range items {
			doc[strconv.Itoa(i)] = item
		}
		return doc, nil
	default:
		return nil, foundationerrors.InvalidParamsError("params must be an object or an array").
			WithContext("params", string(trimmed)).
			Build()
	}
}

// DecodeDocument decodes a snap result into a Document; null yields an empty document.
func DecodeDocument(raw json.RawMessage) (Document, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Document{}, nil
	}
	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}
