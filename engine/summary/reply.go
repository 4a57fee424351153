package summary

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/relembraq/relembraq/engine/core"
)

// Record is one summary sentence produced by the completion service.
type Record struct {
	Resumo string `json:"resumo"`
}

type ReplyKind int

const (
	// ReplyStructured means the reply decoded as summary records.
	ReplyStructured ReplyKind = iota
	// ReplyUnstructured means the reply was free text and is kept verbatim.
	ReplyUnstructured
)

func (k ReplyKind) String() string {
	if k == ReplyStructured {
		return "structured"
	}
	return "unstructured"
}

// Reply is a parsed completion reply.
type Reply struct {
	Kind    ReplyKind
	Records []Record
	Raw     string
	// Err explains why an unstructured reply could not be decoded.
	Err error
}

// ParseReply decodes a completion reply. Anything that is not a JSON array of
// {"resumo": string} objects, or a single such object, becomes one record
// holding the raw text.
func ParseReply(raw string) Reply {
	records, err := decodeRecords(raw)
	if err != nil {
		return Reply{
			Kind:    ReplyUnstructured,
			Records: []Record{{Resumo: raw}},
			Raw:     raw,
			Err:     core.NewError(err, core.ErrCodeMalformedResponse, nil),
		}
	}
	return Reply{Kind: ReplyStructured, Records: records, Raw: raw}
}

func decodeRecords(raw string) ([]Record, error) {
	body := stripFence(strings.TrimSpace(raw))
	if body == "" {
		return nil, fmt.Errorf("empty reply")
	}
	if !gjson.Valid(body) {
		return nil, fmt.Errorf("reply is not valid JSON")
	}
	parsed := gjson.Parse(body)
	switch {
	case parsed.IsArray():
		items := parsed.Array()
		records := make([]Record, 0, len(items))
		for i, item := range items {
			rec, err := recordFrom(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			records = append(records, rec)
		}
		return records, nil
	case parsed.IsObject():
		rec, err := recordFrom(parsed)
		if err != nil {
			return nil, err
		}
		return []Record{rec}, nil
	default:
		return nil, fmt.Errorf("reply is a JSON %s, not an array or object", parsed.Type)
	}
}

func recordFrom(item gjson.Result) (Record, error) {
	if !item.IsObject() {
		return Record{}, fmt.Errorf("expected an object, got %s", item.Type)
	}
	value := item.Get("resumo")
	if !value.Exists() {
		return Record{}, fmt.Errorf("missing resumo field")
	}
	if value.Type != gjson.String {
		return Record{}, fmt.Errorf("resumo must be a string, got %s", value.Type)
	}
	return Record{Resumo: value.String()}, nil
}

func stripFence(body string) string {
	if !strings.HasPrefix(body, "```") {
		return body
	}
	body = strings.TrimPrefix(body, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// language tag such as ```json
		if !strings.ContainsAny(body[:nl], "[{") {
			body = body[nl+1:]
		}
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}
