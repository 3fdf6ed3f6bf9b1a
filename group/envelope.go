package group

import "encoding/json"

// ResultKeyPrefix starts the property name a result is posted under.
const ResultKeyPrefix = "__navgroup__result__"

// ResultKey returns the envelope property that carries groupID's result.
func ResultKey(groupID string) string {
	return ResultKeyPrefix + groupID
}

// Envelope wraps result for delivery to groupID's opener:
//
//	{"__navgroup__result__<groupID>": <result>}
//
// A nil result is sent as JSON null.
func Envelope(groupID string, result any) (json.RawMessage, error) {
	return json.Marshal(map[string]any{ResultKey(groupID): result})
}

// Extract returns the result for groupID if data is an object carrying
// ResultKey(groupID). Anything else, including non-object payloads, is
// reported as not matching.
func Extract(groupID string, data json.RawMessage) (json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return nil, false
	}
	v, ok := obj[ResultKey(groupID)]
	return v, ok
}
