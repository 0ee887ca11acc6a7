package request

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"medorbis-gateway/service/query"
)

const (
	v2ShapeDetail       = "Invalid body. Expected { messages: [{ role, content }] }"
	v2FormMessageDetail = "Invalid 'messages' in form; expected JSON string"
	v1ShapeDetail       = "Invalid body. Expected a JSON object with user_type, user_id, session_id, user_question, Department, Year, Semester"
)

// ParseChatV2 reads an echo request. Forms carry messages as a JSON string or as single role and content fields.
func ParseChatV2(r *http.Request) (query.ChatRequestV2, error) {
	f, err := readFields(r, v2ShapeDetail)
	if err != nil {
		return query.ChatRequestV2{}, err
	}

	var req query.ChatRequestV2
	if req.Messages, err = f.messages(); err != nil {
		return query.ChatRequestV2{}, err
	}
	if req.Model, err = f.stringValue("model"); err != nil {
		return query.ChatRequestV2{}, err
	}
	if req.Stream, err = f.boolValue("stream"); err != nil {
		return query.ChatRequestV2{}, err
	}
	return req, nil
}

func (f fields) messages() ([]query.ChatMessage, error) {
	if !f.has("messages") {
		if !f.has("role") && !f.has("content") {
			return nil, nil
		}
		role, err := f.stringValue("role")
		if err != nil {
			return nil, err
		}
		content, err := f.stringValue("content")
		if err != nil {
			return nil, err
		}
		role = strings.TrimSpace(role)
		if role == "" {
			role = "user"
		}
		return []query.ChatMessage{{Role: role, Content: strings.TrimSpace(content)}}, nil
	}

	raw := f.values["messages"]
	if s, ok := raw.(string); ok {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			if f.encoding == encodingForm {
				return nil, badRequest("%s", v2FormMessageDetail)
			}
			return nil, badRequest("%s", v2ShapeDetail)
		}
		raw = decoded
	}

	switch list := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]query.ChatMessage, 0, len(list))
		for _, item := range list {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, badRequest("%s", v2ShapeDetail)
			}
			m := fields{values: obj, encoding: f.encoding}
			role, err := m.stringValue("role")
			if err != nil {
				return nil, badRequest("%s", v2ShapeDetail)
			}
			content, err := m.stringValue("content")
			if err != nil {
				return nil, badRequest("%s", v2ShapeDetail)
			}
			out = append(out, query.ChatMessage{Role: role, Content: content})
		}
		return out, nil
	default:
		return nil, badRequest("%s", v2ShapeDetail)
	}
}

// ParseChatV1 reads a structured chat request, resolving Department, Year and Semester aliases.
func ParseChatV1(r *http.Request) (query.ChatRequestV1, error) {
	f, err := readFields(r, v1ShapeDetail)
	if err != nil {
		return query.ChatRequestV1{}, err
	}
	return f.chatV1()
}

// ChatV1FromQuery builds a structured chat request from query parameters with the same alias rules.
func ChatV1FromQuery(values url.Values) (query.ChatRequestV1, error) {
	return fields{values: firstValues(values), encoding: encodingForm}.chatV1()
}

func (f fields) chatV1() (query.ChatRequestV1, error) {
	var (
		req query.ChatRequestV1
		err error
	)
	if req.UserType, err = f.intValue("user_type"); err != nil {
		return query.ChatRequestV1{}, err
	}
	if req.UserID, err = f.stringValue("user_id"); err != nil {
		return query.ChatRequestV1{}, err
	}
	if req.SessionID, err = f.stringValue("session_id"); err != nil {
		return query.ChatRequestV1{}, err
	}
	if req.UserQuestion, err = f.stringValue("user_question"); err != nil {
		return query.ChatRequestV1{}, err
	}
	if req.Department, err = f.firstNonEmpty("Department", "user_department"); err != nil {
		return query.ChatRequestV1{}, err
	}
	if req.Year, err = f.firstNonEmpty("Year", "user_year"); err != nil {
		return query.ChatRequestV1{}, err
	}
	if req.Semester, err = f.firstNonEmpty("Semester", "user_semester"); err != nil {
		return query.ChatRequestV1{}, err
	}
	if req.Model, err = f.stringValue("model"); err != nil {
		return query.ChatRequestV1{}, err
	}
	return req, nil
}
