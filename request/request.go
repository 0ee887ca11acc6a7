// Package request turns JSON, urlencoded and multipart chat bodies into canonical records.
// The media type alone decides how a body is read.
package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	mediaJSON      = "application/json"
	mediaForm      = "application/x-www-form-urlencoded"
	mediaMultipart = "multipart/form-data"

	maxBodyBytes   = 1 << 20
	maxMemoryBytes = 32 << 20
)

// Error is a client input error carrying the HTTP status it maps to.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	return e.Detail
}

func badRequest(format string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Detail: fmt.Sprintf(format, args...)}
}

const (
	DetailNotFound = "Not Found"
	DetailInternal = "Internal Server Error"
)

// ErrorBody is the JSON error envelope written by every surface.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// Describe maps err to its status and response body. Anything other than a client input error is
// reported as a generic internal error.
func Describe(err error) (int, ErrorBody) {
	var reqErr *Error
	if errors.As(err, &reqErr) {
		return reqErr.Status, ErrorBody{Detail: reqErr.Detail}
	}
	return http.StatusInternalServerError, ErrorBody{Detail: DetailInternal}
}

type encoding int

const (
	encodingJSON encoding = iota
	encodingForm
)

// fields holds the decoded body. JSON values keep their decoded type, form values are strings.
type fields struct {
	values   map[string]any
	encoding encoding
}

func (f fields) has(key string) bool {
	_, ok := f.values[key]
	return ok
}

func readFields(r *http.Request, shapeDetail string) (fields, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return fields{}, &Error{Status: http.StatusUnsupportedMediaType, Detail: unsupportedDetail}
	}

	switch mediaType {
	case mediaJSON:
		values, err := decodeJSONObject(r.Body)
		if err != nil {
			return fields{}, badRequest("%s", shapeDetail)
		}
		return fields{values: values, encoding: encodingJSON}, nil
	case mediaForm:
		if err := r.ParseForm(); err != nil {
			return fields{}, badRequest("Invalid form body: %v", err)
		}
		return fields{values: firstValues(r.PostForm), encoding: encodingForm}, nil
	case mediaMultipart:
		if err := r.ParseMultipartForm(maxMemoryBytes); err != nil {
			return fields{}, badRequest("Invalid multipart body: %v", err)
		}
		return fields{values: firstValues(r.PostForm), encoding: encodingForm}, nil
	default:
		return fields{}, &Error{Status: http.StatusUnsupportedMediaType, Detail: unsupportedDetail}
	}
}

const unsupportedDetail = "Unsupported Media Type. Use application/json, application/x-www-form-urlencoded or multipart/form-data"

// decodeJSONObject reads a single JSON object. An empty body is an empty object.
func decodeJSONObject(body io.Reader) (map[string]any, error) {
	if body == nil {
		return map[string]any{}, nil
	}
	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode body: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("body is not a JSON object")
	}
	return obj, nil
}

func firstValues(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// stringValue renders a scalar as a string. Missing and null values are empty.
func (f fields) stringValue(key string) (string, error) {
	switch v := f.values[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", badRequest("Invalid '%s'; expected a string", key)
	}
}

// firstNonEmpty resolves a field through its aliases, first non-empty value wins.
func (f fields) firstNonEmpty(keys ...string) (string, error) {
	for _, key := range keys {
		s, err := f.stringValue(key)
		if err != nil {
			return "", err
		}
		if s != "" {
			return s, nil
		}
	}
	return "", nil
}

func (f fields) intValue(key string) (int, error) {
	switch v := f.values[key].(type) {
	case nil:
		return 0, nil
	case json.Number:
		if n, err := strconv.Atoi(v.String()); err == nil {
			return n, nil
		}
		fl, err := v.Float64()
		if err != nil || fl != float64(int(fl)) {
			return 0, badRequest("Invalid '%s'; expected an integer", key)
		}
		return int(fl), nil
	case float64:
		if v != float64(int(v)) {
			return 0, badRequest("Invalid '%s'; expected an integer", key)
		}
		return int(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, badRequest("Invalid '%s'; expected an integer", key)
		}
		return n, nil
	default:
		return 0, badRequest("Invalid '%s'; expected an integer", key)
	}
}

func (f fields) boolValue(key string) (bool, error) {
	switch v := f.values[key].(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return false, nil
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return false, badRequest("Invalid '%s'; expected a boolean", key)
		}
		return b, nil
	default:
		return false, badRequest("Invalid '%s'; expected a boolean", key)
	}
}
