package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

const (
	// CodeNetwork is used when no response was received at all.
	CodeNetwork = "NETWORK_ERROR"
	// CodeUnknown is used when a response body carried an error but no
	// status or code could be derived.
	CodeUnknown = "UNKNOWN_ERROR"

	defaultErrorMessage = "Request failed."
	networkErrorMessage = "Network error"
)

// ErrorMessage is the normalized shape of every failed backend call.
type ErrorMessage struct {
	Status    int    `json:"status,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// StructuredError is returned when the backend answered with the
// {"error": {...}} envelope.
type StructuredError struct {
	Status    int
	Code      string
	Message   *string
	Detail    *string
	RequestID string
}

func (e *StructuredError) Error() string {
	msg := Extract(e)
	return fmt.Sprintf("api error %d %s: %s", e.Status, msg.Code, msg.Message)
}

// LegacyError is returned when the backend answered with a bare
// {"detail": ...} body.
type LegacyError struct {
	Status    int
	Detail    string
	RequestID string
}

func (e *LegacyError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Detail)
}

// HTTPError is returned for a response whose body carried no usable error
// information, including successful responses that could not be decoded.
type HTTPError struct {
	Status    int
	RequestID string
	Err       error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("http status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("http status %d", e.Status)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NetworkError is returned when no response was received.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func statusCode(status int) string {
	if status > 0 {
		return "HTTP_" + strconv.Itoa(status)
	}
	return CodeUnknown
}

// Extract maps any error to an ErrorMessage. Errors that did not originate
// from a backend response, including nil, map to the network shape.
func Extract(err error) ErrorMessage {
	var (
		se *StructuredError
		le *LegacyError
		he *HTTPError
	)
	switch {
	case errors.As(err, &se):
		msg := ErrorMessage{
			Status:    se.Status,
			Code:      se.Code,
			Message:   defaultErrorMessage,
			RequestID: se.RequestID,
		}
		if msg.Code == "" {
			msg.Code = statusCode(se.Status)
		}
		if se.Detail != nil {
			msg.Detail = *se.Detail
		}
		if se.Message != nil {
			msg.Message = *se.Message
		} else if se.Detail != nil {
			msg.Message = *se.Detail
		}
		return msg
	case errors.As(err, &le):
		return ErrorMessage{
			Status:  le.Status,
			Code:    statusCode(le.Status),
			Message: le.Detail,
			Detail:  le.Detail,
		}
	case errors.As(err, &he) && he.Status > 0:
		return ErrorMessage{
			Status:  he.Status,
			Code:    statusCode(he.Status),
			Message: "HTTP " + strconv.Itoa(he.Status),
		}
	default:
		return ErrorMessage{
			Code:    CodeNetwork,
			Message: networkErrorMessage,
		}
	}
}

// FormatError renders err for display as "message [CODE]". The fallback is
// used when the error carries no message of its own.
func FormatError(err error, fallback string) string {
	if fallback == "" {
		fallback = defaultErrorMessage
	}
	msg := Extract(err)
	text := fallback
	if msg.Message != "" && msg.Message != networkErrorMessage {
		text = msg.Message
	}
	if msg.Code == "" {
		return text
	}
	return text + " [" + msg.Code + "]"
}

// InfluxError renders err for panels backed by InfluxDB queries. A 401 means
// the backend could not authenticate against InfluxDB.
func InfluxError(err error) string {
	msg := Extract(err)
	switch {
	case msg.Status == 401:
		return "Nepodarilo se overit pristup k InfluxDB (401). Zkontroluj uzivatele a heslo. [" + msg.Code + "]"
	case msg.Detail != "":
		return msg.Detail + " [" + msg.Code + "]"
	case msg.Status > 0:
		return fmt.Sprintf("Chyba pri nacitani z InfluxDB (HTTP %d). [%s]", msg.Status, msg.Code)
	default:
		return "Nepodarilo se pripojit k InfluxDB. [" + msg.Code + "]"
	}
}

type errorBody struct {
	Error  json.RawMessage `json:"error"`
	Detail json.RawMessage `json:"detail"`
}

type errorEnvelope struct {
	Code      json.RawMessage `json:"code"`
	Message   json.RawMessage `json:"message"`
	Detail    json.RawMessage `json:"detail"`
	RequestID json.RawMessage `json:"request_id"`
}

// parseErrorBody turns a non-2xx response into one of the typed errors.
// requestID is the X-Request-ID response header.
func parseErrorBody(status int, body []byte, requestID string) error {
	var b errorBody
	if err := json.Unmarshal(body, &b); err != nil {
		return &HTTPError{Status: status, RequestID: requestID}
	}
	if isObject(b.Error) {
		var env errorEnvelope
		if err := json.Unmarshal(b.Error, &env); err == nil {
			se := &StructuredError{
				Status:    status,
				Code:      rawText(env.Code),
				Message:   rawTextPtr(env.Message),
				Detail:    rawTextPtr(env.Detail),
				RequestID: rawText(env.RequestID),
			}
			if se.RequestID == "" {
				se.RequestID = requestID
			}
			return se
		}
	}
	if d := rawTextPtr(b.Detail); d != nil {
		return &LegacyError{Status: status, Detail: *d, RequestID: requestID}
	}
	return &HTTPError{Status: status, RequestID: requestID}
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// rawTextPtr returns the textual form of a JSON value: strings are unquoted,
// everything else is kept as compact JSON. Absent and null values yield nil.
func rawTextPtr(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		s = string(raw)
		return &s
	}
	s = buf.String()
	return &s
}

func rawText(raw json.RawMessage) string {
	if s := rawTextPtr(raw); s != nil {
		return *s
	}
	return ""
}
