package backend

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"

	"castline/cli/internal/sse"
)

// Descriptor describes one backend call.
type Descriptor struct {
	Method   string
	Endpoint string
	// Body is nil, a *Multipart form, or any value encoded as JSON.
	Body any
	// Params go into the query string of GET and DELETE calls only.
	Params url.Values
	// Image asks for a PNG instead of JSON.
	Image bool
	// SSE, when set, streams the response into the handler instead of
	// returning a Result.
	SSE sse.Handler
}

func (d Descriptor) method() string {
	if d.Method == "" {
		return http.MethodGet
	}
	return d.Method
}

// File is one file part of a multipart body.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// Multipart is a multipart/form-data body. The boundary is generated when
// the body is encoded.
type Multipart struct {
	Fields map[string]string
	Files  []File
}

func (m *Multipart) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(m.Fields))
	for k := range m.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, m.Fields[k]); err != nil {
			return nil, "", err
		}
	}
	for _, f := range m.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", multipart.FileContentDisposition(f.Field, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// encodeBody returns the request body and its content type. A nil or empty
// payload (null, {} or []) yields a nil reader.
func encodeBody(body any) (io.Reader, string, error) {
	var raw []byte
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *Multipart:
		return b.encode()
	case json.RawMessage:
		raw = b
	default:
		var err error
		if raw, err = json.Marshal(body); err != nil {
			return nil, "", err
		}
	}
	if emptyJSON(raw) {
		return nil, "", nil
	}
	return bytes.NewReader(raw), "application/json", nil
}

func emptyJSON(raw []byte) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "{}", "[]":
		return true
	}
	return false
}

// Kind says how a response body was decoded.
type Kind int

const (
	KindJSON Kind = iota
	KindImage
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindJSON:
		return "json"
	case KindImage:
		return "image"
	case KindText:
		return "text"
	}
	return "unknown"
}

// Result is a decoded response. Only the field matching Kind is set.
type Result struct {
	Status int
	Header http.Header
	Kind   Kind
	// JSON is the payload with its envelope removed; Envelope reports how
	// many layers were peeled.
	JSON     json.RawMessage
	Envelope int
	Bytes    []byte
	Text     string
}

// OK reports a 2xx status.
func (r Result) OK() bool { return r.Status >= 200 && r.Status <= 299 }

// Decode unmarshals the JSON payload into v.
func (r Result) Decode(v any) error { return json.Unmarshal(r.JSON, v) }
