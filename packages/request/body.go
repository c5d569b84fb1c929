package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// BodyKind is the closed set of payload encodings.
type BodyKind int

const (
	// BodyJSON serializes non-string payloads to JSON; strings pass through.
	BodyJSON BodyKind = iota
	// BodyForm url-encodes map payloads; strings pass through.
	BodyForm
	// BodyMultipart encodes string fields, streaming values that name an
	// existing file on disk as file parts.
	BodyMultipart
	// BodyRaw passes the payload through unmodified.
	BodyRaw
)

// Content types recognized by NewBody.
const (
	ContentTypeJSON      = "application/json"
	ContentTypeForm      = "application/x-www-form-urlencoded"
	ContentTypeMultipart = "multipart/form-data"
)

// Body is a payload tagged with its encoding.
type Body struct {
	Kind        BodyKind
	ContentType string
	Payload     any
}

// NewBody classifies a payload by content type. Unrecognized content types
// yield a raw body carried through unmodified.
func NewBody(payload any, contentType string) *Body {
	b := &Body{ContentType: contentType, Payload: payload}
	switch {
	case strings.HasPrefix(contentType, ContentTypeJSON):
		b.Kind = BodyJSON
	case strings.HasPrefix(contentType, ContentTypeForm):
		b.Kind = BodyForm
	case strings.HasPrefix(contentType, ContentTypeMultipart):
		b.Kind = BodyMultipart
	default:
		b.Kind = BodyRaw
	}
	return b
}

// Encode produces the wire bytes and the effective Content-Type. For the
// multipart kind the returned content type carries the generated boundary
// and must replace whatever the caller set.
func (b *Body) Encode() ([]byte, string, error) {
	switch b.Kind {
	case BodyJSON:
		return b.encodeJSON()
	case BodyForm:
		return b.encodeForm()
	case BodyMultipart:
		return b.encodeMultipart()
	default:
		return b.encodeRaw()
	}
}

func (b *Body) encodeJSON() ([]byte, string, error) {
	if s, ok := b.Payload.(string); ok {
		return []byte(s), b.ContentType, nil
	}
	data, err := json.Marshal(b.Payload)
	if err != nil {
		return nil, "", fmt.Errorf("encode json body: %w", err)
	}
	return data, b.ContentType, nil
}

func (b *Body) encodeForm() ([]byte, string, error) {
	switch p := b.Payload.(type) {
	case string:
		return []byte(p), b.ContentType, nil
	case map[string]string:
		values := url.Values{}
		for k, v := range p {
			values.Set(k, v)
		}
		return []byte(values.Encode()), b.ContentType, nil
	case map[string]any:
		values := url.Values{}
		for k, v := range p {
			values.Set(k, fmt.Sprintf("%v", v))
		}
		return []byte(values.Encode()), b.ContentType, nil
	default:
		return nil, "", fmt.Errorf("form body requires a string or map payload, got %T", b.Payload)
	}
}

// encodeMultipart walks the field map. A string value naming an existing
// regular file on disk is attached as a file stream under that field name;
// anything else is written as a literal field.
func (b *Body) encodeMultipart() ([]byte, string, error) {
	fields, err := multipartFields(b.Payload)
	if err != nil {
		return nil, "", err
	}

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	for name, value := range fields {
		if info, statErr := os.Stat(value); statErr == nil && info.Mode().IsRegular() {
			if err := writeFilePart(writer, name, value); err != nil {
				return nil, "", err
			}
			continue
		}
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("write multipart field %s: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

func multipartFields(payload any) (map[string]string, error) {
	switch p := payload.(type) {
	case map[string]string:
		return p, nil
	case map[string]any:
		fields := make(map[string]string, len(p))
		for k, v := range p {
			fields[k] = fmt.Sprintf("%v", v)
		}
		return fields, nil
	default:
		return nil, fmt.Errorf("multipart body requires a map payload, got %T", payload)
	}
}

func writeFilePart(writer *multipart.Writer, name, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open multipart file %s: %w", path, err)
	}
	defer file.Close()

	part, err := writer.CreateFormFile(name, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("create multipart part %s: %w", name, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("stream multipart file %s: %w", path, err)
	}
	return nil
}

func (b *Body) encodeRaw() ([]byte, string, error) {
	switch p := b.Payload.(type) {
	case nil:
		return nil, b.ContentType, nil
	case string:
		return []byte(p), b.ContentType, nil
	case []byte:
		return p, b.ContentType, nil
	default:
		return []byte(fmt.Sprintf("%v", p)), b.ContentType, nil
	}
}
