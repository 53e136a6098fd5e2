package completion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// StripCodeFence removes a surrounding Markdown code fence (``` or ```json).
// Text without a leading fence is returned trimmed but otherwise unchanged.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	var body []string
	inFence := false
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if inFence {
				break
			}
			inFence = true
			continue
		}
		if inFence {
			body = append(body, line)
		}
	}
	return strings.TrimSpace(strings.Join(body, "\n"))
}

// DecodeJSON strictly decodes text into v: exactly one JSON value with nothing
// but whitespace after it. Numbers decode as json.Number when v is an interface.
func DecodeJSON(text string, v interface{}) error {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("decode json: trailing data after value")
	}
	return nil
}

// DecodeReply strips a code fence from the reply text and strictly decodes it.
func DecodeReply(reply string, v interface{}) error {
	body := StripCodeFence(reply)
	if body == "" {
		return ErrEmptyResponse
	}
	return DecodeJSON(body, v)
}

// CompactJSON renders v on one line for prompt embedding.
func CompactJSON(v interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "{}"
	}
	return strings.TrimSpace(buf.String())
}
