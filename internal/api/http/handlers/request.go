package handlers

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/tixit/pkg/util/errorutil"
)

// decodeObject reads the body as a JSON object. Numbers are kept as
// json.Number so the validation pipeline decides how to coerce them.
func decodeObject(c *fiber.Ctx) (map[string]any, error) {
	body := bytes.TrimSpace(c.Body())
	if len(body) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil, apperrors.NewValidationError("Request body must be a JSON object", nil)
	}
	return raw, nil
}

// trimFields trims surrounding whitespace from the named string fields.
func trimFields(raw map[string]any, fields ...string) {
	for _, f := range fields {
		if s, ok := raw[f].(string); ok {
			raw[f] = strings.TrimSpace(s)
		}
	}
}
