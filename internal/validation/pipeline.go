// Package validation turns untrusted request payloads into records that are
// safe to persist.
//
// Ticket payloads pass five gates in order, each failing fast:
//
//  1. schema: types, lengths, enumerations, date and time formats; unknown
//     fields are dropped and numeric strings are coerced
//  2. operator scan: string fields resembling "$gt:" reject the request
//  3. key stripping: "$"-prefixed or dotted keys are removed recursively
//  4. HTML stripping: free-text fields lose all markup
//  5. trim and escape: short fields are trimmed and entity-escaped
package validation

import (
	"encoding/json"
	"html"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/spec-kit/tixit/internal/domain"
	apperrors "github.com/spec-kit/tixit/pkg/util/errorutil"
)

// Pipeline holds the compiled validator and HTML policy. It is safe for
// concurrent use.
type Pipeline struct {
	validate *validator.Validate
	html     *bluemonday.Policy
}

// NewPipeline builds a pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		validate: newValidator(),
		html:     bluemonday.StrictPolicy(),
	}
}

type ticketDraft struct {
	Title       string   `json:"title" validate:"notblank,max=120"`
	Description string   `json:"description" validate:"max=2000"`
	Category    string   `json:"category" validate:"notblank,ticket_category"`
	City        string   `json:"city" validate:"notblank,max=80"`
	Date        string   `json:"date" validate:"notblank,calendar_date"`
	Time        string   `json:"time" validate:"notblank,clock_time"`
	Place       string   `json:"place" validate:"notblank,max=120"`
	Details     string   `json:"details" validate:"max=1000"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
}

func (d ticketDraft) strings() map[string]string {
	return map[string]string{
		"title":       d.Title,
		"description": d.Description,
		"category":    d.Category,
		"city":        d.City,
		"date":        d.Date,
		"time":        d.Time,
		"place":       d.Place,
		"details":     d.Details,
	}
}

var ticketStringFields = []string{"title", "description", "category", "city", "date", "time", "place", "details"}

// Ticket runs the ticket payload through every gate and returns a record
// ready for persistence. sellerID may be empty for anonymous listings.
func (p *Pipeline) Ticket(raw map[string]any, sellerID string) (domain.Ticket, error) {
	draft, typeErrs := decodeTicket(raw)

	details := typeErrs
	if err := p.validate.Struct(draft); err != nil {
		for field, reason := range fieldErrors(err) {
			if _, seen := details[field]; !seen {
				details[field] = reason
			}
		}
	}
	if len(details) > 0 {
		return domain.Ticket{}, apperrors.NewValidationError("Invalid ticket data", details)
	}

	if field, found := firstInjectedField(draft.strings()); found {
		return domain.Ticket{}, apperrors.NewInjectionDetected(field)
	}

	stripped, _ := StripReservedKeys(raw).(map[string]any)
	draft, _ = decodeTicket(stripped)

	description := strings.TrimSpace(p.html.Sanitize(draft.Description))
	extra := strings.TrimSpace(p.html.Sanitize(draft.Details))

	date, _ := time.Parse(domain.DateLayout, strings.TrimSpace(draft.Date))

	return domain.Ticket{
		Title:       escapeShort(draft.Title),
		Description: description,
		Category:    domain.Category(escapeShort(draft.Category)),
		City:        escapeShort(draft.City),
		Date:        date.UTC(),
		Time:        strings.TrimSpace(draft.Time),
		Venue:       escapeShort(draft.Place),
		Details:     extra,
		Price:       *draft.Price,
		SellerID:    sellerID,
	}, nil
}

// Payload strips reserved keys from an arbitrary JSON object and rejects it if
// any top-level string value carries a query operator.
func (p *Pipeline) Payload(raw map[string]any) (map[string]any, error) {
	clean, _ := StripReservedKeys(raw).(map[string]any)
	fields := make(map[string]string, len(clean))
	for k, v := range clean {
		if s, ok := v.(string); ok {
			fields[k] = s
		}
	}
	if field, found := firstInjectedField(fields); found {
		return nil, apperrors.NewInjectionDetected(field)
	}
	return clean, nil
}

// Bind runs Payload, decodes the result into dst and validates its tags.
func (p *Pipeline) Bind(raw map[string]any, dst any) error {
	clean, err := p.Payload(raw)
	if err != nil {
		return err
	}
	buf, err := json.Marshal(clean)
	if err != nil {
		return apperrors.NewValidationError("Invalid input", nil)
	}
	if err := json.Unmarshal(buf, dst); err != nil {
		return apperrors.NewValidationError("Invalid input", map[string]any{"_": "fields have the wrong type"})
	}
	return p.Struct(dst)
}

// Struct validates a request DTO.
func (p *Pipeline) Struct(v any) error {
	if err := p.validate.Struct(v); err != nil {
		return apperrors.NewValidationError("Invalid input", fieldErrors(err))
	}
	return nil
}

// EscapeText trims s and escapes HTML entities.
func EscapeText(s string) string {
	return escapeShort(s)
}

func escapeShort(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

func decodeTicket(raw map[string]any) (ticketDraft, map[string]any) {
	errs := map[string]any{}
	var draft ticketDraft

	values := make(map[string]string, len(ticketStringFields))
	for _, field := range ticketStringFields {
		key := field
		if field == "place" {
			if _, ok := raw["place"]; !ok {
				key = "venue"
			}
		}
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			errs[field] = "must be a string"
			continue
		}
		values[field] = s
	}
	draft.Title = values["title"]
	draft.Description = values["description"]
	draft.Category = values["category"]
	draft.City = values["city"]
	draft.Date = values["date"]
	draft.Time = values["time"]
	draft.Place = values["place"]
	draft.Details = values["details"]

	if v, ok := raw["price"]; ok && v != nil {
		price, reason := coercePrice(v)
		if reason != "" {
			errs["price"] = reason
		} else {
			draft.Price = price
		}
	}
	return draft, errs
}

func coercePrice(v any) (*float64, string) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil, "must be a number"
		}
		f = parsed
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, ""
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, "must be a number"
		}
		f = parsed
	default:
		return nil, "must be a number"
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, "must be a finite number"
	}
	return &f, ""
}
