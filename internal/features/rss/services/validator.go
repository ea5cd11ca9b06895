package services

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"feedwatch/internal/features/rss/models"
)

// Validation messages
const (
	MsgURLRequired   = "url is required"
	MsgURLInvalid    = "must be a valid http or https url"
	MsgFeedNotUnique = "this feed already exists"
)

// Validation tags applied to the url field
const (
	TagRequired = "required"
	TagHTTPURL  = "http_url"
)

// Validator checks form fields against the current feeds. An empty result
// means the fields are valid.
type Validator interface {
	Validate(fields map[string]string, feeds []models.Feed) map[string]string
}

// URLValidator requires an absolute http(s) url that is not yet subscribed
type URLValidator struct {
	validate *validator.Validate
}

// NewURLValidator creates a url validator backed by go-playground rules
func NewURLValidator() *URLValidator {
	return &URLValidator{validate: validator.New()}
}

func (v *URLValidator) Validate(fields map[string]string, feeds []models.Feed) map[string]string {
	errs := map[string]string{}

	raw := strings.TrimSpace(fields[models.FieldURL])
	if err := v.validate.Var(raw, TagRequired); err != nil {
		errs[models.FieldURL] = MsgURLRequired
		return errs
	}
	if err := v.validate.Var(raw, TagHTTPURL); err != nil {
		errs[models.FieldURL] = MsgURLInvalid
		return errs
	}

	// uniqueness depends on the store, not on the value alone
	for _, feed := range feeds {
		if feed.RequestURL == raw {
			errs[models.FieldURL] = MsgFeedNotUnique
			break
		}
	}
	return errs
}
