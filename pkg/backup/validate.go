package backup

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/mod/semver"

	"github.com/foliohq/folio/pkg/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
		return isSemver(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	v.RegisterStructValidation(validatePortfolio, Portfolio{})
	v.RegisterStructValidation(validateSystemEnvelope, SystemEnvelope{})
	return v
}

// isSemver accepts full MAJOR.MINOR.PATCH versions with an optional
// leading "v". Shorthands such as "2" or "v2.1" are rejected.
func isSemver(s string) bool {
	if !strings.HasPrefix(s, "v") {
		s = "v" + s
	}
	return semver.IsValid(s) && semver.Canonical(s) == s
}

// ValidateMeta checks an envelope's header against the operation being
// attempted. It is pure and runs before any storage access.
func ValidateMeta(meta Meta, expected EnvelopeType) error {
	const op = "validate envelope"
	if meta.Type != expected {
		return validationErrorf(op, "envelope type %q does not match expected %q", meta.Type, expected)
	}
	if !isSemver(meta.Version) {
		return validationErrorf(op, "envelope version %q is not a semantic version", meta.Version)
	}
	if got := meta.Compatibility.MinSupportedVersion; got != MinSupportedVersion {
		return validationErrorf(op, "envelope requires minimum version %q, this build supports %q", got, MinSupportedVersion)
	}
	return nil
}

// validatePayload runs the structural checks declared on the envelope
// types.
func validatePayload(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return newError(ErrValidation, "validate payload", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return newError(ErrValidation, "validate payload", errors.New(strings.Join(msgs, "; ")))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "unique":
		return fmt.Sprintf("%s contains duplicate %s", field, fe.Param())
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// validatePortfolio rejects owner skills and settings listed twice; the
// comparison for skills is case-insensitive like the catalog.
func validatePortfolio(sl validator.StructLevel) {
	p := sl.Current().Interface().(Portfolio)

	seen := make(map[string]bool, len(p.Skills))
	for i, s := range p.Skills {
		key := models.SkillKey(s.Name)
		if key != "" && seen[key] {
			sl.ReportError(s.Name, fmt.Sprintf("skills[%d].name", i), "Name", "unique", "name")
		}
		seen[key] = true
	}

	seen = make(map[string]bool, len(p.Settings))
	for i, s := range p.Settings {
		if seen[s.Name] {
			sl.ReportError(s.Name, fmt.Sprintf("settings[%d].name", i), "Name", "unique", "name")
		}
		seen[s.Name] = true
	}
}

// validateSystemEnvelope rejects owners that would collide once recreated.
func validateSystemEnvelope(sl validator.StructLevel) {
	env := sl.Current().Interface().(SystemEnvelope)

	slugs := make(map[string]bool, len(env.Payload))
	emails := make(map[string]bool, len(env.Payload))
	ids := make(map[string]bool, len(env.Payload))
	for i, entry := range env.Payload {
		u := entry.User
		if slugs[u.Slug] {
			sl.ReportError(u.Slug, fmt.Sprintf("payload[%d].user.slug", i), "Slug", "unique", "slug")
		}
		slugs[u.Slug] = true

		email := strings.ToLower(u.Email)
		if emails[email] {
			sl.ReportError(u.Email, fmt.Sprintf("payload[%d].user.email", i), "Email", "unique", "email")
		}
		emails[email] = true

		if !u.ID.IsZero() {
			if ids[u.ID.String()] {
				sl.ReportError(u.ID.String(), fmt.Sprintf("payload[%d].user.id", i), "ID", "unique", "id")
			}
			ids[u.ID.String()] = true
		}
	}

	names := make(map[string]bool, len(env.Settings))
	for i, s := range env.Settings {
		if names[s.Name] {
			sl.ReportError(s.Name, fmt.Sprintf("settings[%d].name", i), "Name", "unique", "name")
		}
		names[s.Name] = true
	}
}
