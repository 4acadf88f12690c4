package explorer

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/siteatlas/internal/domain"
)

// DiscoverForms extracts forms from pageHTML. Only GET forms and forms whose
// fields are all read-only are considered navigable; mutating forms are
// returned with Mutating set and must never be submitted.
func (e *Engine) DiscoverForms(pageHTML, baseURL string) ([]domain.Form, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	var forms []domain.Form
	doc.Find("form").Each(func(_ int, sel *goquery.Selection) {
		method := strings.ToUpper(strings.TrimSpace(sel.AttrOr("method", "GET")))
		if method == "" {
			method = "GET"
		}

		action := strings.TrimSpace(sel.AttrOr("action", ""))
		if action != "" {
			if ref, parseErr := url.Parse(action); parseErr == nil {
				action = base.ResolveReference(ref).String()
			}
		} else {
			action = baseURL
		}

		fields := formFields(sel)
		form := domain.Form{
			Action:   action,
			Method:   method,
			Fields:   fields,
			Mutating: method != "GET" && !allReadOnly(fields),
		}
		forms = append(forms, form)
	})

	return forms, nil
}

// formFields collects the named inputs, selects, and textareas of a form.
func formFields(sel *goquery.Selection) []domain.FormField {
	var fields []domain.FormField
	sel.Find("input, select, textarea").Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		if name == "" {
			return
		}
		_, readOnly := input.Attr("readonly")
		_, disabled := input.Attr("disabled")
		fields = append(fields, domain.FormField{
			Name:     name,
			Type:     input.AttrOr("type", "text"),
			ReadOnly: readOnly || disabled,
		})
	})
	return fields
}

// allReadOnly reports whether every field of a form is read-only.
// An empty field list counts as read-only.
func allReadOnly(fields []domain.FormField) bool {
	for _, f := range fields {
		if !f.ReadOnly {
			return false
		}
	}
	return true
}
