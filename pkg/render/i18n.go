package render

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// ErrMissingTranslator is passed to MissingTranslationHandler when a key has
// to be resolved without a Translator.
var ErrMissingTranslator = errors.New("render: translator not configured")

// ErrMissingTranslation is returned by MessageCatalog for unknown keys.
var ErrMissingTranslation = errors.New("render: translation missing")

// Translator resolves message keys for a locale.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// MissingTranslationHandler picks the text shown when a key cannot be
// resolved. fallback is the untranslated text from the definition.
type MissingTranslationHandler func(locale, key, fallback string, err error) string

func missingTranslationDefault(_, key, fallback string, _ error) string {
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return key
}

// Keys used by LocalizeView. Definitions stay the source of the fallback
// text, so a partial catalog only overrides what it knows.
func formTitleKey(form string) string { return "forms." + form + ".title" }
func stepKey(form, step, attr string) string {
	return "forms." + form + ".steps." + step + "." + attr
}
func fieldKey(form, field, attr string) string {
	return "forms." + form + ".fields." + field + "." + attr
}
func validationKey(message string) string { return "validation." + message }

// LocalizeView translates the view's visible text in place. Nothing happens
// when neither a locale nor a translator is configured.
func LocalizeView(view *View, opts RenderOptions) {
	if view == nil || (opts.Translator == nil && opts.Locale == "") {
		return
	}
	onMissing := opts.OnMissing
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}
	tr := func(key, fallback string) string {
		return translate(opts.Locale, key, fallback, opts.Translator, onMissing)
	}

	view.Title = tr(formTitleKey(view.FormID), view.Title)
	view.Step.Title = tr(stepKey(view.FormID, view.Step.ID, "title"), view.Step.Title)
	if view.Step.Description != "" {
		view.Step.Description = tr(stepKey(view.FormID, view.Step.ID, "description"), view.Step.Description)
	}
	for i := range view.Steps {
		view.Steps[i].Title = tr(stepKey(view.FormID, view.Steps[i].ID, "title"), view.Steps[i].Title)
	}

	for i := range view.Step.Fields {
		field := &view.Step.Fields[i]
		field.Label = tr(fieldKey(view.FormID, field.Name, "label"), field.Label)
		if field.Help != "" {
			field.Help = tr(fieldKey(view.FormID, field.Name, "help"), field.Help)
		}
		if field.Placeholder != "" {
			field.Placeholder = tr(fieldKey(view.FormID, field.Name, "placeholder"), field.Placeholder)
		}
		for j := range field.Options {
			opt := &field.Options[j]
			opt.Label = tr(fieldKey(view.FormID, field.Name, "options."+opt.Value), opt.Label)
		}
		if field.Error != "" {
			field.Error = tr(validationKey(field.Error), field.Error)
		}
	}
	for name, msg := range view.Errors {
		view.Errors[name] = tr(validationKey(msg), msg)
	}
	for i, msg := range view.FormErrors {
		view.FormErrors[i] = tr(validationKey(msg), msg)
	}
}

func translate(locale, key, fallback string, t Translator, onMissing MissingTranslationHandler) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	if t == nil {
		return onMissing(locale, key, fallback, ErrMissingTranslator)
	}
	result, err := t.Translate(locale, key)
	if err == nil && strings.TrimSpace(result) != "" {
		return result
	}
	return onMissing(locale, key, fallback, err)
}

// MessageCatalog is a Translator backed by golang.org/x/text message
// catalogs. Locales are matched with the language matcher, so "en-GB" finds
// entries registered for "en".
type MessageCatalog struct {
	mu       sync.RWMutex
	builder  *catalog.Builder
	keys     map[language.Tag]map[string]struct{}
	fallback language.Tag
}

// NewMessageCatalog creates an empty catalog. fallback is used for locales
// that match nothing; an unparsable fallback means English.
func NewMessageCatalog(fallback string) *MessageCatalog {
	tag, err := language.Parse(fallback)
	if err != nil {
		tag = language.English
	}
	return &MessageCatalog{
		builder:  catalog.NewBuilder(catalog.Fallback(tag)),
		keys:     make(map[language.Tag]map[string]struct{}),
		fallback: tag,
	}
}

// Set registers msg for key in locale. msg may contain fmt verbs that
// Translate fills from its args.
func (c *MessageCatalog) Set(locale, key, msg string) error {
	tag, err := language.Parse(locale)
	if err != nil {
		return fmt.Errorf("render: locale %q: %w", locale, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.builder.SetString(tag, key, msg); err != nil {
		return fmt.Errorf("render: set %s/%s: %w", locale, key, err)
	}
	if c.keys[tag] == nil {
		c.keys[tag] = make(map[string]struct{})
	}
	c.keys[tag][key] = struct{}{}
	return nil
}

// SetAll registers every key/message pair for locale.
func (c *MessageCatalog) SetAll(locale string, messages map[string]string) error {
	for key, msg := range messages {
		if err := c.Set(locale, key, msg); err != nil {
			return err
		}
	}
	return nil
}

// Translate implements Translator.
func (c *MessageCatalog) Translate(locale, key string, args ...any) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tag := c.match(locale)
	if _, ok := c.keys[tag][key]; !ok {
		if _, ok := c.keys[c.fallback][key]; !ok {
			return "", fmt.Errorf("%w: %s/%s", ErrMissingTranslation, locale, key)
		}
		tag = c.fallback
	}
	printer := message.NewPrinter(tag, message.Catalog(c.builder))
	return printer.Sprintf(key, args...), nil
}

func (c *MessageCatalog) match(locale string) language.Tag {
	requested, err := language.Parse(locale)
	if err != nil {
		return c.fallback
	}
	supported := make([]language.Tag, 0, len(c.keys))
	for tag := range c.keys {
		supported = append(supported, tag)
	}
	if len(supported) == 0 {
		return c.fallback
	}
	sort.Slice(supported, func(i, j int) bool { return supported[i].String() < supported[j].String() })
	_, idx, confidence := language.NewMatcher(supported).Match(requested)
	if confidence == language.No {
		return c.fallback
	}
	return supported[idx]
}
