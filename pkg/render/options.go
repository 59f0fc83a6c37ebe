package render

import (
	theme "github.com/goliatone/go-theme"
)

// RenderOptions carry per-request data renderers use to customise output
// without touching the controller.
type RenderOptions struct {
	// Action is the base URL navigation buttons post to. The HTML renderer
	// appends /next, /previous, /submit and /steps/{index}.
	Action string
	// Hidden fields are emitted with every navigation form (CSRF tokens,
	// versions).
	Hidden map[string]string
	// Errors are external messages keyed by field path, folded onto the view
	// through MapErrorPayload before rendering.
	Errors map[string][]string
	// Theme is the resolved go-theme configuration, if any.
	Theme *theme.RendererConfig
	// Locale and Translator localise labels and messages. OnMissing decides
	// what to show when a key has no translation.
	Locale     string
	Translator Translator
	OnMissing  MissingTranslationHandler
}
