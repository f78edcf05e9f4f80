package model

import "html"

// EscapeMarkup escapes text for safe interpolation into Pango markup.
// Any author name or message content reaching a rendered surface must pass
// through this first.
func EscapeMarkup(s string) string {
	return html.EscapeString(s)
}

// UnescapeMarkup reverses EscapeMarkup.
func UnescapeMarkup(s string) string {
	return html.UnescapeString(s)
}
