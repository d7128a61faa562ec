// Package markdown converts legacy rich-text HTML into Markdown and renders
// Markdown back to HTML for previews.
//
// FromHTML is the only conversion entry point used by the migrations. It is
// total and a fixed point on its own output: content that no longer matches
// TagPattern is returned untouched, which keeps re-running a conversion
// episode harmless.
package markdown
