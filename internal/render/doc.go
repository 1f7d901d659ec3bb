// Package render turns Markdown into sanitized HTML for the viewer.
//
// Rendering uses goldmark with GFM, linkify and typographer extensions and
// without raw HTML. Output is passed through a bluemonday UGC policy, then
// inspected for the outline, first heading and word count. YAML ("---") and
// TOML ("+++") front matter is stripped from the body and parsed.
package render
