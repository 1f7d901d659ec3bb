package server

import (
	"html/template"
	"io"

	"github.com/GriffinCanCode/markread/internal/render"
	"github.com/GriffinCanCode/markread/internal/viewer"
)

type pageData struct {
	Title   string
	Empty   bool
	HTML    template.HTML
	Outline []render.Heading
}

// renderPage writes the window page. Document HTML was sanitized by the
// renderer and is inserted as is.
func renderPage(w io.Writer, title string, state viewer.State) error {
	return pageTemplate.Execute(w, pageData{
		Title:   title,
		Empty:   state.Empty(),
		HTML:    template.HTML(state.HTML),
		Outline: state.Outline,
	})
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { margin: 0; font: 16px/1.6 system-ui, sans-serif; color: #24292f; display: flex; }
nav { width: 14rem; padding: 1rem; border-right: 1px solid #d0d7de; font-size: 14px; }
nav a { display: block; color: inherit; text-decoration: none; }
main { flex: 1; max-width: 48rem; padding: 2rem; }
pre { background: #f6f8fa; padding: 1rem; overflow: auto; }
.empty { color: #57606a; }
</style>
</head>
<body>
<nav id="outline">{{range .Outline}}<a href="#{{.ID}}" style="padding-left: {{.Level}}ex">{{.Text}}</a>{{end}}</nav>
<main id="content">{{if .Empty}}<p class="empty">Open a Markdown file or drop one here.</p>{{else}}{{.HTML}}{{end}}</main>
<script>
(function () {
	var content = document.getElementById('content');
	var outline = document.getElementById('outline');
	function heading(h) {
		var a = document.createElement('a');
		a.href = '#' + h.id;
		a.style.paddingLeft = h.level + 'ex';
		a.textContent = h.text;
		return a;
	}
	function connect() {
		var ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
		ws.onmessage = function (e) {
			var msg = JSON.parse(e.data);
			if (msg.type !== 'document') return;
			content.innerHTML = msg.html || '';
			outline.replaceChildren.apply(outline, (msg.outline || []).map(heading));
			document.title = msg.filename ? msg.filename + ' - MarkRead' : 'MarkRead';
		};
		ws.onclose = function () { setTimeout(connect, 2000); };
	}
	document.addEventListener('dragover', function (e) { e.preventDefault(); });
	document.addEventListener('drop', function (e) {
		e.preventDefault();
		var file = e.dataTransfer.files[0];
		if (!file) return;
		var form = new FormData();
		form.append('file', file);
		fetch('/drop', {method: 'POST', body: form});
	});
	connect();
})();
</script>
</body>
</html>
`))
