package dom

import (
	"bytes"
	"fmt"
	"html/template"
)

var scaffoldTmpl = template.Must(template.New("scaffold").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { margin: 0 auto; max-width: 620px; padding: 24px 12px; background: #fafafa; font-family: sans-serif; }
h1 { font-size: 20px; color: #111; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div id="{{.ContainerID}}"></div>
</body>
</html>
`))

// Scaffold builds a minimal page holding an empty wall container, used when
// the output file does not exist yet.
func Scaffold(title, containerID string) (*Page, error) {
	var buf bytes.Buffer
	data := struct {
		Title       string
		ContainerID string
	}{title, containerID}

	if err := scaffoldTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering scaffold: %w", err)
	}
	return Parse(&buf)
}
