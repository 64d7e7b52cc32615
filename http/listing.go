package http

import (
	"bytes"
	"fmt"
	"html/template"
	"path"

	"github.com/synodriver/davgate/filesystem"
)

var listingTemplate = template.Must(template.New("listing").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Index of {{.Path}}</title>
  <style>
    table { table-layout: auto; width: 100%; }
    tbody tr:nth-of-type(even) { background-color: #f3f3f3; }
    .align-left { text-align: left; }
    .align-right { text-align: right; }
  </style>
</head>
<body>
  <header>
    <h1>Index of <small>{{.Path}}</small></h1>
  </header>
  <hr>
  <main>
  <table>
  <thead>
    <tr>
    <th class="align-left">Name</th><th class="align-left">Type</th>
    <th class="align-right">Size</th><th class="align-right">Last modified</th>
    </tr>
  </thead>
  <tbody>
    {{- if .Parent}}
    <tr><td><a href="{{.Parent}}"><b>..</b></a></td><td>-</td>
    <td class="align-right">-</td><td class="align-right">-</td></tr>
    {{- end}}
    {{- range .Entries}}
    <tr><td><a href="{{.Href}}">{{if .IsDir}}<b>{{.Name}}</b>{{else}}{{.Name}}{{end}}</a></td><td>{{.ContentType}}</td>
    <td class="align-right">{{.Size}}</td><td class="align-right">{{.ModTime}}</td></tr>
    {{- end}}
  </tbody>
  </table>
  </main>
  <hr>
  <footer><small>davgate</small></footer>
</body>
</html>`))

type listingEntry struct {
	Name        string
	Href        string
	ContentType string
	Size        string
	ModTime     string
	IsDir       bool
}

type listingData struct {
	Path    string
	Parent  string
	Entries []listingEntry
}

// renderListing builds the directory index page. Directories come before
// files (the store already orders them) and the parent link is omitted at
// the root.
func renderListing(urlPath string, entries []filesystem.Entry) ([]byte, error) {
	data := listingData{Path: urlPath}

	if urlPath != "/" && urlPath != "" {
		data.Parent = path.Dir(path.Clean(urlPath))
	}

	base := path.Clean(urlPath)
	if base == "." {
		base = "/"
	}
	for _, e := range entries {
		le := listingEntry{
			Name:        e.Name,
			Href:        path.Join(base, e.Name),
			ContentType: e.ContentType,
			ModTime:     e.ModTime,
			IsDir:       e.IsDir,
		}
		if e.IsDir {
			le.Size = "-"
		} else {
			le.Size = fmt.Sprintf("%d", e.Size)
		}
		data.Entries = append(data.Entries, le)
	}

	var buf bytes.Buffer
	if err := listingTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render listing: %w", err)
	}
	return buf.Bytes(), nil
}
