// Package web embeds the server-rendered admin pages.
package web

import (
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates
var files embed.FS

// Templates parses every page template. Pages are addressed by their path under
// templates/, for example "settings/registration.html".
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{"dict": dict}).
		ParseFS(files, "templates/*.html", "templates/*/*.html")
}

// dict builds a map from alternating keys and values so partials can take several
// arguments.
func dict(pairs ...interface{}) (map[string]interface{}, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict expects key/value pairs, got %d arguments", len(pairs))
	}
	values := make(map[string]interface{}, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
		}
		values[key] = pairs[i+1]
	}
	return values, nil
}
