// internal/admission/render.go
package admission

import "strings"

// Render substitutes {{variable}} placeholders from vars. Rendering is
// total: a placeholder with no matching key stays in the output literally,
// so a partial variable map never fails a request.
func Render(tmpl string, vars map[string]string) string {
	if len(vars) == 0 {
		return tmpl
	}
	result := tmpl
	for k, v := range vars {
		result = strings.ReplaceAll(result, "{{"+k+"}}", v)
	}
	return result
}
