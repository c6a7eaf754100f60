// internal/admission/render_test.go
package admission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		vars map[string]string
		want string
	}{
		{
			name: "all placeholders bound",
			tmpl: "Hi {{name}}, order {{id}} shipped",
			vars: map[string]string{"name": "Ada", "id": "42"},
			want: "Hi Ada, order 42 shipped",
		},
		{
			name: "unbound placeholder stays literal",
			tmpl: "Hi {{name}}, order {{id}} shipped",
			vars: map[string]string{"name": "Ada"},
			want: "Hi Ada, order {{id}} shipped",
		},
		{
			name: "no variables at all",
			tmpl: "Hi {{name}}",
			vars: nil,
			want: "Hi {{name}}",
		},
		{
			name: "no placeholders",
			tmpl: "plain text",
			vars: map[string]string{"name": "Ada"},
			want: "plain text",
		},
		{
			name: "repeated placeholder",
			tmpl: "{{x}} and {{x}}",
			vars: map[string]string{"x": "y"},
			want: "y and y",
		},
		{
			name: "extra variables are ignored",
			tmpl: "Hi {{name}}",
			vars: map[string]string{"name": "Ada", "unused": "z"},
			want: "Hi Ada",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.tmpl, tt.vars))
		})
	}
}
