package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "relative", input: "enterprises/acme", want: "enterprises/acme"},
		{name: "leading slash", input: "/enterprises/acme/", want: "enterprises/acme"},
		{name: "dot segments", input: "enterprises/./acme/legal/..", want: "enterprises/acme"},
		{name: "escape is clamped to root", input: "../../etc/passwd", want: "etc/passwd"},
		{name: "backslashes", input: `enterprises\acme`, want: "enterprises/acme"},
		{name: "empty", input: "", wantErr: true},
		{name: "root only", input: "/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Clean(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "a/b/c", Join("a", "/b/", "", "c"))
	assert.Equal(t, "", Join("", "/"))
}
