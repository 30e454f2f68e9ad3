package httputil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptional(t *testing.T) {
	type patch struct {
		FolderID Optional[int64] `json:"folder_id"`
	}

	tests := []struct {
		name        string
		body        string
		wantPresent bool
		wantValue   *int64
	}{
		{"absent", `{}`, false, nil},
		{"null", `{"folder_id": null}`, true, nil},
		{"value", `{"folder_id": 12}`, true, func() *int64 { v := int64(12); return &v }()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p patch
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))
			assert.Equal(t, tt.wantPresent, p.FolderID.Present)
			assert.Equal(t, tt.wantValue, p.FolderID.Value)
		})
	}

	var p patch
	assert.Error(t, json.Unmarshal([]byte(`{"folder_id": "twelve"}`), &p))
}
