package swagger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestDocIsRegistered(t *testing.T) {
	raw, err := swag.ReadDoc()
	require.NoError(t, err)

	var doc struct {
		Paths       map[string]map[string]json.RawMessage `json:"paths"`
		Definitions map[string]json.RawMessage            `json:"definitions"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	assert.Contains(t, doc.Paths, "/api/v1/student/courses/{id}/progress")
	assert.Contains(t, doc.Paths["/api/v1/admin/courses/{id}"], "patch")
	assert.Contains(t, doc.Definitions, "CreateCourseRequest")
}
