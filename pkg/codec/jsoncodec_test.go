package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Path   string `json:"path"`
	Status int    `json:"status"`
}

func TestJSONStrict_MarshalNoHTMLEscapeOrTrailingNewline(t *testing.T) {
	b, err := JSONStrict.Marshal(record{Path: "/a?x=<1>&y=2", Status: 200})
	require.NoError(t, err)
	assert.Equal(t, `{"path":"/a?x=<1>&y=2","status":200}`, string(b))
}

func TestJSONStrict_UnmarshalRejectsUnknownFields(t *testing.T) {
	var r record
	err := JSONStrict.Unmarshal([]byte(`{"path":"/","status":200,"extra":true}`), &r)
	assert.Error(t, err)
}

func TestJSONStrict_UnmarshalRejectsTrailingContent(t *testing.T) {
	var r record
	err := JSONStrict.Unmarshal([]byte(`{"path":"/","status":200}{"again":1}`), &r)
	assert.Error(t, err)
}

func TestJSONStrict_RoundTrip(t *testing.T) {
	var r record
	require.NoError(t, JSONStrict.Unmarshal([]byte(`{"path":"/ok","status":304}`), &r))
	assert.Equal(t, record{Path: "/ok", Status: 304}, r)
	assert.Equal(t, "application/json", JSONStrict.ContentType())
}
