package json

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionState struct {
	CollectionName string   `json:"collectionName"`
	Contents       []string `json:"contents,omitempty"`
	URLs           []string `json:"urls,omitempty"`
	Plan           string   `json:"plan,omitempty"`
}

func TestMarshalUnmarshal(t *testing.T) {
	in := sessionState{
		CollectionName: "my_doc_pdf",
		Contents:       []string{"pasted one", "pasted two"},
		URLs:           []string{"https://example.com/docs"},
		Plan:           "free",
	}

	data, err := Marshal(in)
	require.NoError(t, err)

	var out sessionState
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestMarshalString(t *testing.T) {
	s, err := MarshalString(map[string]int{"total_sources": 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_sources":3}`, s)
}

func TestEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Encode(sessionState{CollectionName: "c1"}))

	var out sessionState
	require.NoError(t, NewDecoder(strings.NewReader(buf.String())).Decode(&out))
	assert.Equal(t, "c1", out.CollectionName)
}

func TestUnmarshalInvalid(t *testing.T) {
	var out sessionState
	assert.Error(t, Unmarshal([]byte(`{"collectionName":`), &out))
}
