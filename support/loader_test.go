package support

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/project-flogo/recruit/definition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const engineerJSON = `{
  "id": "engineer",
  "name": "Backend Engineer",
  "organization": "acme",
  "nodes": [
    {"id": "start", "type": "start", "title": "Applied"},
    {"id": "iv", "type": "interview", "title": "Tech screen",
     "config": {"interview_type": "technical", "duration": 60, "interviewers": ["alice"]}}
  ],
  "connections": [{"id": "c1", "from": "start", "to": "iv"}]
}`

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.Nil(t, err)
	require.Nil(t, w.Close())
	return buf.Bytes()
}

func assertEngineer(t *testing.T, rep *definition.DefinitionRep) {
	t.Helper()
	require.NotNil(t, rep)
	assert.Equal(t, "engineer", rep.ID)
	assert.Equal(t, "Backend Engineer", rep.Name)
	require.Len(t, rep.Nodes, 2)
	assert.Equal(t, "interview", rep.Nodes[1].Type)
	require.Len(t, rep.Connections, 1)
}

func TestLoadFromFile(t *testing.T) {
	p := NewRemoteDefinitionProvider()

	path := writeFile(t, "engineer.json", engineerJSON)
	rep, err := p.GetDefinition(path)
	require.Nil(t, err)
	assertEngineer(t, rep)

	rep, err = p.GetDefinition("file://" + path)
	require.Nil(t, err)
	assertEngineer(t, rep)

	zipped := filepath.Join(t.TempDir(), "engineer.json.gz")
	require.Nil(t, os.WriteFile(zipped, gzipped(t, engineerJSON), 0o600))
	rep, err = p.GetDefinition(zipped)
	require.Nil(t, err)
	assertEngineer(t, rep)

	_, err = p.GetDefinition(filepath.Join(t.TempDir(), "missing.json"))
	assert.NotNil(t, err)

	_, err = p.GetDefinition(writeFile(t, "broken.json", "{"))
	assert.NotNil(t, err)

	_, err = p.GetDefinition("ftp://example.com/engineer.json")
	assert.NotNil(t, err)
}

func TestLoadOverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/plain":
			_, _ = w.Write([]byte(engineerJSON))
		case "/compressed":
			w.Header().Set(HeaderCompressed, "true")
			_, _ = w.Write([]byte(base64.StdEncoding.EncodeToString(gzipped(t, engineerJSON))))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	p := NewRemoteDefinitionProvider()

	rep, err := p.GetDefinition(server.URL + "/plain")
	require.Nil(t, err)
	assertEngineer(t, rep)

	rep, err = p.GetDefinition(server.URL + "/compressed")
	require.Nil(t, err)
	assertEngineer(t, rep)

	_, err = p.GetDefinition(server.URL + "/missing")
	assert.NotNil(t, err)
}

type countingProvider struct {
	calls int
	rep   func() *definition.DefinitionRep
}

func (p *countingProvider) GetDefinition(uri string) (*definition.DefinitionRep, error) {
	p.calls++
	return p.rep(), nil
}

func TestDefinitionLoader(t *testing.T) {
	provider := &countingProvider{rep: func() *definition.DefinitionRep {
		return &definition.DefinitionRep{
			ID:    "engineer",
			Name:  "Backend Engineer",
			Nodes: []*definition.NodeRep{{ID: "start", Type: "start", Title: "Applied"}},
		}
	}}
	loader := NewDefinitionLoader(provider)

	first, err := loader.Load("engineer.json")
	require.Nil(t, err)
	first.Name = "changed"

	second, err := loader.Load("engineer.json")
	require.Nil(t, err)
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, "Backend Engineer", second.Name)

	provider.rep = func() *definition.DefinitionRep {
		return &definition.DefinitionRep{Name: "anonymous"}
	}
	_, err = loader.Load("anonymous.json")
	assert.NotNil(t, err)
}
