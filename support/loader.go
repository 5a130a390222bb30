package support

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/project-flogo/core/support"
	"github.com/project-flogo/core/support/log"
	"github.com/project-flogo/recruit/definition"
)

const (
	uriSchemeFile  = "file://"
	uriSchemeHttp  = "http://"
	uriSchemeHttps = "https://"

	// HeaderCompressed marks a response body as base64 encoded gzip
	HeaderCompressed = "definition-compressed"
)

// DefinitionProvider fetches the rep of a process definition
type DefinitionProvider interface {
	GetDefinition(uri string) (*definition.DefinitionRep, error)
}

// DefinitionLoader loads process definitions once per uri
type DefinitionLoader struct {
	mu          sync.Mutex
	definitions map[string]*definition.Definition
	provider    DefinitionProvider
}

// NewDefinitionLoader creates a loader, a nil provider uses the
// RemoteDefinitionProvider
func NewDefinitionLoader(provider DefinitionProvider) *DefinitionLoader {
	if provider == nil {
		provider = NewRemoteDefinitionProvider()
	}
	return &DefinitionLoader{provider: provider, definitions: make(map[string]*definition.Definition)}
}

// Load returns a fresh rep of the definition at uri
func (l *DefinitionLoader) Load(uri string) (*definition.DefinitionRep, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	def, exists := l.definitions[uri]
	if !exists {
		rep, err := l.provider.GetDefinition(uri)
		if err != nil {
			return nil, err
		}

		def, err = definition.NewDefinition(rep)
		if err != nil {
			return nil, fmt.Errorf("error materializing definition with uri '%s': %w", uri, err)
		}
		l.definitions[uri] = def
	}

	return def.ToRep(), nil
}

// RemoteDefinitionProvider reads definitions from files or over http.
// Files may be gzipped, http bodies may be base64 encoded gzip.
type RemoteDefinitionProvider struct {
	client *http.Client
	logger log.Logger
}

func NewRemoteDefinitionProvider() *RemoteDefinitionProvider {
	return &RemoteDefinitionProvider{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: log.ChildLogger(log.RootLogger(), "loader"),
	}
}

func (p *RemoteDefinitionProvider) GetDefinition(uri string) (*definition.DefinitionRep, error) {
	var defBytes []byte
	var err error

	switch {
	case strings.HasPrefix(uri, uriSchemeHttp), strings.HasPrefix(uri, uriSchemeHttps):
		defBytes, err = p.fetch(uri)
	case strings.HasPrefix(uri, uriSchemeFile):
		path, ok := support.URLStringToFilePath(uri)
		if !ok {
			return nil, fmt.Errorf("invalid file uri '%s'", uri)
		}
		defBytes, err = p.read(path)
	case strings.Contains(uri, "://"):
		return nil, fmt.Errorf("unsupported uri '%s'", uri)
	default:
		defBytes, err = p.read(uri)
	}
	if err != nil {
		p.logger.Errorf("%v", err)
		return nil, err
	}

	var rep *definition.DefinitionRep
	if err := json.Unmarshal(defBytes, &rep); err != nil {
		return nil, fmt.Errorf("error unmarshalling definition with uri '%s': %w", uri, err)
	}
	if rep == nil {
		return nil, fmt.Errorf("empty definition with uri '%s'", uri)
	}
	return rep, nil
}

func (p *RemoteDefinitionProvider) read(path string) ([]byte, error) {
	p.logger.Infof("Loading local definition: %s", path)

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading definition '%s': %w", path, err)
	}
	if isGzip(b) {
		b, err = unzip(b)
		if err != nil {
			return nil, fmt.Errorf("error uncompressing definition '%s': %w", path, err)
		}
	}
	return b, nil
}

func (p *RemoteDefinitionProvider) fetch(uri string) ([]byte, error) {
	p.logger.Infof("Loading remote definition: %s", uri)

	resp, err := p.client.Get(uri)
	if err != nil {
		return nil, fmt.Errorf("error getting definition with uri '%s': %w", uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("error getting definition with uri '%s', status code %d", uri, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading definition response body with uri '%s': %w", uri, err)
	}

	if strings.EqualFold(resp.Header.Get(HeaderCompressed), "true") {
		body, err = decodeAndUnzip(string(body))
		if err != nil {
			return nil, fmt.Errorf("error decoding compressed definition with uri '%s': %w", uri, err)
		}
	}
	return body, nil
}

func isGzip(b []byte) bool {
	return len(b) > 1 && b[0] == 0x1f && b[1] == 0x8b
}

func decodeAndUnzip(encoded string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, err
	}
	return unzip(decoded)
}

func unzip(compressed []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
