// Package clients talks to the package registry.
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/dxos/version-check/internal/cache"
	"github.com/dxos/version-check/internal/log"
	"github.com/dxos/version-check/internal/models"
)

// abbreviatedMetadata asks the registry for the install-only document, which
// carries dist-tags and versions without readmes.
const abbreviatedMetadata = "application/vnd.npm.install-v1+json; q=1.0, application/json; q=0.8"

// RegistryClient fetches package documents from an npm compatible registry
type RegistryClient struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache
}

// NewRegistryClient creates a registry client. A nil cache disables caching.
func NewRegistryClient(baseURL string, timeout time.Duration, c *cache.Cache) *RegistryClient {
	if baseURL == "" {
		baseURL = models.DefaultRegistry
	}
	return &RegistryClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cache:      c,
	}
}

// registryDocument is the subset of the registry response we read
type registryDocument struct {
	Name     string                     `json:"name"`
	DistTags map[string]string          `json:"dist-tags"`
	Versions map[string]json.RawMessage `json:"versions"`
}

// RegistryUnavailableError is returned when a package document cannot be
// fetched or decoded
type RegistryUnavailableError struct {
	Name       string
	StatusCode int
	Err        error
}

func (e *RegistryUnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("registry unavailable for %s: status %d", e.Name, e.StatusCode)
	}
	return fmt.Sprintf("registry unavailable for %s: %v", e.Name, e.Err)
}

func (e *RegistryUnavailableError) Unwrap() error {
	return e.Err
}

// ManifestURL returns the document URL for a package. The slash of a scoped
// name is escaped: @scope/pkg -> @scope%2Fpkg.
func (c *RegistryClient) ManifestURL(name string) string {
	return c.baseURL + "/" + url.PathEscape(name)
}

// FetchManifest returns the published versions and dist-tags of name
func (c *RegistryClient) FetchManifest(ctx context.Context, name string) (*models.PackageManifest, error) {
	u := c.ManifestURL(name)

	var data []byte
	if c.cache != nil {
		if cached, ok := c.cache.Get(u); ok {
			log.Debug("registry cache hit for %s", name)
			data = cached
		}
	}

	fromNetwork := data == nil
	if fromNetwork {
		var err error
		data, err = c.fetch(ctx, name, u)
		if err != nil {
			return nil, err
		}
	}

	pm, err := parseDocument(name, data)
	if err != nil {
		return nil, err
	}

	if fromNetwork && c.cache != nil {
		if err := c.cache.Set(u, data); err != nil {
			log.Debug("caching %s: %v", name, err)
		}
	}
	return pm, nil
}

func (c *RegistryClient) fetch(ctx context.Context, name, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &RegistryUnavailableError{Name: name, Err: err}
	}
	req.Header.Set("Accept", abbreviatedMetadata)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RegistryUnavailableError{Name: name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RegistryUnavailableError{Name: name, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RegistryUnavailableError{Name: name, Err: fmt.Errorf("reading response body: %w", err)}
	}
	return data, nil
}

func parseDocument(name string, data []byte) (*models.PackageManifest, error) {
	var doc registryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &RegistryUnavailableError{Name: name, Err: fmt.Errorf("decoding document: %w", err)}
	}

	versions := make([]string, 0, len(doc.Versions))
	for v := range doc.Versions {
		versions = append(versions, v)
	}
	sort.Strings(versions)

	if doc.Name == "" {
		doc.Name = name
	}
	return &models.PackageManifest{
		Name:     doc.Name,
		DistTags: doc.DistTags,
		Versions: versions,
	}, nil
}
