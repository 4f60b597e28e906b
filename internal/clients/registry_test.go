package clients

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dxos/version-check/internal/cache"
)

const lodashDocument = `{
  "name": "lodash",
  "dist-tags": {"latest": "4.17.21", "beta": "5.0.0-beta.1"},
  "versions": {"4.17.20": {}, "4.17.21": {}, "5.0.0-beta.1": {}}
}`

func TestFetchManifest(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.EscapedPath() {
		case "/lodash":
			w.Write([]byte(lodashDocument))
		case "/@dxos%2Fclient":
			w.Write([]byte(`{"name": "@dxos/client", "dist-tags": {"latest": "0.1.0"}, "versions": {"0.1.0": {}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := cache.Open(t.TempDir(), time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	client := NewRegistryClient(srv.URL+"/", 5*time.Second, c)

	pm, err := client.FetchManifest(context.Background(), "lodash")
	if err != nil {
		t.Fatalf("FetchManifest error: %v", err)
	}
	if want := []string{"4.17.20", "4.17.21", "5.0.0-beta.1"}; !reflect.DeepEqual(pm.Versions, want) {
		t.Errorf("Versions = %v; want %v", pm.Versions, want)
	}
	if pm.DistTags["latest"] != "4.17.21" {
		t.Errorf("DistTags[latest] = %q; want 4.17.21", pm.DistTags["latest"])
	}

	if _, err := client.FetchManifest(context.Background(), "lodash"); err != nil {
		t.Fatalf("cached FetchManifest error: %v", err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d; want 1 (second fetch cached)", n)
	}

	scoped, err := client.FetchManifest(context.Background(), "@dxos/client")
	if err != nil {
		t.Fatalf("FetchManifest(@dxos/client) error: %v", err)
	}
	if scoped.Name != "@dxos/client" || len(scoped.Versions) != 1 {
		t.Errorf("scoped manifest = %+v", scoped)
	}
}

func TestFetchManifest_unavailable(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/garbled" {
			w.Write([]byte("<html>"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := NewRegistryClient(srv.URL, 5*time.Second, nil)

	tests := []struct {
		name       string
		statusCode int
	}{
		{"missing", http.StatusNotFound},
		{"garbled", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.FetchManifest(context.Background(), tt.name)
			var unavailable *RegistryUnavailableError
			if !errors.As(err, &unavailable) {
				t.Fatalf("error = %v; want *RegistryUnavailableError", err)
			}
			if unavailable.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %d; want %d", unavailable.StatusCode, tt.statusCode)
			}
		})
	}

	srv.Close()
	_, err := client.FetchManifest(context.Background(), "lodash")
	var unavailable *RegistryUnavailableError
	if !errors.As(err, &unavailable) {
		t.Errorf("error after shutdown = %v; want *RegistryUnavailableError", err)
	}
}
