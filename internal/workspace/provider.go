package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/mailru/easyjson/jlexer"
	"github.com/dxos/version-check/internal/manifest"
	"gopkg.in/yaml.v3"
)

const pnpmWorkspaceFile = "pnpm-workspace.yaml"

// Provider lists the packages of one kind of workspace layout
type Provider interface {
	// Name identifies the provider on the command line
	Name() string

	// Detect returns true if root uses this layout
	Detect(root string) bool

	// Packages returns the workspace packages in a stable order
	Packages(ctx context.Context, root string) ([]Package, error)
}

// GetAllProviders returns all available providers in auto-detection order
func GetAllProviders() []Provider {
	return []Provider{
		&PnpmProvider{},
		&GlobProvider{},
		&YarnProvider{},
	}
}

// GlobProvider expands the "workspaces" globs of the root package.json
type GlobProvider struct{}

// Name returns "glob"
func (p *GlobProvider) Name() string { return "glob" }

// Detect returns true when the root manifest has a workspaces field
func (p *GlobProvider) Detect(root string) bool {
	_, err := p.patterns(root)
	return err == nil
}

// Packages expands the workspace globs into packages
func (p *GlobProvider) Packages(_ context.Context, root string) ([]Package, error) {
	patterns, err := p.patterns(root)
	if err != nil {
		return nil, err
	}
	dirs, err := expandPatterns(root, patterns)
	if err != nil {
		return nil, err
	}
	return loadPackages(root, dirs)
}

// workspacesField accepts both the array form and the {packages: [...]} form
type workspacesField struct {
	Packages []string
}

func (w *workspacesField) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &w.Packages); err == nil {
		return nil
	}
	var obj struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	w.Packages = obj.Packages
	return nil
}

func (p *GlobProvider) patterns(root string) ([]string, error) {
	m, err := manifest.Load(filepath.Join(root, manifest.FileName))
	if err != nil {
		return nil, err
	}
	raw, ok := m.Raw("workspaces")
	if !ok {
		return nil, fmt.Errorf("%s has no workspaces field", filepath.Join(root, manifest.FileName))
	}
	var field workspacesField
	if err := json.Unmarshal(raw, &field); err != nil {
		return nil, &manifest.MalformedError{Path: filepath.Join(root, manifest.FileName), Err: err}
	}
	return field.Packages, nil
}

// PnpmProvider reads the package globs of pnpm-workspace.yaml
type PnpmProvider struct{}

// Name returns "pnpm"
func (p *PnpmProvider) Name() string { return "pnpm" }

// Detect returns true when pnpm-workspace.yaml exists
func (p *PnpmProvider) Detect(root string) bool {
	_, err := os.Stat(filepath.Join(root, pnpmWorkspaceFile))
	return err == nil
}

// pnpmWorkspace represents the structure of pnpm-workspace.yaml
type pnpmWorkspace struct {
	Packages []string `yaml:"packages"`
}

// Packages expands the pnpm globs into packages
func (p *PnpmProvider) Packages(_ context.Context, root string) ([]Package, error) {
	data, err := os.ReadFile(filepath.Join(root, pnpmWorkspaceFile))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", pnpmWorkspaceFile, err)
	}
	var ws pnpmWorkspace
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pnpmWorkspaceFile, err)
	}
	dirs, err := expandPatterns(root, ws.Packages)
	if err != nil {
		return nil, err
	}
	return loadPackages(root, dirs)
}

// expandPatterns resolves workspace globs to package directories relative to
// root. Patterns starting with "!" exclude matches; node_modules is never
// entered.
func expandPatterns(root string, patterns []string) ([]string, error) {
	var include, exclude []string
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if neg, ok := strings.CutPrefix(p, "!"); ok {
			exclude = append(exclude, cleanPattern(neg))
			continue
		}
		include = append(include, cleanPattern(p))
	}

	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var dirs []string
	for _, pattern := range include {
		matches, err := doublestar.Glob(fsys, path.Join(pattern, manifest.FileName))
		if err != nil {
			return nil, fmt.Errorf("expanding workspace pattern %q: %w", pattern, err)
		}
		sort.Strings(matches)

		for _, m := range matches {
			dir := path.Dir(m)
			if dir == "." || seen[dir] || strings.Contains("/"+dir+"/", "/node_modules/") {
				continue
			}
			if excluded(dir, exclude) {
				continue
			}
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs, nil
}

func cleanPattern(p string) string {
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimSuffix(p, "/")
	return path.Clean(p)
}

func excluded(dir string, exclude []string) bool {
	for _, pattern := range exclude {
		if ok, err := doublestar.Match(pattern, dir); err == nil && ok {
			return true
		}
	}
	return false
}

// commandRunner runs a command in dir and returns its stdout
type commandRunner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// YarnProvider asks yarn (v1) for the workspace layout
type YarnProvider struct {
	run commandRunner
}

// Name returns "yarn"
func (p *YarnProvider) Name() string { return "yarn" }

// Detect returns true when the workspace has a yarn lockfile
func (p *YarnProvider) Detect(root string) bool {
	_, err := os.Stat(filepath.Join(root, "yarn.lock"))
	return err == nil
}

// yarnWorkspaceInfo is one entry of `yarn workspaces info --json`
type yarnWorkspaceInfo struct {
	Name                            string   `json:"-"`
	Location                        string   `json:"location"`
	WorkspaceDependencies           []string `json:"workspaceDependencies"`
	MismatchedWorkspaceDependencies []string `json:"mismatchedWorkspaceDependencies"`
}

// Packages runs yarn and loads the reported packages in the order yarn
// lists them
func (p *YarnProvider) Packages(ctx context.Context, root string) ([]Package, error) {
	run := p.run
	if run == nil {
		run = runCommand
	}
	out, err := run(ctx, root, "yarn", "workspaces", "info", "--json")
	if err != nil {
		return nil, err
	}

	infos, err := parseYarnInfo(out)
	if err != nil {
		return nil, err
	}

	dirs := make([]string, 0, len(infos))
	for _, info := range infos {
		dirs = append(dirs, info.Location)
	}
	return loadPackages(root, dirs)
}

// parseYarnInfo strips the banner and timing lines yarn wraps around the JSON
// and decodes the entries in document order
func parseYarnInfo(out []byte) ([]yarnWorkspaceInfo, error) {
	s := string(out)
	if strings.HasPrefix(s, "yarn workspaces") {
		start := strings.Index(s, "\n") + 1
		end := strings.LastIndex(s, "}") + 1
		if end > start {
			s = s[start:end]
		}
	}

	var infos []yarnWorkspaceInfo
	l := &jlexer.Lexer{Data: []byte(s)}
	l.Delim('{')
	for !l.IsDelim('}') {
		name := l.String()
		l.WantColon()
		raw := l.Raw()
		l.WantComma()
		if !l.Ok() {
			break
		}
		info := yarnWorkspaceInfo{Name: name}
		if err := json.Unmarshal(raw, &info); err != nil {
			return nil, fmt.Errorf("parsing yarn workspaces info for %s: %w", name, err)
		}
		infos = append(infos, info)
	}
	l.Delim('}')
	l.Consumed()
	if err := l.Error(); err != nil {
		return nil, fmt.Errorf("parsing yarn workspaces info: %w", err)
	}
	return infos, nil
}
