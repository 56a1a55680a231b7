// Package permission maps gateway endpoints to the permission category and
// action an API token needs to call them.
package permission

import (
	"log/slog"
	gopath "path"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
)

// IDPlaceholder replaces identifier segments in normalized paths.
const IDPlaceholder = ":id"

// Mapping is the permission required for one endpoint.
type Mapping struct {
	Category model.Category `json:"category"`
	Action   model.Action   `json:"action"`
}

// Entry is one row of the endpoint table.
type Entry struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Mapping
}

// Mapper resolves (method, path) pairs against a static endpoint table.
// Lookups that miss are not errors: the caller decides whether to block.
type Mapper struct {
	table  map[string]Mapping
	logger *slog.Logger
}

// NewMapper returns a mapper over the default endpoint table.
func NewMapper(logger *slog.Logger) *Mapper {
	return NewMapperWithEntries(logger, defaultEntries)
}

// NewMapperWithEntries builds a mapper over a custom table.
func NewMapperWithEntries(logger *slog.Logger, entries []Entry) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Mapper{table: make(map[string]Mapping, len(entries)), logger: logger}
	for _, e := range entries {
		m.table[key(e.Method, e.Path)] = e.Mapping
	}
	return m
}

// MapEndpoint normalizes path and looks up the permission required to call
// it with method. ok is false when the endpoint is not in the table.
func (m *Mapper) MapEndpoint(method, path string) (Mapping, bool) {
	k := key(method, Normalize(path))
	mapping, ok := m.table[k]
	if !ok {
		m.logger.Debug("endpoint not in permission table", "key", k)
	}
	return mapping, ok
}

// Entries returns the endpoint table sorted by path, then method.
func (m *Mapper) Entries() []Entry {
	out := make([]Entry, 0, len(m.table))
	for k, mapping := range m.table {
		method, path, _ := strings.Cut(k, " ")
		out = append(out, Entry{Method: method, Path: path, Mapping: mapping})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// ResourceRoots returns the distinct first path segments of the table, e.g.
// "contacts" or "automation_rules".
func (m *Mapper) ResourceRoots() []string {
	seen := map[string]bool{}
	var roots []string
	for k := range m.table {
		_, path, _ := strings.Cut(k, " ")
		root, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
		if root != "" && !seen[root] {
			seen[root] = true
			roots = append(roots, root)
		}
	}
	sort.Strings(roots)
	return roots
}

// Normalize strips the query string and trailing slashes from path and
// replaces every numeric or UUID-shaped segment with ":id".
func Normalize(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimRight(path, "/")
	if path == "" {
		return "/"
	}

	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if isIdentifier(seg) {
			segments[i] = IDPlaceholder
		}
	}
	out := strings.Join(segments, "/")
	if !strings.HasPrefix(out, "/") {
		out = "/" + out
	}
	return out
}

// Canonical reports whether p contains no empty, "." or ".." segments and no
// backslashes. A single trailing slash is allowed. Only canonical paths map
// and forward to the same downstream endpoint.
func Canonical(p string) bool {
	if strings.ContainsRune(p, '\\') {
		return false
	}
	trimmed := strings.TrimSuffix(p, "/")
	if trimmed == "" {
		return true
	}
	return gopath.Clean(trimmed) == trimmed
}

func isIdentifier(seg string) bool {
	if seg == "" {
		return false
	}
	if _, err := strconv.ParseUint(seg, 10, 64); err == nil {
		return true
	}
	// Only the canonical 36-character form counts as UUID-shaped.
	if len(seg) == 36 {
		_, err := uuid.Parse(seg)
		return err == nil
	}
	return false
}

func key(method, path string) string {
	return strings.ToUpper(method) + " " + path
}
