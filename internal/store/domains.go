package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/JakeFAU/embed-provider-sync/internal/logging"
)

// DomainIndex is a sorted set of example domains taken from provider pages.
type DomainIndex struct {
	set map[string]struct{}
}

// NewDomainIndex returns an empty index seeded with domains.
func NewDomainIndex(domains ...string) *DomainIndex {
	d := &DomainIndex{set: make(map[string]struct{}, len(domains))}
	for _, domain := range domains {
		d.Add(domain)
	}
	return d
}

// Add inserts domain; empty strings are ignored.
func (d *DomainIndex) Add(domain string) {
	if domain == "" {
		return
	}
	d.set[domain] = struct{}{}
}

// Len is the number of distinct domains.
func (d *DomainIndex) Len() int { return len(d.set) }

// Sorted returns the domains in ascending order.
func (d *DomainIndex) Sorted() []string {
	out := make([]string, 0, len(d.set))
	for domain := range d.set {
		out = append(out, domain)
	}
	sort.Strings(out)
	return out
}

// DomainFile keeps a DomainIndex as a JSON array.
type DomainFile struct {
	fs     afero.Fs
	path   string
	logger *zap.Logger
}

// NewDomainFile builds a DomainFile. A nil fs means the OS filesystem.
func NewDomainFile(fsys afero.Fs, path string, logger *zap.Logger) (*DomainFile, error) {
	if path == "" {
		return nil, fmt.Errorf("domains path is required")
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	logger = logging.OrNop(logger)
	return &DomainFile{fs: fsys, path: path, logger: logger}, nil
}

// Load reads the index; missing or malformed files yield an empty index.
func (f *DomainFile) Load(context.Context) *DomainIndex {
	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		f.logger.Debug("no domain index yet, starting empty", zap.String("path", f.path), zap.Error(err))
		return NewDomainIndex()
	}
	var domains []string
	if err := json.Unmarshal(data, &domains); err != nil {
		f.logger.Warn("domain index malformed, starting empty", zap.String("path", f.path), zap.Error(err))
		return NewDomainIndex()
	}
	return NewDomainIndex(domains...)
}

// Save writes the sorted domains with a 2-space indent.
func (f *DomainFile) Save(_ context.Context, index *DomainIndex) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(index.Sorted()); err != nil {
		return fmt.Errorf("encode domains: %w", err)
	}
	return writeAtomic(f.fs, f.path, literalLineSeparators(buf.Bytes()))
}
