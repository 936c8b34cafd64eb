package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvidersSetKeepsOrder(t *testing.T) {
	t.Parallel()

	p := NewProviders()
	p.Set("b", []string{"1"})
	p.Set("a", nil)
	p.Set("b", []string{"2"})

	assert.Equal(t, []string{"b", "a"}, p.IDs())
	got, ok := p.Get("b")
	require.True(t, ok)
	assert.Equal(t, []string{"2"}, got)
	got, ok = p.Get("a")
	require.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestProvidersPrune(t *testing.T) {
	t.Parallel()

	p := NewProviders()
	p.Set("a", []string{"x"})
	p.Set("z", []string{"y"})
	p.Set("c", []string{})

	removed := p.Prune([]string{"c", "a", "b"})

	assert.Equal(t, []string{"z"}, removed)
	assert.Equal(t, []string{"a", "c"}, p.IDs())
	_, ok := p.Get("z")
	assert.False(t, ok)

	p.Prune(nil)
	assert.NotNil(t, p.IDs())
	assert.Empty(t, p.IDs())
}

func TestEncodeFormat(t *testing.T) {
	t.Parallel()

	p := NewProviders()
	p.Set("a", []string{"scheme-a", "http://ex.com/<id>&ü"})
	p.Set("c", []string{})

	data, err := Encode(p)
	require.NoError(t, err)
	want := "{\n" +
		"    \"a\": [\n" +
		"        \"scheme-a\",\n" +
		"        \"http://ex.com/<id>&ü\"\n" +
		"    ],\n" +
		"    \"c\": []\n" +
		"}\n"
	assert.Equal(t, want, string(data))

	empty, err := Encode(NewProviders())
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(empty))
}

func TestEncodeWritesLineSeparatorsLiterally(t *testing.T) {
	t.Parallel()

	p := NewProviders()
	p.Set("a", []string{"http://ex.com/\u2028*", "x\u2029y", `back\\u2028slash`})

	data, err := Encode(p)
	require.NoError(t, err)
	want := "{\n" +
		"    \"a\": [\n" +
		"        \"http://ex.com/\u2028*\",\n" +
		"        \"x\u2029y\",\n" +
		"        \"back\\\\\\\\u2028slash\"\n" +
		"    ]\n" +
		"}\n"
	assert.Equal(t, want, string(data))

	var back Providers
	require.NoError(t, json.Unmarshal(data, &back))
	got, _ := back.Get("a")
	assert.Equal(t, []string{"http://ex.com/\u2028*", "x\u2029y", `back\\u2028slash`}, got)
}

func TestUnmarshalKeepsFileOrder(t *testing.T) {
	t.Parallel()

	var p Providers
	require.NoError(t, json.Unmarshal([]byte(`{"zeta": ["1"], "alpha": null, "mid": []}`), &p))
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, p.IDs())
	got, _ := p.Get("alpha")
	assert.Equal(t, []string{}, got)
}

func TestDecodeRejectsWrongShapes(t *testing.T) {
	t.Parallel()

	for _, doc := range []string{
		`[]`,
		`{"a": "not-a-list"}`,
		`{"a": [1, 2]}`,
		`{"a": ["x"]} trailing`,
		`{"a": ["x"]`,
		``,
	} {
		var p Providers
		assert.Error(t, json.Unmarshal([]byte(doc), &p), "doc %q", doc)
	}
}

func newMemStore(t *testing.T, fsys afero.Fs, repair bool) *FileStore {
	t.Helper()
	s, err := NewFileStore(fsys, Config{Path: "data/providers.json", RepairCorrupt: repair}, nil)
	require.NoError(t, err)
	return s
}

func TestFileStoreLoadMissingIsEmpty(t *testing.T) {
	t.Parallel()

	s := newMemStore(t, afero.NewMemMapFs(), false)
	p := s.Load(context.Background())
	require.NotNil(t, p)
	assert.Zero(t, p.Len())
}

func TestFileStoreLoadMalformedIsEmpty(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "data/providers.json", []byte(`{"a": ["x"],`), 0o644))

	p := newMemStore(t, fsys, false).Load(context.Background())
	assert.Zero(t, p.Len())
}

func TestFileStoreLoadRepairsWhenEnabled(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "data/providers.json", []byte(`{"a": ["x"], "b": ["y"],}`), 0o644))

	p := newMemStore(t, fsys, true).Load(context.Background())
	assert.Equal(t, []string{"a", "b"}, p.IDs())
}

func TestFileStoreRoundTripIsStable(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	s := newMemStore(t, fsys, false)
	p := NewProviders()
	p.Set("vimeo", []string{"https://vimeo.com/*"})
	p.Set("bandcamp", []string{"https://*.bandcamp.com/album/*"})

	require.NoError(t, s.Save(context.Background(), p))
	first, err := afero.ReadFile(fsys, "data/providers.json")
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background(), s.Load(context.Background())))
	second, err := afero.ReadFile(fsys, "data/providers.json")
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))

	entries, err := afero.ReadDir(fsys, "data")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStoreSaveFailureIsReturned(t *testing.T) {
	t.Parallel()

	base := afero.NewMemMapFs()
	s := newMemStore(t, afero.NewReadOnlyFs(base), false)

	err := s.Save(context.Background(), NewProviders())
	require.Error(t, err)
	exists, _ := afero.Exists(base, "data/providers.json")
	assert.False(t, exists)
}

func TestNewFileStoreRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := NewFileStore(nil, Config{}, nil)
	require.Error(t, err)
}

func TestDomainIndexRoundTrip(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	f, err := NewDomainFile(fsys, "supported-domains.json", nil)
	require.NoError(t, err)

	idx := f.Load(context.Background())
	assert.Zero(t, idx.Len())
	idx.Add("vimeo.com/")
	idx.Add("youtube.com/watch")
	idx.Add("vimeo.com/")
	idx.Add("")
	require.NoError(t, f.Save(context.Background(), idx))

	data, err := afero.ReadFile(fsys, "supported-domains.json")
	require.NoError(t, err)
	assert.Equal(t, "[\n  \"vimeo.com/\",\n  \"youtube.com/watch\"\n]\n", string(data))

	reloaded := f.Load(context.Background())
	assert.Equal(t, []string{"vimeo.com/", "youtube.com/watch"}, reloaded.Sorted())
}

func TestDomainFileMalformed(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "d.json", []byte(`{"not":"array"}`), 0o644))
	f, err := NewDomainFile(fsys, "d.json", nil)
	require.NoError(t, err)
	assert.Zero(t, f.Load(context.Background()).Len())
}
