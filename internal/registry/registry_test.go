package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ReportMapper/internal/configdoc"
	"ReportMapper/internal/editor"
)

var t0 = time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

func TestSaveFirstAndNextVersions(t *testing.T) {
	r := New()
	c := configdoc.New(configdoc.KindPnL, "Acme", t0)

	first, err := r.Save(c)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)

	second, err := r.Save(configdoc.NextVersion(first, t0.Add(time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)

	history, err := r.History(c.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].Version)

	v1, err := r.Version(c.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, first.UpdatedAt, v1.UpdatedAt)
}

func TestSaveRejectsStaleBase(t *testing.T) {
	r := New()
	c := configdoc.New(configdoc.KindPnL, "Acme", t0)
	_, err := r.Save(c)
	require.NoError(t, err)

	a := configdoc.Merge(c, configdoc.SetName("from editor A"))
	b := configdoc.Merge(c, configdoc.SetName("from editor B"))

	_, err = r.Save(configdoc.NextVersion(a, t0))
	require.NoError(t, err)
	_, err = r.Save(configdoc.NextVersion(b, t0))
	assert.ErrorIs(t, err, ErrVersionConflict)

	latest, err := r.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, "from editor A", latest.Name)
}

func TestStoredCopiesAreIsolated(t *testing.T) {
	r := New()
	c := configdoc.New(configdoc.KindCashflow, "Cash", t0)
	_, err := r.Save(c)
	require.NoError(t, err)

	c.Name = "mutated after save"
	got, err := r.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cash", got.Name)

	got.Name = "mutated after get"
	again, _ := r.Get(c.ID)
	assert.Equal(t, "Cash", again.Name)
}

func TestDeactivate(t *testing.T) {
	r := New()
	a := configdoc.New(configdoc.KindPnL, "Alpha", t0)
	b := configdoc.New(configdoc.KindPnL, "Beta", t0)
	_, _ = r.Save(a)
	_, _ = r.Save(b)

	retired, err := r.Deactivate(a.ID)
	require.NoError(t, err)
	assert.False(t, retired.IsActive)
	assert.Equal(t, 1, retired.Version)

	assert.Len(t, r.List(false), 2)
	active := r.List(true)
	require.Len(t, active, 1)
	assert.Equal(t, "Beta", active[0].Name)

	_, err = r.Save(configdoc.NextVersion(retired, t0))
	assert.ErrorIs(t, err, ErrInactive)

	_, err = r.Deactivate("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupsOfUnknownDocuments(t *testing.T) {
	r := New()
	_, err := r.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.History("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Version("nope", 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Save(nil)
	assert.ErrorIs(t, err, ErrNoConfiguration)
}

func TestServiceSeedsFromDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "acme.yaml"), []byte(`
id: acme-pnl
name: Acme
type: pnl
version: 4
isActive: true
structure:
  periodsRange: B3:C3
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cash.hjson"), []byte(`{
  id: cash-1
  name: Cash
  type: cashflow
  version: 1
  isActive: true
}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("ignored"), 0o644))

	r := NewRegistryService(map[string]interface{}{"seed_dir": dir})
	require.NoError(t, r.Start())
	defer r.Stop()

	assert.Equal(t, "registry", r.Name())
	assert.Equal(t, 2, r.Len())
	acme, err := r.Get("acme-pnl")
	require.NoError(t, err)
	assert.Equal(t, 4, acme.Version)
	assert.Contains(t, acme.Structure.Categories, "revenue")
}

func TestServiceSeedFailsOnBrokenFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"name": `), 0o644))

	r := NewRegistryService(map[string]interface{}{"seed_dir": dir})
	var pe *configdoc.ParseError
	assert.ErrorAs(t, r.Start(), &pe)
}

func TestServiceSeedRejectsInvalidMapping(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dup.yaml"), []byte(`
id: dup
name: Dup
type: pnl
version: 1
isActive: true
structure:
  periodsRange: B3:C3
  periodMapping:
    - {column: B, period: {type: month, year: 2025, month: 3}}
    - {column: C, period: {type: month, year: 2025, month: 3}}
`), 0o644))

	r := NewRegistryService(map[string]interface{}{"seed_dir": dir})
	assert.ErrorIs(t, r.Start(), editor.ErrInvalidMapping)
	assert.Equal(t, 0, r.Len())
}

func TestServiceSeedFitsMappingToRange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wide.yaml"), []byte(`
id: wide
name: Wide
type: pnl
version: 2
isActive: true
structure:
  periodsRange: B3:C3
  periodMapping:
    - {column: B, period: {type: year, year: 2024}}
    - {column: K, period: {type: year, year: 2030}}
`), 0o644))

	r := NewRegistryService(map[string]interface{}{"seed_dir": dir})
	require.NoError(t, r.Start())
	wide, err := r.Get("wide")
	require.NoError(t, err)
	assert.Equal(t, 2, wide.Version)
	assert.Equal(t, []string{"B", "C"}, wide.Structure.PeriodMapping.Columns())
}
