package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioimagesuiteweb/bisweb-sub000/engine"
	"github.com/bioimagesuiteweb/bisweb-sub000/internal/refengine"
	"github.com/bioimagesuiteweb/bisweb-sub000/protocol"
	"github.com/bioimagesuiteweb/bisweb-sub000/snapshot"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		engine.SetLogger(nil)
		snapshot.SetLogger(nil)
	})
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "bisweb v"+Version+"\n", out)
}

func TestSampleAndInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.bisb")
	out, err := execute(t, "sample", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	out, err = execute(t, "inspect", path)
	require.NoError(t, err)
	for _, want := range []string{
		"magic 20001/20002/20003/20004/20005/20006",
		"Collection (5 items)",
		"  item[0]: Image float32[16 16 4]",
		"  item[1]: Matrix float64[3x4]",
		"  item[2]: Vector int32[6]",
		"  item[3]: GridTransform 4x4x4",
		"  item[4]: ComboTransform (2 grids)",
		"    linear: LinearTransform 4x4  (88 bytes)",
		"    grid[1]: GridTransform 4x4x4",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "spacing")

	out, err = execute(t, "inspect", "--verbose", path)
	require.NoError(t, err)
	assert.Contains(t, out, "spacing [0.9 0.9 2.5 1 1]")
	assert.Contains(t, out, "64 control points, bspline interpolation")
	assert.Contains(t, out, "first [0 1 1 2 3 5]")
}

func TestInspectMissingFile(t *testing.T) {
	_, err := execute(t, "inspect", filepath.Join(t.TempDir(), "nope.bisb"))
	assert.Error(t, err)
}

func TestSampleFlagsAndConfig(t *testing.T) {
	dir := t.TempDir()

	header := func(path string) *snapshot.Header {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		h, err := snapshot.ReadHeader(data)
		require.NoError(t, err)
		return h
	}

	plain := filepath.Join(dir, "plain.bisb")
	_, err := execute(t, "sample", "--compress=false", "--large", plain)
	require.NoError(t, err)
	h := header(plain)
	assert.Zero(t, h.Flags&snapshot.FlagZstd)
	assert.NotZero(t, h.Flags&snapshot.FlagLarge)

	cfg := filepath.Join(dir, "bisweb.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("compress: false\n"), 0o600))
	fromConfig := filepath.Join(dir, "config.bisb")
	_, err = execute(t, "sample", "--config", cfg, fromConfig)
	require.NoError(t, err)
	assert.Zero(t, header(fromConfig).Flags&snapshot.FlagZstd)

	t.Setenv("BISWEB_COMPRESS", "false")
	fromEnv := filepath.Join(dir, "env.bisb")
	_, err = execute(t, "sample", fromEnv)
	require.NoError(t, err)
	assert.Zero(t, header(fromEnv).Flags&snapshot.FlagZstd)

	// The large-object sample still reads back.
	_, ent, err := snapshot.Open(plain)
	require.NoError(t, err)
	assert.True(t, protocol.Equal(protocol.NewCollection(sampleEntities()...), ent))
}

func TestLogLevelFromEnv(t *testing.T) {
	t.Setenv("BISWEB_LOG_LEVEL", "loud")
	_, err := execute(t, "version")
	assert.ErrorContains(t, err, "log level")
}

func TestSelftest(t *testing.T) {
	out, err := execute(t, "selftest", "--metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "magic Vector          20001")
	assert.Contains(t, out, "type  float32         16")
	for _, k := range protocol.Kinds {
		assert.Contains(t, out, "ok   "+k.String()+"\n")
	}
	assert.NotContains(t, out, "FAIL")
	assert.Contains(t, out, `bisweb_engine_calls_total{function="duplicateObject"} 6`)
}

func TestSelftestEngineFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "ref.wasm")
	require.NoError(t, os.WriteFile(good, refengine.Module(), 0o600))
	_, err := execute(t, "selftest", "--engine", good, "--wasi=false")
	require.NoError(t, err)

	out, err := execute(t, "selftest", "--engine", good, "--function", "nullObject")
	assert.ErrorContains(t, err, "6 of 6 round trips failed")
	assert.Contains(t, out, "FAIL Vector")

	bad := filepath.Join(dir, "bad.wasm")
	require.NoError(t, os.WriteFile(bad, []byte("junk"), 0o600))
	_, err = execute(t, "selftest", "--engine", bad)
	assert.Error(t, err)
}

func TestInspectModel(t *testing.T) {
	reg, err := refengine.Registry()
	require.NoError(t, err)
	root := describe(protocol.NewEncoder(reg, protocol.EncodeOptions{}), "", protocol.NewCollection(sampleEntities()...))

	m := newInspectModel("sample.bisb", root)
	// Collection, five items, linear and two grids under the combo.
	require.Len(t, m.rows, 9)

	press := func(key tea.KeyMsg) {
		_, _ = m.Update(key)
	}
	press(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.selected)

	for i := 0; i < 5; i++ {
		press(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	}
	require.Equal(t, "item[4]: ComboTransform (2 grids)", m.rows[m.selected].node.label)

	press(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Len(t, m.rows, 6)
	assert.Contains(t, m.View(), "▸ item[4]")

	press(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Len(t, m.rows, 9)

	// Leaves do not fold.
	press(tea.KeyMsg{Type: tea.KeyDown})
	press(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Len(t, m.rows, 9)
	assert.Contains(t, m.View(), "1.000    0.000")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestWrapString(t *testing.T) {
	got := wrapString("Engine memory limit in 64KiB pages (0 for the default) which is quite long")
	for _, line := range bytes.Split([]byte(got), []byte("\n")) {
		assert.LessOrEqual(t, len(line), wrap)
	}
}
