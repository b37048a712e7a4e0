package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContent(t *testing.T) {
	sh := FromContent("fn main() {}")
	assert.Equal(t, "fn main() {}", sh.Content())
	assert.Equal(t, "", sh.Name())

	sh.SetName("main.wgsl")
	assert.Equal(t, "main.wgsl", sh.Name())
}

func TestFromFile(t *testing.T) {
	sh, err := FromFile("testdata/add_one.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "add_one.wgsl", sh.Name())
	assert.Contains(t, sh.Content(), "fn add_one")
}

func TestFromFileMissing(t *testing.T) {
	_, err := FromFile("testdata/no_such_file.wgsl")
	require.Error(t, err)
}

func TestReplaceResolvesPlaceholders(t *testing.T) {
	sh := FromContent(`var<workgroup> tile: array<f32, _TILE_>;
fn scale(x: f32) -> f32 { return x * _FACTOR_; }`)

	sh.Replace("_TILE_", "64")
	sh.Replace("_FACTOR_", "2.0")

	assert.Contains(t, sh.Content(), "array<f32, 64>")
	assert.Contains(t, sh.Content(), "x * 2.0")
	assert.NotContains(t, sh.Content(), "_TILE_")
}

func TestEqualIsContentEquality(t *testing.T) {
	a := FromContent("fn main() {}")
	b := FromContent("fn main() {}")
	c := FromContent("fn other() {}")

	assert.True(t, a.Equal(b))
	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(c))

	// Names do not enter the comparison.
	b.SetName("renamed.wgsl")
	assert.True(t, a.Equal(b))

	var nilShader *Shader
	assert.False(t, a.Equal(nilShader))
	assert.True(t, nilShader.Equal(nil))
}

func TestValidate(t *testing.T) {
	sh, err := FromFile("testdata/add_one.wgsl")
	require.NoError(t, err)
	require.NoError(t, sh.Validate())
}

func TestValidateRejectsMalformedSource(t *testing.T) {
	sh := FromContent("this is not wgsl")
	sh.SetName("broken.wgsl")
	err := sh.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.wgsl")
}

func TestValidateRejectsUnresolvedPlaceholder(t *testing.T) {
	sh := FromContent(`var<workgroup> tile: array<f32, _TILE_>;
@compute @workgroup_size(1)
fn noop() {}`)
	require.Error(t, sh.Validate())

	sh.Replace("_TILE_", "64")
	require.NoError(t, sh.Validate())
}
