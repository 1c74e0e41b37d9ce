package mpmprep

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const layersYaml = `
- title: geology
  kind: vector
  category: categorical
  file: geology.zip
  column: lith_class
- title: magnetics
  kind: raster
  category: continuous
  file: mag.tif
  transform_methods:
    - impute:
        method: mean
    - scaling:
        method: minmax
        min: 0
        max: 1
    - transform: log1p
- title: deposits
  kind: vector
  category: label
  file: deposits.zip
`

func TestLoadLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(layersYaml), 0o644))

	layers, err := LoadLayers(path)
	require.NoError(t, err)
	require.Len(t, layers, 3)
	require.Equal(t, LayerVector, layers[0].Kind)
	require.Equal(t, CategoryCategorical, layers[0].Category)
	require.Equal(t, "lith_class", layers[0].Column)

	cfg, err := layers[1].StageConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg.Impute)
	require.Equal(t, ImputeMean, cfg.Impute.Method)
	require.Equal(t, ScaleMinMax, cfg.Scaling.Method)
	require.NotNil(t, cfg.Transform)
	require.Equal(t, TransformLog1p, *cfg.Transform)

	require.Equal(t, CategoryLabel, layers[2].Category)
}

func TestUnmarshalUnknownEnum(t *testing.T) {
	var layers []Layer
	err := yaml.Unmarshal([]byte("- kind: tabular\n"), &layers)
	require.ErrorIs(t, err, ErrConfiguration)

	err = yaml.Unmarshal([]byte("- transform_methods:\n    - transform: exp\n"), &layers)
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestStageConfigDefaults(t *testing.T) {
	cfg, err := Layer{}.StageConfig()
	require.NoError(t, err)
	require.Equal(t, ScaleStandard, cfg.Scaling.Method)
	require.Nil(t, cfg.Transform)
	require.Nil(t, cfg.Impute)
}

func TestStageConfigRejectsDuplicates(t *testing.T) {
	logT, absT := TransformLog, TransformAbs
	l := Layer{TransformMethods: []MethodSpec{
		{Transform: &logT},
		{Transform: &absT},
	}}
	_, err := l.StageConfig()
	require.ErrorIs(t, err, ErrConfiguration)

	l = Layer{TransformMethods: []MethodSpec{
		{Impute: &ImputeSpec{Method: ImputeMean}},
		{Impute: &ImputeSpec{Method: ImputeZero}},
	}}
	_, err = l.StageConfig()
	require.ErrorIs(t, err, ErrConfiguration)

	l = Layer{TransformMethods: []MethodSpec{
		{Scaling: &ScalingSpec{Method: ScaleMaxAbs}},
		{Scaling: &ScalingSpec{Method: ScaleStandard}},
	}}
	_, err = l.StageConfig()
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestStageConfigRejectsAmbiguousEntry(t *testing.T) {
	logT := TransformLog
	l := Layer{TransformMethods: []MethodSpec{
		{Transform: &logT, Impute: &ImputeSpec{Method: ImputeMean}},
	}}
	_, err := l.StageConfig()
	require.ErrorIs(t, err, ErrConfiguration)

	l = Layer{TransformMethods: []MethodSpec{{}}}
	_, err = l.StageConfig()
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestStageConfigCustomImputeNeedsValue(t *testing.T) {
	l := Layer{TransformMethods: []MethodSpec{
		{Impute: &ImputeSpec{Method: ImputeCustom}},
	}}
	_, err := l.StageConfig()
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestStageConfigMinMaxBounds(t *testing.T) {
	lo, hi := 1.0, 1.0
	l := Layer{TransformMethods: []MethodSpec{
		{Scaling: &ScalingSpec{Method: ScaleMinMax, Min: &lo, Max: &hi}},
	}}
	_, err := l.StageConfig()
	require.ErrorIs(t, err, ErrConfiguration)
}
