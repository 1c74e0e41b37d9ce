package mpmprep

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LayerKind tells the orchestrator which stage sequence a layer takes.
type LayerKind uint8

const (
	LayerRaster LayerKind = iota + 1
	LayerVector
)

// LayerCategory refines the vector sequences: continuous and categorical
// evidence go through the statistics block, labels do not.
type LayerCategory uint8

const (
	CategoryContinuous LayerCategory = iota + 1
	CategoryCategorical
	CategoryLabel
)

// TransformMethod is the optional algebraic transform applied after scaling.
type TransformMethod uint8

const (
	TransformLog TransformMethod = iota + 1
	TransformLog1p
	TransformAbs
	TransformSqrt
	TransformMinMax
	TransformStd
)

// ImputeMethod replaces nodata cells with a population statistic.
type ImputeMethod uint8

const (
	ImputeMin ImputeMethod = iota + 1
	ImputeMax
	ImputeMean
	ImputeMedian
	ImputeZero
	ImputeCustom
)

// ScalingMethod fits over the full finite population of the array.
type ScalingMethod uint8

const (
	ScaleStandard ScalingMethod = iota + 1
	ScaleMinMax
	ScaleMaxAbs
)

func (k LayerKind) String() string {
	switch k {
	case LayerRaster:
		return "raster"
	case LayerVector:
		return "vector"
	}
	return "unknown"
}

func (c LayerCategory) String() string {
	switch c {
	case CategoryContinuous:
		return "continuous"
	case CategoryCategorical:
		return "categorical"
	case CategoryLabel:
		return "label"
	}
	return "unknown"
}

func (t TransformMethod) String() string {
	switch t {
	case TransformLog:
		return "log"
	case TransformLog1p:
		return "log1p"
	case TransformAbs:
		return "abs"
	case TransformSqrt:
		return "sqrt"
	case TransformMinMax:
		return "minmax"
	case TransformStd:
		return "std"
	}
	return "unknown"
}

func (m ImputeMethod) String() string {
	switch m {
	case ImputeMin:
		return "min"
	case ImputeMax:
		return "max"
	case ImputeMean:
		return "mean"
	case ImputeMedian:
		return "median"
	case ImputeZero:
		return "zero"
	case ImputeCustom:
		return "custom"
	}
	return "unknown"
}

func (s ScalingMethod) String() string {
	switch s {
	case ScaleStandard:
		return "standard"
	case ScaleMinMax:
		return "minmax"
	case ScaleMaxAbs:
		return "maxabs"
	}
	return "unknown"
}

func (k *LayerKind) UnmarshalYAML(node *yaml.Node) error {
	switch node.Value {
	case "raster":
		*k = LayerRaster
	case "vector":
		*k = LayerVector
	default:
		return fmt.Errorf("%w: unknown layer kind %q", ErrConfiguration, node.Value)
	}
	return nil
}

func (c *LayerCategory) UnmarshalYAML(node *yaml.Node) error {
	switch node.Value {
	case "continuous":
		*c = CategoryContinuous
	case "categorical":
		*c = CategoryCategorical
	case "label":
		*c = CategoryLabel
	default:
		return fmt.Errorf("%w: unknown layer category %q", ErrConfiguration, node.Value)
	}
	return nil
}

func (t *TransformMethod) UnmarshalYAML(node *yaml.Node) error {
	switch node.Value {
	case "log":
		*t = TransformLog
	case "log1p":
		*t = TransformLog1p
	case "abs":
		*t = TransformAbs
	case "sqrt":
		*t = TransformSqrt
	case "minmax":
		*t = TransformMinMax
	case "std":
		*t = TransformStd
	default:
		return fmt.Errorf("%w: unknown transform method %q", ErrConfiguration, node.Value)
	}
	return nil
}

func (m *ImputeMethod) UnmarshalYAML(node *yaml.Node) error {
	switch node.Value {
	case "min":
		*m = ImputeMin
	case "max":
		*m = ImputeMax
	case "mean":
		*m = ImputeMean
	case "median":
		*m = ImputeMedian
	case "zero":
		*m = ImputeZero
	case "custom":
		*m = ImputeCustom
	default:
		return fmt.Errorf("%w: unknown impute method %q", ErrConfiguration, node.Value)
	}
	return nil
}

func (s *ScalingMethod) UnmarshalYAML(node *yaml.Node) error {
	switch node.Value {
	case "standard":
		*s = ScaleStandard
	case "minmax":
		*s = ScaleMinMax
	case "maxabs":
		*s = ScaleMaxAbs
	default:
		return fmt.Errorf("%w: unknown scaling method %q", ErrConfiguration, node.Value)
	}
	return nil
}

// ImputeSpec selects an imputation method; a custom method carries its value,
// the window size bounds the gap-fill search distance.
type ImputeSpec struct {
	Method      ImputeMethod `yaml:"method"`
	WindowSize  int          `yaml:"window_size"`
	CustomValue *float64     `yaml:"custom_value"`
}

// ScalingSpec selects a scaler; Min/Max only apply to minmax scaling.
type ScalingSpec struct {
	Method ScalingMethod `yaml:"method"`
	Min    *float64      `yaml:"min"`
	Max    *float64      `yaml:"max"`
}

// MethodSpec is one entry of a layer's transform-method list. Exactly one of
// its fields must be set.
type MethodSpec struct {
	Transform *TransformMethod `yaml:"transform"`
	Impute    *ImputeSpec      `yaml:"impute"`
	Scaling   *ScalingSpec     `yaml:"scaling"`
}

// Layer describes one evidence layer: where its source lives and which stage
// parameters apply. It carries no transport concerns.
type Layer struct {
	Title            string        `yaml:"title"`
	Kind             LayerKind     `yaml:"kind"`
	Category         LayerCategory `yaml:"category"`
	File             string        `yaml:"file"`
	Column           string        `yaml:"column"`
	Proximity        bool          `yaml:"proximity"`
	BurnValue        *float64      `yaml:"burn_value"`
	TransformMethods []MethodSpec  `yaml:"transform_methods"`
}

// StageConfig is the resolved per-layer stage selection: at most one method
// per category.
type StageConfig struct {
	Transform *TransformMethod
	Impute    *ImputeSpec
	Scaling   ScalingSpec
}

// StageConfig validates and collapses the layer's transform-method list.
// A list naming more than one method of a category is rejected before any
// stage runs.
func (l Layer) StageConfig() (cfg StageConfig, err error) {
	cfg.Scaling = ScalingSpec{Method: ScaleStandard}
	scalingSet := false
	for _, m := range l.TransformMethods {
		set := 0
		if m.Transform != nil {
			set++
			if cfg.Transform != nil {
				return cfg, fmt.Errorf("%w: more than one transform method", ErrConfiguration)
			}
			cfg.Transform = m.Transform
		}
		if m.Impute != nil {
			set++
			if cfg.Impute != nil {
				return cfg, fmt.Errorf("%w: more than one impute method", ErrConfiguration)
			}
			if m.Impute.Method == ImputeCustom && m.Impute.CustomValue == nil {
				return cfg, fmt.Errorf("%w: custom impute without custom_value", ErrConfiguration)
			}
			cfg.Impute = m.Impute
		}
		if m.Scaling != nil {
			set++
			if scalingSet {
				return cfg, fmt.Errorf("%w: more than one scaling method", ErrConfiguration)
			}
			scalingSet = true
			cfg.Scaling = *m.Scaling
		}
		if set != 1 {
			return cfg, fmt.Errorf("%w: transform-method entry must set exactly one method", ErrConfiguration)
		}
	}
	if cfg.Scaling.Method == ScaleMinMax {
		min, max := DefaultScaleMin, DefaultScaleMax
		if cfg.Scaling.Min != nil {
			min = *cfg.Scaling.Min
		}
		if cfg.Scaling.Max != nil {
			max = *cfg.Scaling.Max
		}
		if min >= max {
			return cfg, fmt.Errorf("%w: minmax scaling needs min < max", ErrConfiguration)
		}
	}
	return cfg, nil
}

// LoadLayers reads a YAML list of layer descriptors.
func LoadLayers(path string) (layers []Layer, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return
	}
	err = yaml.Unmarshal(raw, &layers)
	return
}
