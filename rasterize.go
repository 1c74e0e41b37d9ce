package mpmprep

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/DARPA-CRITICALMAAS/mpm-input-preprocessing/log"
	"github.com/DARPA-CRITICALMAAS/mpm-input-preprocessing/utils"

	gdal "github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

type rasterizeOptions struct {
	Burn      *float64 // fixed burn value, exclusive with Attribute
	Attribute string   // numeric column supplying per-feature values
	Where     string   // optional attribute filter
	Init      float64
	NoData    float64
	DT        DType
	ResX      float64
	ResY      float64
}

// rasterizeVector burns a shapefile onto a fresh grid at the given
// resolution, leaving georeferencing to the source layer's extent.
func (p *Preprocessor) rasterizeVector(shp, out string, o rasterizeOptions) (err error) {
	vds, err := gdal.Open(shp, gdal.VectorOnly())
	if err != nil {
		log.Error(p.logTag+"open shp failed", zap.String("shp", shp), zap.Error(err))
		return ErrGdalDriverOpen
	}
	defer vds.Close()
	switches := []string{
		"-of", "GTiff",
		"-tr", formatFloat(o.ResX), formatFloat(o.ResY),
		"-init", formatFloat(o.Init),
		"-a_nodata", formatFloat(o.NoData),
		"-ot", dtypeGdalName(o.DT),
		"-co", "COMPRESS=LZW",
	}
	if o.Attribute != "" {
		switches = append(switches, "-a", o.Attribute)
	} else if o.Burn != nil {
		switches = append(switches, "-burn", formatFloat(*o.Burn))
	} else {
		return ErrConfiguration
	}
	if o.Where != "" {
		switches = append(switches, "-where", o.Where)
	}
	ods, err := vds.Rasterize(out, switches)
	if err != nil {
		log.Error(p.logTag+"rasterize failed", zap.String("shp", shp), zap.Error(err))
		return
	}
	return ods.Close()
}

// rasterizeBinary burns feature presence at a fixed value over a NaN
// background. Used both for proximity seeds and plain presence layers.
func (p *Preprocessor) rasterizeBinary(shp, out string, burn, resX, resY float64) error {
	vds, err := gdal.Open(shp, gdal.VectorOnly())
	if err != nil {
		log.Error(p.logTag+"open shp failed", zap.String("shp", shp), zap.Error(err))
		return ErrGdalDriverOpen
	}
	defer vds.Close()
	switches := []string{
		"-of", "GTiff",
		"-tr", formatFloat(resX), formatFloat(resY),
		"-burn", formatFloat(burn),
		"-init", "nan",
		"-a_nodata", "nan",
		"-ot", "Float32",
		"-co", "COMPRESS=LZW",
	}
	ods, err := vds.Rasterize(out, switches)
	if err != nil {
		log.Error(p.logTag+"rasterize failed", zap.String("shp", shp), zap.Error(err))
		return err
	}
	return ods.Close()
}

// rasterizeLabel burns deposit presence as 1 over a 0 background, keeping
// NaN for cells the layer never covered.
func (p *Preprocessor) rasterizeLabel(shp, out string, resX, resY float64) error {
	vds, err := gdal.Open(shp, gdal.VectorOnly())
	if err != nil {
		log.Error(p.logTag+"open shp failed", zap.String("shp", shp), zap.Error(err))
		return ErrGdalDriverOpen
	}
	defer vds.Close()
	switches := []string{
		"-of", "GTiff",
		"-tr", formatFloat(resX), formatFloat(resY),
		"-burn", formatFloat(DefaultBurnValue),
		"-init", "0",
		"-a_nodata", "nan",
		"-ot", "Float32",
		"-co", "COMPRESS=LZW",
	}
	ods, err := vds.Rasterize(out, switches)
	if err != nil {
		log.Error(p.logTag+"rasterize failed", zap.String("shp", shp), zap.Error(err))
		return err
	}
	return ods.Close()
}

// rasterizeAttribute burns a numeric column, sizing the pixel type and the
// sentinel from the values actually present in it.
func (p *Preprocessor) rasterizeAttribute(shp, out, column string, resX, resY float64) (nodata float64, err error) {
	values, err := p.readAttributeValues(shp, column)
	if err != nil {
		return
	}
	_, nodata, fill, dt, err := InitializeForRasterization(values, nil, nil)
	if err != nil {
		return
	}
	err = p.rasterizeVector(shp, out, rasterizeOptions{
		Attribute: column,
		Init:      fill,
		NoData:    nodata,
		DT:        dt,
		ResX:      resX,
		ResY:      resY,
	})
	return
}

// rasterizeCategorical fans a text column out into one presence raster per
// distinct value, named <base>_<column>_<value>.
func (p *Preprocessor) rasterizeCategorical(shp, outDir, base, column string, resX, resY float64) (outs []string, err error) {
	classes, err := p.distinctValues(shp, column)
	if err != nil {
		return
	}
	log.Info(p.logTag+"one-hot rasterize", zap.String("column", column), zap.Int("classes", len(classes)))
	zero := 0.0
	_, nodata, fill, dt, err := InitializeForRasterization([]float64{DefaultBurnValue}, nil, &zero)
	if err != nil {
		return
	}
	one := DefaultBurnValue
	for _, class := range classes {
		out := filepath.Join(outDir, fmt.Sprintf("%s_%s_%s%s", base, column, sanitizeToken(class), FILE_EXT_TIF))
		err = p.rasterizeVector(shp, out, rasterizeOptions{
			Burn:   &one,
			Where:  fmt.Sprintf("\"%s\" = '%s'", column, strings.ReplaceAll(class, "'", "''")),
			Init:   fill,
			NoData: nodata,
			DT:     dt,
			ResX:   resX,
			ResY:   resY,
		})
		if err != nil {
			return
		}
		outs = append(outs, out)
	}
	return
}

// sanitizeToken makes an attribute value safe for use in a file name.
func sanitizeToken(s string) string {
	s = utils.PurifyForUtf8(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
