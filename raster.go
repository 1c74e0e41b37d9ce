package mpmprep

import (
	"math"
	"strconv"

	"github.com/DARPA-CRITICALMAAS/mpm-input-preprocessing/log"

	gdal "github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// defaultResampling picks the warp kernel from the pixel type: categorical
// looking integer rasters must not be interpolated.
func defaultResampling(dt DType) string {
	if dt.IsFloat() {
		return "bilinear"
	}
	return "near"
}

// formatRaster normalizes an arbitrary source raster into the pipeline's
// working representation: float32 pixels, NaN sentinel, a CRS present.
func (p *Preprocessor) formatRaster(src, dst, fallbackCRS string) (err error) {
	g, err := p.readGrid(src)
	if err != nil {
		return
	}
	out := Grid{Data: g.masked(), Meta: g.Meta}
	crs := g.Meta.CRS
	if crs == "" {
		log.Warn(p.logTag+"source raster has no CRS, assuming default",
			zap.String("path", src), zap.String("crs", fallbackCRS))
		crs = fallbackCRS
	}
	out.Meta = out.Meta.WithCRS(crs).WithDType(DTFloat32, math.NaN())
	return p.writeGrid(dst, out, false)
}

// warpRaster reprojects src onto dstCRS at the target resolution.
func (p *Preprocessor) warpRaster(src, dst, dstCRS string, resX, resY float64, resampling string) (err error) {
	sds, err := gdal.Open(src, gdal.RasterOnly())
	if err != nil {
		log.Error(p.logTag+"open tif failed", zap.String("path", src), zap.Error(err))
		return ErrInvalidTif
	}
	defer sds.Close()
	if resampling == "" {
		resampling = defaultResampling(gdalToDType(sds.Bands()[0].Structure().DataType))
	}
	switches := []string{
		"-of", "GTiff",
		"-t_srs", dstCRS,
		"-tr", formatFloat(resX), formatFloat(resY),
		"-r", resampling,
		"-dstnodata", "nan",
		"-overwrite",
	}
	ods, err := gdal.Warp(dst, []*gdal.Dataset{sds}, switches)
	if err != nil {
		log.Error(p.logTag+"warp raster failed", zap.String("src", src), zap.Error(err))
		return
	}
	return ods.Close()
}

// clipRaster crops src to the AOI polygon, masking pixels outside it.
func (p *Preprocessor) clipRaster(src, dst, aoiWkt string, aoiSrid int) (err error) {
	cutline, cleanup, err := p.aoiToGeoJSON(aoiWkt, aoiSrid)
	if err != nil {
		return
	}
	defer cleanup()
	sds, err := gdal.Open(src, gdal.RasterOnly())
	if err != nil {
		log.Error(p.logTag+"open tif failed", zap.String("path", src), zap.Error(err))
		return ErrInvalidTif
	}
	defer sds.Close()
	switches := []string{
		"-of", "GTiff",
		"-cutline", cutline,
		"-crop_to_cutline",
		"-overwrite",
	}
	ods, err := gdal.Warp(dst, []*gdal.Dataset{sds}, switches)
	if err != nil {
		log.Error(p.logTag+"clip raster failed", zap.String("src", src), zap.Error(err))
		return
	}
	return ods.Close()
}

// alignRaster coregisters src onto the template's exact grid: same CRS, same
// extent, same pixel lattice, so stacked layers line up cell for cell.
func (p *Preprocessor) alignRaster(src, dst, template, resampling string) (err error) {
	ref, err := p.readGridMeta(template)
	if err != nil {
		return
	}
	sds, err := gdal.Open(src, gdal.RasterOnly())
	if err != nil {
		log.Error(p.logTag+"open tif failed", zap.String("path", src), zap.Error(err))
		return ErrInvalidTif
	}
	defer sds.Close()
	if resampling == "" {
		resampling = defaultResampling(gdalToDType(sds.Bands()[0].Structure().DataType))
	}
	minX, minY, maxX, maxY := ref.Bounds()
	switches := []string{
		"-of", "GTiff",
		"-t_srs", ref.CRS,
		"-te", formatFloat(minX), formatFloat(minY), formatFloat(maxX), formatFloat(maxY),
		"-ts", strconv.Itoa(ref.Width), strconv.Itoa(ref.Height),
		"-r", resampling,
		"-overwrite",
	}
	ods, err := gdal.Warp(dst, []*gdal.Dataset{sds}, switches)
	if err != nil {
		log.Error(p.logTag+"align raster failed", zap.String("src", src), zap.Error(err))
		return
	}
	return ods.Close()
}

// fillDilate interpolates nodata gaps outward up to size pixels. For label
// rasters the filled-in background is reset to zero afterwards so the gap
// fill never invents positive labels. compat selects the legacy-viewer write
// mode for the destination.
func (p *Preprocessor) fillDilate(src, dst string, size, smooth int, label, compat bool) (err error) {
	before, err := p.readGrid(src)
	if err != nil {
		return
	}
	if err = p.writeGrid(dst, before, compat); err != nil {
		return
	}
	ds, err := gdal.Open(dst, gdal.RasterOnly(), gdal.Update())
	if err != nil {
		log.Error(p.logTag+"open tif for update failed", zap.String("path", dst), zap.Error(err))
		return ErrInvalidTif
	}
	err = ds.Bands()[0].FillNoData(gdal.MaxDistance(size), gdal.SmoothingIterations(smooth))
	if cerr := ds.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Error(p.logTag+"fill nodata failed", zap.String("path", dst), zap.Error(err))
		return
	}
	if !label {
		return
	}
	filled, err := p.readGrid(dst)
	if err != nil {
		return
	}
	return p.writeGrid(dst, resetLabelBackground(filled, before), compat)
}

// resetLabelBackground zeroes every cell that was nodata before the gap fill
// and finite after it.
func resetLabelBackground(filled, before Grid) Grid {
	out := filled.clone()
	for i, v := range out.Data {
		if before.Meta.isNoData(before.Data[i]) && !filled.Meta.isNoData(v) {
			out.Data[i] = 0
		}
	}
	return out
}
