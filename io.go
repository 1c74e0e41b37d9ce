package mpmprep

import (
	"math"
	"strconv"
	"strings"

	"github.com/DARPA-CRITICALMAAS/mpm-input-preprocessing/log"

	gdal "github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

func dtypeToGdal(dt DType) gdal.DataType {
	switch dt {
	case DTUint8:
		return gdal.Byte
	case DTInt8, DTInt16:
		// GTiff has no plain signed byte; int8 is stored widened
		return gdal.Int16
	case DTUint16:
		return gdal.UInt16
	case DTUint32:
		return gdal.UInt32
	case DTInt32:
		return gdal.Int32
	case DTFloat32:
		return gdal.Float32
	default:
		return gdal.Float64
	}
}

func gdalToDType(dt gdal.DataType) DType {
	switch dt {
	case gdal.Byte:
		return DTUint8
	case gdal.Int16:
		return DTInt16
	case gdal.UInt16:
		return DTUint16
	case gdal.Int32:
		return DTInt32
	case gdal.UInt32:
		return DTUint32
	case gdal.Float32:
		return DTFloat32
	default:
		return DTFloat64
	}
}

func dtypeGdalName(dt DType) string {
	switch dtypeToGdal(dt) {
	case gdal.Byte:
		return "Byte"
	case gdal.Int16:
		return "Int16"
	case gdal.UInt16:
		return "UInt16"
	case gdal.Int32:
		return "Int32"
	case gdal.UInt32:
		return "UInt32"
	case gdal.Float32:
		return "Float32"
	default:
		return "Float64"
	}
}

// readGrid loads the first band of a raster into a float64-backed grid.
func (p *Preprocessor) readGrid(path string) (g Grid, err error) {
	sds, err := gdal.Open(path, gdal.RasterOnly())
	if err != nil {
		log.Error(p.logTag+"open tif failed", zap.String("path", path), zap.Error(err))
		err = ErrInvalidTif
		return
	}
	defer sds.Close()
	bands := sds.Bands()
	if len(bands) == 0 {
		err = ErrInvalidTif
		return
	}
	band := bands[0]
	st := band.Structure()
	buf := make([]float64, st.SizeX*st.SizeY)
	if err = band.IO(gdal.IORead, 0, 0, buf, st.SizeX, st.SizeY); err != nil {
		log.Error(p.logTag+"read tif band failed", zap.String("path", path), zap.Error(err))
		err = ErrTifReadFailed
		return
	}
	gt, _ := sds.GeoTransform()
	nodata := math.NaN()
	if nd, ok := band.NoData(); ok {
		nodata = nd
	}
	crs := ""
	if sr := sds.SpatialRef(); sr != nil {
		crs, _ = sr.WKT()
	}
	g = Grid{
		Data: buf,
		Meta: Meta{
			CRS:       crs,
			Transform: gt,
			Width:     st.SizeX,
			Height:    st.SizeY,
			DType:     gdalToDType(st.DataType),
			NoData:    nodata,
		},
	}
	return
}

// writeGrid materializes a grid as a tiled, LZW-compressed GTiff. With
// compat set, int8 grids are widened to int16 and the sentinel moved to the
// type minimum so legacy viewers read them correctly.
func (p *Preprocessor) writeGrid(path string, g Grid, compat bool) (err error) {
	dt := g.Meta.DType
	if dt == DTUnknown {
		dt = DTFloat64
	}
	nodata := g.Meta.NoData
	data := g.Data
	if compat && dt == DTInt8 {
		dt = DTInt16
		widened, _ := dt.Range()
		data = make([]float64, len(g.Data))
		for i, v := range g.Data {
			if g.Meta.isNoData(v) {
				data[i] = widened
			} else {
				data[i] = v
			}
		}
		nodata = widened
	}
	ds, err := gdal.Create(gdal.GTiff, path, 1, dtypeToGdal(dt), g.Meta.Width, g.Meta.Height,
		gdal.CreationOption("COMPRESS=LZW", "TILED=YES"))
	if err != nil {
		log.Error(p.logTag+"create tif failed", zap.String("path", path), zap.Error(err))
		err = ErrGdalDriverCreate
		return
	}
	defer ds.Close()
	if err = ds.SetGeoTransform(g.Meta.Transform); err != nil {
		return
	}
	if g.Meta.CRS != "" {
		var sr *gdal.SpatialRef
		if sr, err = parseSpatialRef(g.Meta.CRS); err != nil {
			return
		}
		defer sr.Close()
		if err = ds.SetSpatialRef(sr); err != nil {
			return
		}
	}
	band := ds.Bands()[0]
	if err = band.SetNoData(nodata); err != nil {
		return
	}
	if err = band.IO(gdal.IOWrite, 0, 0, data, g.Meta.Width, g.Meta.Height); err != nil {
		log.Error(p.logTag+"write tif band failed", zap.String("path", path), zap.Error(err))
		err = ErrTifWriteFailed
	}
	return
}

// parseSpatialRef accepts either an authority code ("EPSG:4326") or WKT.
func parseSpatialRef(crs string) (*gdal.SpatialRef, error) {
	if code, ok := strings.CutPrefix(crs, "EPSG:"); ok {
		epsg, err := strconv.Atoi(code)
		if err != nil {
			return nil, ErrInvalidWKT
		}
		return gdal.NewSpatialRefFromEPSG(epsg)
	}
	return gdal.NewSpatialRefFromWKT(crs)
}

// readGridMeta opens a raster just for its spatial metadata.
func (p *Preprocessor) readGridMeta(path string) (m Meta, err error) {
	sds, err := gdal.Open(path, gdal.RasterOnly())
	if err != nil {
		log.Error(p.logTag+"open tif failed", zap.String("path", path), zap.Error(err))
		err = ErrInvalidTif
		return
	}
	defer sds.Close()
	bands := sds.Bands()
	if len(bands) == 0 {
		err = ErrInvalidTif
		return
	}
	st := bands[0].Structure()
	gt, _ := sds.GeoTransform()
	nodata := math.NaN()
	if nd, ok := bands[0].NoData(); ok {
		nodata = nd
	}
	crs := ""
	if sr := sds.SpatialRef(); sr != nil {
		crs, _ = sr.WKT()
	}
	m = Meta{
		CRS:       crs,
		Transform: gt,
		Width:     st.SizeX,
		Height:    st.SizeY,
		DType:     gdalToDType(st.DataType),
		NoData:    nodata,
	}
	return
}
