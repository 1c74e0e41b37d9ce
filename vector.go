package mpmprep

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/DARPA-CRITICALMAAS/mpm-input-preprocessing/log"
	"github.com/DARPA-CRITICALMAAS/mpm-input-preprocessing/utils"

	"github.com/google/uuid"
	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

// 由GDAL库C语言创建的内存对象，需要手动调用Destroy回收
type destroyable interface {
	Destroy()
}

// GeometryKind is the uniform geometry family of a vector layer.
type GeometryKind int

const (
	GeomUnknown GeometryKind = iota
	GeomPoint
	GeomLine
	GeomPolygon
)

func (k GeometryKind) String() string {
	switch k {
	case GeomPoint:
		return "point"
	case GeomLine:
		return "line"
	case GeomPolygon:
		return "polygon"
	default:
		return "unknown"
	}
}

func geometryKindOf(gt gdal.GeometryType) GeometryKind {
	switch gt {
	case gdal.GT_Point, gdal.GT_MultiPoint, gdal.GT_Point25D, gdal.GT_MultiPoint25D:
		return GeomPoint
	case gdal.GT_LineString, gdal.GT_MultiLineString, gdal.GT_LineString25D, gdal.GT_MultiLineString25D:
		return GeomLine
	case gdal.GT_Polygon, gdal.GT_MultiPolygon, gdal.GT_Polygon25D, gdal.GT_MultiPolygon25D:
		return GeomPolygon
	default:
		return GeomUnknown
	}
}

// 获取srid对应的坐标系（可复用，故无需回收）
func (p *Preprocessor) getSridRef(srid int) (ref gdal.SpatialReference, err error) {
	p.rLock.Lock()
	defer p.rLock.Unlock()
	ref, ok := p.refMap[srid]
	if ok {
		return
	}
	ref = gdal.CreateSpatialReference("")
	if err = ref.FromEPSG(srid); err != nil {
		log.Error(p.logTag+"set ref srid failed", zap.Int("srid", srid), zap.Error(err))
		ref.Destroy()
		return
	}
	// 固定数据轴次序为(经度,纬度)，避免转GeoJSON时次序倒置
	ref.SetAxisMappingStrategy(gdal.OAMS_TraditionalGisOrder)
	p.refMap[srid] = ref
	return
}

func (p *Preprocessor) parseWKT(wkt string, ref gdal.SpatialReference) (ret gdal.Geometry, err error) {
	ret, err = gdal.CreateFromWKT(wkt, ref)
	if err != nil {
		log.Error(p.logTag+"parse wkt failed", zap.Error(err))
		err = ErrInvalidWKT
	}
	return
}

func (p *Preprocessor) getSrid(sp gdal.SpatialReference) (srid int, err error) {
	rawId, ok := sp.AttrValue("AUTHORITY", 1)
	if !ok {
		err = ErrVoidSrid
		return
	}
	srid, err = strconv.Atoi(rawId)
	return
}

// GetSridOfShapefile reports the EPSG code of a shapefile's layer SRS.
func (p *Preprocessor) GetSridOfShapefile(shp string) (srid int, err error) {
	driver := gdal.OGRDriverByName(SHP_DRIVER_NAME)
	ds, ok := driver.Open(shp, 0)
	if !ok {
		err = ErrGdalDriverOpen
		return
	}
	defer ds.Destroy()
	layer := ds.LayerByIndex(0)
	return p.getSrid(layer.SpatialReference())
}

// aoiToGeoJSON materializes the AOI polygon as a temp GeoJSON file usable as
// a warp cutline. The caller must invoke cleanup when done with it.
func (p *Preprocessor) aoiToGeoJSON(wkt string, srid int) (path string, cleanup func(), err error) {
	ref, err := p.getSridRef(srid)
	if err != nil {
		return
	}
	geo, err := p.parseWKT(wkt, ref)
	if err != nil {
		return
	}
	defer geo.Destroy()
	// 裸GeoJSON一律按经纬度解析，非4326的AOI须先转换坐标系
	if srid != DEFAULT_SRID {
		var tRef gdal.SpatialReference
		if tRef, err = p.getSridRef(DEFAULT_SRID); err != nil {
			return
		}
		if err = geo.TransformTo(tRef); err != nil {
			log.Error(p.logTag+"geo transform failed", zap.Error(err))
			return
		}
	}
	path = filepath.Join(p.tmpDir, fmt.Sprintf(TMP_GEOJSON, uuid.NewString()))
	if err = os.WriteFile(path, utils.S2B(geo.ToJSON()), os.ModePerm); err != nil {
		log.Error(p.logTag+"write tmp geojson failed", zap.Error(err))
		return
	}
	cleanup = func() { os.Remove(path) }
	return
}

// inspectVector scans every feature of a shapefile and reports its uniform
// geometry family together with the feature count. A layer mixing families
// (points with polygons, say) cannot be rasterized coherently.
func (p *Preprocessor) inspectVector(shp string) (kind GeometryKind, count int, err error) {
	driver := gdal.OGRDriverByName(SHP_DRIVER_NAME)
	ds, ok := driver.Open(shp, 0)
	if !ok {
		err = ErrGdalDriverOpen
		return
	}
	defer ds.Destroy()
	layer := ds.LayerByIndex(0)
	var (
		feature *gdal.Feature
		gc      []destroyable
	)
	defer func() {
		for _, v := range gc {
			v.Destroy()
		}
	}()
	for {
		if feature = layer.NextFeature(); feature == nil {
			break
		}
		gc = append(gc, *feature)
		k := geometryKindOf(feature.Geometry().Type())
		if k == GeomUnknown {
			continue
		}
		if kind == GeomUnknown {
			kind = k
		} else if kind != k {
			log.Error(p.logTag+"mixed geometry kinds in shp", zap.String("shp", shp),
				zap.String("seen", kind.String()), zap.String("got", k.String()))
			err = ErrGeometryType
			return
		}
		count++
	}
	if kind == GeomUnknown || count == 0 {
		err = ErrEmptyShp
	}
	return
}

// warpVector reprojects a whole shapefile onto the destination CRS.
func (p *Preprocessor) warpVector(shp, dstCRS string) (out string, err error) {
	sds, err := gdal.OpenEx(shp, gdal.OFVector, nil, nil, nil)
	if err != nil {
		log.Error(p.logTag+"open shp error", zap.Error(err))
		return
	}
	defer sds.Close()
	log.Info(p.logTag+"start warp shp", zap.String("shp", shp), zap.String("t_srs", dstCRS))
	out = strings.TrimSuffix(shp, FILE_EXT_SHP) + SUFFIX_WARPED + FILE_EXT_SHP
	dds, err := gdal.VectorTranslate(out, []gdal.Dataset{sds}, []string{"-t_srs", dstCRS, "-lco", ENCODING_OPTION})
	if err != nil {
		log.Error(p.logTag + "VectorTranslate failed")
		return
	}
	dds.Close()
	log.Info(p.logTag+"end warp shp", zap.String("out", out))
	return
}

// encodeVector rewrites a non-UTF-8 shapefile (treated as GBK) into UTF-8 so
// later attribute reads come out clean.
func (p *Preprocessor) encodeVector(shp string) (out string, err error) {
	sds, err := gdal.OpenEx(shp, gdal.OFVector, nil, []string{OO_ENCODING}, nil)
	if err != nil {
		log.Error(p.logTag+"open shp error", zap.Error(err))
		return
	}
	defer sds.Close()
	log.Info(p.logTag+"start encoding shp", zap.String("shp", shp))
	out = strings.TrimSuffix(shp, FILE_EXT_SHP) + "_" + SHAPE_ENCODING + FILE_EXT_SHP
	dds, err := gdal.VectorTranslate(out, []gdal.Dataset{sds}, []string{"-lco", ENCODING_OPTION})
	if err != nil {
		log.Error(p.logTag + "VectorTranslate failed")
		return
	}
	dds.Close()
	log.Info(p.logTag+"end encoding shp", zap.String("shp", out))
	return
}

// clipVector crops a shapefile to the AOI polygon.
func (p *Preprocessor) clipVector(shp, aoiWkt string, aoiSrid int) (out string, err error) {
	cutline, cleanup, err := p.aoiToGeoJSON(aoiWkt, aoiSrid)
	if err != nil {
		return
	}
	defer cleanup()
	sds, err := gdal.OpenEx(shp, gdal.OFVector, nil, nil, nil)
	if err != nil {
		log.Error(p.logTag+"open shp error", zap.Error(err))
		return
	}
	defer sds.Close()
	out = strings.TrimSuffix(shp, FILE_EXT_SHP) + SUFFIX_CLIPPED + FILE_EXT_SHP
	dds, err := gdal.VectorTranslate(out, []gdal.Dataset{sds}, []string{"-clipsrc", cutline, "-lco", ENCODING_OPTION})
	if err != nil {
		log.Error(p.logTag + "VectorTranslate failed")
		return
	}
	dds.Close()
	return
}

// readAttributeValues collects a numeric column across all features.
func (p *Preprocessor) readAttributeValues(shp, column string) (values []float64, err error) {
	driver := gdal.OGRDriverByName(SHP_DRIVER_NAME)
	ds, ok := driver.Open(shp, 0)
	if !ok {
		err = ErrGdalDriverOpen
		return
	}
	defer ds.Destroy()
	layer := ds.LayerByIndex(0)
	idx := layer.Definition().FieldIndex(column)
	if idx < 0 {
		err = fmt.Errorf(ErrColumnMissingTemplate, column)
		return
	}
	var (
		feature *gdal.Feature
		gc      []destroyable
	)
	defer func() {
		for _, v := range gc {
			v.Destroy()
		}
	}()
	for {
		if feature = layer.NextFeature(); feature == nil {
			break
		}
		gc = append(gc, *feature)
		values = append(values, feature.FieldAsFloat64(idx))
	}
	if len(values) == 0 {
		err = ErrEmptyShp
	}
	return
}

// distinctValues returns the set of values a text column takes, for fanning
// a categorical layer out into one raster per class.
func (p *Preprocessor) distinctValues(shp, column string) (values []string, err error) {
	driver := gdal.OGRDriverByName(SHP_DRIVER_NAME)
	ds, ok := driver.Open(shp, 0)
	if !ok {
		err = ErrGdalDriverOpen
		return
	}
	defer ds.Destroy()
	layer := ds.LayerByIndex(0)
	idx := layer.Definition().FieldIndex(column)
	if idx < 0 {
		err = fmt.Errorf(ErrColumnMissingTemplate, column)
		return
	}
	var (
		valSet  = map[string]struct{}{}
		feature *gdal.Feature
		val     string
		gc      []destroyable
	)
	defer func() {
		for _, v := range gc {
			v.Destroy()
		}
	}()
	for {
		if feature = layer.NextFeature(); feature == nil {
			break
		}
		gc = append(gc, *feature)
		val = feature.FieldAsString(idx)
		if val == "" {
			err = fmt.Errorf(ErrColumnEmptyTemplate, column)
			return
		}
		if !utf8.ValidString(val) {
			// 字段值疑似GBK编码
			if dec, e := utils.GbkStrToUtf8(val); e == nil {
				val = dec
			}
		}
		valSet[val] = struct{}{}
	}
	if len(valSet) == 0 {
		err = ErrEmptyShp
		return
	}
	values = make([]string, 0, len(valSet))
	for k := range valSet {
		values = append(values, k)
	}
	return
}
