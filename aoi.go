package mpmprep

import (
	"fmt"

	"github.com/lukeroth/gdal"
)

const aoiBufferQuadSegs = 12

// CheckAOI verifies that a WKT polygon parses under the given SRID.
func (p *Preprocessor) CheckAOI(wkt string, srid int) (err error) {
	ref, err := p.getSridRef(srid)
	if err != nil {
		return
	}
	geo, err := p.parseWKT(wkt, ref)
	if err != nil {
		return
	}
	geo.Destroy()
	return
}

// UnionAOI merges several study-area polygons into one WKT.
func (p *Preprocessor) UnionAOI(wkts []string, srid int) (ret string, err error) {
	ref, err := p.getSridRef(srid)
	if err != nil {
		return
	}
	var (
		geo      gdal.Geometry
		unionGeo = gdal.Create(gdal.GT_Polygon)
		gc       = []destroyable{unionGeo}
	)
	defer func() {
		for _, v := range gc {
			v.Destroy()
		}
	}()
	for _, w := range wkts {
		if geo, err = p.parseWKT(w, ref); err != nil {
			return
		}
		gc = append(gc, geo)
		unionGeo = unionGeo.Union(geo)
		gc = append(gc, unionGeo)
	}
	ret, err = unionGeo.ToWKT()
	return
}

// BufferAOI grows (or with a negative distance shrinks) the study area by
// dist CRS units. Useful for padding an AOI derived from deposit sites so
// border cells keep a full neighborhood through the clip.
func (p *Preprocessor) BufferAOI(wkt string, srid int, dist float64) (ret string, err error) {
	ref, err := p.getSridRef(srid)
	if err != nil {
		return
	}
	geo, err := p.parseWKT(wkt, ref)
	if err != nil {
		return
	}
	defer geo.Destroy()
	buffed := geo.Buffer(dist, aoiBufferQuadSegs)
	defer buffed.Destroy()
	ret, err = buffed.ToWKT()
	return
}

// AOISpan returns the (minX, maxX, minY, maxY) envelope of a WKT polygon.
func (p *Preprocessor) AOISpan(wkt string, srid int) (span [4]float64, err error) {
	ref, err := p.getSridRef(srid)
	if err != nil {
		return
	}
	geo, err := p.parseWKT(wkt, ref)
	if err != nil {
		return
	}
	defer geo.Destroy()
	envelop := geo.Envelope()
	span[0] = envelop.MinX()
	span[1] = envelop.MaxX()
	span[2] = envelop.MinY()
	span[3] = envelop.MaxY()
	return
}

func PointsToWkt(lon1, lon2, lat1, lat2 float64) string {
	return fmt.Sprintf("POLYGON((%[1]f %[3]f, %[1]f %[4]f, %[2]f %[4]f, %[2]f %[3]f, %[1]f %[3]f))", lon1, lon2, lat1, lat2)
}

func SpanToWkt(span [4]float64) string {
	return PointsToWkt(span[0], span[1], span[2], span[3])
}
