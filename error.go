package mpmprep

import "errors"

var (
	// 数值安全相关错误
	ErrValueRange      = errors.New("value span exceeds largest representable dtype")
	ErrDegenerateInput = errors.New("no finite values in input population")
	ErrConfiguration   = errors.New("invalid layer configuration")
	ErrGeometryType    = errors.New("mixed or unsupported geometry types")

	// GDAL边界相关错误
	ErrGdalDriverOpen   = errors.New("gdal driver open err")
	ErrGdalDriverCreate = errors.New("gdal driver create err")
	ErrInvalidTif       = errors.New("invalid tif")
	ErrTifReadFailed    = errors.New("tif read failed")
	ErrTifWriteFailed   = errors.New("tif write failed")
	ErrInvalidWKT       = errors.New("invalid WKT")
	ErrEmptyShp         = errors.New("shp is empty")
	ErrVoidSrid         = errors.New("shp with void srid")
	ErrGridSizeMismatch = errors.New("grid size mismatch")
)

const (
	ErrColumnMissingTemplate = "missing field [%s] in shp"
	ErrColumnEmptyTemplate   = "empty field [%s] in shp feature"
)
