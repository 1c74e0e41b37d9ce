package mpmprep

const (
	FILE_EXT_TIF  = ".tif"
	FILE_EXT_SHP  = ".shp"
	FILE_EXT_JSON = ".json"

	SHAPE_ENCODING  = "UTF-8"
	SHP_DRIVER_NAME = "ESRI Shapefile"
	ENCODING_OPTION = "ENCODING=" + SHAPE_ENCODING
	// 无cpg或非UTF-8的shp，按GBK编码读取
	ZH_ENC      = "GBK"
	OO_ENCODING = "ENCODING=" + ZH_ENC

	DEFAULT_CRS  = "EPSG:4326"
	DEFAULT_SRID = 4326

	// 各阶段中间文件的后缀
	SUFFIX_FORMATTED   = "_formatted"
	SUFFIX_WARPED      = "_warped"
	SUFFIX_IMPUTED     = "_imputed"
	SUFFIX_RASTERIZED  = "_rasterized"
	SUFFIX_PROXIMITY   = "_proximity"
	SUFFIX_CLIPPED     = "_clipped"
	SUFFIX_ALIGNED     = "_aligned"
	SUFFIX_OLR         = "_olr"
	SUFFIX_SCALED      = "_scaled"
	SUFFIX_TRANSFORMED = "_transformed"
	SUFFIX_PROCESSED   = "_processed"

	TMP_GEOJSON = "aoi_%s.json"

	DefaultImputeWindow     = 100
	DefaultDilationWindow   = 5
	DefaultLabelDilation    = 5
	DefaultTukeyMultiplier  = 1.5
	DefaultScaleMin         = 0.0
	DefaultScaleMax         = 1.0
	DefaultBurnValue        = 1.0
	DefaultSmoothIterations = 0
)
