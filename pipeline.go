package mpmprep

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/DARPA-CRITICALMAAS/mpm-input-preprocessing/log"
	"github.com/DARPA-CRITICALMAAS/mpm-input-preprocessing/utils"

	godal "github.com/airbusgeo/godal"
	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Preprocessor turns heterogeneous evidence sources into a stack of
// coregistered, normalized GTiff layers. One instance is safe for
// concurrent use.
type Preprocessor struct {
	refMap map[int]gdal.SpatialReference
	rLock  sync.Mutex
	tmpDir string
	logTag string
}

var registerDrivers sync.Once

// NewPreprocessor初始化预处理工具箱，tmpDir为可选的临时目录路径（未提供的话为当前目录）
func NewPreprocessor(tmpDir ...string) *Preprocessor {
	registerDrivers.Do(godal.RegisterAll)
	p := &Preprocessor{
		refMap: map[int]gdal.SpatialReference{},
		logTag: "Preprocessor:",
	}
	if len(tmpDir) > 0 && tmpDir[0] != "" {
		p.tmpDir = tmpDir[0]
	}
	return p
}

// Reference pins the common target grid that every processed layer must land
// on: the destination CRS and resolution, the AOI polygon, and the template
// raster whose exact pixel lattice the align stage reproduces.
type Reference struct {
	TemplatePath string
	AOIWkt       string
	AOISrid      int
	CRS          string
	ResX         float64
	ResY         float64
}

func (r Reference) srid() int {
	if r.AOISrid > 0 {
		return r.AOISrid
	}
	return DEFAULT_SRID
}

// ProcessedLayer reports one layer's outcome.
type ProcessedLayer struct {
	Title        string
	Path         string   // final processed raster
	Extra        []string // additional rasters from categorical fan-out
	DepositCount int      // label layers only
	Err          error
}

// countCells tallies the finite cells holding exactly the given value.
func countCells(g Grid, value float64) (n int) {
	for _, v := range g.Data {
		if !g.Meta.isNoData(v) && v == value {
			n++
		}
	}
	return
}

func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// ProcessLayers runs every layer through its stage sequence, at most four at
// a time. A failing layer does not abort its siblings; the joined error of
// all failures is returned alongside the per-layer results.
func (p *Preprocessor) ProcessLayers(ctx context.Context, layers []Layer, ref Reference, outDir string) ([]ProcessedLayer, error) {
	results := make([]ProcessedLayer, len(layers))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for i, layer := range layers {
		i, layer := i, layer
		eg.Go(func() error {
			res, err := p.ProcessLayer(ctx, layer, ref, outDir)
			res.Err = err
			results[i] = res
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		})
	}
	err := eg.Wait()
	for _, r := range results {
		if r.Err != nil {
			err = errors.Join(err, fmt.Errorf("layer %s: %w", r.Title, r.Err))
		}
	}
	return results, err
}

// ProcessLayer validates the layer's stage selection up front, then walks it
// through the sequence its kind and category dictate. All intermediates live
// in a fresh per-layer directory under tmpDir; only the final raster goes to
// outDir.
func (p *Preprocessor) ProcessLayer(ctx context.Context, layer Layer, ref Reference, outDir string) (res ProcessedLayer, err error) {
	res.Title = p.layerTitle(layer)
	cfg, err := layer.StageConfig()
	if err != nil {
		return
	}
	workDir, err := utils.GetUniqSubDir(p.tmpDir)
	if err != nil {
		return
	}
	log.Info(p.logTag+"start layer", zap.String("title", res.Title),
		zap.String("kind", layer.Kind.String()), zap.String("category", layer.Category.String()))
	switch {
	case layer.Category == CategoryLabel:
		res.Path, res.DepositCount, err = p.processLabel(ctx, layer, ref, workDir, outDir, res.Title)
	case layer.Kind == LayerRaster:
		res.Path, err = p.processRaster(ctx, layer, cfg, ref, workDir, outDir, res.Title)
	case layer.Kind == LayerVector:
		res.Path, res.Extra, err = p.processVector(ctx, layer, cfg, ref, workDir, outDir, res.Title)
	default:
		err = fmt.Errorf("%w: layer kind not set", ErrConfiguration)
	}
	if err != nil {
		log.Error(p.logTag+"layer failed", zap.String("title", res.Title), zap.Error(err))
	} else {
		log.Info(p.logTag+"layer done", zap.String("title", res.Title), zap.String("out", res.Path))
	}
	return
}

func (p *Preprocessor) layerTitle(layer Layer) string {
	if layer.Title != "" {
		return sanitizeToken(layer.Title)
	}
	return sanitizeToken(utils.GetFilenameWithoutExt(layer.File))
}

// locateVector resolves the layer file to a shapefile path, unpacking zip
// archives into the work dir.
func (p *Preprocessor) locateVector(file, workDir string) (shp string, err error) {
	if strings.HasSuffix(file, ".zip") {
		if _, err = utils.Unzip(file, workDir); err != nil {
			return
		}
		var utf8 bool
		if shp, utf8, err = utils.FindShapefile(workDir); err != nil {
			return
		}
		if !utf8 {
			shp, err = p.encodeVector(shp)
		}
		return
	}
	shp = file
	return
}

// processRaster: format, warp, impute, clip, align, then the in-memory
// statistics block, then the closing dilation.
func (p *Preprocessor) processRaster(ctx context.Context, layer Layer, cfg StageConfig, ref Reference, workDir, outDir, title string) (out string, err error) {
	base := filepath.Join(workDir, title)
	formatted := base + SUFFIX_FORMATTED + FILE_EXT_TIF
	if err = p.formatRaster(layer.File, formatted, DEFAULT_CRS); err != nil {
		return
	}
	if err = checkCtx(ctx); err != nil {
		return
	}
	warped := base + SUFFIX_WARPED + FILE_EXT_TIF
	if err = p.warpRaster(formatted, warped, ref.CRS, ref.ResX, ref.ResY, ""); err != nil {
		return
	}
	if err = checkCtx(ctx); err != nil {
		return
	}
	imputed := base + SUFFIX_IMPUTED + FILE_EXT_TIF
	if err = p.imputeStage(warped, imputed, cfg.Impute); err != nil {
		return
	}
	if err = checkCtx(ctx); err != nil {
		return
	}
	aligned, err := p.geometricTail(ctx, imputed, base, ref, "")
	if err != nil {
		return
	}
	last, err := p.statisticsBlock(ctx, aligned, base, cfg)
	if err != nil {
		return
	}
	out = filepath.Join(outDir, title+SUFFIX_PROCESSED+FILE_EXT_TIF)
	err = p.fillDilate(last, out, DefaultDilationWindow, DefaultSmoothIterations, false, true)
	return
}

// processVector: warp the shapefile, rasterize it (one-hot, attribute, or
// presence/proximity), then the shared raster tail.
func (p *Preprocessor) processVector(ctx context.Context, layer Layer, cfg StageConfig, ref Reference, workDir, outDir, title string) (out string, extra []string, err error) {
	shp, err := p.locateVector(layer.File, workDir)
	if err != nil {
		return
	}
	kind, _, err := p.inspectVector(shp)
	if err != nil {
		return
	}
	if srid, e := p.GetSridOfShapefile(shp); e != nil {
		log.Warn(p.logTag+"source shp srid undetected", zap.String("shp", shp), zap.Error(e))
	} else {
		log.Info(p.logTag+"source shp", zap.String("shp", shp),
			zap.String("geometry", kind.String()), zap.Int("srid", srid))
	}
	if err = checkCtx(ctx); err != nil {
		return
	}
	warped, err := p.warpVector(shp, ref.CRS)
	if err != nil {
		return
	}
	base := filepath.Join(workDir, title)

	if layer.Category == CategoryCategorical {
		if layer.Column == "" {
			err = fmt.Errorf("%w: categorical layer needs a column", ErrConfiguration)
			return
		}
		var onehot []string
		if onehot, err = p.rasterizeCategorical(warped, workDir, title, layer.Column, ref.ResX, ref.ResY); err != nil {
			return
		}
		for _, tif := range onehot {
			if err = checkCtx(ctx); err != nil {
				return
			}
			classBase := strings.TrimSuffix(tif, FILE_EXT_TIF)
			var aligned string
			if aligned, err = p.geometricTail(ctx, tif, classBase, ref, "near"); err != nil {
				return
			}
			var last string
			if last, err = p.statisticsBlock(ctx, aligned, classBase, cfg); err != nil {
				return
			}
			final := filepath.Join(outDir, filepath.Base(classBase)+SUFFIX_PROCESSED+FILE_EXT_TIF)
			if err = p.fillDilate(last, final, DefaultDilationWindow, DefaultSmoothIterations, false, true); err != nil {
				return
			}
			extra = append(extra, final)
		}
		if len(extra) > 0 {
			out, extra = extra[0], extra[1:]
		}
		return
	}

	rasterized := base + SUFFIX_RASTERIZED + FILE_EXT_TIF
	proximity := layer.Proximity || kind == GeomPoint || kind == GeomLine
	switch {
	case layer.Column != "":
		if _, err = p.rasterizeAttribute(warped, rasterized, layer.Column, ref.ResX, ref.ResY); err != nil {
			return
		}
	default:
		burn := DefaultBurnValue
		if layer.BurnValue != nil {
			burn = *layer.BurnValue
		}
		if err = p.rasterizeBinary(warped, rasterized, burn, ref.ResX, ref.ResY); err != nil {
			return
		}
	}
	if err = checkCtx(ctx); err != nil {
		return
	}
	stage := rasterized
	if proximity && layer.Column == "" {
		var g Grid
		if g, err = p.readGrid(rasterized); err != nil {
			return
		}
		burn := DefaultBurnValue
		if layer.BurnValue != nil {
			burn = *layer.BurnValue
		}
		if g, err = ProximityGrid(g, burn); err != nil {
			return
		}
		stage = base + SUFFIX_PROXIMITY + FILE_EXT_TIF
		if err = p.writeGrid(stage, g, false); err != nil {
			return
		}
	}
	if err = checkCtx(ctx); err != nil {
		return
	}
	aligned, err := p.geometricTail(ctx, stage, base, ref, "")
	if err != nil {
		return
	}
	last, err := p.statisticsBlock(ctx, aligned, base, cfg)
	if err != nil {
		return
	}
	out = filepath.Join(outDir, title+SUFFIX_PROCESSED+FILE_EXT_TIF)
	err = p.fillDilate(last, out, DefaultDilationWindow, DefaultSmoothIterations, false, true)
	return
}

// processLabel: clip the deposits to the AOI, burn presence over a zero
// background, coregister, and dilate without ever inventing positives.
func (p *Preprocessor) processLabel(ctx context.Context, layer Layer, ref Reference, workDir, outDir, title string) (out string, deposits int, err error) {
	base := filepath.Join(workDir, title)
	var rasterized string
	if layer.Kind == LayerVector {
		var shp string
		if shp, err = p.locateVector(layer.File, workDir); err != nil {
			return
		}
		if _, _, err = p.inspectVector(shp); err != nil {
			return
		}
		var warped string
		if warped, err = p.warpVector(shp, ref.CRS); err != nil {
			return
		}
		var clipped string
		if clipped, err = p.clipVector(warped, ref.AOIWkt, ref.srid()); err != nil {
			return
		}
		if err = checkCtx(ctx); err != nil {
			return
		}
		rasterized = base + SUFFIX_RASTERIZED + FILE_EXT_TIF
		if err = p.rasterizeLabel(clipped, rasterized, ref.ResX, ref.ResY); err != nil {
			return
		}
	} else {
		rasterized = base + SUFFIX_FORMATTED + FILE_EXT_TIF
		if err = p.formatRaster(layer.File, rasterized, DEFAULT_CRS); err != nil {
			return
		}
	}
	if err = checkCtx(ctx); err != nil {
		return
	}
	aligned, err := p.geometricTail(ctx, rasterized, base, ref, "near")
	if err != nil {
		return
	}
	out = filepath.Join(outDir, title+SUFFIX_PROCESSED+FILE_EXT_TIF)
	if err = p.fillDilate(aligned, out, DefaultLabelDilation, DefaultSmoothIterations, true, true); err != nil {
		return
	}
	// 矿点数以最终膨胀后栅格中等于burn值的像元计，同一像元的重合矿点只计一次
	var g Grid
	if g, err = p.readGrid(out); err != nil {
		return
	}
	deposits = countCells(g, DefaultBurnValue)
	log.Info(p.logTag+"label layer deposits", zap.String("title", title), zap.Int("count", deposits))
	return
}

// geometricTail clips to the AOI, then snaps onto the template lattice.
func (p *Preprocessor) geometricTail(ctx context.Context, src, base string, ref Reference, resampling string) (aligned string, err error) {
	clipped := base + SUFFIX_CLIPPED + FILE_EXT_TIF
	if err = p.clipRaster(src, clipped, ref.AOIWkt, ref.srid()); err != nil {
		return
	}
	if err = checkCtx(ctx); err != nil {
		return
	}
	aligned = base + SUFFIX_ALIGNED + FILE_EXT_TIF
	err = p.alignRaster(clipped, aligned, ref.TemplatePath, resampling)
	return
}

// imputeStage fills nodata either with a population statistic or, when no
// statistical method is configured, by outward interpolation bounded by the
// impute window.
func (p *Preprocessor) imputeStage(src, dst string, spec *ImputeSpec) (err error) {
	if spec != nil && spec.Method != 0 {
		var g Grid
		if g, err = p.readGrid(src); err != nil {
			return
		}
		if g, err = ImputeGrid(g, *spec); err != nil {
			return
		}
		return p.writeGrid(dst, g, false)
	}
	window := DefaultImputeWindow
	if spec != nil && spec.WindowSize > 0 {
		window = spec.WindowSize
	}
	return p.fillDilate(src, dst, window, DefaultSmoothIterations, false, false)
}

// statisticsBlock runs the in-memory numeric stages between align and the
// final dilation: outlier containment, scaling, and the optional transform.
// Each stage's snapshot raster is kept in the work dir.
func (p *Preprocessor) statisticsBlock(ctx context.Context, aligned, base string, cfg StageConfig) (last string, err error) {
	g, err := p.readGrid(aligned)
	if err != nil {
		return
	}
	if g, err = ClipOutliersIQR(g, DefaultTukeyMultiplier); err != nil {
		return
	}
	last = base + SUFFIX_OLR + FILE_EXT_TIF
	if err = p.writeGrid(last, g, false); err != nil {
		return
	}
	if err = checkCtx(ctx); err != nil {
		return
	}
	if g, err = ScaleGrid(g, cfg.Scaling); err != nil {
		return
	}
	last = base + SUFFIX_SCALED + FILE_EXT_TIF
	if err = p.writeGrid(last, g, false); err != nil {
		return
	}
	if cfg.Transform == nil {
		return
	}
	if err = checkCtx(ctx); err != nil {
		return
	}
	if g, err = TransformGrid(g, *cfg.Transform); err != nil {
		return
	}
	last = base + SUFFIX_TRANSFORMED + FILE_EXT_TIF
	err = p.writeGrid(last, g, false)
	return
}
