package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/weberc2/fsck/pkg/check"
	"github.com/weberc2/fsck/pkg/image"
	"github.com/weberc2/fsck/pkg/logger"
	"github.com/weberc2/fsck/pkg/mkfs"
	"github.com/weberc2/fsck/pkg/objectstore"
	"github.com/weberc2/fsck/pkg/repair"
	"github.com/weberc2/fsck/pkg/report"
	"github.com/weberc2/fsck/pkg/scan"
	"github.com/weberc2/fsck/pkg/types"
	"github.com/weberc2/fsck/pkg/volume"
	"gopkg.in/yaml.v2"
)

type pgStore = report.PGReportStore

// runner carries the collaborators of a single invocation. `objects` and
// `reports` are created from the config on first use unless already set.
type runner struct {
	config  *Config
	stdout  io.Writer
	stderr  io.Writer
	now     func() time.Time
	objects types.ObjectStore
	reports report.Store
}

const UsageErr types.ConstError = "wrong number of arguments"

func imageArg(ctx *cli.Context) (string, error) {
	if ctx.NArg() != 1 {
		return "", fmt.Errorf(
			"wanted exactly one <image> argument; found %d: %w",
			ctx.NArg(),
			UsageErr,
		)
	}
	return ctx.Args().First(), nil
}

func (r *runner) checkAction(ctx *cli.Context) error {
	ref, err := imageArg(ctx)
	if err != nil {
		return err
	}

	mode := report.ModeCheck
	if ctx.Bool("repair") {
		mode = report.ModeRepair
	}
	rep := report.New(ref, mode, r.now())
	log := logger.Get(ctx.Context).With(
		"run", rep.RunID.String(),
		"image", ref,
		"mode", string(mode),
	)
	c := logger.Set(ctx.Context, log)

	var relinked []types.Ino
	if mode == report.ModeRepair {
		relinked, err = r.repair(c, ref)
	} else {
		err = r.check(c, ref, ctx.Bool("all"))
	}

	rep.Finish(err, relinked, r.now())
	log.Info("run finished", "outcome", string(rep.Outcome))
	r.putReport(c, rep)
	return err
}

func (r *runner) check(ctx context.Context, ref string, all bool) error {
	vol, err := r.openVolume(ref, false)
	if err != nil {
		return err
	}
	defer r.closeVolume(ctx, vol)

	img, err := image.New(vol.Bytes())
	if err != nil {
		return err
	}
	return check.Run(ctx, img, check.Options{Exhaustive: all})
}

func (r *runner) repair(ctx context.Context, ref string) ([]types.Ino, error) {
	vol, err := r.openVolume(ref, true)
	if err != nil {
		return nil, err
	}
	defer r.closeVolume(ctx, vol)

	img, err := image.New(vol.Bytes())
	if err != nil {
		return nil, err
	}
	result, err := repair.Run(
		ctx,
		img,
		repair.Options{LostFoundName: r.config.LostFoundName},
	)
	if err != nil {
		return nil, err
	}
	if err := vol.Flush(); err != nil {
		return nil, fmt.Errorf("flushing repaired image: %w", err)
	}
	return result.Relinked, nil
}

type inspection struct {
	Superblock   types.Superblock `yaml:"superblock"`
	Geometry     image.Geometry   `yaml:"geometry"`
	Inodes       map[string]int   `yaml:"inodes"`
	MarkedBlocks int              `yaml:"markedBlocks"`
}

func (r *runner) inspectAction(ctx *cli.Context) error {
	ref, err := imageArg(ctx)
	if err != nil {
		return err
	}
	vol, err := r.openVolume(ref, false)
	if err != nil {
		return err
	}
	defer r.closeVolume(ctx.Context, vol)

	img, err := image.New(vol.Bytes())
	if err != nil {
		return err
	}

	i := inspection{
		Superblock:   img.Superblock,
		Geometry:     img.Geometry,
		Inodes:       map[string]int{},
		MarkedBlocks: len(scan.Bitmap(img)),
	}
	for ino := types.InoNil; ino < img.Superblock.NInodes; ino++ {
		inode, err := img.Inode(ino)
		if err != nil {
			return fmt.Errorf("inspecting `%s`: %w", ref, err)
		}
		i.Inodes[inode.Type.String()]++
	}

	data, err := yaml.Marshal(&i)
	if err != nil {
		return fmt.Errorf("marshaling inspection: %w", err)
	}
	_, err = r.stdout.Write(data)
	return err
}

func (r *runner) mkfsAction(ctx *cli.Context) error {
	ref, err := imageArg(ctx)
	if err != nil {
		return err
	}
	size, ninodes := ctx.Int64("size"), ctx.Int64("ninodes")
	if size < 1 || size > math.MaxUint32 {
		return fmt.Errorf("invalid --size `%d`", size)
	}
	if ninodes < 1 || ninodes > math.MaxUint32 {
		return fmt.Errorf("invalid --ninodes `%d`", ninodes)
	}

	params := mkfs.Params{
		Size:          types.Block(size),
		NInodes:       types.Ino(ninodes),
		LostFoundName: r.config.LostFoundName,
	}
	switch name := ctx.String("lost-found"); name {
	case "":
	case "-":
		params.LostFoundName = ""
	default:
		params.LostFoundName = name
	}

	builder, err := mkfs.NewBuilder(&params)
	if err != nil {
		return err
	}
	img, err := builder.Finish()
	if err != nil {
		return err
	}

	vol, err := r.createVolume(ref, params.Size.Offset())
	if err != nil {
		return err
	}
	defer r.closeVolume(ctx.Context, vol)

	copy(vol.Bytes(), img.Bytes())
	if err := vol.Flush(); err != nil {
		return fmt.Errorf("writing image `%s`: %w", ref, err)
	}
	logger.Get(ctx.Context).Info(
		"made file system",
		"image", ref,
		"size", params.Size,
		"ninodes", params.NInodes,
		"nblocks", img.Superblock.NBlocks,
	)
	return nil
}

func (r *runner) listReportsAction(ctx *cli.Context) error {
	ref, err := imageArg(ctx)
	if err != nil {
		return err
	}
	store, err := r.reportStore()
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf(
			"listing reports: report store is `%s`",
			r.config.ReportStore,
		)
	}
	reports, err := store.List(ref)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling reports: %w", err)
	}
	_, err = fmt.Fprintf(r.stdout, "%s\n", data)
	return err
}

func (r *runner) withPG(f func(*pgStore) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		if r.config.ReportStore != ReportStorePostgres {
			return fmt.Errorf(
				"report store is `%s`; wanted `%s`",
				r.config.ReportStore,
				ReportStorePostgres,
			)
		}
		store, err := report.OpenEnv()
		if err != nil {
			return err
		}
		return f(store)
	}
}

func (r *runner) putReport(ctx context.Context, rep *report.Report) {
	log := logger.Get(ctx)
	store, err := r.reportStore()
	if err != nil {
		log.Warn("opening report store", "err", err.Error())
		return
	}
	if store == nil {
		return
	}
	if err := store.Put(rep); err != nil {
		log.Warn("storing report", "err", err.Error())
	}
}

func (r *runner) reportStore() (report.Store, error) {
	if r.reports != nil {
		return r.reports, nil
	}
	switch r.config.ReportStore {
	case ReportStoreS3:
		objects, err := r.objectStore()
		if err != nil {
			return nil, err
		}
		r.reports = &report.ObjectStore{
			Store:  objects,
			Bucket: r.config.ReportBucket,
			Prefix: r.config.ReportPrefix,
		}
	case ReportStorePostgres:
		store, err := report.OpenEnv()
		if err != nil {
			return nil, err
		}
		if err := store.EnsureTable(); err != nil {
			return nil, err
		}
		r.reports = store
	}
	return r.reports, nil
}

func (r *runner) objectStore() (types.ObjectStore, error) {
	if r.objects == nil {
		store, err := objectstore.NewS3ObjectStore(r.config.AWSRegion)
		if err != nil {
			return nil, err
		}
		r.objects = store
	}
	return r.objects, nil
}

func (r *runner) imageStore(key string) (types.ObjectStore, error) {
	store, err := r.objectStore()
	if err != nil {
		return nil, err
	}
	if r.config.GzipImages || strings.HasSuffix(key, ".gz") {
		return &objectstore.GzipObjectStore{ObjectStore: store}, nil
	}
	return store, nil
}

// openVolume opens a local path or an `s3://bucket/key` reference.
func (r *runner) openVolume(ref string, writable bool) (volume.Volume, error) {
	if bucket, key, ok := volume.ParseObjectURL(ref); ok {
		store, err := r.imageStore(key)
		if err != nil {
			return nil, err
		}
		vol, err := volume.OpenObject(store, bucket, key, writable)
		if err != nil {
			return nil, err
		}
		return vol, nil
	}
	vol, err := volume.OpenFile(ref, writable)
	if err != nil {
		return nil, err
	}
	return vol, nil
}

func (r *runner) createVolume(ref string, size types.Byte) (volume.Volume, error) {
	if bucket, key, ok := volume.ParseObjectURL(ref); ok {
		store, err := r.imageStore(key)
		if err != nil {
			return nil, err
		}
		return volume.NewObject(store, bucket, key, size), nil
	}
	vol, err := volume.CreateFile(ref, size)
	if err != nil {
		return nil, err
	}
	return vol, nil
}

func (r *runner) closeVolume(ctx context.Context, vol volume.Volume) {
	if err := vol.Close(); err != nil {
		logger.Get(ctx).Warn("closing image", "err", err.Error())
	}
}
