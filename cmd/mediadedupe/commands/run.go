// Package commands implements the mediadedupe CLI's subcommands.
package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/mediadedupe/mediadedupe/internal/cache"
	"github.com/mediadedupe/mediadedupe/internal/cachekv"
	"github.com/mediadedupe/mediadedupe/internal/catalog"
	"github.com/mediadedupe/mediadedupe/internal/config"
	"github.com/mediadedupe/mediadedupe/internal/filestat"
	"github.com/mediadedupe/mediadedupe/internal/frame"
	"github.com/mediadedupe/mediadedupe/internal/framehash"
	"github.com/mediadedupe/mediadedupe/internal/framehash/dcthash"
	"github.com/mediadedupe/mediadedupe/internal/log"
	"github.com/mediadedupe/mediadedupe/internal/mediamodel"
	"github.com/mediadedupe/mediadedupe/internal/metaread"
	"github.com/mediadedupe/mediadedupe/internal/pipeline"
	"github.com/mediadedupe/mediadedupe/internal/report"
	"github.com/mediadedupe/mediadedupe/internal/selector"
	"github.com/mediadedupe/mediadedupe/internal/similarity"
	"github.com/mediadedupe/mediadedupe/internal/transfer"
)

// RunCommand scans the given sources, clusters near-duplicates, and
// moves (or copies) every file to destination using the configured
// path template, parking non-representative duplicates in dupesDir.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "cluster near-duplicates and organize them into destination",
		ArgsUsage: "<source...> <destination>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "mediadedupe.yaml"},
			&cli.IntFlag{Name: "workers", Value: 0},
			&cli.Float64Flag{Name: "image-threshold", Value: 0},
			&cli.Float64Flag{Name: "video-threshold", Value: 0},
			&cli.BoolFlag{Name: "dry-run"},
			&cli.BoolFlag{Name: "copy", Usage: "copy instead of move"},
			&cli.StringFlag{Name: "path-template", Usage: "overrides the configured destination path template"},
			&cli.StringFlag{Name: "dupes-dir", Usage: "overrides the configured duplicates subdirectory"},
			&cli.StringFlag{Name: "cache-path", Usage: "overrides the configured cache database path"},
			&cli.StringFlag{Name: "catalog-path", Usage: "overrides the configured catalog database path"},
			&cli.IntFlag{Name: "batch-size", Usage: "overrides the configured DBSCAN batch size"},
			&cli.BoolFlag{Name: "json", Usage: "print the report as JSON instead of text"},
		},
		Action: func(c *cli.Context) error {
			return runAction(c)
		},
	}
}

func runAction(c *cli.Context) error {
	args := c.Args().Slice()
	if len(args) < 2 {
		return fmt.Errorf("usage: mediadedupe run <source...> <destination>")
	}
	sources, destination := args[:len(args)-1], args[len(args)-1]

	mgr := config.NewManager(c.String("config"))
	runCfg, err := mgr.Load()
	if err != nil {
		return err
	}
	if c.Float64("image-threshold") > 0 {
		runCfg.Similarity.ImageImageThreshold = c.Float64("image-threshold")
	}
	if c.Float64("video-threshold") > 0 {
		runCfg.Similarity.VideoVideoThreshold = c.Float64("video-threshold")
		runCfg.Similarity.ImageVideoThreshold = c.Float64("video-threshold")
	}
	if w := c.Int("workers"); w > 0 {
		runCfg.Workers = w
	}
	if t := c.String("path-template"); t != "" {
		runCfg.PathTemplate = t
	}
	if d := c.String("dupes-dir"); d != "" {
		runCfg.DupesDir = d
	}
	if p := c.String("cache-path"); p != "" {
		runCfg.CachePath = p
	}
	if p := c.String("catalog-path"); p != "" {
		runCfg.CatalogPath = p
	}
	if b := c.Int("batch-size"); b > 0 {
		runCfg.Similarity.ClusterBatchSize = b
	}

	runID := uuid.New().String()
	logger := log.New(nil, loggerLevel())
	logger.WithField("run_id", runID).Info("starting run")

	paths, totalBytes, err := collectPaths(sources)
	if err != nil {
		return err
	}

	driver, err := cachekv.OpenBoltDriver(runCfg.CachePath)
	if err != nil {
		return err
	}
	defer driver.Close()

	fingerprint, err := runCfg.Similarity.Fingerprint()
	if err != nil {
		return err
	}
	cacheLayer, err := cache.New(driver, fingerprint, 8192, logger.Logger)
	if err != nil {
		return err
	}

	hasher := buildHasher(runCfg.Similarity.HashAlgorithm, runCfg.Similarity.HashResolution)
	frameSupplier := frame.NewDefaultSupplier(hasher)
	frameSupplier.Video = frame.NewVideoSupplier(hasher, runCfg.Similarity)
	metaSupplier := metaread.NewDefaultSupplier()
	statSupplier := filestat.NewDefaultSupplier()
	kernel := similarity.New(runCfg.Similarity, logger.Logger)
	sel := selector.New(kernel, runCfg.Similarity, 2)

	pl := pipeline.New(runCfg.Similarity, runCfg.Workers, cacheLayer, frameSupplier, metaSupplier, statSupplier, sel, logger.Logger)

	result, files, err := pl.Run(c.Context, paths)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		out, err := report.JSON(result)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		fmt.Print(report.Text(result, totalBytes))
	}

	if c.Bool("dry-run") {
		return nil
	}
	if err := c.Context.Err(); err != nil {
		return err
	}

	return organize(result, files, destination, runCfg, sel, c.Bool("copy"), logger)
}

func organize(
	result mediamodel.DeduplicationResult,
	files map[string]mediamodel.FileInfo,
	destination string,
	runCfg config.RunConfig,
	sel *selector.Selector,
	copyMode bool,
	logger *log.Logger,
) error {
	org := transfer.New(logger.Logger)

	cat, err := catalog.Open(runCfg.CatalogPath)
	if err != nil {
		return err
	}
	defer cat.Close()

	for i, cluster := range result.Clusters {
		rep := result.Representatives[i]
		keep := map[string]bool{rep.Primary: true}
		for _, capture := range rep.Captures {
			keep[capture] = true
		}
		for path := range cluster {
			fi := files[path]
			destDir := destination
			if !keep[path] {
				destDir = filepath.Join(destination, runCfg.DupesDir)
			}
			destPath := filepath.Join(destDir, transfer.RenderPath(runCfg.PathTemplate, fi))
			if err := transferOne(org, path, destPath, copyMode); err != nil {
				logger.WithError(err).Warn("transfer failed")
				continue
			}
			if err := cat.Record(fi, i, sel.Score(fi)); err != nil {
				logger.WithError(err).Warn("catalog record failed")
			}
		}
	}

	for _, path := range result.Noise {
		fi := files[path]
		destPath := filepath.Join(destination, transfer.RenderPath(runCfg.PathTemplate, fi))
		if err := transferOne(org, path, destPath, copyMode); err != nil {
			logger.WithError(err).Warn("transfer failed")
			continue
		}
		if err := cat.Record(fi, -1, sel.Score(fi)); err != nil {
			logger.WithError(err).Warn("catalog record failed")
		}
	}

	for _, path := range result.Failed {
		destPath := filepath.Join(destination, runCfg.ErrorsDir, filepath.Base(path))
		if err := transferOne(org, path, destPath, copyMode); err != nil {
			logger.WithError(err).Warn("quarantining unresolved file failed")
		}
	}

	return nil
}

func transferOne(org *transfer.Organizer, src, dest string, copyMode bool) error {
	if copyMode {
		_, err := org.Copy(src, dest)
		return err
	}
	_, err := org.Move(src, dest)
	return err
}

func buildHasher(algorithm string, resolution int) frame.Hasher {
	if algorithm == "dct" {
		return dcthash.New()
	}
	return framehash.New(resolution)
}

func loggerLevel() logrus.Level {
	if os.Getenv("MEDIADEDUPE_DEBUG") != "" {
		return logrus.DebugLevel
	}
	return logrus.InfoLevel
}

func collectPaths(sources []string) ([]string, int64, error) {
	var paths []string
	var totalBytes int64
	for _, src := range sources {
		err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			paths = append(paths, path)
			totalBytes += info.Size()
			return nil
		})
		if err != nil {
			return nil, 0, fmt.Errorf("walking %s: %w", src, err)
		}
	}
	return paths, totalBytes, nil
}
