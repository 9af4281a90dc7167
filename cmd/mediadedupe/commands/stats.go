package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/mediadedupe/mediadedupe/internal/catalog"
	"github.com/mediadedupe/mediadedupe/internal/config"
)

// StatsCommand reports aggregate counts over everything recorded in the
// catalog.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "show summary stats from the catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "mediadedupe.yaml"},
		},
		Action: func(c *cli.Context) error {
			mgr := config.NewManager(c.String("config"))
			runCfg, err := mgr.Load()
			if err != nil {
				return err
			}
			cat, err := catalog.Open(runCfg.CatalogPath)
			if err != nil {
				return err
			}
			defer cat.Close()

			stats, err := cat.Summarize()
			if err != nil {
				return err
			}

			fmt.Printf("files:    %d\n", stats.TotalFiles)
			fmt.Printf("clusters: %d\n", stats.TotalClusters)
			fmt.Printf("size:     %s\n", humanize.Bytes(uint64(stats.TotalBytes)))
			return nil
		},
	}
}
