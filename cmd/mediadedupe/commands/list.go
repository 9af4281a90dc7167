package commands

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mediadedupe/mediadedupe/internal/cachekv"
	"github.com/mediadedupe/mediadedupe/internal/config"
)

// ListCommand dumps every content-hash key currently held in the cache,
// useful for debugging cache invalidation between runs.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "list cache entries",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "mediadedupe.yaml"},
		},
		Action: func(c *cli.Context) error {
			mgr := config.NewManager(c.String("config"))
			runCfg, err := mgr.Load()
			if err != nil {
				return err
			}
			driver, err := cachekv.OpenBoltDriver(runCfg.CachePath)
			if err != nil {
				return err
			}
			defer driver.Close()

			store, err := driver.Store("data")
			if err != nil {
				return err
			}
			return store.ForEach(func(key, value []byte) error {
				fmt.Printf("%s (%d bytes)\n", key, len(value))
				return nil
			})
		},
	}
}
