package pkg

import (
	"strings"
	"time"

	"github.com/urfave/cli"

	"github.com/minsafe/msv-db/pkg/source"
	"github.com/minsafe/msv-db/pkg/utils"
)

func NewApp(version string) *cli.App {
	app := cli.NewApp()
	app.Name = "msv-db"
	app.Version = version

	app.Usage = "Minimum safe version resolver"

	cacheDirFlag := cli.StringFlag{
		Name:  "cache-dir",
		Usage: "cache directory path",
		Value: utils.CacheDir(),
	}
	catalogFlag := cli.StringFlag{
		Name:  "catalog",
		Usage: "product catalog file",
		Value: "catalog.yaml",
	}

	app.Commands = []cli.Command{
		{
			Name:   "resolve",
			Usage:  "resolve minimum safe versions for cataloged products",
			Action: resolve,
			Flags: []cli.Flag{
				cacheDirFlag,
				catalogFlag,
				cli.StringFlag{
					Name:  "evidence-dir",
					Usage: "directory holding fetched source evidence",
					Value: "evidence",
				},
				cli.StringFlag{
					Name:  "only-sources",
					Usage: "query only the specified sources (comma separated)",
					Value: strings.Join(source.SourceList, ","),
				},
				cli.IntFlag{
					Name:  "workers",
					Usage: "number of products resolved in parallel",
					Value: 5,
				},
				cli.DurationFlag{
					Name:  "timeout",
					Usage: "per-source query timeout",
					Value: 30 * time.Second,
				},
			},
		},
		{
			Name:      "check",
			Usage:     "check an installed version against the resolved minimum",
			ArgsUsage: "product_id [installed_version]",
			Action:    check,
			Flags: []cli.Flag{
				cacheDirFlag,
				catalogFlag,
			},
		},
		{
			Name:      "show",
			Usage:     "show the cached resolution state for a product",
			ArgsUsage: "product_id",
			Action:    show,
			Flags: []cli.Flag{
				cacheDirFlag,
			},
		},
	}

	return app
}
