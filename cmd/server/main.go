package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jinzhu/configor"
	"github.com/lightninglabs/lndclient"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/lnaddy/lnaddy"
	"github.com/lnaddy/lnaddy/internal/price"
	"github.com/lnaddy/lnaddy/internal/store"
)

func main() {
	app := cli.NewApp()

	app.Name = "lnaddyd"
	app.Usage = "Lightning address / LNURL-pay server"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Value: "config.yaml",
			Usage: "Path to the yaml config file",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
	}
	app.Action = run
	app.Commands = append(app.Commands, addLinkCommand)

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[lnaddyd] %v\n", err)
	os.Exit(1)
}

func loadConfig(ctx *cli.Context) (*lnaddy.Config, error) {
	cfg := &lnaddy.Config{}
	if err := configor.Load(cfg, ctx.String("config")); err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}

	if ctx.Bool("debug") {
		log.SetLevel(log.DebugLevel)
	}

	return cfg, nil
}

func run(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("could not open database: %w", err)
	}

	// Connect to LND.
	lnd, err := lndclient.NewLndServices(&lndclient.LndServicesConfig{
		LndAddress:  cfg.Lnd.Addr,
		Network:     lndclient.Network(cfg.Lnd.Network),
		MacaroonDir: cfg.Lnd.MacaroonDir,
		TLSPath:     cfg.Lnd.TLSPath,
	})
	if err != nil {
		return fmt.Errorf("could not connect to lnd: %w", err)
	}

	info, err := lnd.Client.GetInfo(context.Background())
	if err != nil {
		return err
	}
	log.Infof("[lnaddyd] Connected to node with alias: %s", info.Alias)

	watcher := price.NewWatcher(cfg.Currencies)
	watcher.Start()

	server, err := lnaddy.NewServer(
		cfg, db, watcher, lnaddy.NewLndInvoicer(lnd.Client),
	)
	if err != nil {
		return err
	}

	return server.Run()
}

var addLinkCommand = &cli.Command{
	Name:  "addlink",
	Usage: "Create a pay link / lightning address record",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "username",
			Usage:    "The lightning address username",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "wallet",
			Usage: "Receiving wallet id",
		},
		&cli.StringFlag{
			Name:  "description",
			Usage: "Invoice description",
			Value: "Thanks for the sats!",
		},
		&cli.Float64Flag{
			Name:  "min",
			Usage: "Min sendable amount in the link's currency",
			Value: 1,
		},
		&cli.Float64Flag{
			Name:  "max",
			Usage: "Max sendable amount in the link's currency",
			Value: 1_000_000,
		},
		&cli.StringFlag{
			Name: "currency",
			Usage: "Fiat currency code the bounds are " +
				"denominated in. Empty means satoshi",
		},
		&cli.Int64Flag{
			Name:  "comment-chars",
			Usage: "Max accepted comment length, 0 disables",
		},
	},
	Action: addLink,
}

func addLink(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("could not open database: %w", err)
	}

	link, err := db.CreatePayLink(ctx.Context, &store.PayLink{
		Username:     ctx.String("username"),
		Wallet:       ctx.String("wallet"),
		Description:  ctx.String("description"),
		Min:          ctx.Float64("min"),
		Max:          ctx.Float64("max"),
		Currency:     ctx.String("currency"),
		CommentChars: ctx.Int64("comment-chars"),
	})
	if err != nil {
		return err
	}

	descriptorURL := fmt.Sprintf(
		"%s/api/v1/lnurl/%s", cfg.PublicURL, link.ID,
	)
	payLNURL, err := lnaddy.EncodeURL(descriptorURL)
	if err != nil {
		return err
	}

	fmt.Printf(""+
		"Created pay link %s\n"+
		"- %s\n"+
		"- lightning:%s\n",
		link.ID, payLNURL, payLNURL,
	)

	return nil
}
