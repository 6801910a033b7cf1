// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// executor is the CLI entrypoint for the scheduled-transaction executor
// (spec §6 "CLI surface"): a single `run` command that loads a config
// file, builds every component, and drives the process until shutdown.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/wuwei-labs/antegen-sub001/config"
	"github.com/wuwei-labs/antegen-sub001/log"
	"github.com/wuwei-labs/antegen-sub001/metrics"
	"github.com/wuwei-labs/antegen-sub001/supervisor"
)

const clientIdentifier = "executor"

var app = &cli.App{
	Name:    clientIdentifier,
	Usage:   "decentralized scheduled-transaction executor",
	Version: "1.0.0",
}

func init() {
	app.Commands = []*cli.Command{runCommand}
}

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "start the executor",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Usage:    "path to the executor configuration file",
			Required: true,
		},
	},
	Action: runAction,
}

func runAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	signer, err := config.LoadKeypair(cfg.Executor.KeypairPath)
	if err != nil {
		return fmt.Errorf("loading keypair: %w", err)
	}
	log.Info("executor: loaded keypair", "pubkey", signer.PublicKey())

	reg := metrics.New()
	sup := supervisor.New(cfg, signer, reg)
	return sup.Run(context.Background())
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
