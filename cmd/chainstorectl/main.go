// Copyright © 2025 ANTDChain Contributors
// Licensed under the MIT License (MIT). See LICENSE in the repository root
// for more information.

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/urfave/cli/v2"

	"github.com/blockcore-labs/chainstore/chainkv"
	"github.com/blockcore-labs/chainstore/chainstore"
)

func main() {
	app := &cli.App{
		Name:  "chainstorectl",
		Usage: "Inspect a chainstore data directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "datadir",
				Aliases:  []string{"d"},
				Required: true,
				Usage:    "Pebble data directory to inspect (opened writable; a store without genesis is initialised)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "head",
				Usage:  "Print the current genesis/headHeader/headBlock triple",
				Action: cmdHead,
			},
			{
				Name:      "header",
				Usage:     "Print a header by hash (0x...) or block number",
				ArgsUsage: "<hash|number>",
				Action:    cmdHeader,
			},
			{
				Name:   "stats",
				Usage:  "Print basic chain statistics",
				Action: cmdStats,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "chainstorectl:", err)
		os.Exit(1)
	}
}

// openReadOnly wires a chainstore.Core over a pebble store at the given
// directory. The store is opened writable, and chainstore.New initialises
// it (genesis block and head pointers) where those are absent; the
// inspection commands themselves issue no writes.
func openReadOnly(c *cli.Context) (*chainstore.Core, error) {
	dir := c.String("datadir")
	kv, err := chainkv.OpenPebble(dir)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dir, err)
	}
	return chainstore.New(chainstore.WithKeyValueStore(kv)), nil
}

func cmdHead(c *cli.Context) error {
	core, err := openReadOnly(c)
	if err != nil {
		return err
	}
	defer core.Close()

	heads, err := core.GetHead(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("genesis:    %s\n", heads.Genesis.Hex())
	fmt.Printf("headHeader: %s\n", heads.HeadHeader.Hex())
	fmt.Printf("headBlock:  %s\n", heads.HeadBlock.Hex())
	return nil
}

func cmdHeader(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return cli.Exit("expected exactly one argument: <hash|number>", 1)
	}

	core, err := openReadOnly(c)
	if err != nil {
		return err
	}
	defer core.Close()

	ctx := context.Background()
	arg := c.Args().First()

	var header *types.Header
	if strings.HasPrefix(arg, "0x") {
		block, err := core.GetBlock(ctx, common.HexToHash(arg))
		if err != nil {
			return err
		}
		header = block.Header()
	} else {
		n, perr := strconv.ParseUint(arg, 10, 64)
		if perr != nil {
			return fmt.Errorf("argument must be a 0x-prefixed hash or a decimal block number: %w", perr)
		}
		block, err := core.GetBlockByNumber(ctx, n)
		if err != nil {
			return err
		}
		header = block.Header()
	}

	printHeader(header)
	return nil
}

func printHeader(header *types.Header) {
	fmt.Printf("number:     %d\n", header.Number.Uint64())
	fmt.Printf("hash:       %s\n", header.Hash().Hex())
	fmt.Printf("parentHash: %s\n", header.ParentHash.Hex())
	fmt.Printf("difficulty: %s\n", header.Difficulty.String())
	fmt.Printf("time:       %d\n", header.Time)
}

func cmdStats(c *cli.Context) error {
	core, err := openReadOnly(c)
	if err != nil {
		return err
	}
	defer core.Close()

	ctx := context.Background()
	heads, err := core.GetHead(ctx)
	if err != nil {
		return err
	}
	latest, err := core.GetLatestHeader(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("height:     %d\n", latest.Number.Uint64())
	fmt.Printf("headHeader: %s\n", heads.HeadHeader.Hex())
	fmt.Printf("headBlock:  %s\n", heads.HeadBlock.Hex())
	fmt.Printf("genesis:    %s\n", heads.Genesis.Hex())
	return nil
}
