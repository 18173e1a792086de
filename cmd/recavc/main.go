// Copyright 2026 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command recavc losslessly re-compresses CABAC-coded video streams.
//
//	recavc compress   <input> [output]
//	recavc decompress <input> [output]
//	recavc roundtrip  <input> [output]
//	recavc test       <dir>
//	recavc gen        <output>
//
// The recoded file stores the arithmetic-coded restatement of every
// CABAC span next to the untouched remainder of the stream;
// decompression reproduces the input byte for byte.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ulikunitz/recavc"
	"github.com/ulikunitz/recavc/internal/mmap"
	"github.com/ulikunitz/recavc/internal/refcodec"
	"github.com/ulikunitz/recavc/internal/xlog"
)

func main() {
	log.SetPrefix("recavc: ")
	log.SetFlags(0)

	app := &cli.App{
		Name:  "recavc",
		Usage: "lossless re-compression of CABAC-coded video streams",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable span accounting on stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "compress",
				Usage:     "recode a stream into an envelope",
				ArgsUsage: "<input> [output]",
				Action:    compressAction,
			},
			{
				Name:      "decompress",
				Usage:     "reconstruct the original stream from an envelope",
				ArgsUsage: "<input> [output]",
				Action:    decompressAction,
			},
			{
				Name:      "roundtrip",
				Usage:     "compress, decompress and verify byte equality",
				ArgsUsage: "<input> [output]",
				Action:    roundtripAction,
			},
			{
				Name:      "test",
				Usage:     "batch roundtrip over a directory, with metrics CSV",
				ArgsUsage: "<dir>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "csv",
						Usage: "metrics CSV output path",
						Value: "recavc-metrics.csv",
					},
				},
				Action: testAction,
			},
			{
				Name:      "gen",
				Usage:     "generate a synthetic test stream",
				ArgsUsage: "<output>",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "seed", Value: 1},
					&cli.IntFlag{Name: "frames", Value: 4},
					&cli.IntFlag{Name: "width", Usage: "frame width in macroblocks", Value: 8},
					&cli.IntFlag{Name: "height", Usage: "frame height in macroblocks", Value: 8},
				},
				Action: genAction,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Print(err)
		os.Exit(1)
	}
}

func debugLog(c *cli.Context) xlog.Logger {
	if c.Bool("verbose") {
		return log.New(os.Stderr, "recavc: ", 0)
	}
	return nil
}

// inOutArgs extracts the input path and the optional output path of a
// subcommand.
func inOutArgs(c *cli.Context) (in, out string, err error) {
	switch c.NArg() {
	case 1:
		return c.Args().Get(0), "", nil
	case 2:
		return c.Args().Get(0), c.Args().Get(1), nil
	default:
		return "", "", errors.New("expected <input> [output]")
	}
}

// writeOutput writes data to the output path, or to stdout if none is
// given.
func writeOutput(out string, data []byte) error {
	if out == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(out, data, 0666)
}

func compressAction(c *cli.Context) error {
	in, out, err := inOutArgs(c)
	if err != nil {
		return err
	}
	data, done, err := mmap.Map(in)
	if err != nil {
		return err
	}
	defer done()
	recoded, err := recavc.Compress(data, refcodec.New(),
		recavc.CompressorConfig{DebugLog: debugLog(c)})
	if err != nil {
		return err
	}
	return writeOutput(out, recoded)
}

func decompressAction(c *cli.Context) error {
	in, out, err := inOutArgs(c)
	if err != nil {
		return err
	}
	data, done, err := mmap.Map(in)
	if err != nil {
		return err
	}
	defer done()
	decoded, err := recavc.Decompress(data, refcodec.New(),
		recavc.DecompressorConfig{DebugLog: debugLog(c)})
	if err != nil {
		return err
	}
	return writeOutput(out, decoded)
}

func roundtripAction(c *cli.Context) error {
	in, out, err := inOutArgs(c)
	if err != nil {
		return err
	}
	data, done, err := mmap.Map(in)
	if err != nil {
		return err
	}
	defer done()
	info, recoded, err := recavc.Roundtrip(data, refcodec.New(),
		recavc.CompressorConfig{DebugLog: debugLog(c)},
		recavc.DecompressorConfig{DebugLog: debugLog(c)})
	if err != nil {
		return err
	}
	fmt.Println("compress-decompress roundtrip succeeded:")
	fmt.Printf(" compression ratio: %.2f%%\n", info.Ratio*100)
	fmt.Printf(" envelope overhead: %.2f%%\n", info.FramingOverhead*100)
	if out != "" {
		return writeOutput(out, recoded)
	}
	return nil
}

func genAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected <output>")
	}
	data, _ := refcodec.GenerateStream(refcodec.GenConfig{
		MBWidth:  c.Int("width"),
		MBHeight: c.Int("height"),
		Frames:   c.Int("frames"),
		Seed:     c.Int64("seed"),
	})
	return writeOutput(c.Args().Get(0), data)
}
