// Command crinexgo converts between RINEX observation files and their
// Hatanaka-compressed (CRINEX) form, transparently decompressing .gz/.Z
// input along the way.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bkg-gnss/crinex/pkg/hatanaka"
	"github.com/bkg-gnss/crinex/pkg/rinex"
	"github.com/google/uuid"
	"github.com/mholt/archiver/v3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var log = logrus.New()

func main() {
	app := &cli.App{
		Version:   "v0.1.0",
		Compiled:  time.Now(),
		HelpName:  "crinexgo",
		Usage:     "Hatanaka (CRINEX) RINEX compressor/decompressor",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log debug output"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output path; defaults to the conventional RINEX filename"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				log.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "crx2rnx",
				Usage:     "decompress a CRINEX file into a full RINEX observation file",
				ArgsUsage: "<file>",
				Action:    runCrx2Rnx,
			},
			{
				Name:      "rnx2crx",
				Usage:     "compress a RINEX observation file into CRINEX",
				ArgsUsage: "<file>",
				Action:    runRnx2Crx,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// openMaybeCompressed opens path, transparently unarchiving a single leading
// .gz/.Z/.zip layer if present, and returns the decompressed reader together
// with the path stripped of that layer's extension (used to derive the
// conventional output filename).
func openMaybeCompressed(path string) (io.ReadCloser, string, error) {
	ext := filepath.Ext(path)
	switch strings.ToLower(ext) {
	case ".gz", ".z", ".zip", ".bz2", ".xz":
	default:
		f, err := os.Open(path)
		return f, path, err
	}

	tmp, err := os.CreateTemp("", "crinexgo-*"+strings.TrimSuffix(filepath.Base(path), ext))
	if err != nil {
		return nil, "", err
	}
	if err := archiver.DecompressFile(path, tmp.Name()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, "", fmt.Errorf("decompressing %s: %w", path, err)
	}
	tmp.Close()
	f, err := os.Open(tmp.Name())
	return f, strings.TrimSuffix(path, ext), err
}

func runCrx2Rnx(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("crx2rnx needs exactly one input file", 1)
	}
	reqLog := log.WithField("request_id", uuid.New().String())
	inPath := c.Args().Get(0)

	r, derivedPath, err := openMaybeCompressed(inPath)
	if err != nil {
		return err
	}
	defer r.Close()

	dec, err := rinex.NewObsDecoder(r)
	if err != nil {
		return fmt.Errorf("reading header of %s: %w", inPath, err)
	}
	reqLog.WithField("file", inPath).Info("decompressing CRINEX")

	d, err := hatanaka.NewDecompressor(dec.Header.HeaderView(), hatanaka.DefaultMaxOrder, hatanaka.WithLogger(reqLog))
	if err != nil {
		return err
	}

	outPath := c.String("output")
	if outPath == "" {
		outPath = strings.TrimSuffix(derivedPath, filepath.Ext(derivedPath)) + ".rnx"
	}
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	defer w.Flush()

	sc := dec.Scanner()
	for sc.Scan() {
		buf := make([]byte, d.RequiredSize())
		n, err := d.Decompress(sc.Text(), buf)
		if err != nil {
			return fmt.Errorf("decompressing line: %w", err)
		}
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return err
			}
			if err := w.WriteByte('\n'); err != nil {
				return err
			}
		}
	}
	return sc.Err()
}

func runRnx2Crx(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("rnx2crx needs exactly one input file", 1)
	}
	reqLog := log.WithField("request_id", uuid.New().String())
	inPath := c.Args().Get(0)

	r, derivedPath, err := openMaybeCompressed(inPath)
	if err != nil {
		return err
	}
	defer r.Close()

	dec, err := rinex.NewObsDecoder(r)
	if err != nil {
		return fmt.Errorf("reading header of %s: %w", inPath, err)
	}
	reqLog.WithField("file", inPath).Info("compressing to CRINEX")

	hv := dec.Header.HeaderView()
	if !hv.IsV3() {
		return fmt.Errorf("rnx2crx: only RINEX v3+ observation files are supported as plain-text input")
	}

	comp, err := hatanaka.NewCompressor(hv, hatanaka.DefaultMaxOrder, hatanaka.DefaultResetPeriod, hatanaka.WithLogger(reqLog))
	if err != nil {
		return err
	}

	outPath := c.String("output")
	if outPath == "" {
		outPath = strings.TrimSuffix(derivedPath, filepath.Ext(derivedPath)) + ".crx"
	}
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	defer w.Flush()

	sc := dec.Scanner()
	for sc.Scan() {
		line := sc.Text()
		if len(line) == 0 || line[0] != '>' {
			return fmt.Errorf("rnx2crx: expected epoch record, got %q", line)
		}
		desc, err := hatanaka.ParseEpochWithClock(line[1:], hv.Major, hv.DefaultSystem)
		if err != nil {
			return fmt.Errorf("parsing epoch record: %w", err)
		}

		epochLine, err := comp.CompressEpoch(desc)
		if err != nil {
			return err
		}
		if err := writeLine(w, epochLine); err != nil {
			return err
		}
		clockLine, err := comp.CompressClock(desc.ClockOffset)
		if err != nil {
			return err
		}
		if err := writeLine(w, clockLine); err != nil {
			return err
		}

		for _, sv := range desc.SVs {
			if !sc.Scan() {
				return fmt.Errorf("rnx2crx: unexpected end of input mid-epoch")
			}
			obsLine := sc.Text()
			if len(obsLine) < 3 || obsLine[:3] != sv.String() {
				return fmt.Errorf("rnx2crx: expected observation record for %s, got %q", sv, obsLine)
			}
			k := hv.K(sv)
			values, flags, err := hatanaka.ParseObservationRecord(obsLine[3:], k)
			if err != nil {
				return fmt.Errorf("parsing observation record for %s: %w", sv, err)
			}
			compressed, err := comp.CompressObservation(sv, values, flags)
			if err != nil {
				return err
			}
			if err := writeLine(w, compressed); err != nil {
				return err
			}
		}
	}
	return sc.Err()
}

func writeLine(w *bufio.Writer, s string) error {
	if _, err := w.WriteString(s); err != nil {
		return err
	}
	return w.WriteByte('\n')
}
