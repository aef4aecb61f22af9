package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/thebagchi/asner"
	"github.com/thebagchi/asner/lib/ber"
	"github.com/thebagchi/asner/lib/config"
	"github.com/thebagchi/asner/lib/logging"
	"github.com/thebagchi/asner/lib/tpkt"
	"github.com/thebagchi/asner/lib/value"
)

func main() {
	var (
		filename = flag.String("file", "", "PDU file, hex dump unless -binary")
		binary   = flag.Bool("binary", false, "input file holds raw octets")
		framed   = flag.Bool("tpkt", false, "input is one TPKT frame")
		confpath = flag.String("config", "", "TOML configuration file")
	)
	flag.Parse()
	if len(*filename) == 0 {
		fmt.Println("Error: ", "input file required ...")
		os.Exit(1)
	}

	cfg := config.Default()
	if len(*confpath) != 0 {
		var err error
		if cfg, err = config.Load(*confpath); nil != err {
			fmt.Println("Error: ", err)
			os.Exit(1)
		}
	}
	if err := cfg.ApplyEnv(); nil != err {
		fmt.Println("Error: ", err)
		os.Exit(1)
	}
	if *framed {
		cfg.Transport.TPKT = true
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if nil != err {
		fmt.Println("Error: ", err)
		os.Exit(1)
	}
	logger := logging.New(level, os.Stderr)

	var data []byte
	if *binary {
		data, err = os.ReadFile(*filename)
	} else {
		data, err = asner.Parse(*filename)
	}
	if nil != err {
		logger.Error().Err(err).Str("file", *filename).Msg("read input")
		os.Exit(1)
	}

	if err := dump(os.Stdout, data, cfg, logger); nil != err {
		logger.Error().Err(err).Msg("dump")
		os.Exit(1)
	}
}

// dump unwraps the transport framing and writes the tree and fingerprint
// of every element in data.
func dump(w io.Writer, data []byte, cfg config.Config, logger zerolog.Logger) error {
	rules, err := asner.ParseRules(cfg.Codec.Rules)
	if nil != err {
		return err
	}
	if rules != asner.BER {
		return fmt.Errorf("%s encodings carry no tags and cannot be dumped without a schema", rules)
	}
	limits := cfg.DecodeLimits()

	if cfg.Transport.TPKT {
		kind, err := cfg.CompressionType()
		if nil != err {
			return err
		}
		conn, err := tpkt.NewConn(bytes.NewBuffer(data), tpkt.WithLimits(limits), tpkt.WithCompression(kind))
		if nil != err {
			return err
		}
		if data, err = conn.Receive(); nil != err {
			return err
		}
		logger.Debug().Int("octets", len(data)).Stringer("compression", kind).Msg("frame received")
	}

	d := ber.NewDecoder(data, limits)
	d.SetLogger(logger)
	for !d.IsAtEnd() {
		v, err := value.DecodeAnyBER(d)
		if nil != err {
			return err
		}
		fingerprint, err := asner.Fingerprint(v)
		if nil != err {
			return err
		}
		fmt.Fprint(w, value.Dump(v, limits))
		fmt.Fprintf(w, "fingerprint %016x\n", fingerprint)
	}
	return nil
}
