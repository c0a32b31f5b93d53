package vanbus

/*------------------------------------------------------------------
 *
 * Purpose:   	Monitor a VAN bus from the command line.
 *
 * Description:	Attaches a transceiver to the configured GPIO lines and
 *		prints every received packet.  Optional extras: CSV
 *		logging, a TCP/pty monitor service, repair of frames
 *		with a bad CRC.
 *
 * Usage:	vanmon [ options ]
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
	"github.com/spf13/pflag"
)

func VanMonMain() {
	var configPath = pflag.StringP("config", "c", "", "YAML configuration file.")
	var chip = pflag.String("chip", "", "GPIO chip, overrides the config file.")
	var rxPin = pflag.IntP("rx-pin", "r", -1, "Rx line offset, overrides the config file.")
	var txPin = pflag.IntP("tx-pin", "t", -1, "Tx line offset, overrides the config file.")
	var timestampFormat = pflag.StringP("timestamp-format", "T", "", "Precede packets with 'strftime' format time stamp.")
	var repair = pflag.BoolP("repair", "R", false, "Attempt bit repair on packets with a bad CRC.")
	var colorLevel = pflag.Int("color", 1, "Color output: 0 off, 1 on.")
	var longStats = pflag.BoolP("long-stats", "S", false, "Dump the long statistics form on exit.")
	var showVersion = pflag.BoolP("version", "V", false, "Print version and exit.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - VAN bus packet monitor.\n\n", os.Args[0])
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}
	if *showVersion {
		fmt.Println(version_string())
		os.Exit(0)
	}

	text_color_init(*colorLevel)

	var cfg, err = LoadConfig(*configPath)
	if err != nil {
		log.Fatal("config", "error", err)
	}
	if *chip != "" {
		cfg.Chip = *chip
	}
	if *rxPin >= 0 {
		cfg.RxPin = *rxPin
	}
	if *txPin >= 0 {
		cfg.TxPin = *txPin
	}

	var tsFormat *strftime.Strftime
	if *timestampFormat != "" {
		var f, ferr = strftime.New(*timestampFormat)
		if ferr != nil {
			log.Fatal("bad timestamp format", "error", ferr)
		}
		tsFormat = f
	}

	var hw, hwErr = NewGpioHardware(cfg)
	if hwErr != nil {
		log.Fatal("gpio", "error", hwErr)
	}

	var t = New(hw, cfg)
	if !t.Setup() {
		log.Fatal("setup failed")
	}
	log.Info("receiving", "chip", cfg.Chip, "rx", cfg.RxPin, "tx", cfg.TxPin)

	var ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	var mon *monitor
	if cfg.Monitor.Listen != "" || cfg.Monitor.Pty {
		var m, merr = start_monitor(ctx, cfg.Monitor)
		if merr != nil {
			log.Fatal("monitor", "error", merr)
		}
		mon = m
		defer mon.close()
	}

	var plog = new_packet_logger(cfg.Log)
	if plog != nil {
		defer plog.close()
	}

	var sig = make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	var p RxPacket
	var overrun bool

	for {
		select {
		case <-sig:
			fmt.Println()
			t.DumpStats(os.Stdout, *longStats)
			return
		default:
		}

		if !t.Receive(&p, &overrun) {
			SLEEP_MS(1)
			continue
		}

		if overrun {
			text_color_set(VAN_COLOR_ERROR)
			van_printf("*** receive queue overrun, frames lost ***\n")
		}

		var crc_ok = p.CheckCrc()
		if !crc_ok && *repair {
			crc_ok = t.CheckCrcAndRepair(&p, nil)
			if crc_ok {
				text_color_set(VAN_COLOR_REPAIR)
				van_printf("(repaired) ")
			}
		}

		if tsFormat != nil {
			van_printf("%s ", tsFormat.FormatString(time.Now()))
		}

		text_color_set(IfThenElse(crc_ok && p.Result == RX_OK, VAN_COLOR_REC, VAN_COLOR_ERROR))
		dump_packet(os.Stdout, &p)
		text_color_set(VAN_COLOR_INFO)

		if mon != nil {
			mon.publish(&p)
		}
		if plog != nil {
			if err := plog.log_packet(&p, time.Now()); err != nil {
				log.Error("packet log", "error", err)
			}
		}
	}
}
