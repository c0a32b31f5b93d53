package vanbus

/*------------------------------------------------------------------
 *
 * Purpose:   	Send one frame onto the bus from the command line.
 *
 * Usage:	vansend -c van.yaml --iden 8A4 --flags 4 0F 07 00
 *
 *		Payload bytes are hex arguments.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

func VanSendMain() {
	var configPath = pflag.StringP("config", "c", "", "YAML configuration file.")
	var idenStr = pflag.StringP("iden", "i", "", "12-bit identifier, hex.")
	var flagsStr = pflag.StringP("flags", "f", "0", "COM flags (RAK/RW/RTR), hex.")
	var timeoutMs = pflag.Int("timeout-ms", 1000, "Give up after this long.")
	var sync = pflag.Bool("sync", true, "Wait for the frame to reach the wire.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - send one VAN frame.  Payload bytes are hex arguments.\n\n", os.Args[0])
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help || *idenStr == "" {
		pflag.Usage()
		os.Exit(IfThenElse(*help, 0, 1))
	}

	var iden, err = strconv.ParseUint(*idenStr, 16, 12)
	if err != nil {
		log.Fatal("bad iden", "value", *idenStr, "error", err)
	}

	var flags, ferr = strconv.ParseUint(*flagsStr, 16, 3)
	if ferr != nil {
		log.Fatal("bad flags", "value", *flagsStr, "error", ferr)
	}

	var data []byte
	for _, arg := range pflag.Args() {
		var b, berr = strconv.ParseUint(arg, 16, 8)
		if berr != nil {
			log.Fatal("bad payload byte", "value", arg, "error", berr)
		}
		data = append(data, byte(b))
	}

	var cfg, cerr = LoadConfig(*configPath)
	if cerr != nil {
		log.Fatal("config", "error", cerr)
	}
	if cfg.TxPin < 0 {
		log.Fatal("no tx_pin configured")
	}

	var hw, hwErr = NewGpioHardware(cfg)
	if hwErr != nil {
		log.Fatal("gpio", "error", hwErr)
	}

	var t = New(hw, cfg)
	if !t.Setup() {
		log.Fatal("setup failed")
	}

	var ok bool
	if *sync {
		ok = t.SendSync(uint16(iden), byte(flags), data, *timeoutMs)
	} else {
		ok = t.SendAsync(uint16(iden), byte(flags), data, *timeoutMs)
	}

	if !ok {
		log.Error("send failed", "iden", fmt.Sprintf("%03X", iden))
		os.Exit(1)
	}

	log.Info("sent", "iden", fmt.Sprintf("%03X", iden), "bytes", len(data))
}
