package vanbus

/*------------------------------------------------------------------
 *
 * Purpose:   	Decode a captured edge recording through the real
 *		receive path.  Regression harness.
 *
 * Description: The input is a text file of edges, one per line:
 *
 *			<delta-cycles> <level>
 *
 *		delta-cycles since the previous edge, level 0 or 1 as
 *		sampled after the edge.  Lines starting with '#' and
 *		blank lines are ignored.  The recording is replayed into
 *		a simulated bus wired to the actual decoder, so the
 *		whole chain from bit-timing estimation to CRC repair is
 *		exercised exactly as on hardware.
 *
 * Usage:	vanatest [ options ] capture.txt
 *
 *---------------------------------------------------------------*/

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

func VanAtestMain() {
	var repair = pflag.BoolP("repair", "R", true, "Attempt bit repair on packets with a bad CRC.")
	var errorIfLessThan = pflag.IntP("error-if-less-than", "L", -1, "Exit nonzero if fewer packets decoded.")
	var cpuMhz = pflag.Int("cpu-mhz", 80, "CPU frequency the capture was cycle-stamped at.")
	var quiet = pflag.BoolP("quiet", "q", false, "Only print the summary.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - replay an edge capture through the VAN decoder.\n\n", os.Args[0])
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help || pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(IfThenElse(*help, 0, 1))
	}

	var fp, err = os.Open(pflag.Arg(0))
	if err != nil {
		log.Fatal("open capture", "error", err)
	}
	defer fp.Close()

	var sim = new_sim_bus(uint32(*cpuMhz) * 1000000)
	var t = New(sim, nil)
	if !t.Setup() {
		log.Fatal("setup failed")
	}

	var decoded, crc_ok_count, repaired = 0, 0, 0
	var out = &RxPacket{}

	var drain = func() {
		for t.Receive(out, nil) {
			decoded++
			var ok = out.CheckCrc()
			if !ok && *repair {
				ok = t.CheckCrcAndRepair(out, nil)
				if ok {
					repaired++
				}
			}
			if ok {
				crc_ok_count++
			}
			if !*quiet {
				dump_packet(os.Stdout, out)
			}
		}
	}

	var scanner = bufio.NewScanner(fp)
	var lineno = 0
	for scanner.Scan() {
		lineno++
		var line = strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var fields = strings.Fields(line)
		if len(fields) != 2 {
			log.Fatal("malformed capture line", "line", lineno)
		}

		var delta, derr = strconv.ParseUint(fields[0], 10, 32)
		var level, lerr = strconv.Atoi(fields[1])
		if derr != nil || lerr != nil || level < 0 || level > 1 {
			log.Fatal("malformed capture line", "line", lineno)
		}

		sim.edge(uint32(delta), PinLevel(level))
		drain()
	}
	if err := scanner.Err(); err != nil {
		log.Fatal("reading capture", "error", err)
	}

	// Let a pending ACK window expire.
	sim.advance(sim.bit_period * (ACK_TIMEOUT_SLOTS + 8))
	drain()

	fmt.Printf("\n%d packets decoded, %d with good CRC (%d after repair)\n",
		decoded, crc_ok_count, repaired)
	t.DumpStats(os.Stdout, true)

	if *errorIfLessThan >= 0 && decoded < *errorIfLessThan {
		os.Exit(1)
	}
}
