package vanbus

import (
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

/*------------------------------------------------------------------
 *
 * Purpose:	Save received packets to a log file.
 *
 * Description: Rather than the raw, rather cryptic byte dump, write
 *		separated properties into CSV format for easy reading
 *		and later processing.
 *
 *		There are two alternatives here: a fixed file path, or
 *		a directory in which daily names are created.
 *
 *---------------------------------------------------------------*/

type packet_logger struct {
	daily_names bool
	log_path    string

	fp         *os.File
	csv        *csv.Writer
	open_fname string
}

func new_packet_logger(cfg PacketLogConfig) *packet_logger {
	if cfg.Path == "" {
		return nil
	}
	return &packet_logger{
		daily_names: cfg.Daily,
		log_path:    cfg.Path,
	}
}

var packet_log_header = []string{
	"time", "seq", "iden", "com", "len", "data", "result", "ack", "crc_ok",
}

func (l *packet_logger) open_for(now time.Time) error {
	var fname = l.log_path
	if l.daily_names {
		fname = filepath.Join(l.log_path, now.Format("2006-01-02")+".log")
	}

	if l.fp != nil && fname == l.open_fname {
		return nil
	}

	if l.fp != nil {
		l.csv.Flush()
		l.fp.Close()
		l.fp = nil
	}

	var fp, err = os.OpenFile(fname, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening packet log %s: %w", fname, err)
	}

	var st, _ = fp.Stat()
	l.fp = fp
	l.csv = csv.NewWriter(fp)
	l.open_fname = fname

	if st != nil && st.Size() == 0 {
		_ = l.csv.Write(packet_log_header)
	}

	return nil
}

/*-------------------------------------------------------------------
 *
 * Name:	log_packet
 *
 * Purpose:	Append one received packet to the log.
 *
 *--------------------------------------------------------------------*/

func (l *packet_logger) log_packet(p *RxPacket, now time.Time) error {
	if err := l.open_for(now); err != nil {
		return err
	}

	var rec = []string{
		now.Format(time.RFC3339),
		strconv.FormatUint(uint64(p.Seqno), 10),
		fmt.Sprintf("%03X", p.Iden()),
		fmt.Sprintf("%X", p.CommandFlags()),
		strconv.Itoa(p.DataLen()),
		hex.EncodeToString(p.Data()),
		p.Result.String(),
		IfThenElse(p.Ack == VAN_ACK, "ACK", "NO_ACK"),
		strconv.FormatBool(p.CheckCrc()),
	}

	if err := l.csv.Write(rec); err != nil {
		return err
	}
	l.csv.Flush()
	return l.csv.Error()
}

func (l *packet_logger) close() {
	if l.fp != nil {
		l.csv.Flush()
		l.fp.Close()
		l.fp = nil
	}
}
