package vanbus

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/creack/pty"
)

/*------------------------------------------------------------------
 *
 * Purpose:   	Serve the decoded packet stream to other programs.
 *
 * Description: Two surfaces over the same text rendering:
 *
 *		  - A TCP listener; every client receives each packet
 *		    as one line.  Optionally announced over DNS-SD.
 *
 *		  - A pseudo-terminal, for software that only knows how
 *		    to open a serial port.  The slave name is printed
 *		    at startup.
 *
 *		Both are strictly one-way.  Slow clients get dropped
 *		rather than back-pressure the monitor loop.
 *
 *---------------------------------------------------------------*/

type monitor struct {
	mu      sync.Mutex
	clients map[net.Conn]bool

	pty_master *os.File

	listener net.Listener
}

func start_monitor(ctx context.Context, cfg MonitorConfig) (*monitor, error) {
	var m = &monitor{clients: make(map[net.Conn]bool)}

	if cfg.Listen != "" {
		var ln, err = net.Listen("tcp", cfg.Listen)
		if err != nil {
			return nil, fmt.Errorf("monitor listen %s: %w", cfg.Listen, err)
		}
		m.listener = ln
		go m.accept_loop(ln)

		if cfg.Announce {
			var port = listen_port(ln)
			dns_sd_announce(ctx, "", port)
		}

		log.Info("monitor: listening", "addr", ln.Addr().String())
	}

	if cfg.Pty {
		var master, slave, err = pty.Open()
		if err != nil {
			return nil, fmt.Errorf("monitor pty: %w", err)
		}
		m.pty_master = master
		log.Info("monitor: pseudo-terminal ready", "path", slave.Name())
		slave.Close() // Clients open it by name.
	}

	return m, nil
}

func listen_port(ln net.Listener) int {
	var _, portstr, _ = net.SplitHostPort(ln.Addr().String())
	var port, _ = strconv.Atoi(portstr)
	return port
}

func (m *monitor) accept_loop(ln net.Listener) {
	for {
		var conn, err = ln.Accept()
		if err != nil {
			return
		}
		m.mu.Lock()
		m.clients[conn] = true
		m.mu.Unlock()
		log.Info("monitor: client connected", "remote", conn.RemoteAddr().String())
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	publish
 *
 * Purpose:	Send one packet line to every attached client.
 *
 *--------------------------------------------------------------------*/

func (m *monitor) publish(p *RxPacket) {
	var line = monitor_line(p)

	m.mu.Lock()
	for conn := range m.clients {
		// A client that cannot take the line promptly is dropped.
		_ = conn.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
		if _, err := conn.Write([]byte(line)); err != nil {
			conn.Close()
			delete(m.clients, conn)
		}
	}
	m.mu.Unlock()

	if m.pty_master != nil {
		_, _ = m.pty_master.Write([]byte(line))
	}
}

func monitor_line(p *RxPacket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %03X %X", p.Millis, p.Iden(), p.CommandFlags())
	for _, d := range p.Data() {
		fmt.Fprintf(&b, " %02X", d)
	}
	if !p.CheckCrc() {
		b.WriteString(" !CRC")
	}
	if p.Ack == VAN_ACK {
		b.WriteString(" ACK")
	}
	b.WriteString("\r\n")
	return b.String()
}

func (m *monitor) close() {
	if m.listener != nil {
		m.listener.Close()
	}
	m.mu.Lock()
	for conn := range m.clients {
		conn.Close()
	}
	m.clients = map[net.Conn]bool{}
	m.mu.Unlock()
	if m.pty_master != nil {
		m.pty_master.Close()
	}
}
