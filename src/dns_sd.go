package vanbus

/*------------------------------------------------------------------
 *
 * Purpose:   	Announce the packet monitor service using DNS-SD.
 *
 * Description: Typing IP addresses into dashboards gets old; let the
 *		monitor be discovered on the local network instead.
 *		Uses the pure-Go github.com/brutella/dnssd responder,
 *		no system daemon required.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"os"
	"strings"

	"github.com/brutella/dnssd"
	"github.com/charmbracelet/log"
)

const DNS_SD_SERVICE = "_van-monitor._tcp"

func dns_sd_default_service_name() string {
	var hostname, err = os.Hostname()
	if err != nil {
		return "Vanhound"
	}

	// On some systems an FQDN is returned; remove the domain part.
	hostname, _, _ = strings.Cut(hostname, ".")

	return "Vanhound on " + hostname
}

func dns_sd_announce(ctx context.Context, name string, port int) {
	if name == "" {
		name = dns_sd_default_service_name()
	}

	var cfg = dnssd.Config{ //nolint:exhaustruct
		Name: name,
		Type: DNS_SD_SERVICE,
		Port: port,
	}

	var sv, err = dnssd.NewService(cfg)
	if err != nil {
		log.Error("DNS-SD: failed to create service", "error", err)
		return
	}

	var rp, rpErr = dnssd.NewResponder()
	if rpErr != nil {
		log.Error("DNS-SD: failed to create responder", "error", rpErr)
		return
	}

	if _, err := rp.Add(sv); err != nil {
		log.Error("DNS-SD: failed to add service", "error", err)
		return
	}

	go func() {
		if err := rp.Respond(ctx); err != nil && ctx.Err() == nil {
			log.Error("DNS-SD: responder stopped", "error", err)
		}
	}()

	log.Info("DNS-SD: announcing", "name", name, "type", DNS_SD_SERVICE, "port", port)
}
