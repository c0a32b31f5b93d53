package vanbus

import (
	"fmt"
	"strings"

	"github.com/jochenvg/go-udev"
)

/*------------------------------------------------------------------
 *
 * Purpose:   	Find a GPIO chip by its label.
 *
 * Description: Chip numbering moves around between boots and between
 *		boards; the label ("pinctrl-bcm2835" and friends) does
 *		not.  Walk the udev gpio subsystem and match on it.
 *
 *---------------------------------------------------------------*/

func find_gpiochip_by_label(label string) (string, error) {
	var u = udev.Udev{}
	var e = u.NewEnumerate()

	if err := e.AddMatchSubsystem("gpio"); err != nil {
		return "", fmt.Errorf("udev enumerate: %w", err)
	}

	var devices, err = e.Devices()
	if err != nil {
		return "", fmt.Errorf("udev devices: %w", err)
	}

	for _, d := range devices {
		if !strings.HasPrefix(d.Sysname(), "gpiochip") {
			continue
		}
		if d.SysattrValue("label") == label {
			return d.Sysname(), nil
		}
	}

	return "", fmt.Errorf("no gpiochip labelled %q", label)
}
