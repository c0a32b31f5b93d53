package vanbus

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

/*------------------------------------------------------------------
 *
 * Purpose:   	Configuration file handling.
 *
 * Description: The tools read a small YAML file naming the GPIO lines
 *		and the queue shape.  Everything has a default; an
 *		absent file just means "all defaults": line 0 of
 *		gpiochip0, receive only.  The tools always open real
 *		GPIO lines; the simulated bus is not selectable here.
 *
 *---------------------------------------------------------------*/

type Config struct {
	// GPIO chip, by path ("/dev/gpiochip0"), by name ("gpiochip0") or
	// by udev label lookup when Chip is empty and ChipLabel is set.
	Chip      string `yaml:"chip"`
	ChipLabel string `yaml:"chip_label"`

	RxPin int `yaml:"rx_pin"`
	TxPin int `yaml:"tx_pin"` // -1 for receive-only.

	RxQueueSize int `yaml:"rx_queue_size"`
	TxQueueSize int `yaml:"tx_queue_size"`

	// Drop policy: queue depth past which non-essential frames are
	// discarded.  0 means never drop until the ring is full.
	DropThreshold int `yaml:"drop_threshold"`

	StrictManchester bool `yaml:"strict_manchester"`
	DebugCapture     bool `yaml:"debug_capture"`

	// Monitor service settings, used by vanmon only.
	Monitor MonitorConfig `yaml:"monitor"`

	// CSV packet log settings, used by vanmon only.
	Log PacketLogConfig `yaml:"log"`
}

type MonitorConfig struct {
	Listen   string `yaml:"listen"`   // e.g. ":9600"; empty disables.
	Announce bool   `yaml:"announce"` // DNS-SD announcement.
	Pty      bool   `yaml:"pty"`      // Also expose a pseudo-terminal.
}

type PacketLogConfig struct {
	Path  string `yaml:"path"`  // File, or directory with Daily.
	Daily bool   `yaml:"daily"` // One file per day under Path.
}

func default_config() *Config {
	return &Config{
		TxPin:       -1,
		RxQueueSize: DEFAULT_RX_QUEUE_SIZE,
		TxQueueSize: DEFAULT_TX_QUEUE_SIZE,
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	LoadConfig
 *
 * Purpose:	Read a YAML configuration file.
 *
 * Inputs:	path	- File name.  Empty returns the defaults.
 *
 *--------------------------------------------------------------------*/

func LoadConfig(path string) (*Config, error) {
	var cfg = default_config()
	if path == "" {
		return cfg, nil
	}

	var raw, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.RxQueueSize <= 0 {
		cfg.RxQueueSize = DEFAULT_RX_QUEUE_SIZE
	}
	if cfg.TxQueueSize <= 0 {
		cfg.TxQueueSize = DEFAULT_TX_QUEUE_SIZE
	}

	return cfg, nil
}
