// Command motionctl runs the motion-planning engine against a configuration
// built from the stock defaults and command-line flags, a serial-connected MCU (or, with -mock, an in-memory back-end for
// dry runs), and serves a small status API.
//
// Grounded on the teacher's main/K3cMain.go: a thin main() that builds the
// shared value/logging singleton, constructs the top-level driver, and
// blocks.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/holla2040/beagleg/internal/backend"
	"github.com/holla2040/beagleg/internal/config"
	"github.com/holla2040/beagleg/internal/logging"
	"github.com/holla2040/beagleg/internal/peripheral"
	"github.com/holla2040/beagleg/internal/planner"
	"github.com/holla2040/beagleg/internal/status"
	"github.com/holla2040/beagleg/internal/tmpl"
)

func main() {
	var (
		serialPort    = flag.String("serial", "/dev/ttyACM0", "serial port the MCU is attached to")
		baud          = flag.Int("baud", 115200, "serial baud rate")
		listen        = flag.String("listen", ":8080", "status API listen address")
		logLevel      = flag.String("log", "info", "log level: error, info, debug")
		mock          = flag.Bool("mock", false, "use an in-memory motor back-end and GPIO instead of real hardware")
		axisMap       = flag.String("axis-mapping", "XYZEA", "axis->connector mapping string")
		homeOrder     = flag.String("home-order", "ZXY", "homing order")
		requireHoming = flag.Bool("require-homing", true, "reject moves before the machine has been homed")
		debugPrint    = flag.Bool("debug-config", false, "print the resolved per-axis configuration at startup")
	)
	flag.Parse()

	log := logging.New(logging.ParseLevel(*logLevel))

	b := config.DefaultBuilder()
	b.AxisMapping = *axisMap
	b.HomeOrder = *homeOrder
	b.RequireHoming = *requireHoming
	b.DebugPrint = *debugPrint

	cfg, err := b.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "motionctl: configuration error: %v\n", err)
		os.Exit(1)
	}

	var motor backend.MotorOperations
	var per peripheral.Peripheral
	if *mock {
		motor = backend.NewMock()
		per = peripheral.NewMock()
	} else {
		sb, err := backend.OpenSerial(*serialPort, *baud, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "motionctl: opening %s: %v\n", *serialPort, err)
			os.Exit(1)
		}
		motor = sb
		per = peripheral.NewSysfs(defaultSysfsMap())
	}

	p := planner.New(cfg, motor, per, os.Stdout, log)

	engine := tmpl.New()
	banner, err := engine.BootBanner(planner.FirmwareName, planner.FirmwareVersion, p.SessionID(), *debugPrint, cfg.DebugLines())
	if err == nil {
		fmt.Println(banner)
	}

	srv := status.New(p)
	p.SetOnEmit(srv.Broadcast)
	log.Info.Printf("status API listening on %s", *listen)
	if err := http.ListenAndServe(*listen, srv.Handler()); err != nil {
		fmt.Fprintf(os.Stderr, "motionctl: status API: %v\n", err)
		os.Exit(1)
	}
}

// defaultSysfsMap is the BeagleBone-style GPIO line assignment used when
// no board-specific override is supplied. Real deployments are expected
// to carry their own mapping; this is a starting point matching the
// fixed pin set peripheral.Pin enumerates.
func defaultSysfsMap() peripheral.SysfsMap {
	m := peripheral.SysfsMap{
		peripheral.PinEstop:        46,
		peripheral.PinLED:          47,
		peripheral.PinStart:        27,
		peripheral.PinFan:          65,
		peripheral.PinMachinePower: 61,
	}
	for n := 1; n <= 6; n++ {
		m[peripheral.Endstop(n)] = 60 + n
	}
	for n := 0; n < 16; n++ {
		m[peripheral.Aux(n)] = 80 + n
	}
	return m
}
