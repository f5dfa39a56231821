// +build linux

// Command gpiodrv drives the switch and LED GPIO peripherals of a Zybo board from userspace.
// Switch interrupts arrive through UIO; each event is added to a counter shown on the LEDs.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/BertoldVdb/zybo-gpio/counter"
	"github.com/BertoldVdb/zybo-gpio/daemon"
	"github.com/BertoldVdb/zybo-gpio/diag"
	"github.com/BertoldVdb/zybo-gpio/gpio"
	"github.com/BertoldVdb/zybo-gpio/gpiodrv"
	"github.com/BertoldVdb/zybo-gpio/logrusconfig"
	"github.com/BertoldVdb/zybo-gpio/regfile"
	"github.com/BertoldVdb/zybo-gpio/uio"
	"github.com/sirupsen/logrus"
)

type peripherals struct {
	switches regfile.RegisterFile
	leds     regfile.RegisterFile
	events   uio.Events
	closers  []func() error
}

// openHardware maps the switches through UIO. The LEDs need no interrupt, they are mapped
// through /dev/mem if ledAddr is set.
func openHardware(switchIndex int, ledIndex int, ledAddr int64) (*peripherals, error) {
	sw, err := uio.Open(switchIndex)
	if err != nil {
		return nil, err
	}

	/* The pump closes the switch device, the mapping outlives it */
	p := &peripherals{
		switches: sw.Regs,
		events:   sw,
		closers:  []func() error{sw.Regs.Close},
	}

	if ledAddr != 0 {
		led, err := regfile.OpenDevMem(ledAddr, regfile.WindowSize)
		if err != nil {
			sw.Close()
			sw.Regs.Close()
			return nil, err
		}
		p.leds = led
		p.closers = append(p.closers, led.Close)
		return p, nil
	}

	led, err := uio.Open(ledIndex)
	if err != nil {
		sw.Close()
		sw.Regs.Close()
		return nil, err
	}
	p.leds = led.Regs
	p.closers = append(p.closers, led.Close, led.Regs.Close)
	return p, nil
}

func openSim(interval time.Duration) *peripherals {
	sw := regfile.NewSim()
	return &peripherals{
		switches: sw,
		leds:     regfile.NewSim(),
		events: &uio.SimEvents{
			Regs:     sw,
			Interval: interval,
			Lines:    0x1,
			Pattern:  []uint32{0x1, 0x2, 0x4, 0x8},
		},
	}
}

func main() {
	logrusconfig.InitParam()
	switchIndex := flag.Int("switches", 1, "UIO index of the switch GPIO")
	ledIndex := flag.Int("leds", 0, "UIO index of the LED GPIO")
	ledAddr := flag.Int64("ledaddr", 0, "Physical address of the LED GPIO, maps it through /dev/mem instead of UIO")
	switchLine := flag.Int("line", 61, "Interrupt line of the switch GPIO")
	intMask := flag.Uint("mask", 0x0F, "Switch pins that raise interrupts")
	outPins := flag.Uint("outpins", gpiodrv.DefaultOutputPins, "LED pins driven by a write")
	capacity := flag.Int("capacity", gpiodrv.DefaultCapacity, "Maximum number of GPIO devices")
	httpPort := flag.Int("http", 8080, "Port of the diagnostics server, 0 disables it")
	stateFile := flag.String("state", "", "File that keeps the counter across restarts")
	sim := flag.Bool("sim", false, "Use simulated peripherals")
	simInterval := flag.Duration("siminterval", time.Second, "Interval between simulated switch interrupts")
	flag.Parse()

	log := logrusconfig.GetLogger(logrus.InfoLevel)
	mainLog := logrusconfig.Component(log, "main")

	var p *peripherals
	if *sim {
		p = openSim(*simInterval)
	} else {
		var err error
		p, err = openHardware(*switchIndex, *ledIndex, *ledAddr)
		if err != nil {
			mainLog.WithError(err).Fatal("Could not open the UIO devices")
		}
	}
	defer func() {
		for _, c := range p.closers {
			c()
		}
	}()

	driver := gpiodrv.New(gpiodrv.Config{
		Capacity:   *capacity,
		OutputPins: uint32(*outPins),
		Logger:     logrusconfig.Component(log, "gpiodrv"),
	})
	defer driver.Close()

	switchGpio, err := gpio.New(p.switches, true)
	if err != nil {
		mainLog.WithError(err).Fatal("Switch GPIO")
	}
	ledGpio, err := gpio.New(p.leds, false)
	if err != nil {
		mainLog.WithError(err).Fatal("LED GPIO")
	}
	if err := switchGpio.SetDirection(uint32(*intMask), gpio.DirectionRead); err != nil {
		mainLog.WithError(err).Fatal("Switch direction")
	}

	switchID, err := driver.Register(switchGpio)
	if err != nil {
		mainLog.WithError(err).Fatal("Register switches")
	}
	ledID, err := driver.Register(ledGpio)
	if err != nil {
		mainLog.WithError(err).Fatal("Register LEDs")
	}
	if err := driver.BindInterrupt(switchID, *switchLine, uint32(*intMask)); err != nil {
		mainLog.WithError(err).Fatal("Bind switch interrupt")
	}

	switchDev, err := driver.Open(switchID)
	if err != nil {
		mainLog.WithError(err).Fatal("Open switches")
	}
	defer switchDev.Close()
	ledDev, err := driver.Open(ledID)
	if err != nil {
		mainLog.WithError(err).Fatal("Open LEDs")
	}
	defer ledDev.Close()

	d := &daemon.Daemon{Logger: logrusconfig.Component(log, "daemon")}
	d.Add("pump", &uio.Pump{
		Events:  p.events,
		Handler: driver,
		Line:    *switchLine,
		Logger:  logrusconfig.Component(log, "uio"),
	})
	d.Add("counter", &counter.App{
		Switches:     switchDev,
		LEDs:         ledDev,
		Logger:       logrusconfig.Component(log, "counter"),
		StateFile:    *stateFile,
		SaveInterval: 10 * time.Second,
	})
	if *httpPort > 0 {
		d.Add("diag", &diag.Server{
			Source:     driver,
			ListenPort: *httpPort,
			Logger:     logrusconfig.Component(log, "diag"),
		})
	}
	d.HandleSIGTERM()

	mainLog.Infof("Switches on device %d (line %d), LEDs on device %d", switchID, *switchLine, ledID)
	err = d.Run()
	if err != nil && err != daemon.ErrorClosed {
		mainLog.WithError(err).Error("Stopped")
		os.Exit(1)
	}
	mainLog.Info("Stopped")
}
