package main

import (
	"log"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/gate-controller/internal/current"
	"github.com/sweeney/gate-controller/internal/display"
	"github.com/sweeney/gate-controller/internal/gpio"
	"github.com/sweeney/gate-controller/internal/logic"
	"github.com/sweeney/gate-controller/internal/mqtt"
	"github.com/sweeney/gate-controller/internal/status"
)

// controller owns everything the control cycle touches. All fields are used
// from the runLoop goroutine only; the tracker is the hand-off to readers.
type controller struct {
	reader     gpio.Reader
	driver     gpio.Driver
	sampler    current.Sampler
	sink       display.Sink
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // may be nil
	tracker    *status.Tracker       // may be nil
	machine    *logic.Machine
	debouncer  *logic.Debouncer
	heartbeat  time.Duration
	env        func() map[string]string // may be nil

	queue   []queued
	readErr bool
	ampsErr bool
	lcdErr  bool
}

// queued is a debounced signal waiting for the machine, with the time the
// debouncer reported it.
type queued struct {
	sig logic.Signal
	at  time.Time
}

func (c *controller) runLoop(now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			c.shutdown(now(), signalName(s))
			return nil

		case <-tick:
			c.cycle(now())
		}
	}
}

// cycle runs one control period: read inputs, feed at most one signal and
// the tick to the machine, then drive outputs and report.
func (c *controller) cycle(t time.Time) {
	sample, err := c.reader.Read()
	if err != nil {
		if !c.readErr {
			log.Printf("gpio read error: %v", err)
		}
		c.readErr = true
	} else {
		if c.readErr {
			log.Printf("gpio read recovered")
		}
		c.readErr = false
		for _, s := range c.debouncer.Process(logic.Levels{
			A:    sample.A,
			B:    sample.B,
			Dip:  sample.Dip,
			Time: t,
		}) {
			c.queue = append(c.queue, queued{sig: s, at: t})
		}
	}

	in := logic.Input{Amps: c.amps(), Time: t}
	if len(c.queue) > 0 && !c.machine.Holding() {
		in.Signal, in.At = c.queue[0].sig, c.queue[0].at
		c.queue = c.queue[1:]
		log.Printf("input: %s (state=%s)", in.Signal, c.machine.State())
	}

	c.apply(c.machine.Handle(in))

	for _, event := range c.machine.Events() {
		logEvent(event)
		if err := c.publisher.Publish(event); err != nil {
			log.Printf("publish error: %v", err)
		}
	}

	frame := display.Render(c.machine.Screen(t))
	if err := c.sink.Show(frame); err != nil {
		if !c.lcdErr {
			log.Printf("display error: %v", err)
		}
		c.lcdErr = true
	} else {
		c.lcdErr = false
	}

	c.updateTracker(t, frame)

	if !c.debouncer.IsBaselined() {
		return
	}

	if hb := c.machine.CheckHeartbeat(t, c.heartbeat); hb != nil {
		log.Printf("heartbeat: uptime=%v state=%s opens=%d closes=%d autocloses=%d obstructions=%d",
			hb.Uptime, hb.State, hb.Counts.Opens, hb.Counts.Closes, hb.Counts.Autocloses, hb.Counts.Obstructions)

		hbEvent := mqtt.SystemEvent{
			Timestamp: hb.Timestamp,
			Event:     "HEARTBEAT",
		}
		if c.tracker != nil {
			// Refresh network info for heartbeat
			if c.env != nil {
				if net := readNetworkInfo(c.env()); net != nil {
					c.tracker.SetNetwork(net)
				}
			}
			hbEvent.RawPayload = status.FormatStatusEvent(c.tracker.Snapshot(), "HEARTBEAT", "")
		}
		if err := c.publisher.PublishSystem(hbEvent); err != nil {
			log.Printf("heartbeat publish error: %v", err)
		}
	}
}

// amps reads the motor current. A missing or failed reading counts as zero.
func (c *controller) amps() float64 {
	a, err := c.sampler.Amps()
	if err != nil {
		if !c.ampsErr {
			log.Printf("current: %v", err)
		}
		c.ampsErr = true
		return 0
	}
	if c.ampsErr {
		log.Printf("current: reading restored")
	}
	c.ampsErr = false
	return a
}

// apply writes drive commands in order. If any write fails both outputs
// are released.
func (c *controller) apply(cmds []logic.Command) {
	for _, cmd := range cmds {
		var err error
		switch cmd.Output {
		case logic.OutputOpen:
			err = c.driver.SetOpen(cmd.Asserted)
		case logic.OutputClose:
			err = c.driver.SetClose(cmd.Asserted)
		}
		if err != nil {
			log.Printf("drive %s=%v failed: %v; releasing both outputs", cmd.Output, cmd.Asserted, err)
			c.release()
			return
		}
	}
}

func (c *controller) release() {
	if err := c.driver.SetOpen(false); err != nil {
		log.Printf("release open: %v", err)
	}
	if err := c.driver.SetClose(false); err != nil {
		log.Printf("release close: %v", err)
	}
}

func (c *controller) updateTracker(t time.Time, frame display.Frame) {
	if c.tracker == nil {
		return
	}
	m := c.machine
	screen := m.Screen(t)
	open, closing := m.Drives()
	a, b, dip := c.debouncer.CurrentLevels()
	lastTrip, _ := m.LastObstruction()
	c.tracker.Update(status.Gate{
		State:        m.State(),
		Label:        screen.Label,
		Line1:        frame.Line1,
		Line2:        frame.Line2,
		Remaining:    m.Remaining(t),
		Amps:         screen.Amps,
		DriveOpen:    open,
		DriveClose:   closing,
		Holding:      m.Holding(),
		Calibration:  m.Calibration(),
		RequireSetup: m.RequireSetup(),

		ButtonA:         a,
		ButtonB:         b,
		Dip:             dip,
		LastObstruction: lastTrip,
	}, c.debouncer.IsBaselined(), m.Counts())
	if c.mqttStatus != nil {
		c.tracker.SetMQTTConnected(c.mqttStatus.IsConnected())
	}
}

// shutdown releases the drives and announces the stop.
func (c *controller) shutdown(t time.Time, reason string) {
	c.release()

	event := mqtt.SystemEvent{
		Timestamp: t,
		Event:     "SHUTDOWN",
		Reason:    reason,
		Retained:  true,
	}
	if c.tracker != nil {
		if c.mqttStatus != nil {
			c.tracker.SetMQTTConnected(c.mqttStatus.IsConnected())
		}
		event.RawPayload = status.FormatStatusEvent(c.tracker.Snapshot(), "SHUTDOWN", reason)
	}
	if err := c.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func logEvent(e logic.Event) {
	switch e.Type {
	case logic.EventObstruction:
		log.Printf("event: OBSTRUCTION %s -> %s at %.2fA (travelled %v)", e.From, e.To, e.Amps, e.Remaining)
	case logic.EventCalibrated:
		log.Printf("event: CALIBRATED drive=%v autoclose=%v", e.Calibration.DriveDuration, e.Calibration.AutocloseDelay)
		if e.Err != "" {
			log.Printf("calibration not saved: %s", e.Err)
		}
	default:
		log.Printf("event: %s %s -> %s", e.Type, e.From, e.To)
	}
}
