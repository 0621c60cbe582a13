// Command mma8452-watch streams accelerometer events from an MMA8452Q
// behind a serial register bridge and prints them to stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mma8452/config"
	"mma8452/core"
	"mma8452/host/bridge"
	"mma8452/host/serial"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML configuration")
	device := flag.String("device", "", "serial device path (overrides config)")
	trace := flag.Bool("trace", false, "log raw register traffic")
	flag.Parse()

	cfg := &config.Config{}
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("config load failed: %v", err)
		}
		cfg = loaded
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}

	config.ApplyDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}

	if *trace {
		core.SetTraceWriter(func(msg string) { log.Print(msg) })
	}

	br, err := bridge.Open(&serial.Config{
		Device:      cfg.Serial.Device,
		Baud:        cfg.Serial.Baud,
		ReadTimeout: cfg.Serial.TimeoutMs,
	})
	if err != nil {
		log.Fatalf("bridge open failed: %v", err)
	}
	defer br.Close()

	dev := core.New(br)
	defer dev.Close()

	dev.OnReady(func() { log.Print("sensor ready") })
	dev.OnError(func(err error) { log.Printf("driver error: %v", err) })

	if err := dev.Init(); err != nil {
		log.Fatalf("sensor init failed: %v", err)
	}

	if err := dev.SetScaleRange(cfg.Sensor.ScaleG); err != nil {
		log.Fatalf("set scale failed: %v", err)
	}
	if err := dev.SetOutputRate(*cfg.Sensor.RateHz); err != nil {
		log.Fatalf("set output rate failed: %v", err)
	}
	if err := dev.SetShakeThreshold(cfg.Shake.ThresholdG); err != nil {
		log.Fatalf("set shake threshold failed: %v", err)
	}
	if err := dev.SetSampleBufferLength(cfg.Orientation.BufferLength); err != nil {
		log.Fatalf("set buffer length failed: %v", err)
	}
	if err := dev.SetOrientationSuppression(cfg.Orientation.Suppression); err != nil {
		log.Fatalf("set suppression failed: %v", err)
	}

	dev.OnShake(func(s core.Shake) {
		fmt.Printf("shake  %.2fg\n", s.Magnitude)
	})
	dev.OnOrientation(func(o core.OrientationChange) {
		fmt.Printf("orient %s (turbulence %.3f)\n", o.Orientation, o.Turbulence)
	})
	dev.OnSample(func(s core.Sample) {
		fmt.Printf("sample % .3f % .3f % .3f\n", s.X, s.Y, s.Z)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = dev.ServeInterrupts(ctx, br.DataReady())
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("interrupt service failed: %v", err)
	}
}
