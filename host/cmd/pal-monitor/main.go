// Command pal-monitor reads the dispatch trace a device streams over its
// UART, prints the events and optionally forwards them to MQTT.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"picmcal/host/monitor"
	"picmcal/host/serial"
)

var (
	device     = flag.String("device", "/dev/ttyUSB0", "Serial device path")
	baud       = flag.Int("baud", serial.DefaultBaud, "Baud rate")
	file       = flag.String("file", "", "Read a captured trace stream instead of the serial port")
	broker     = flag.String("mqtt", "", "MQTT broker, e.g. tcp://localhost:1883")
	topic      = flag.String("topic", monitor.DefaultTopic, "MQTT topic")
	deviceName = flag.String("name", "", "Device name added to published payloads")
	asJSON     = flag.Bool("json", false, "Print events as JSON")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		in     io.ReadCloser
		follow bool
	)
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			return err
		}
		in = f
	} else {
		cfg := serial.DefaultConfig(*device)
		cfg.Baud = *baud
		port, err := serial.Open(cfg)
		if err != nil {
			return err
		}
		port.Flush()
		in = port
		follow = true
		fmt.Fprintf(os.Stderr, "Listening on %s at %d baud...\n", *device, *baud)
	}
	defer in.Close()

	var pub monitor.Publisher
	if *broker != "" {
		p, err := monitor.NewMQTTPublisher(monitor.MQTTConfig{
			Broker: *broker,
			Topic:  *topic,
			Device: *deviceName,
		})
		if err != nil {
			return err
		}
		defer p.Close()
		pub = p
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	enc := json.NewEncoder(os.Stdout)
	r := monitor.NewReader(in)
	r.Follow = follow
	err := r.Run(ctx, func(evt monitor.Event) error {
		if *asJSON {
			enc.Encode(evt)
		} else {
			fmt.Println(evt)
		}
		if pub != nil {
			if err := pub.Publish(evt); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}
		return nil
	})
	if err != nil && err != context.Canceled {
		return err
	}

	st := r.Stats()
	fmt.Fprintf(os.Stderr, "%d frames, %d errors, %d skipped, %d bad payloads\n",
		st.Frames, st.Errors, st.Skipped, st.BadPayloads)
	return nil
}
