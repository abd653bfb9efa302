// Command beamformer-client attaches to a running beamformer-server
// region and drives it from the command line: set parameters, dispatch
// against the live frame, and pull a synchronous export back to stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	beamformer "github.com/ehrlich-b/beamformer-shm"
	"github.com/ehrlich-b/beamformer-shm/internal/config"
	"github.com/ehrlich-b/beamformer-shm/internal/wire"
)

func main() {
	var (
		action    = flag.String("action", "dispatch", "action to perform: dispatch | export")
		speed     = flag.Float64("speed-of-sound", 1540, "speed of sound in m/s")
		timeoutMs = flag.Int("export-timeout-ms", 2000, "synchronous export timeout in milliseconds")
	)
	flag.Parse()

	cfg, err := config.LoadClientConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load client config: %v\n", err)
		os.Exit(1)
	}

	client, err := beamformer.NewClient(cfg.RegionName, cfg.LockTimeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "attach to %s: %v\n", cfg.RegionName, err)
		os.Exit(1)
	}
	defer client.Detach()

	if err := client.SetParameters(0, wire.Parameters{SpeedOfSoundMPerS: float32(*speed)}); err != nil {
		fmt.Fprintf(os.Stderr, "set parameters: %v\n", err)
		os.Exit(1)
	}

	switch *action {
	case "dispatch":
		if err := client.DispatchIndirect(0, 0); err != nil {
			fmt.Fprintf(os.Stderr, "dispatch: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("dispatched")

	case "export":
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeoutMs)*time.Millisecond)
		defer cancel()

		buf := make([]byte, 4096*4)
		n, err := client.ExportSynchronized(ctx, wire.ExportKindBeamformedData, buf, *timeoutMs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "export: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(buf[:n])

	default:
		fmt.Fprintf(os.Stderr, "unknown action %q\n", *action)
		os.Exit(1)
	}
}
