// Command vacore runs the chip-level Amiga core: it loads a Kickstart
// image, applies pkg/config flags, optionally inserts a floppy image,
// and either executes the core for a fixed cycle budget, drops into an
// interactive debug console, or serves the remote-observer protocol.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dirkwhoffmann/vAmiga-sub001/internal/core"
	"github.com/spf13/cobra"
)

var (
	romPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "vacore",
	Short: "Amiga chipset core: 68000, custom chips, CIAs, floppy and RTC",
	Long: `vacore builds and runs the chip-level Amiga core described by
pkg/config and internal/core.

The configuration flags below mirror pkg/config.Options one-for-one
and are validated before the core is built, matching the rejection a
running core gives a guest-triggered configuration change.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "power on the core and execute it",
	Args:  cobra.NoArgs,
	RunE:  runRun,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "inspect saved core snapshots",
}

var snapshotInspectCmd = &cobra.Command{
	Use:   "inspect <snapshot-file>",
	Short: "load a snapshot into a freshly built core and print its state",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotInspect,
}

var (
	diskPath   string
	cycles     uint64
	remoteAddr string
	debug      bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&romPath, "rom", "", "path to the Kickstart ROM image (required)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log remote-server state transitions")

	rootCmd.PersistentFlags().IntVar(&chipRamKiB, "chip-ram", 512, "chip RAM size in KiB")
	rootCmd.PersistentFlags().IntVar(&slowRamKiB, "slow-ram", 0, "slow (Ranger) RAM size in KiB")
	rootCmd.PersistentFlags().IntVar(&fastRamKiB, "fast-ram", 0, "fast RAM size in KiB")
	rootCmd.PersistentFlags().StringVar(&bankMapFlag, "bank-map", "a500", "memory layout: a1000, a500, a2000a, a2000b")
	rootCmd.PersistentFlags().StringVar(&unmapping, "unmapping", "floating", "unmapped-read behavior: floating, ones, zeroes")
	rootCmd.PersistentFlags().StringVar(&ramInit, "ram-init", "zeroes", "RAM fill pattern on hard reset: zeroes, ones, random")
	rootCmd.PersistentFlags().StringVar(&cpuRevFlag, "cpu", "68000", "CPU revision: 68000, 68010, 68ec020")
	rootCmd.PersistentFlags().IntVar(&overclock, "cpu-overclock", 1, "CPU clock multiplier (1 = native speed)")
	rootCmd.PersistentFlags().IntVar(&driveSpeed, "drive-speed", 1, "floppy DMA words per slot (-1 = turbo)")
	rootCmd.PersistentFlags().BoolVar(&autoDskSync, "auto-disk-sync", true, "force a sync match once the watchdog limit is reached")
	rootCmd.PersistentFlags().BoolVar(&lockDskSync, "lock-disk-sync", false, "reject guest writes to DSKSYNC")
	rootCmd.PersistentFlags().BoolVar(&todbug, "tod-erratum", false, "set the CIA time-of-day erratum option (stored in the config; the CIA model does not act on it)")
	rootCmd.PersistentFlags().StringVar(&audSampling, "audio-sampling", "nearest", "audio resampling method: none, nearest, linear")

	runCmd.Flags().StringVar(&diskPath, "disk", "", "path to a raw floppy image to insert into df0")
	runCmd.Flags().Uint64Var(&cycles, "cycles", 7_093_790, "DMA cycles to execute before stopping (ignored with --remote or --debug)")
	runCmd.Flags().StringVar(&remoteAddr, "remote", "", "serve the remote-observer protocol on this address (e.g. :1234) instead of running for a fixed cycle budget")
	runCmd.Flags().BoolVar(&debug, "debug", false, "drop into an interactive debug console over stdin/stdout instead of running for a fixed cycle budget")

	rootCmd.AddCommand(runCmd)
	snapshotCmd.AddCommand(snapshotInspectCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "vacore:", err)
		os.Exit(1)
	}
}

// buildCore loads the ROM and configuration flags common to every
// subcommand and constructs a powered-off *core.Core.
func buildCore() (*core.Core, error) {
	if romPath == "" {
		return nil, fmt.Errorf("--rom is required")
	}
	rom, err := os.ReadFile(romPath)
	if err != nil {
		return nil, fmt.Errorf("reading ROM image: %w", err)
	}
	cfg, err := buildConfig()
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	c, err := core.New(cfg, rom)
	if err != nil {
		return nil, fmt.Errorf("building core: %w", err)
	}
	return c, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	c, err := buildCore()
	if err != nil {
		return err
	}

	if diskPath != "" {
		raw, err := os.ReadFile(diskPath)
		if err != nil {
			return fmt.Errorf("reading disk image: %w", err)
		}
		c.InsertDisk(newFlatImage(raw), 0)
	}

	c.PowerOn()

	switch {
	case remoteAddr != "":
		return serveRemote(c)
	case debug:
		return runDebugConsole(c)
	default:
		c.ExecuteUntil(c.Cycle() + cycles)
		regs, _ := c.Execute("regs")
		fmt.Println(regs)
		return nil
	}
}

// serveRemote starts the remote-observer TCP server and blocks until
// interrupted, matching a long-running service rather than a one-shot
// batch run.
func serveRemote(c *core.Core) error {
	srv := c.RemoteServer()
	srv.Verbose = verbose

	if err := srv.Start(remoteAddr); err != nil {
		return fmt.Errorf("starting remote server: %w", err)
	}
	log.Printf("[vacore] remote-observer listening on %s", remoteAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Printf("[vacore] shutting down")
	return srv.Stop()
}

// runDebugConsole feeds stdin lines to the core's terminal command
// interpreter one at a time, the same protocol pkg/remote serves over
// TCP, printing each command's reply to stdout.
func runDebugConsole(c *core.Core) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		out, err := c.Execute(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		if out != "" {
			fmt.Println(out)
		}
	}
	return scanner.Err()
}

func runSnapshotInspect(cmd *cobra.Command, args []string) error {
	c, err := buildCore()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	if err := c.Load(f); err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	regs, _ := c.Execute("regs")
	fmt.Printf("cycle: %d\n%s\n", c.Cycle(), regs)
	return nil
}
