package main

import (
	"fmt"

	"github.com/dirkwhoffmann/vAmiga-sub001/pkg/config"
)

// Flag variables bound onto pkg/config.Options one field at a time;
// the enumerated options take their string spelling on the command
// line rather than the bare integer pkg/config works with internally.
var (
	chipRamKiB  int
	slowRamKiB  int
	fastRamKiB  int
	bankMapFlag string
	unmapping   string
	ramInit     string
	cpuRevFlag  string
	overclock   int
	driveSpeed  int
	autoDskSync bool
	lockDskSync bool
	todbug      bool
	audSampling string
)

func parseBankMap(s string) (config.BankMap, error) {
	switch s {
	case "a1000":
		return config.BankMapA1000, nil
	case "a500":
		return config.BankMapA500, nil
	case "a2000a":
		return config.BankMapA2000A, nil
	case "a2000b":
		return config.BankMapA2000B, nil
	default:
		return 0, fmt.Errorf("bank-map: %q, want one of a1000, a500, a2000a, a2000b", s)
	}
}

func parseUnmapping(s string) (config.UnmappingType, error) {
	switch s {
	case "floating":
		return config.UnmappingFloating, nil
	case "ones":
		return config.UnmappingOnes, nil
	case "zeroes":
		return config.UnmappingZeroes, nil
	default:
		return 0, fmt.Errorf("unmapping: %q, want one of floating, ones, zeroes", s)
	}
}

func parseRamInit(s string) (config.RamInitPattern, error) {
	switch s {
	case "zeroes":
		return config.RamInitZeroes, nil
	case "ones":
		return config.RamInitOnes, nil
	case "random":
		return config.RamInitRandom, nil
	default:
		return 0, fmt.Errorf("ram-init: %q, want one of zeroes, ones, random", s)
	}
}

func parseCPURevision(s string) (config.CPURevision, error) {
	switch s {
	case "68000":
		return config.CPU68000, nil
	case "68010":
		return config.CPU68010, nil
	case "68ec020":
		return config.CPU68EC020, nil
	default:
		return 0, fmt.Errorf("cpu: %q, want one of 68000, 68010, 68ec020", s)
	}
}

func parseAudSampling(s string) (config.AudioSamplingMethod, error) {
	switch s {
	case "none":
		return config.AudSamplingNone, nil
	case "nearest":
		return config.AudSamplingNearest, nil
	case "linear":
		return config.AudSamplingLinear, nil
	default:
		return 0, fmt.Errorf("audio-sampling: %q, want one of none, nearest, linear", s)
	}
}

// buildConfig assembles a config.Options from the bound flag
// variables, starting from config.Default() so flags a user never
// touches keep their documented default rather than a bare zero value.
// Every field is run through config.Check with poweredOn=false, the
// state a core being constructed always starts in.
func buildConfig() (config.Options, error) {
	cfg := config.Default()

	bm, err := parseBankMap(bankMapFlag)
	if err != nil {
		return cfg, err
	}
	um, err := parseUnmapping(unmapping)
	if err != nil {
		return cfg, err
	}
	ri, err := parseRamInit(ramInit)
	if err != nil {
		return cfg, err
	}
	rev, err := parseCPURevision(cpuRevFlag)
	if err != nil {
		return cfg, err
	}
	as, err := parseAudSampling(audSampling)
	if err != nil {
		return cfg, err
	}

	cfg.ChipRamKiB = chipRamKiB
	cfg.SlowRamKiB = slowRamKiB
	cfg.FastRamKiB = fastRamKiB
	cfg.BankMap = bm
	cfg.UnmappingType = um
	cfg.RamInitPattern = ri
	cfg.CPURevision = rev
	cfg.CPUOverclocking = overclock
	cfg.DriveSpeed = driveSpeed
	cfg.AutoDskSync = autoDskSync
	cfg.LockDskSync = lockDskSync
	cfg.Todbug = todbug
	cfg.AudSamplingMethod = as

	checks := []struct {
		opt config.Option
		val any
	}{
		{config.OptChipRam, cfg.ChipRamKiB},
		{config.OptSlowRam, cfg.SlowRamKiB},
		{config.OptFastRam, cfg.FastRamKiB},
		{config.OptBankMap, cfg.BankMap},
		{config.OptUnmappingType, cfg.UnmappingType},
		{config.OptRamInitPattern, cfg.RamInitPattern},
		{config.OptCPURevision, cfg.CPURevision},
		{config.OptCPUOverclocking, cfg.CPUOverclocking},
		{config.OptDriveSpeed, cfg.DriveSpeed},
		{config.OptAutoDskSync, cfg.AutoDskSync},
		{config.OptLockDskSync, cfg.LockDskSync},
		{config.OptTodbug, cfg.Todbug},
		{config.OptAudSamplingMethod, cfg.AudSamplingMethod},
	}
	for _, c := range checks {
		if err := config.Check(c.opt, c.val, false); err != nil {
			return cfg, fmt.Errorf("%v: %w", c.val, err)
		}
	}

	return cfg, nil
}
