package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"busoff-sim/ecu"
	"busoff-sim/replay"
	"busoff-sim/simulator"
	"busoff-sim/telemetry"
)

var version = "dev"

var (
	versionFlag = flag.Bool("version", false, "Print version info")
	help        = flag.Bool("help", false, "Print help")
	logLevel    = flag.Int("log", 3, "Log level (0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG)")

	configFile = flag.String("config", "", "Load scenario from an ini config file (overrides individual flags)")

	busSpeedKbps = flag.Int("bus_speed_kbps", 500, "Bus speed in kbps (250, 500, or 1000)")
	frameBits    = flag.Int("frame_bits", 0, "Bits per frame slot (0 selects the built-in default)")

	victimID          = flag.Int("victim_id", 1, "Victim ECU frame identifier")
	victimMode        = flag.String("victim_mode", "periodic", "Victim cadence: periodic, preceded, or nonperiodic")
	victimPeriod      = flag.Int("victim_period_slots", 10, "Victim transmission period in frame slots")
	victimJitter      = flag.Int("victim_jitter_slots", 0, "Victim jitter bound in frame slots (nonperiodic mode)")
	normalIDs         = flag.String("normal_ids", "", "Comma-separated list of additional normal ECU identifiers")
	attackerEnabled   = flag.Bool("attacker", true, "Enable the two-phase attacker ECU")
	attackerID        = flag.Int("attacker_id", 99, "Attacker ECU identifier")
	analysisMinMatch  = flag.Int("analysis_min_matches", 3, "Consecutive matching intervals required to lock the victim's period")
	analysisWindow    = flag.Int("analysis_window_ticks", 0, "Ticks before analysis gives up (0 = unbounded)")

	trialTimeoutMs = flag.Float64("trial_timeout_ms", 200000, "Simulated-time budget per trial, in milliseconds")
	detailed       = flag.Bool("detailed", false, "Emit a per-tick step record in addition to the trial summary")
	rngSeed        = flag.Int64("rng_seed", 1, "Base RNG seed; trial i uses rng_seed+i")
	trials         = flag.Int("trials", 1, "Number of independent trials to run")

	outputPath = flag.String("output", "", "Path to write ndjson records (default: stdout)")
	redisAddr  = flag.String("redis_addr", "", "Optional Redis address (host:port) for live telemetry")
	redisPrefix = flag.String("redis_prefix", "busoff-sim", "Redis key/channel prefix")

	replayIface = flag.String("replay_iface", "", "Optional SocketCAN interface to mirror resolved frames onto")
)

func printVersion() {
	fmt.Printf("busoff-sim %s\n", version)
}

func printHelp() {
	printVersion()
	flag.PrintDefaults()
}

func main() {
	flag.Parse()

	if *versionFlag {
		printVersion()
		os.Exit(0)
	}
	if *help {
		printHelp()
		os.Exit(0)
	}

	logger := newLogger(parseLogLevel(*logLevel))
	logger.Infof("busoff-sim %s starting", version)

	cfg, err := buildConfig()
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	if *logLevel >= 4 {
		cfg.Logger = ecu.NewLogrusLogger(logger, "bus")
	}

	sinks, closeSinks, err := buildSinks(logger)
	if err != nil {
		logger.Fatalf("setting up telemetry: %v", err)
	}
	defer closeSinks()

	if *replayIface != "" {
		mirror, err := replay.NewSink(*replayIface)
		if err != nil {
			logger.Fatalf("opening replay interface: %v", err)
		}
		defer mirror.Close()
		cfg.ReplayMirror = mirror
		logger.Infof("mirroring resolved frames onto %s", *replayIface)
	}

	records, stepLogs := simulator.Sweep(cfg)

	busOffCount := 0
	for i, rec := range records {
		for _, sink := range sinks {
			if err := sink.WriteTrial(rec); err != nil {
				logger.Warnf("trial %d: writing trial record: %v", rec.Trial, err)
			}
		}
		if cfg.Detailed {
			for _, step := range stepLogs[i] {
				for _, sink := range sinks {
					if err := sink.WriteStep(step); err != nil {
						logger.Warnf("trial %d: writing step record: %v", rec.Trial, err)
					}
				}
			}
		}
		if rec.VictimBusOff == 1 {
			busOffCount++
		}
	}

	logger.Infof("completed %d trial(s): %d reached bus-off", len(records), busOffCount)
}

func buildConfig() (simulator.Config, error) {
	if *configFile != "" {
		return simulator.LoadConfigFile(*configFile)
	}

	cfg := simulator.Config{
		BusSpeedKbps:        *busSpeedKbps,
		FrameBits:           *frameBits,
		VictimMode:          parseVictimMode(*victimMode),
		VictimPeriodSlots:   *victimPeriod,
		VictimJitterSlots:   *victimJitter,
		VictimID:            *victimID,
		AttackerID:          *attackerID,
		NormalIDs:           parseIntList(*normalIDs),
		AttackerEnabled:     *attackerEnabled,
		AnalysisMinMatches:  *analysisMinMatch,
		AnalysisWindowTicks: *analysisWindow,
		TrialTimeoutMs:      *trialTimeoutMs,
		Detailed:            *detailed,
		RNGSeed:             *rngSeed,
		Trials:              *trials,
	}
	if err := cfg.Validate(); err != nil {
		return simulator.Config{}, err
	}
	return cfg, nil
}

func parseVictimMode(s string) ecu.VictimMode {
	switch s {
	case "preceded":
		return ecu.VictimPreceded
	case "nonperiodic":
		return ecu.VictimNonPeriodic
	default:
		return ecu.VictimPeriodic
	}
}

func parseIntList(s string) []int {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

func buildSinks(logger interface{ Warnf(string, ...interface{}) }) ([]telemetry.Sink, func(), error) {
	var sinks []telemetry.Sink
	var closers []func() error

	var out *os.File
	if *outputPath == "" {
		out = os.Stdout
	} else {
		f, err := os.Create(*outputPath)
		if err != nil {
			return nil, nil, fmt.Errorf("creating output file: %w", err)
		}
		out = f
		closers = append(closers, f.Close)
	}
	sinks = append(sinks, telemetry.NewNDJSONWriter(out))

	if *redisAddr != "" {
		redisSink := telemetry.NewRedisSink(*redisAddr, *redisPrefix)
		sinks = append(sinks, redisSink)
		closers = append(closers, redisSink.Close)
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warnf("closing sink: %v", err)
			}
		}
	}
	return sinks, closeAll, nil
}
