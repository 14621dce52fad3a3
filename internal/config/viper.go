package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// NewViper reads the configuration from the global viper instance.
func NewViper() (*Config, error) {
	return FromViper(viper.GetViper())
}

// FromViper reads the configuration from v. Keys are the names of the run command's flags.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Operators:       v.GetInt("operators"),
		Silent:          toUint64s(v.GetIntSlice("silent")),
		QuorumSize:      v.GetInt("quorum"),
		Height:          v.GetUint64("height"),
		RoundTimeout:    v.GetDuration("round-timeout"),
		MaxRoundTimeout: v.GetDuration("max-round-timeout"),
		Duration:        v.GetDuration("duration"),
		LeaderRotation:  v.GetString("leader-rotation"),
		Leader:          v.GetUint64("leader"),
		SharedSeed:      v.GetInt64("shared-seed"),
		Weights:         v.GetStringSlice("weights"),
		LinkRate:        v.GetFloat64("link-rate"),
		LinkBurst:       v.GetInt("link-burst"),
		MaxWorkers:      v.GetInt("max-workers"),
		QueueSize:       v.GetInt("queue-size"),
		LogLevel:        v.GetString("log-level"),
		MetricsAddr:     v.GetString("metrics-addr"),
		Output:          v.GetString("output"),
		CpuProfile:      v.GetBool("cpu-profile"),
		MemProfile:      v.GetBool("mem-profile"),
		Trace:           v.GetBool("trace"),
		FgProfProfile:   v.GetBool("fgprof-profile"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Output != "" {
		var err error
		cfg.Output, err = filepath.Abs(cfg.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %v", err)
		}
		err = os.MkdirAll(cfg.Output, 0o755)
		if err != nil {
			return nil, fmt.Errorf("failed to create output directory: %v", err)
		}
	}
	return cfg, nil
}

func toUint64s(ints []int) []uint64 {
	out := make([]uint64, 0, len(ints))
	for _, i := range ints {
		if i < 0 {
			// keep it out of range so that Validate reports it
			out = append(out, 0)
			continue
		}
		out = append(out, uint64(i))
	}
	return out
}
