package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/decred/slog"

	"github.com/mahdiidarabi/ticketsig/internal/store"
	"github.com/mahdiidarabi/ticketsig/pkg/redeem"
	"github.com/mahdiidarabi/ticketsig/pkg/ticketsig"
)

var (
	backend = slog.NewBackend(os.Stderr)

	log     = backend.Logger("MAIN")
	rdmrLog = backend.Logger("RDMR")
	storLog = backend.Logger("STOR")
	tsigLog = backend.Logger("TSIG")
)

func init() {
	redeem.UseLogger(rdmrLog)
	store.UseLogger(storLog)
	ticketsig.UseLogger(tsigLog)
}

var subsystemLoggers = map[string]slog.Logger{
	"MAIN": log,
	"RDMR": rdmrLog,
	"STOR": storLog,
	"TSIG": tsigLog,
}

func supportedSubsystems() []string {
	subs := make([]string, 0, len(subsystemLoggers))
	for s := range subsystemLoggers {
		subs = append(subs, s)
	}
	sort.Strings(subs)
	return subs
}

// parseAndSetDebugLevels accepts either a single level applied to every
// subsystem or a comma separated list of subsystem=level pairs.
func parseAndSetDebugLevels(levels string) error {
	if !strings.Contains(levels, "=") {
		level, ok := slog.LevelFromString(levels)
		if !ok {
			return fmt.Errorf("invalid debug level %q", levels)
		}
		for _, l := range subsystemLoggers {
			l.SetLevel(level)
		}
		return nil
	}

	for _, pair := range strings.Split(levels, ",") {
		fields := strings.SplitN(pair, "=", 2)
		if len(fields) != 2 {
			return fmt.Errorf("invalid subsystem level pair %q", pair)
		}
		sub, lvl := strings.ToUpper(strings.TrimSpace(fields[0])), strings.TrimSpace(fields[1])
		l, ok := subsystemLoggers[sub]
		if !ok {
			return fmt.Errorf("unknown subsystem %q, supported: %s", sub,
				strings.Join(supportedSubsystems(), ", "))
		}
		level, ok := slog.LevelFromString(lvl)
		if !ok {
			return fmt.Errorf("invalid debug level %q for %s", lvl, sub)
		}
		l.SetLevel(level)
	}
	return nil
}
