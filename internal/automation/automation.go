package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/san-kum/powerchain/internal/config"
	"github.com/san-kum/powerchain/internal/logging"
	"github.com/san-kum/powerchain/internal/powerchain"
	"github.com/san-kum/powerchain/internal/sim"
	"gopkg.in/yaml.v3"
)

// Actions understood by an Event.
const (
	ActionConnect         = "connect"
	ActionDisconnect      = "disconnect"
	ActionDisconnectAll   = "disconnect_all"
	ActionDisconnectIndex = "disconnect_index"
	ActionDetach          = "detach"
	ActionSetSpeed        = "set_speed"
	ActionEnable          = "enable"
	ActionDestroy         = "destroy"
	ActionUpdateOnce      = "update_once"
	ActionLive            = "live"
)

var knownActions = map[string]bool{
	ActionConnect: true, ActionDisconnect: true, ActionDisconnectAll: true,
	ActionDisconnectIndex: true, ActionDetach: true, ActionSetSpeed: true,
	ActionEnable: true, ActionDestroy: true, ActionUpdateOnce: true, ActionLive: true,
}

var ErrNoNetwork = errors.New("automation: scenario has neither preset nor network")

// Scenario is a network plus a timed list of wiring changes.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Preset      string         `yaml:"preset,omitempty"`
	Network     *config.Config `yaml:"network,omitempty"`
	Events      []Event        `yaml:"events"`
}

// Event is one scripted change applied once the simulation clock reaches At.
type Event struct {
	At     float64 `yaml:"at"`
	Action string  `yaml:"action"`
	Part   string  `yaml:"part"`
	Target string  `yaml:"target,omitempty"`
	Index  int     `yaml:"index,omitempty"`
	RPM    float64 `yaml:"rpm,omitempty"`
	Live   bool    `yaml:"live,omitempty"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return &scenario, nil
}

// Validate checks the event list. Part names are resolved at run time and
// misses are ignored, like any other wiring call.
func (s *Scenario) Validate() error {
	var errs []error
	for i, ev := range s.Events {
		if !knownActions[ev.Action] {
			errs = append(errs, fmt.Errorf("event %d: unknown action %q", i, ev.Action))
		}
		if ev.At < 0 {
			errs = append(errs, fmt.Errorf("event %d: negative time %f", i, ev.At))
		}
		if ev.Part == "" {
			errs = append(errs, fmt.Errorf("event %d: missing part", i))
		}
	}
	return errors.Join(errs...)
}

// Config returns the network description, from the inline network or the
// named preset.
func (s *Scenario) Config() (*config.Config, error) {
	if s.Network != nil {
		return s.Network.Clone(), nil
	}
	if s.Preset == "" {
		return nil, ErrNoNetwork
	}
	cfg := config.GetPreset(s.Preset)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s", s.Preset)
	}
	return cfg, nil
}

// Script replays events against a network. It implements sim.Controller.
type Script struct {
	events []Event
	next   int
	logger *slog.Logger
}

func NewScript(events []Event, logger *slog.Logger) *Script {
	sorted := append([]Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At < sorted[j].At })
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Script{events: sorted, logger: logger}
}

// Apply fires every event whose time has been reached, each exactly once.
func (s *Script) Apply(net *powerchain.Network, step int, t float64) {
	for s.next < len(s.events) && s.events[s.next].At <= t+1e-9 {
		ev := s.events[s.next]
		s.next++
		s.logger.Debug("scenario event", "at", ev.At, "action", ev.Action, "part", ev.Part, "target", ev.Target)
		apply(net, ev)
	}
}

// Pending is the number of events not yet fired.
func (s *Script) Pending() int { return len(s.events) - s.next }

func (s *Script) Reset() { s.next = 0 }

func apply(net *powerchain.Network, ev Event) {
	n := net.Lookup(ev.Part)
	if n == nil {
		return
	}
	switch ev.Action {
	case ActionConnect:
		n.ConnectByName(ev.Target)
	case ActionDisconnect:
		n.DisconnectByName(ev.Target)
	case ActionDisconnectAll:
		n.DisconnectAll()
	case ActionDisconnectIndex:
		n.DisconnectIndex(ev.Index)
	case ActionDetach:
		net.DisconnectFromAllDrivers(n)
	case ActionSetSpeed:
		n.SetSpeed(ev.RPM)
		n.RequestUpdate()
	case ActionEnable:
		n.Enable()
	case ActionDestroy:
		n.Destroy()
	case ActionUpdateOnce:
		n.RequestUpdate()
	case ActionLive:
		n.SetLiveUpdate(ev.Live)
	}
}

// RunScenario builds the scenario's network and simulates it with the script
// as controller.
func RunScenario(ctx context.Context, scenario *Scenario, logger *slog.Logger, observers ...sim.Observer) (*sim.Result, error) {
	cfg, err := scenario.Config()
	if err != nil {
		return nil, err
	}
	net, err := cfg.Build(powerchain.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	s := sim.New(net, NewScript(scenario.Events, logger))
	for _, o := range observers {
		s.AddObserver(o)
	}
	return s.Run(ctx, sim.Config{Dt: cfg.Dt, Duration: cfg.Duration})
}

// SpeedSweep runs one network at a range of motor speeds.
type SpeedSweep struct {
	Config   *config.Config
	Motor    string
	MinRPM   float64
	MaxRPM   float64
	NumSteps int
}

// SweepResult is the end state of one sweep run.
type SweepResult struct {
	RPM      float64
	Final    map[string]float64
	Disabled []string
}

// RunSweep executes the sweep concurrently, one network per speed.
func RunSweep(ctx context.Context, sweep *SpeedSweep) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step, got %d", sweep.NumSteps)
	}
	if err := sweep.Config.Validate(); err != nil {
		return nil, err
	}

	speeds := make([]float64, sweep.NumSteps)
	for i := range speeds {
		speeds[i] = sweep.MinRPM
		if sweep.NumSteps > 1 {
			speeds[i] += float64(i) * (sweep.MaxRPM - sweep.MinRPM) / float64(sweep.NumSteps-1)
		}
	}

	ens := sim.NewEnsemble(len(speeds), func(idx int) (*sim.Simulator, error) {
		net, err := sweep.Config.Build()
		if err != nil {
			return nil, err
		}
		m := net.Lookup(sweep.Motor)
		if m == nil || !m.IsMotor() {
			return nil, fmt.Errorf("%s is not a motor", sweep.Motor)
		}
		m.SetSpeed(speeds[idx])
		return sim.New(net, nil), nil
	})

	runs, err := ens.Run(ctx, sim.Config{Dt: sweep.Config.Dt, Duration: sweep.Config.Duration})
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(runs))
	for i, r := range runs {
		final := make(map[string]float64, len(r.Parts))
		last := r.Samples[len(r.Samples)-1]
		for j, p := range r.Parts {
			final[p] = last.RPM[j]
		}
		results[i] = SweepResult{RPM: speeds[i], Final: final, Disabled: r.Disabled}
	}
	return results, nil
}
