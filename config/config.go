// Package config holds the consensus engine's tunables: the timeout
// schedule and the demo-network node/network settings, the latter adapted
// from a NetworkConfig/NodeConfig dataclass pairing.
//
// A TOML-tagged struct with a package-level Defaults value, scaled down
// from a full-node config to the handful of knobs this standalone
// consensus core needs.
package config

import "time"

// TimeoutSchedule governs how long each round's propose/prevote/precommit
// step waits before its timeout fires. Nothing requires a fixed duration
// per round; this module chooses a linear schedule, Base + Delta*round,
// reset on every new round and on height advance.
type TimeoutSchedule struct {
	ProposeBase  time.Duration `toml:"propose_base"`
	ProposeDelta time.Duration `toml:"propose_delta"`

	PrevoteBase  time.Duration `toml:"prevote_base"`
	PrevoteDelta time.Duration `toml:"prevote_delta"`

	PrecommitBase  time.Duration `toml:"precommit_base"`
	PrecommitDelta time.Duration `toml:"precommit_delta"`
}

// DefaultTimeoutSchedule is the schedule used unless a config overrides
// it: 1.5s/0.5s for propose, 1s/0.5s for prevote and precommit.
var DefaultTimeoutSchedule = TimeoutSchedule{
	ProposeBase:  1500 * time.Millisecond,
	ProposeDelta: 500 * time.Millisecond,

	PrevoteBase:  1000 * time.Millisecond,
	PrevoteDelta: 500 * time.Millisecond,

	PrecommitBase:  1000 * time.Millisecond,
	PrecommitDelta: 500 * time.Millisecond,
}

// Propose returns the propose-step timeout for round.
func (s TimeoutSchedule) Propose(round uint32) time.Duration {
	return s.ProposeBase + time.Duration(round)*s.ProposeDelta
}

// Prevote returns the prevote-step timeout for round.
func (s TimeoutSchedule) Prevote(round uint32) time.Duration {
	return s.PrevoteBase + time.Duration(round)*s.PrevoteDelta
}

// Precommit returns the precommit-step timeout for round.
func (s TimeoutSchedule) Precommit(round uint32) time.Duration {
	return s.PrecommitBase + time.Duration(round)*s.PrecommitDelta
}

// QueuePollTimeout is how long the MessageConsumer's queue.Get call waits
// before looping back to re-check its stop signal.
const QueuePollTimeout = 5 * time.Second

// NetworkConfig is supplemented from original_source/models.py's
// NetworkConfig dataclass: the demo harness's listen address and known
// peers.
type NetworkConfig struct {
	Host  string   `toml:"host"`
	Port  int      `toml:"port"`
	Peers []string `toml:"peers"`
}

// NodeConfig is supplemented from original_source/models.py's NodeConfig
// dataclass: whether this process participates as a validator and which
// network settings it binds to.
type NodeConfig struct {
	Network         NetworkConfig `toml:"network"`
	BecomeValidator bool          `toml:"become_validator"`
}

// Config is the top-level engine configuration loaded by cmd/tcnode.
type Config struct {
	Node     NodeConfig      `toml:"node"`
	Timeouts TimeoutSchedule `toml:"timeouts"`
	LogLevel string          `toml:"log_level"`
}

// Defaults is the zero-config starting point: a single-node demo network
// on localhost with the default timeout schedule at info verbosity.
var Defaults = Config{
	Node: NodeConfig{
		Network:         NetworkConfig{Host: "localhost", Port: 26656},
		BecomeValidator: true,
	},
	Timeouts: DefaultTimeoutSchedule,
	LogLevel: "info",
}
