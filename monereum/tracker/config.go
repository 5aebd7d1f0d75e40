package tracker

import (
	"bytes"
	"errors"
	"io"

	"github.com/monereum/engine/utils"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// DisputeTime blocks a complete ring group stays open to disputes before it can be committed
	DisputeTime uint64 `json:"dispute_time" yaml:"dispute_time"`
	// LateRangeProofMultiplier of DisputeTime after creation at which missing range proofs become disputable
	LateRangeProofMultiplier uint64 `json:"late_range_proof_multiplier" yaml:"late_range_proof_multiplier"`
	// Mixin ring size of new ring proofs, spent output included
	Mixin int `json:"mixin" yaml:"mixin"`
	// FullAudit verifies every proof, not only the ones of ring groups with a stake
	FullAudit      bool   `json:"full_audit" yaml:"full_audit"`
	VerifyRoutines int    `json:"verify_routines" yaml:"verify_routines"`
	StartBlock     uint64 `json:"start_block" yaml:"start_block"`
}

var DefaultConfig = Config{
	DisputeTime:              120,
	LateRangeProofMultiplier: 2,
	Mixin:                    3,
}

const MaxMixin = 64

var ErrInvalidConfig = errors.New("could not verify config")

// ConfigFromJSON overrides DefaultConfig with data. Unknown keys are rejected.
func ConfigFromJSON(data []byte) (*Config, error) {
	c := DefaultConfig
	if err := utils.UnmarshalJSONStrict(data, &c); err != nil {
		return nil, err
	}
	if !c.Verify() {
		return nil, ErrInvalidConfig
	}
	return &c, nil
}

func ConfigFromYAML(data []byte) (*Config, error) {
	c := DefaultConfig
	d := yaml.NewDecoder(bytes.NewReader(data))
	d.KnownFields(true)
	if err := d.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if !c.Verify() {
		return nil, ErrInvalidConfig
	}
	return &c, nil
}

func (c *Config) Verify() bool {
	if c.DisputeTime < 1 {
		return false
	}
	if c.LateRangeProofMultiplier < 1 || c.LateRangeProofMultiplier > 16 {
		return false
	}
	if c.Mixin < 1 || c.Mixin > MaxMixin {
		return false
	}
	return true
}

// lateDeadline block from which a ring group created at created is late on range proofs
func (c *Config) lateDeadline(created uint64) uint64 {
	return created + c.LateRangeProofMultiplier*c.DisputeTime
}
