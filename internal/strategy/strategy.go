// Package strategy holds the closed set of on-chain staking strategies the
// aggregator contract knows about.
package strategy

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// ErrInvalidCatalog is returned when a catalog fails validation.
var ErrInvalidCatalog = errors.New("invalid strategy catalog")

// Strategy is one staking option of the aggregator.
type Strategy struct {
	ID           int    `yaml:"id" json:"strategyId"`
	Name         string `yaml:"name" json:"name"`
	Description  string `yaml:"description" json:"description"`
	StakingToken string `yaml:"staking_token" json:"stakingToken"`
	RewardToken  string `yaml:"reward_token" json:"rewardToken"`
	StakeToken   string `yaml:"stake_token_address" json:"stakeToken"`
}

// Catalog is an immutable, ordered strategy registry.
type Catalog struct {
	entries []Strategy
	byID    map[int]int
}

// Default returns the built-in catalog with every entry staking the given token.
func Default(stakeToken string) *Catalog {
	c, err := New([]Strategy{
		{ID: 1, Name: "SimpleStake", Description: "Single-sided WMOD staking with sWMOD rewards."},
		{ID: 2, Name: "HappyStake", Description: "WMOD staking pool with boosted sWMOD emissions."},
		{ID: 3, Name: "EasyStake", Description: "Flexible WMOD staking, withdraw at any time."},
		{ID: 4, Name: "CakeStake", Description: "Auto-compounding WMOD vault paying sWMOD."},
	}, stakeToken)
	if err != nil {
		panic(err)
	}
	return c
}

// New validates entries and builds a catalog. Entries without a stake token
// use defaultStakeToken; empty token symbols default to WMOD/sWMOD.
func New(entries []Strategy, defaultStakeToken string) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no strategies", ErrInvalidCatalog)
	}

	c := &Catalog{
		entries: make([]Strategy, 0, len(entries)),
		byID:    make(map[int]int, len(entries)),
	}
	for _, s := range entries {
		if s.StakeToken == "" {
			s.StakeToken = defaultStakeToken
		}
		if s.StakingToken == "" {
			s.StakingToken = "WMOD"
		}
		if s.RewardToken == "" {
			s.RewardToken = "sWMOD"
		}

		switch {
		case s.ID <= 0:
			return nil, fmt.Errorf("%w: strategy %q has non-positive id %d", ErrInvalidCatalog, s.Name, s.ID)
		case strings.TrimSpace(s.Name) == "":
			return nil, fmt.Errorf("%w: strategy %d has no name", ErrInvalidCatalog, s.ID)
		case !common.IsHexAddress(s.StakeToken):
			return nil, fmt.Errorf("%w: strategy %d stake token %q is not an address", ErrInvalidCatalog, s.ID, s.StakeToken)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate strategy id %d", ErrInvalidCatalog, s.ID)
		}

		c.byID[s.ID] = len(c.entries)
		c.entries = append(c.entries, s)
	}
	return c, nil
}

type catalogFile struct {
	Strategies []Strategy `yaml:"strategies"`
}

// Load reads a YAML catalog of the form
//
//	strategies:
//	  - id: 1
//	    name: SimpleStake
//	    stake_token_address: "0x..."
//
// An empty path returns Default(defaultStakeToken).
func Load(path, defaultStakeToken string) (*Catalog, error) {
	if path == "" {
		return Default(defaultStakeToken), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategies: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse strategies %s: %w", path, err)
	}
	return New(file.Strategies, defaultStakeToken)
}

// All returns the strategies in registry order.
func (c *Catalog) All() []Strategy {
	out := make([]Strategy, len(c.entries))
	copy(out, c.entries)
	return out
}

// Lookup returns the strategy with the given id.
func (c *Catalog) Lookup(id int) (Strategy, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Strategy{}, false
	}
	return c.entries[i], true
}

// StakeToken returns the token the strategy with the given id stakes.
func (c *Catalog) StakeToken(id int) (string, bool) {
	s, ok := c.Lookup(id)
	return s.StakeToken, ok
}

// Describe renders the catalog as prompt-ready lines.
func (c *Catalog) Describe() string {
	var b strings.Builder
	for _, s := range c.entries {
		fmt.Fprintf(&b, "- strategyID %d: %s (stake %s, earn %s, stakeToken %s)", s.ID, s.Name, s.StakingToken, s.RewardToken, s.StakeToken)
		if s.Description != "" {
			fmt.Fprintf(&b, ": %s", s.Description)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
