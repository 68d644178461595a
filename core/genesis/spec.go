package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"tipchain/crypto"
	"tipchain/native/tipping"
)

// Spec is the JSON genesis document.
type Spec struct {
	GenesisTime string            `json:"genesisTime"`
	Platform    PlatformSpec      `json:"platform"`
	Alloc       map[string]string `json:"alloc"` // addr -> amount
	Creators    []CreatorSpec     `json:"creators,omitempty"`

	genesisTimestamp time.Time
	authority        [20]byte
	feeCollector     [20]byte
	minTip           *big.Int
	alloc            map[[20]byte]*big.Int
}

// PlatformSpec carries the platform initialisation parameters.
type PlatformSpec struct {
	Authority      string `json:"authority"`
	FeeCollector   string `json:"feeCollector"`
	PlatformFeeBps uint16 `json:"platformFeeBps"`
	MinTipAmount   string `json:"minTipAmount"`
	Paused         bool   `json:"paused,omitempty"`
}

// CreatorSpec pre-registers a creator profile.
type CreatorSpec struct {
	Owner       string `json:"owner"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
	AvatarURI   string `json:"avatarUri,omitempty"`

	owner [20]byte
}

// LoadSpec reads and validates a genesis document. Unknown fields are rejected.
func LoadSpec(path string) (*Spec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := ParseSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// ParseSpec decodes and validates a genesis document.
func ParseSpec(raw []byte) (*Spec, error) {
	var spec Spec
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &spec, nil
}

func (s *Spec) GenesisTimestamp() time.Time { return s.genesisTimestamp }

func (s *Spec) validate() error {
	ts, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	s.genesisTimestamp = ts

	if s.authority, err = crypto.ParseAccount(s.Platform.Authority); err != nil {
		return fmt.Errorf("platform.authority: %w", err)
	}
	if s.feeCollector, err = crypto.ParseAccount(s.Platform.FeeCollector); err != nil {
		return fmt.Errorf("platform.feeCollector: %w", err)
	}
	if s.Platform.PlatformFeeBps > tipping.MaxPlatformFeeBps {
		return fmt.Errorf("platform.platformFeeBps: %w", tipping.ErrFeeTooHigh)
	}
	if s.minTip, err = parseAmountString(s.Platform.MinTipAmount); err != nil {
		return fmt.Errorf("platform.minTipAmount: %w", err)
	}

	s.alloc = make(map[[20]byte]*big.Int, len(s.Alloc))
	for addrStr, amountStr := range s.Alloc {
		addr, err := crypto.ParseAccount(addrStr)
		if err != nil {
			return fmt.Errorf("alloc %q: %w", addrStr, err)
		}
		amount, err := parseAmountString(amountStr)
		if err != nil {
			return fmt.Errorf("alloc %q: %w", addrStr, err)
		}
		if _, dup := s.alloc[addr]; dup {
			return fmt.Errorf("alloc %q: duplicate account", addrStr)
		}
		s.alloc[addr] = amount
	}

	seen := make(map[string]struct{}, len(s.Creators))
	for i := range s.Creators {
		c := &s.Creators[i]
		if c.owner, err = crypto.ParseAccount(c.Owner); err != nil {
			return fmt.Errorf("creators[%d].owner: %w", i, err)
		}
		if _, dup := seen[c.Handle]; dup {
			return fmt.Errorf("creators[%d]: %w", i, tipping.ErrHandleTaken)
		}
		seen[c.Handle] = struct{}{}
	}
	return nil
}

func parseAmountString(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}

func parseGenesisTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("genesisTime must be provided")
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid genesisTime %q", value)
}
