package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

type PrivacyLevel string

const (
	PUBLIC    PrivacyLevel = "PUBLIC"
	PRIVATE   PrivacyLevel = "PRIVATE"
	ANONYMOUS PrivacyLevel = "ANONYMOUS"
	SELECTIVE PrivacyLevel = "SELECTIVE"
)

// DefaultDustCost applies to levels missing from the cost table.
const DefaultDustCost int64 = 100

var baseDustCosts = map[PrivacyLevel]int64{
	PUBLIC:    200,
	PRIVATE:   500,
	ANONYMOUS: 1000,
	SELECTIVE: 1500,
}

var DustCostFactors = []string{"Privacy Level", "ZK Proof Complexity"}

func PrivacyLevels() []PrivacyLevel {
	return []PrivacyLevel{PUBLIC, PRIVATE, ANONYMOUS, SELECTIVE}
}

func ParsePrivacyLevel(s string) (PrivacyLevel, error) {
	lvl := PrivacyLevel(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := baseDustCosts[lvl]; !ok {
		return "", fmt.Errorf("%w: %q, want one of %v", ErrUnknownPrivacyLevel, s, PrivacyLevels())
	}
	return lvl, nil
}

func (p PrivacyLevel) Valid() bool {
	_, ok := baseDustCosts[p]
	return ok
}

// DustCost is the DUST a ZK operation at this level consumes.
func (p PrivacyLevel) DustCost() int64 {
	if c, ok := baseDustCosts[p]; ok {
		return c
	}
	return DefaultDustCost
}

// RevealsAmount reports whether the amount is a public signal of the proof.
func (p PrivacyLevel) RevealsAmount() bool {
	return p == PUBLIC
}

// RevealsDonor reports whether the donor address is written in clear into the tx.
func (p PrivacyLevel) RevealsDonor() bool {
	return p == PUBLIC || p == PRIVATE
}

// DonorInNote reports whether the charity learns the donor from its encrypted note.
func (p PrivacyLevel) DonorInNote() bool {
	return p != ANONYMOUS
}

func (p *PrivacyLevel) UnmarshalJSON(bz []byte) error {
	var s string
	if err := json.Unmarshal(bz, &s); err != nil {
		return err
	}
	if s == "" {
		*p = ""
		return nil
	}
	lvl, err := ParsePrivacyLevel(s)
	if err != nil {
		return err
	}
	*p = lvl
	return nil
}
