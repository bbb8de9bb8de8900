package domain

import "maps"

// Level is the advisory low/medium/high scale used for frequency and risk.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Strategy is a user-defined trading configuration. JSON names match the
// on-disk strategies document.
type Strategy struct {
	ID              string         `json:"id"`
	Symbol          string         `json:"symbol"`
	ContractAddress string         `json:"contract"`
	ChainID         string         `json:"chainId"`
	Frequency       Level          `json:"frequency"`
	RiskLevel       Level          `json:"risk"`
	Active          bool           `json:"active"`
	CreatedAt       int64          `json:"createdAt"` // unix ms
	Meta            map[string]any `json:"meta,omitempty"`
}

// Clone returns a copy that shares no map with s.
func (s Strategy) Clone() Strategy {
	if s.Meta != nil {
		s.Meta = maps.Clone(s.Meta)
	}
	return s
}

// CloneStrategies copies a record set for publication.
func CloneStrategies(in []Strategy) []Strategy {
	out := make([]Strategy, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

// StrategyInput carries the fields accepted by add.
type StrategyInput struct {
	Symbol          string         `json:"symbol" validate:"required"`
	ContractAddress string         `json:"contract" validate:"required"`
	ChainID         string         `json:"chainId" validate:"required"`
	Frequency       Level          `json:"frequency" validate:"omitempty,oneof=low medium high"`
	RiskLevel       Level          `json:"risk" validate:"omitempty,oneof=low medium high"`
	Active          *bool          `json:"active"`
	Meta            map[string]any `json:"meta"`
}

// StrategyPatch is a shallow merge; nil fields are left untouched.
type StrategyPatch struct {
	Symbol          *string        `json:"symbol" validate:"omitnil,min=1"`
	ContractAddress *string        `json:"contract" validate:"omitnil,min=1"`
	ChainID         *string        `json:"chainId" validate:"omitnil,min=1"`
	Frequency       *Level         `json:"frequency" validate:"omitnil,oneof=low medium high"`
	RiskLevel       *Level         `json:"risk" validate:"omitnil,oneof=low medium high"`
	Active          *bool          `json:"active"`
	Meta            map[string]any `json:"meta"`
}

// Apply merges p into s. ID and CreatedAt are never touched.
func (p StrategyPatch) Apply(s Strategy) Strategy {
	if p.Symbol != nil {
		s.Symbol = *p.Symbol
	}
	if p.ContractAddress != nil {
		s.ContractAddress = *p.ContractAddress
	}
	if p.ChainID != nil {
		s.ChainID = *p.ChainID
	}
	if p.Frequency != nil {
		s.Frequency = *p.Frequency
	}
	if p.RiskLevel != nil {
		s.RiskLevel = *p.RiskLevel
	}
	if p.Active != nil {
		s.Active = *p.Active
	}
	if p.Meta != nil {
		s.Meta = maps.Clone(p.Meta)
	}
	return s
}
