package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// ResourceVector is a wood/clay/iron/crop amount bundle. Embedded into
// villages (balances), movements (payload/loot) and queue entries (cost).
type ResourceVector struct {
	Wood int64 `json:"wood" gorm:"default:0"`
	Clay int64 `json:"clay" gorm:"default:0"`
	Iron int64 `json:"iron" gorm:"default:0"`
	Crop int64 `json:"crop" gorm:"default:0"`
}

func (v ResourceVector) Total() int64 {
	return v.Wood + v.Clay + v.Iron + v.Crop
}

func (v ResourceVector) IsZero() bool {
	return v.Wood == 0 && v.Clay == 0 && v.Iron == 0 && v.Crop == 0
}

func (v ResourceVector) Add(o ResourceVector) ResourceVector {
	return ResourceVector{
		Wood: v.Wood + o.Wood,
		Clay: v.Clay + o.Clay,
		Iron: v.Iron + o.Iron,
		Crop: v.Crop + o.Crop,
	}
}

func (v ResourceVector) Sub(o ResourceVector) ResourceVector {
	return ResourceVector{
		Wood: v.Wood - o.Wood,
		Clay: v.Clay - o.Clay,
		Iron: v.Iron - o.Iron,
		Crop: v.Crop - o.Crop,
	}
}

// Scale multiplies every component, flooring to int64.
func (v ResourceVector) Scale(f float64) ResourceVector {
	return ResourceVector{
		Wood: int64(float64(v.Wood) * f),
		Clay: int64(float64(v.Clay) * f),
		Iron: int64(float64(v.Iron) * f),
		Crop: int64(float64(v.Crop) * f),
	}
}

// Covers reports whether every component of v is >= the matching component of o.
func (v ResourceVector) Covers(o ResourceVector) bool {
	return v.Wood >= o.Wood && v.Clay >= o.Clay && v.Iron >= o.Iron && v.Crop >= o.Crop
}

// ClampTo caps each component at the matching component of cap (storage capacity).
// Overflow is discarded, never an error.
func (v ResourceVector) ClampTo(cap ResourceVector) ResourceVector {
	out := v
	if out.Wood > cap.Wood {
		out.Wood = cap.Wood
	}
	if out.Clay > cap.Clay {
		out.Clay = cap.Clay
	}
	if out.Iron > cap.Iron {
		out.Iron = cap.Iron
	}
	if out.Crop > cap.Crop {
		out.Crop = cap.Crop
	}
	return out
}

// TroopComposition maps unit-type id to a troop count. Stored as a JSON text
// column so movements and battle snapshots stay a single row.
type TroopComposition map[string]int64

func (t TroopComposition) Value() (driver.Value, error) {
	if len(t) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *TroopComposition) Scan(value interface{}) error {
	if value == nil {
		*t = TroopComposition{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("unsupported type for TroopComposition: %T", value)
	}
}

func (t TroopComposition) Total() int64 {
	var sum int64
	for _, c := range t {
		if c > 0 {
			sum += c
		}
	}
	return sum
}

// IsEmpty is true when no unit type has a positive count. An all-zero
// composition is a valid (empty) army.
func (t TroopComposition) IsEmpty() bool {
	return t.Total() == 0
}

func (t TroopComposition) Clone() TroopComposition {
	out := make(TroopComposition, len(t))
	for id, c := range t {
		out[id] = c
	}
	return out
}

// Sanitized drops non-positive counts. Calculation paths treat negative
// counts as zero rather than erroring.
func (t TroopComposition) Sanitized() TroopComposition {
	out := make(TroopComposition, len(t))
	for id, c := range t {
		if c > 0 {
			out[id] = c
		}
	}
	return out
}

// BuildingLevels maps building key to its current level, stored as JSON text.
type BuildingLevels map[string]int

func (b BuildingLevels) Value() (driver.Value, error) {
	if len(b) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (b *BuildingLevels) Scan(value interface{}) error {
	if value == nil {
		*b = BuildingLevels{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, b)
	case string:
		return json.Unmarshal([]byte(v), b)
	default:
		return fmt.Errorf("unsupported type for BuildingLevels: %T", value)
	}
}

func (b BuildingLevels) Level(key string) int {
	return b[key]
}
