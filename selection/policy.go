// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package selection

import (
	"fmt"

	"github.com/poiesic/vibecheck/core"
)

const (
	DefaultThreshold   = 0.65
	DefaultMinPassages = 10_000
	DefaultMaxPassages = 100_000
)

// Policy governs how many and which passages are selected per concept.
type Policy struct {
	// Threshold separates "above" rows (similarity > Threshold) from "below" rows.
	Threshold float32

	// MinPassages is the number of rows the selector tries to reach by
	// back-filling with the below-threshold rows closest to Threshold.
	MinPassages int

	// MaxPassages caps the selection size.
	MaxPassages int
}

// DefaultPolicy returns the production selection policy.
func DefaultPolicy() Policy {
	return Policy{
		Threshold:   DefaultThreshold,
		MinPassages: DefaultMinPassages,
		MaxPassages: DefaultMaxPassages,
	}
}

// Validate checks 0 < MinPassages <= MaxPassages.
func (p Policy) Validate() error {
	if p.MinPassages <= 0 {
		return fmt.Errorf("%w: selection policy: MinPassages must be positive, got %d",
			core.ErrValidation, p.MinPassages)
	}
	if p.MaxPassages < p.MinPassages {
		return fmt.Errorf("%w: selection policy: MaxPassages (%d) must be >= MinPassages (%d)",
			core.ErrValidation, p.MaxPassages, p.MinPassages)
	}
	return nil
}
