/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package correlator

import (
	"sort"

	"github.com/carverauto/wrtwatch/pkg/models"
)

// candidate is one association observation competing to be a device's
// primary access point.
type candidate struct {
	rec    *models.AssociationRecord
	router string
}

// resolvePrimary picks the serving access point for a MAC seen by more
// than one router in the same cycle (roaming overlap). Tie-break order,
// first applicable wins:
//  1. a single candidate is primary;
//  2. strongest signal;
//  3. within epsilon (or with no signal data), the previous serving
//     router wins, so noisy readings do not flap the assignment;
//  4. most recent observation;
//  5. lexicographic router name, for determinism.
func resolvePrimary(candidates []candidate, previousRouter string, epsilonDBM int) candidate {
	if len(candidates) == 1 {
		return candidates[0]
	}

	tieSet := strongestWithinEpsilon(candidates, epsilonDBM)
	if len(tieSet) == 1 {
		return tieSet[0]
	}

	if previousRouter != "" {
		for _, cand := range tieSet {
			if cand.router == previousRouter {
				return cand
			}
		}
	}

	sort.SliceStable(tieSet, func(i, j int) bool {
		if !tieSet[i].rec.ObservedAt.Equal(tieSet[j].rec.ObservedAt) {
			return tieSet[i].rec.ObservedAt.After(tieSet[j].rec.ObservedAt)
		}

		return tieSet[i].router < tieSet[j].router
	})

	return tieSet[0]
}

// strongestWithinEpsilon returns the candidates whose signal is within
// epsilon of the strongest reading. Candidates without signal data only
// compete when no candidate has any.
func strongestWithinEpsilon(candidates []candidate, epsilonDBM int) []candidate {
	withSignal := make([]candidate, 0, len(candidates))

	for _, cand := range candidates {
		if cand.rec.SignalDBM != nil {
			withSignal = append(withSignal, cand)
		}
	}

	if len(withSignal) == 0 {
		return candidates
	}

	best := *withSignal[0].rec.SignalDBM

	for _, cand := range withSignal[1:] {
		if *cand.rec.SignalDBM > best {
			best = *cand.rec.SignalDBM
		}
	}

	tieSet := make([]candidate, 0, len(withSignal))

	for _, cand := range withSignal {
		if *cand.rec.SignalDBM >= best-epsilonDBM {
			tieSet = append(tieSet, cand)
		}
	}

	return tieSet
}
