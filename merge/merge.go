/*
 * Copyright 2017-2022 Provide Technologies Inc.
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

package merge

import (
	"fmt"

	"github.com/provideplatform/bungee/view"
)

// Merge folds the given views into a new integrated view, applies the merge policy and
// computes the proof; signatures[i] is the creator signature of views[i]
func Merge(views []*view.View, signatures []string, kind PolicyKind, args ...string) (*IntegratedView, error) {
	if len(views) != len(signatures) {
		return nil, fmt.Errorf("failed to merge views; %d views given with %d signatures", len(views), len(signatures))
	}

	iv, err := NewIntegratedView()
	if err != nil {
		return nil, err
	}

	for i, v := range views {
		if v == nil || v.Snapshot == nil {
			return nil, fmt.Errorf("failed to merge views; view at index %d has no snapshot", i)
		}

		iv.AddParticipant(v.Participant())
		iv.AddViewMetadata(v.Metadata(signatures[i]))
		for _, st := range v.Snapshot.StateBins {
			iv.AddState(st.ID, v.Key, st)
		}
	}

	if err := ApplyMergePolicy(iv, kind, args...); err != nil {
		return nil, err
	}

	return iv, nil
}
