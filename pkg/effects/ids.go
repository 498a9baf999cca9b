// Copyright 2026 fanjia1024
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

package effects

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator mints identifiers.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator returns random (v4) UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// HarnessViolation is the panic value raised when a test double is used
// beyond what the test supplied. It is not a domain failure: the engine
// re-panics it after rolling back.
type HarnessViolation struct {
	Msg string
}

func (h *HarnessViolation) Error() string { return "test harness violation: " + h.Msg }

// SequenceIDs hands out a fixed list of ids in order.
type SequenceIDs struct {
	mu   sync.Mutex
	ids  []string
	next int
}

// NewSequenceIDs returns a generator that yields ids in order and panics with
// *HarnessViolation once they run out.
func NewSequenceIDs(ids ...string) *SequenceIDs {
	return &SequenceIDs{ids: append([]string(nil), ids...)}
}

func (s *SequenceIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.ids) {
		panic(&HarnessViolation{Msg: fmt.Sprintf("IDGenerator exhausted: requested more than %d IDs", len(s.ids))})
	}
	id := s.ids[s.next]
	s.next++
	return id
}

// Remaining reports how many ids are left.
func (s *SequenceIDs) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids) - s.next
}
