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

package errors

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userAlreadyExistsError struct {
	Email string `json:"email"`
	Cause error  `json:"cause"`
}

func (e *userAlreadyExistsError) Error() string { return "user exists: " + e.Email }
func (e *userAlreadyExistsError) Tag() string   { return "UserAlreadyExistsError" }

type appointment struct {
	At      time.Time `json:"at"`
	Room    string    `json:"room"`
	Cause   string    `json:"cause"`
	Private string    `json:"-"`
}

type slotConflictError struct {
	Requested time.Time     `json:"requested"`
	Existing  []appointment `json:"existing"`
	Owner     uuid.UUID     `json:"owner"`
	Meta      map[string]any
	Nested    error            `json:"nested,omitempty"`
	Hook      func()           `json:"hook"`
	Reason    error            `json:"reason"`
	Optional  *time.Time       `json:"optional"`
	Note      string           `json:"note,omitempty"`
	Counts    map[string]int64 `json:"counts"`
}

func (e *slotConflictError) Error() string { return "slot conflict" }
func (e *slotConflictError) Tag() string   { return "SlotConflictError" }

func TestSerialize_StripsCauseAndAddsTag(t *testing.T) {
	err := &userAlreadyExistsError{Email: "a@b.com", Cause: errors.New("duplicate key value violates unique constraint")}
	got := Serialize(err)
	assert.Equal(t, map[string]any{"_tag": "UserAlreadyExistsError", "email": "a@b.com"}, got)
}

func TestSerialize_NestedValues(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	owner := uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")
	err := &slotConflictError{
		Requested: at,
		Existing:  []appointment{{At: at.Add(time.Hour), Room: "A", Cause: "overbooked", Private: "secret"}},
		Owner:     owner,
		Meta: map[string]any{
			"cause": "hidden",
			"inner": map[string]any{"cause": "hidden too", "kept": 1},
		},
		Nested: &userAlreadyExistsError{Email: "x@y.z", Cause: errors.New("inner cause")},
		Hook:   func() {},
		Reason: errors.New("raw driver text"),
		Counts: map[string]int64{"a": 2},
	}

	got := Serialize(err)

	assert.Equal(t, "SlotConflictError", got["_tag"])
	assert.Equal(t, "2026-03-14T09:26:53.589793Z", got["requested"])
	assert.Equal(t, owner.String(), got["owner"])
	assert.Equal(t, []any{map[string]any{"at": "2026-03-14T10:26:53.589793Z", "room": "A"}}, got["existing"])
	assert.Equal(t, map[string]any{"inner": map[string]any{"kept": 1}}, got["Meta"])
	assert.Equal(t, map[string]any{"_tag": "UserAlreadyExistsError", "email": "x@y.z"}, got["nested"])
	assert.Equal(t, map[string]any{"a": int64(2)}, got["counts"])
	assert.Nil(t, got["optional"])
	assert.Contains(t, got, "optional")
	assert.NotContains(t, got, "hook")
	assert.NotContains(t, got, "reason")
	assert.NotContains(t, got, "note")

	raw, jerr := json.Marshal(got)
	require.NoError(t, jerr)
	assert.NotContains(t, string(raw), "cause")
	assert.NotContains(t, string(raw), "secret")
	assert.NotContains(t, string(raw), "raw driver text")
}

func TestSerialize_InstantRoundTrip(t *testing.T) {
	at := time.Date(2026, 10, 15, 12, 0, 0, 123456789, time.UTC)
	got := Serialize(&slotConflictError{Requested: at})
	s, ok := got["requested"].(string)
	require.True(t, ok)
	parsed, perr := time.Parse(time.RFC3339Nano, s)
	require.NoError(t, perr)
	assert.True(t, parsed.Equal(at))
}

func TestSerialize_Idempotent(t *testing.T) {
	err := &slotConflictError{Meta: map[string]any{"n": 3, "s": "x", "l": []any{"a", 1.5}}}
	first := Serialize(err)
	again := Serialize(&slotConflictError{Meta: first["Meta"].(map[string]any)})
	assert.Equal(t, first["Meta"], again["Meta"])
}

func TestSerialize_NonStructTag(t *testing.T) {
	assert.Equal(t, map[string]any{"_tag": "PlainValidationError"}, Serialize(tagOnly("PlainValidationError")))
}

func TestEnvelope(t *testing.T) {
	c, body := Envelope(&DatabaseError{Cause: errors.New("password authentication failed")})
	assert.True(t, c.Internal)
	assert.Equal(t, map[string]any{"_tag": "InternalError"}, body)

	c, body = Envelope(errors.New("untagged"))
	assert.Equal(t, 500, c.Status)
	assert.Equal(t, map[string]any{"_tag": "InternalError"}, body)

	c, body = Envelope(Wrap(&userAlreadyExistsError{Email: "a@b.com"}, "register"))
	assert.Equal(t, 409, c.Status)
	assert.Equal(t, map[string]any{"_tag": "UserAlreadyExistsError", "email": "a@b.com"}, body)
}

type ringValidationError struct {
	Name string               `json:"name"`
	Next *ringValidationError `json:"next"`
}

func (e *ringValidationError) Error() string { return "ring: " + e.Name }
func (e *ringValidationError) Tag() string   { return "RingValidationError" }

func TestSerialize_SelfReferenceIsBounded(t *testing.T) {
	e := &ringValidationError{Name: "a"}
	e.Next = e

	out := Serialize(e)
	assert.Equal(t, "RingValidationError", out["_tag"])
	assert.Equal(t, "a", out["name"])

	levels := 0
	for cur := out; ; levels++ {
		next, ok := cur["next"].(map[string]any)
		if !ok {
			break
		}
		cur = next
	}
	assert.LessOrEqual(t, levels, maxDepth)

	_, err := json.Marshal(out)
	require.NoError(t, err)
}
