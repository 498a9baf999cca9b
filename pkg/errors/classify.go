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
	"errors"
	"net/http"
	"strings"
)

// Kind is the closed set of failure classes a tag can fall into.
type Kind int

const (
	KindUnclassified Kind = iota
	KindNotFound
	KindConflict
	KindValidation
	KindForbidden
	KindProvider
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindForbidden:
		return "forbidden"
	case KindProvider:
		return "provider"
	case KindInternal:
		return "internal"
	default:
		return "unclassified"
	}
}

// Kinded lets an error declare its kind instead of relying on the naming
// convention of its tag.
type Kinded interface {
	Kind() Kind
}

// Classification is the transport-facing verdict for a failure.
type Classification struct {
	Status   int
	Internal bool
	Kind     Kind
	// Tag is the originating tag, or "" for untagged failures. Always safe to
	// log; never shown to callers when Internal is set.
	Tag string
}

// KindOfTag applies the tag naming convention. Rules are evaluated in order
// and the first match wins.
func KindOfTag(tag string) Kind {
	switch {
	case strings.HasSuffix(tag, "NotFoundError"):
		return KindNotFound
	case containsAny(tag, "Already", "Exists", "Conflict"):
		return KindConflict
	case containsAny(tag, "Validation", "Policy", "Mismatch"):
		return KindValidation
	case containsAny(tag, "NotOwned", "NotAllowed", "Forbidden"):
		return KindForbidden
	case strings.Contains(tag, "Provider"):
		return KindProvider
	case tag == TagDatabase || tag == TagTransaction:
		return KindInternal
	default:
		return KindUnclassified
	}
}

// Classify maps a failure to its status code and visibility. It is total:
// nil and untagged values classify as internal 500.
func Classify(err error) Classification {
	var tagged Tagged
	if err == nil || !errors.As(err, &tagged) {
		return Classification{Status: http.StatusInternalServerError, Internal: true, Kind: KindInternal}
	}
	tag := tagged.Tag()

	if marker, ok := tagged.(InternalMarker); ok && marker.Internal() {
		return Classification{Status: http.StatusInternalServerError, Internal: true, Kind: KindInternal, Tag: tag}
	}

	kind := KindOfTag(tag)
	if k, ok := tagged.(Kinded); ok {
		kind = k.Kind()
	}

	c := Classification{Kind: kind, Tag: tag}
	switch kind {
	case KindNotFound:
		c.Status = http.StatusNotFound
	case KindConflict:
		c.Status = http.StatusConflict
	case KindValidation:
		c.Status = http.StatusBadRequest
	case KindForbidden:
		c.Status = http.StatusForbidden
	case KindProvider:
		c.Status = http.StatusBadGateway
	case KindInternal:
		c.Status = http.StatusInternalServerError
		c.Internal = true
	case KindUnclassified:
		// Unknown tags are treated as caller errors.
		c.Status = http.StatusBadRequest
	}
	return c
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
