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

// Package outbox persists domain events in the invoking transaction and
// relays them to a stream once committed.
package outbox

import (
	"encoding/json"
	"errors"
	"time"
)

// Message 一条 outbox 记录，对应 messages 表
type Message struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"createdAt"`
	ProcessedAt   *time.Time      `json:"processedAt,omitempty"`
}

// NewMessage builds a message with payload encoded as JSON.
func NewMessage(typ, aggregateType, aggregateID string, payload any) (Message, error) {
	if typ == "" || aggregateType == "" {
		return Message{}, errors.New("outbox: type 与 aggregate type 不能为空")
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Type:          typ,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Payload:       b,
	}, nil
}
