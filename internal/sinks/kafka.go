// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

package sinks

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Kafka is a supplemental sink for fleets that already centralize event
// streams in Kafka rather than a TLS/HTTPS collector or Kinesis. One topic
// carries both result and status batches; Kind is recorded as a message
// header so a consumer can still split them.
type Kafka struct {
	Writer *kafkago.Writer
	Topic  string
}

// NewKafka returns a Kafka sink writing to topic on brokers. The writer
// waits for every in-sync replica to acknowledge a write (RequiredAcks:
// all); it is not an idempotent producer, so a retried batch can be written
// to the topic more than once.
func NewKafka(brokers []string, topic string) *Kafka {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
		WriteTimeout: 10 * time.Second,
	}
	return &Kafka{Writer: w, Topic: topic}
}

// Send publishes each line in batch as one unkeyed Kafka message, tagging
// kind on a header so a consumer can still split result from status traffic.
func (k *Kafka) Send(ctx context.Context, kind Kind, batch []string) error {
	if len(batch) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(batch))
	for i, line := range batch {
		msgs[i] = kafkago.Message{
			Value: []byte(line),
			Headers: []kafkago.Header{
				{Key: "log_type", Value: []byte(kind)},
			},
		}
	}
	if err := k.Writer.WriteMessages(ctx, msgs...); err != nil {
		return &TransientError{Op: "kafka.write", Err: fmt.Errorf("topic %s: %w", k.Topic, err)}
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (k *Kafka) Close() error {
	return k.Writer.Close()
}

var _ Sink = (*Kafka)(nil)
