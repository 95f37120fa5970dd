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
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	smithy "github.com/aws/smithy-go"
)

type fakeKinesisAPI struct {
	putRecordsCalls int
	lastInput       *kinesis.PutRecordsInput
	err             error
	failedCount     int32
	streamNames     []string
}

func (f *fakeKinesisAPI) PutRecords(_ context.Context, params *kinesis.PutRecordsInput, _ ...func(*kinesis.Options)) (*kinesis.PutRecordsOutput, error) {
	f.putRecordsCalls++
	f.lastInput = params
	if f.err != nil {
		return nil, f.err
	}
	return &kinesis.PutRecordsOutput{FailedRecordCount: aws.Int32(f.failedCount)}, nil
}

func (f *fakeKinesisAPI) ListStreams(_ context.Context, _ *kinesis.ListStreamsInput, _ ...func(*kinesis.Options)) (*kinesis.ListStreamsOutput, error) {
	return &kinesis.ListStreamsOutput{StreamNames: f.streamNames}, nil
}

type fakeIdentityAPI struct {
	arn string
}

func (f *fakeIdentityAPI) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return &sts.GetCallerIdentityOutput{Arn: aws.String(f.arn)}, nil
}

type fakeAPIError struct{ code string }

func (e *fakeAPIError) Error() string       { return e.code }
func (e *fakeAPIError) ErrorCode() string   { return e.code }
func (e *fakeAPIError) ErrorMessage() string { return e.code }
func (e *fakeAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultUnknown }

func TestKinesis_SendSuccess(t *testing.T) {
	api := &fakeKinesisAPI{}
	k := &Kinesis{Client: api, Stream: "logs-stream", HostID: "host-1"}
	err := k.Send(context.Background(), KindResult, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if api.putRecordsCalls != 1 {
		t.Fatalf("putRecordsCalls = %d, want 1", api.putRecordsCalls)
	}
	if len(api.lastInput.Records) != 3 {
		t.Fatalf("records = %d, want 3", len(api.lastInput.Records))
	}
	for _, rec := range api.lastInput.Records {
		if rec.PartitionKey == nil || *rec.PartitionKey != "host-1" {
			t.Fatalf("PartitionKey = %v, want host-1", rec.PartitionKey)
		}
	}
}

func TestKinesis_SetUp_FailsWhenStreamAbsent(t *testing.T) {
	api := &fakeKinesisAPI{streamNames: []string{"other-stream"}}
	k := &Kinesis{Client: api, Identity: &fakeIdentityAPI{arn: "arn:aws:iam::123:role/agent"}, Stream: "logs-stream"}
	err := k.SetUp(context.Background())
	fc, ok := err.(*FatalConfigError)
	if !ok {
		t.Fatalf("expected FatalConfigError, got %v (%T)", err, err)
	}
	if !contains(fc.Hint, "arn:aws:iam::123:role/agent") {
		t.Fatalf("expected hint to include calling identity, got %q", fc.Hint)
	}
}

func TestKinesis_SetUp_SucceedsWhenStreamPresent(t *testing.T) {
	api := &fakeKinesisAPI{streamNames: []string{"logs-stream", "other-stream"}}
	k := &Kinesis{Client: api, Stream: "logs-stream"}
	if err := k.SetUp(context.Background()); err != nil {
		t.Fatalf("SetUp: %v", err)
	}
}

func TestKinesis_ChunksAtRecordLimit(t *testing.T) {
	api := &fakeKinesisAPI{}
	k := &Kinesis{Client: api, Stream: "logs-stream"}
	batch := make([]string, 750)
	for i := range batch {
		batch[i] = "x"
	}
	if err := k.Send(context.Background(), KindResult, batch); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if api.putRecordsCalls != 2 {
		t.Fatalf("putRecordsCalls = %d, want 2", api.putRecordsCalls)
	}
}

func TestKinesis_NoStreamIsFatal(t *testing.T) {
	k := &Kinesis{Client: &fakeKinesisAPI{}}
	err := k.Send(context.Background(), KindResult, []string{"a"})
	if _, ok := err.(*FatalConfigError); !ok {
		t.Fatalf("expected FatalConfigError, got %v (%T)", err, err)
	}
}

func TestKinesis_AccessDeniedIsFatalWithIdentityHint(t *testing.T) {
	api := &fakeKinesisAPI{err: &fakeAPIError{code: "AccessDeniedException"}}
	k := &Kinesis{Client: api, Identity: &fakeIdentityAPI{arn: "arn:aws:iam::123:role/agent"}, Stream: "logs-stream"}
	err := k.Send(context.Background(), KindResult, []string{"a"})
	fc, ok := err.(*FatalConfigError)
	if !ok {
		t.Fatalf("expected FatalConfigError, got %v (%T)", err, err)
	}
	if !contains(fc.Hint, "arn:aws:iam::123:role/agent") {
		t.Fatalf("expected hint to include calling identity, got %q", fc.Hint)
	}
}

func TestKinesis_ThrottlingIsTransient(t *testing.T) {
	api := &fakeKinesisAPI{err: &fakeAPIError{code: "ProvisionedThroughputExceededException"}}
	k := &Kinesis{Client: api, Stream: "logs-stream"}
	err := k.Send(context.Background(), KindResult, []string{"a"})
	if _, ok := err.(*TransientError); !ok {
		t.Fatalf("expected TransientError, got %v (%T)", err, err)
	}
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && (func() bool {
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				return true
			}
		}
		return false
	})()
}
