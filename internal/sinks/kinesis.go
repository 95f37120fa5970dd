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
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

// kinesisPutRecordsMaxRecords is the AWS-documented cap on entries in a
// single PutRecords call.
const kinesisPutRecordsMaxRecords = 500

// KinesisAPI is the subset of the Kinesis client the sink needs, so tests
// can substitute a fake without standing up real AWS credentials.
type KinesisAPI interface {
	PutRecords(ctx context.Context, params *kinesis.PutRecordsInput, optFns ...func(*kinesis.Options)) (*kinesis.PutRecordsOutput, error)
	ListStreams(ctx context.Context, params *kinesis.ListStreamsInput, optFns ...func(*kinesis.Options)) (*kinesis.ListStreamsOutput, error)
}

// IdentityAPI is the STS subset used to enrich a FatalConfigError with the
// caller identity, so an operator sees which IAM principal was rejected
// instead of a bare AccessDenied.
type IdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Kinesis ships batches as Kinesis records, one record per buffered line.
type Kinesis struct {
	Client   KinesisAPI
	Identity IdentityAPI
	Stream   string
	// HostID is used as every record's PartitionKey, per spec.md §4.4.b and
	// §6: "PartitionKey = host identifier". A stable partition key keeps
	// one host's records roughly ordered within a shard instead of
	// scattering them randomly.
	HostID string
}

// NewKinesis wraps a configured kinesis.Client for the given stream. hostID
// is used as the partition key for every record this sink sends.
func NewKinesis(client *kinesis.Client, identity *sts.Client, stream, hostID string) *Kinesis {
	return &Kinesis{Client: client, Identity: identity, Stream: stream, HostID: hostID}
}

// SetUp validates that Stream exists before the Runner starts draining into
// it, matching spec.md §4.4.b: "At setUp, the adapter lists streams and
// fails initialization if the configured stream is absent from the
// result." The failure embeds the calling IAM identity when Identity is
// set, for diagnostic value on a misconfigured role.
func (k *Kinesis) SetUp(ctx context.Context) error {
	if k.Stream == "" {
		return &FatalConfigError{Op: "kinesis.setup", Err: errors.New("no stream configured"), Hint: "set aws_kinesis_stream"}
	}
	out, err := k.Client.ListStreams(ctx, &kinesis.ListStreamsInput{})
	if err != nil {
		return k.classify(ctx, "kinesis.liststreams", err)
	}
	for _, name := range out.StreamNames {
		if name == k.Stream {
			return nil
		}
	}
	hint := fmt.Sprintf("stream %q not found among %d visible streams", k.Stream, len(out.StreamNames))
	if k.Identity != nil {
		if ident, idErr := k.Identity.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}); idErr == nil && ident.Arn != nil {
			hint = fmt.Sprintf("%s (calling identity: %s)", hint, *ident.Arn)
		}
	}
	return &FatalConfigError{Op: "kinesis.setup", Err: fmt.Errorf("stream %s not found", k.Stream), Hint: hint}
}

// Send submits batch as Kinesis records, chunking at the service's 500
// record limit. The whole Send fails if any chunk fails; chunks already
// accepted by Kinesis are not rolled back (Kinesis has no such operation),
// so a partial failure here can duplicate records on the next retry. That
// duplication is acceptable under the forwarder's at-least-once contract.
func (k *Kinesis) Send(ctx context.Context, _ Kind, batch []string) error {
	if len(batch) == 0 {
		return nil
	}
	if k.Stream == "" {
		return &FatalConfigError{Op: "kinesis.send", Err: errors.New("no stream configured"), Hint: "set aws_kinesis_stream"}
	}

	for start := 0; start < len(batch); start += kinesisPutRecordsMaxRecords {
		end := start + kinesisPutRecordsMaxRecords
		if end > len(batch) {
			end = len(batch)
		}
		if err := k.sendChunk(ctx, batch[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (k *Kinesis) sendChunk(ctx context.Context, lines []string) error {
	partitionKey := k.HostID
	if partitionKey == "" {
		partitionKey = "unknown-host"
	}
	entries := make([]types.PutRecordsRequestEntry, len(lines))
	for i, line := range lines {
		entries[i] = types.PutRecordsRequestEntry{
			Data:         []byte(line),
			PartitionKey: aws.String(partitionKey),
		}
	}

	out, err := k.Client.PutRecords(ctx, &kinesis.PutRecordsInput{
		StreamName: aws.String(k.Stream),
		Records:    entries,
	})
	if err != nil {
		return k.classify(ctx, "kinesis.putrecords", err)
	}
	if out.FailedRecordCount != nil && *out.FailedRecordCount > 0 {
		return &TransientError{Op: "kinesis.putrecords", Err: fmt.Errorf("%d of %d records failed", *out.FailedRecordCount, len(entries))}
	}
	return nil
}

// classify distinguishes a fatal configuration error (bad stream, bad
// credentials) from a transient one (throttling, network blip), enriching
// the former with the calling identity so an operator can see which role
// was denied, mirroring the original logger's IAM diagnostics on setup
// failure.
func (k *Kinesis) classify(ctx context.Context, op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ResourceNotFoundException", "AccessDeniedException", "UnrecognizedClientException", "InvalidSignatureException":
			hint := "check aws_kinesis_stream and the instance's IAM role"
			if k.Identity != nil {
				if ident, idErr := k.Identity.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}); idErr == nil && ident.Arn != nil {
					hint = fmt.Sprintf("%s (calling identity: %s)", hint, *ident.Arn)
				}
			}
			return &FatalConfigError{Op: op, Err: err, Hint: hint}
		}
	}
	return &TransientError{Op: op, Err: err}
}

var _ Sink = (*Kinesis)(nil)
