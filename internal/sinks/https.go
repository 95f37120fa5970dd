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
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"logforwarder/internal/envelope"
)

// HTTPS posts batches as a single JSON request, matching the original
// TLS/HTTPS collector's {"node_key","log_type","data":[...]} body shape.
// Compression is optional and controlled by Compress, mirroring
// logger_tls_compress.
type HTTPS struct {
	Endpoint string
	NodeKey  string
	Client   *http.Client
	Compress bool
	MaxLine  int
}

// NewHTTPS returns an HTTPS sink posting to endpoint with a default 10s
// client timeout; callers needing a different deadline should set Client
// directly after construction.
func NewHTTPS(endpoint, nodeKey string, maxLine int) *HTTPS {
	return &HTTPS{
		Endpoint: endpoint,
		NodeKey:  nodeKey,
		Client:   &http.Client{Timeout: 10 * time.Second},
		MaxLine:  maxLine,
	}
}

// Send posts batch as one request. Lines over MaxLine are left out of the
// request body rather than failing the whole batch, the same way the
// original collector drops oversize lines; they are not counted or logged
// here, and neither are lines envelope.Batch drops as malformed.
func (h *HTTPS) Send(ctx context.Context, kind Kind, batch []string) error {
	if len(batch) == 0 {
		return nil
	}

	kept := batch
	if h.MaxLine > 0 {
		kept = make([]string, 0, len(batch))
		for _, line := range batch {
			if len(line) > h.MaxLine {
				continue
			}
			kept = append(kept, line)
		}
	}

	body, _ := envelope.Batch(h.NodeKey, string(kind), kept)

	var reqBody io.Reader = bytes.NewReader(body)
	var encoding string
	if h.Compress {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(body); err != nil {
			return &TransientError{Op: "https.compress", Err: err}
		}
		if err := gz.Close(); err != nil {
			return &TransientError{Op: "https.compress", Err: err}
		}
		reqBody = &buf
		encoding = "gzip"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, reqBody)
	if err != nil {
		return &FatalConfigError{Op: "https.newrequest", Err: err, Hint: "check logger_tls_endpoint"}
	}
	req.Header.Set("Content-Type", "application/json")
	if encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return &TransientError{Op: "https.do", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound:
		return &FatalConfigError{
			Op:   "https.send",
			Err:  fmt.Errorf("endpoint returned %d", resp.StatusCode),
			Hint: "check logger_tls_endpoint and its node enrollment",
		}
	default:
		return &TransientError{Op: "https.send", Err: fmt.Errorf("endpoint returned %d", resp.StatusCode)}
	}
}

var _ Sink = (*HTTPS)(nil)
