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

// Command logforwarder-agent runs a stand-alone forwarder: it buffers
// producer-supplied lines locally and drains them to one configured sink on
// a timer. It plays the role the original TLS/Kinesis logger plugins played
// inside a larger host agent, but here the buffer and drain loop run as
// their own process.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.uber.org/zap"

	"logforwarder/internal/adminserver"
	"logforwarder/internal/bufkey"
	"logforwarder/internal/envelope"
	"logforwarder/internal/forwarder"
	"logforwarder/internal/hostinfo"
	"logforwarder/internal/kvstore"
	"logforwarder/internal/sinks"
	"logforwarder/internal/telemetry"
)

func main() {
	// Persistent Buffer backend selection.
	backend := flag.String("buffer_backend", "bbolt", `persistent buffer backend: "memory", "bbolt", or "redis"`)
	boltPath := flag.String("buffer_bbolt_path", "logforwarder.db", "database file for the bbolt backend")
	redisAddr := flag.String("buffer_redis_addr", "", "address of a shared Redis instance, for the redis backend")

	// Sink selection, named after the FLAGs the source TLS/Kinesis collectors read.
	sink := flag.String("logger_plugin", "https", `delivery sink: "https", "kinesis", "kafka", or "local"`)
	tlsEndpoint := flag.String("logger_tls_endpoint", "", "HTTPS collector endpoint, for the https sink")
	tlsCompress := flag.Bool("logger_tls_compress", false, "gzip-compress batches before POSTing, for the https sink")
	nodeKey := flag.String("node_key", "", "enrollment node key sent with every https batch")
	kinesisStream := flag.String("aws_kinesis_stream", "", "destination stream name, for the kinesis sink")
	kafkaBrokers := flag.String("kafka_brokers", "", "comma-separated broker addresses, for the kafka sink")
	kafkaTopic := flag.String("kafka_topic", "", "destination topic, for the kafka sink")
	localPath := flag.String("local_path", "", "file path for the local sink; empty means stderr")

	// Drain cycle tuning, named after the original logger_tls_* FLAGs.
	period := flag.Duration("logger_tls_period", 4*time.Second, "interval between drain cycles")
	maxBatch := flag.Int("logger_tls_max_lines", 1024, "max buffered keys drained per cycle")
	maxLine := flag.Int("logger_tls_max", 1<<20, "max size in bytes of a single buffered line before it is dropped")

	httpAddr := flag.String("http_addr", ":8090", "address for the /healthz, /backlog and /metrics admin endpoints")

	flag.Parse()

	zcfg := zap.NewProductionConfig()
	logger, err := zcfg.Build()
	if err != nil {
		log.Fatalf("could not build logger: %v", err)
	}
	sugar := logger.Named("logforwarder-agent").Sugar()
	defer logger.Sync()

	host, err := hostinfo.NewLocal()
	if err != nil {
		log.Fatalf("could not determine host identity: %v", err)
	}

	store, err := kvstore.BuildStore(*backend, kvstore.Config{BoltPath: *boltPath, RedisAddr: *redisAddr})
	if err != nil {
		log.Fatalf("could not open persistent buffer: %v", err)
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	sendTo := buildSinkOrFallback(sugar, *sink, sinkFlags{
		tlsEndpoint:   *tlsEndpoint,
		tlsCompress:   *tlsCompress,
		nodeKey:       *nodeKey,
		kinesisStream: *kinesisStream,
		kafkaBrokers:  *kafkaBrokers,
		kafkaTopic:    *kafkaTopic,
		localPath:     *localPath,
		maxLine:       *maxLine,
		hostID:        host.InstanceName(),
	})
	if closer, ok := sendTo.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	alloc := bufkey.New(host.InstanceName())
	cfg := forwarder.Config{
		InstanceName: host.InstanceName(),
		Period:       *period,
		MaxBatch:     *maxBatch,
	}
	// logger_tls_max only bounds buffered-line size for the https sink
	// (spec.md §4.4.a, §4.5 step 2); other sinks never size-filter.
	if *sink == "https" {
		cfg.MaxLineBytes = *maxLine
	}

	runner := forwarder.NewRunner(store, sendTo, alloc, cfg, sugar)
	facade := forwarder.NewFacade(store, alloc, host, sugar)

	metrics := telemetry.New()
	runner.OnDrain(metrics.Observe)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := runner.Recover(ctx); err != nil {
		sugar.Warnw("recovery scan failed, starting with an unseeded allocator", "error", err)
	}
	cancel()

	runner.Start()
	sugar.Infow("forwarder started", "instance", host.InstanceName(), "sink", *sink, "backend", *backend, "period", *period)

	// Bootstrap diagnostics, matching the original plugin's init() call to
	// logStatus(initialStatusLines) once the sink and Runner are live.
	if err := facade.LogStatusBatch(context.Background(), []envelope.StatusRecord{
		{Severity: 0, Filename: "main.go", Line: 0, Message: "forwarder started"},
	}); err != nil {
		sugar.Warnw("failed to persist startup status line", "error", err)
	}

	admin := adminserver.NewServer(store, runner, metrics.Handler())
	mux := http.NewServeMux()
	admin.RegisterRoutes(mux)
	httpServer := &http.Server{
		Addr:         *httpAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sugar.Infow("admin server listening", "addr", *httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("admin server failed on %s: %v", *httpAddr, err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	sugar.Infow("shutting down")

	runner.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("admin server shutdown failed", "error", err)
	}

	sugar.Infow("stopped")
}

type sinkFlags struct {
	tlsEndpoint   string
	tlsCompress   bool
	nodeKey       string
	kinesisStream string
	kafkaBrokers  string
	kafkaTopic    string
	localPath     string
	maxLine       int
	hostID        string
}

// settable is implemented by sinks whose construction can succeed but whose
// backend isn't actually reachable until a setup check runs (Kinesis's
// ListStreams probe). Sinks that need no such check simply don't implement it.
type settable interface {
	SetUp(ctx context.Context) error
}

// buildSinkOrFallback builds the configured sink and runs its setup check if
// it has one. Either failing degrades the process to the local stderr sink
// and logs the fallback exactly once, matching spec.md §7: "When the sink
// misconfigures, the process degrades to local stderr and logs a warning
// once at startup."
func buildSinkOrFallback(log *zap.SugaredLogger, kind string, f sinkFlags) sinks.Sink {
	s, err := buildSink(kind, f)
	if err == nil {
		if chk, ok := s.(settable); ok {
			err = chk.SetUp(context.Background())
		}
	}
	if err == nil {
		return s
	}
	log.Warnw("configured sink could not be initialized, falling back to local stderr logging", "sink", kind, "error", err)
	return sinks.NewLocal(os.Stderr)
}

// buildSink constructs the configured delivery sink, the forwarder's analogue
// of the source collector choosing between its TLS/HTTPS and Kinesis logger
// plugins at enrollment time.
func buildSink(kind string, f sinkFlags) (sinks.Sink, error) {
	switch kind {
	case "https":
		if f.tlsEndpoint == "" {
			return nil, fmt.Errorf("logger_tls_endpoint is required for the https sink")
		}
		s := sinks.NewHTTPS(f.tlsEndpoint, f.nodeKey, f.maxLine)
		s.Compress = f.tlsCompress
		return s, nil

	case "kinesis":
		if f.kinesisStream == "" {
			return nil, fmt.Errorf("aws_kinesis_stream is required for the kinesis sink")
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		return sinks.NewKinesis(kinesis.NewFromConfig(awsCfg), sts.NewFromConfig(awsCfg), f.kinesisStream, f.hostID), nil

	case "kafka":
		if f.kafkaTopic == "" || f.kafkaBrokers == "" {
			return nil, fmt.Errorf("kafka_brokers and kafka_topic are required for the kafka sink")
		}
		return sinks.NewKafka(strings.Split(f.kafkaBrokers, ","), f.kafkaTopic), nil

	case "local":
		if f.localPath == "" {
			return sinks.NewLocal(os.Stderr), nil
		}
		out, err := os.OpenFile(f.localPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening local sink file: %w", err)
		}
		return sinks.NewLocal(out), nil

	default:
		return nil, fmt.Errorf("unknown logger_plugin %q", kind)
	}
}
