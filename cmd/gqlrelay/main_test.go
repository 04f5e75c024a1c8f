package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"gqlrelay/internal/config"
	"gqlrelay/internal/core"
	"gqlrelay/internal/core/engine"
)

func TestParseVariables(t *testing.T) {
	vars, err := parseVariables(`{"id":"1","limit":5}`, []string{"limit=10", "name=alice", "flags=[1,2]"})
	if err != nil {
		t.Fatalf("parseVariables failed: %v", err)
	}

	if vars["id"] != "1" {
		t.Errorf("Expected id 1, got %v", vars["id"])
	}
	if vars["limit"] != float64(10) {
		t.Errorf("Expected --var to override limit, got %v (%T)", vars["limit"], vars["limit"])
	}
	if vars["name"] != "alice" {
		t.Errorf("Expected plain string, got %v", vars["name"])
	}
	if flags, ok := vars["flags"].([]interface{}); !ok || len(flags) != 2 {
		t.Errorf("Expected a JSON array, got %v", vars["flags"])
	}
}

func TestParseVariablesErrors(t *testing.T) {
	if _, err := parseVariables(`{not json`, nil); err == nil {
		t.Error("Expected an error for invalid --variables")
	}
	if _, err := parseVariables("", []string{"novalue"}); err == nil {
		t.Error("Expected an error for a pair without '='")
	}
}

func TestReadDocument(t *testing.T) {
	doc, err := readDocument([]string{"{ a }"}, strings.NewReader("ignored"))
	if err != nil || doc != "{ a }" {
		t.Errorf("Expected argument document, got %q (%v)", doc, err)
	}

	doc, err = readDocument(nil, strings.NewReader("{ b }"))
	if err != nil || doc != "{ b }" {
		t.Errorf("Expected stdin document, got %q (%v)", doc, err)
	}

	if _, err := readDocument(nil, strings.NewReader("  \n")); err == nil {
		t.Error("Expected an error without a document")
	}
}

func TestBuildPipeline(t *testing.T) {
	var gotPath, gotAuth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"data":{"ok":true}}`))
	}))
	defer upstream.Close()

	t.Setenv("GQLRELAY_TEST_TOKEN", "tok")
	cfg := &config.Config{
		Endpoint: config.EndpointConfig{BaseURL: upstream.URL},
		Middlewares: []engine.Step{
			{Type: engine.StepTypeValidate},
			{Type: engine.StepTypeAuth, Config: map[string]interface{}{"token_env": "GQLRELAY_TEST_TOKEN"}},
		},
	}

	pipeline, err := buildPipeline(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("buildPipeline failed: %v", err)
	}

	req, _ := core.NewRequest("{ ok }", nil, "")
	resp, err := pipeline.Dispatch(context.Background(), req)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if !resp.HasData() {
		t.Error("Expected data")
	}
	if gotPath != core.DefaultURL {
		t.Errorf("Expected default path %s, got %s", core.DefaultURL, gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Expected bearer token, got %q", gotAuth)
	}
}

func TestBuildPipelineInvalidConfig(t *testing.T) {
	cfg := &config.Config{Middlewares: []engine.Step{{Type: "unknown"}}}
	if _, err := buildPipeline(cfg, zap.NewNop()); err == nil {
		t.Error("Expected an error for an unknown middleware")
	}
}

func TestQueryOutputStaysJSONWithTracing(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"viewer":{"id":"1"}}}`))
	}))
	defer upstream.Close()

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := "endpoint:\n  url: " + upstream.URL + "/graphql\n" +
		"tracing:\n  enabled: true\n  service_name: gqlrelay-test\n" +
		"middlewares:\n  - type: tracing\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"--config", cfgPath, "query", "query Viewer { viewer { id } }"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if !gjson.Valid(stdout.String()) {
		t.Fatalf("Expected stdout to be a single JSON document, got %s", stdout.String())
	}
	if gjson.Get(stdout.String(), "data.viewer.id").String() != "1" {
		t.Errorf("Unexpected response %s", stdout.String())
	}
	if !strings.Contains(stderr.String(), "graphql Viewer") {
		t.Errorf("Expected spans on stderr, got %s", stderr.String())
	}
}

func TestProxyWriteTimeout(t *testing.T) {
	retry := []engine.Step{{Type: engine.StepTypeRetry}}

	testCases := []struct {
		name string
		cfg  config.Config
		want time.Duration
	}{
		{
			name: "explicit",
			cfg:  config.Config{Server: config.ServerConfig{WriteTimeout: time.Minute}, Middlewares: retry},
			want: time.Minute,
		},
		{
			name: "covers every retry attempt",
			cfg:  config.Config{Endpoint: config.EndpointConfig{Timeout: 60 * time.Second}, Middlewares: retry},
			want: 180*time.Second + 450*time.Millisecond + writeTimeoutSlack,
		},
		{
			name: "unbounded endpoint",
			cfg:  config.Config{Middlewares: retry},
			want: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			got, err := proxyWriteTimeout(&cfg)
			if err != nil {
				t.Fatalf("proxyWriteTimeout failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("proxyWriteTimeout() = %v, want %v", got, tc.want)
			}
		})
	}
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("stdout closed") }

func TestReportFailure(t *testing.T) {
	resp := &core.Response{Status: 200, Data: []byte(`{"viewer":null}`)}
	reqErr := core.NewApplicationError(&core.Request{}, resp)

	t.Run("prints the upstream reply", func(t *testing.T) {
		var out bytes.Buffer
		reportFailure(&out, reqErr, zap.NewNop())
		if !gjson.Valid(out.String()) || !gjson.Get(out.String(), "data").Exists() {
			t.Errorf("Expected the reply on stdout, got %q", out.String())
		}
	})

	t.Run("logs a failed print", func(t *testing.T) {
		obs, logs := observer.New(zapcore.DebugLevel)
		reportFailure(brokenWriter{}, reqErr, zap.New(obs))

		entries := logs.FilterMessage("failed to print response").All()
		if len(entries) != 1 {
			t.Fatalf("Expected one print failure entry, got %d", len(entries))
		}
		if got := entries[0].ContextMap()["error"]; got != "stdout closed" {
			t.Errorf("Expected the write error, got %v", got)
		}
		if logs.FilterMessage("query failed").Len() != 1 {
			t.Error("Expected the request error logged")
		}
	})

	t.Run("nothing to print without a reply", func(t *testing.T) {
		var out bytes.Buffer
		reportFailure(&out, errors.New("boom"), zap.NewNop())
		if out.Len() != 0 {
			t.Errorf("Expected no output, got %q", out.String())
		}
	})
}
