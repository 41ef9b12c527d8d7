package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"watchshop/backend/internal/config"
)

func TestParseArgsDefaultsToSingleYear(t *testing.T) {
	opts, err := parseArgs(config.Config{TopProductsLimit: 5}, []string{"-year", "2024"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.toYear != 2024 || opts.limit != 5 || opts.format != "table" {
		t.Fatalf("unexpected options %+v", opts)
	}

	periods, err := opts.periods()
	if err != nil {
		t.Fatalf("periods: %v", err)
	}
	if len(periods) != 1 || periods[0].Year != 2024 || !periods[0].WholeYear() {
		t.Fatalf("unexpected periods %+v", periods)
	}
}

func TestParseArgsRejectsBadInput(t *testing.T) {
	for _, args := range [][]string{
		{},
		{"-year", "2024", "-to-year", "2023"},
		{"-year", "2024", "-format", "xml"},
		{"-year", "1900", "-to-year", "2024"},
	} {
		if _, err := parseArgs(config.Config{}, args, &bytes.Buffer{}); err == nil {
			t.Fatalf("expected %v to be rejected", args)
		}
	}
}

func TestPeriodsRejectInvalidMonth(t *testing.T) {
	opts, err := parseArgs(config.Config{}, []string{"-year", "2024", "-month", "13"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := opts.periods(); err == nil {
		t.Fatal("expected month 13 to be rejected")
	}
}

func TestRunWritesCSVPerYear(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), config.Config{TopProductsLimit: 3}, []string{"-year", "2024", "-to-year", "2025", "-format", "csv"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	out := stdout.String()
	for _, want := range []string{"summary,period,2024", "summary,period,2025", "top_products,"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRunWritesMonthTable(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), config.Config{}, []string{"-year", "2024", "-month", "2"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "Period 02/2024") {
		t.Fatalf("expected table heading, got:\n%s", stdout.String())
	}
}
