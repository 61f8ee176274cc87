package main

import (
	"strings"
	"testing"
)

func TestBuildRootHasSubcommands(t *testing.T) {
	root := buildRoot()

	want := map[string]bool{
		"serve":    false,
		"status":   false,
		"events":   false,
		"record":   false,
		"template": false,
		"version":  false,
	}
	for _, c := range root.Commands() {
		name := c.Name()
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestServeRequiresConfig(t *testing.T) {
	err := runServeCommand(&ServeFlags{}, nil)
	if err == nil {
		t.Fatal("expected error without config")
	}
	if !strings.Contains(err.Error(), "config file required") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestServeMissingConfigFile(t *testing.T) {
	err := runServeCommand(&ServeFlags{ConfigPath: "/definitely/not/here.toml"}, nil)
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "error loading config") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestServeConfigFromArgs(t *testing.T) {
	// Positional argument takes precedence over the flag.
	err := runServeCommand(&ServeFlags{ConfigPath: ""}, []string{"/also/not/here.toml"})
	if err == nil || !strings.Contains(err.Error(), "error loading config") {
		t.Fatalf("unexpected error: %v", err)
	}
}
