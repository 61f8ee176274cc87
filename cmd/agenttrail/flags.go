package main

import "time"

// Flag structs to decouple cobra from logic for testing.

// GlobalFlags holds minimal global/persistent flags for CLI commands
type GlobalFlags struct {
	ConfigPath string
}

type ServeFlags struct {
	ConfigPath string
}

type StatusFlags struct {
	// Remote daemon connection
	APIUrl     string
	APIToken   string
	APITimeout time.Duration
}

type EventsFlags struct {
	SessionID    string
	InvocationID string
	EventType    string
	Limit        int
	// Remote daemon connection
	APIUrl     string
	APIToken   string
	APITimeout time.Duration
}

type RecordFlags struct {
	Agent        string
	SessionID    string
	InvocationID string
	UserID       string
	Author       string
	Role         string
	Text         string
	ErrorMessage string
	// Remote daemon connection
	APIUrl     string
	APIToken   string
	APITimeout time.Duration
}

type TemplateCreateFlags struct {
	Kind   string
	Name   string
	Output string
	Force  bool
}
