package main

import (
	"testing"

	"miladyos/cmd"
)

func TestVersionDefault(t *testing.T) {
	if version != "dev" {
		t.Errorf("Expected default version to be 'dev', got %s", version)
	}
}

func TestSetVersion(t *testing.T) {
	defer cmd.SetVersion(version)

	cmd.SetVersion("1.2.3")
	if got := cmd.GetVersion(); got != "1.2.3" {
		t.Errorf("Expected version 1.2.3, got %s", got)
	}
}
