package main

import (
	"testing"

	"herbmanager/backend/internal/config"
)

const testHash = "$2a$10$CwTycUXWue0Thq9StjUM0uJ8.T6oSwX8P7kFz8R0pM8cLJ0Qm3m2e"

func TestValidateSecurityConfigAllowsDisabledAuth(t *testing.T) {
	if err := validateSecurityConfig(config.Config{}); err != nil {
		t.Fatalf("expected open mode to pass, got %v", err)
	}
}

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	cases := []config.Config{
		{AuthSecret: "short", AdminPasswordHash: testHash},
		{AuthSecret: "0123456789abcdef0123456789abcdef"},
		{AuthSecret: "0123456789abcdef0123456789abcdef", AdminPasswordHash: "plain-password"},
	}
	for _, cfg := range cases {
		if err := validateSecurityConfig(cfg); err == nil {
			t.Fatalf("expected config %+v to be rejected", cfg)
		}
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", AdminPasswordHash: testHash})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}
