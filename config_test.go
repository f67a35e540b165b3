package goVerify

import (
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}

	reg := cfg.Purposes[PurposeRegistration]
	if reg.VerifyWindow != 10*time.Minute || reg.ConsumeWindow != 10*time.Minute {
		t.Fatalf("unexpected registration windows: %+v", reg)
	}
	rec := cfg.Purposes[PurposeRecovery]
	if rec.VerifyWindow != 10*time.Minute || rec.ConsumeWindow != 15*time.Minute {
		t.Fatalf("unexpected recovery windows: %+v", rec)
	}
	if cfg.Code.Digits != 6 {
		t.Fatalf("expected 6-digit codes by default, got %d", cfg.Code.Digits)
	}
}

func TestConfigValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty purposes", func(c *Config) { c.Purposes = nil }},
		{"unknown purpose", func(c *Config) { c.Purposes[Purpose(9)] = c.Purposes[PurposeRegistration] }},
		{"zero verify window", func(c *Config) {
			p := c.Purposes[PurposeRegistration]
			p.VerifyWindow = 0
			c.Purposes[PurposeRegistration] = p
		}},
		{"consume window shorter than verify window", func(c *Config) {
			p := c.Purposes[PurposeRecovery]
			p.ConsumeWindow = p.VerifyWindow - time.Minute
			c.Purposes[PurposeRecovery] = p
		}},
		{"zero resend cooldown", func(c *Config) {
			p := c.Purposes[PurposeRegistration]
			p.ResendCooldown = 0
			c.Purposes[PurposeRegistration] = p
		}},
		{"cooldown swallows verify window", func(c *Config) {
			p := c.Purposes[PurposeRegistration]
			p.ResendCooldown = p.VerifyWindow
			c.Purposes[PurposeRegistration] = p
		}},
		{"zero max attempts", func(c *Config) {
			p := c.Purposes[PurposeRegistration]
			p.MaxAttempts = 0
			c.Purposes[PurposeRegistration] = p
		}},
		{"excessive max attempts", func(c *Config) {
			p := c.Purposes[PurposeRegistration]
			p.MaxAttempts = 6
			c.Purposes[PurposeRegistration] = p
		}},
		{"missing template", func(c *Config) {
			p := c.Purposes[PurposeRegistration]
			p.Template = ""
			c.Purposes[PurposeRegistration] = p
		}},
		{"too few digits", func(c *Config) { c.Code.Digits = 4 }},
		{"too many digits", func(c *Config) { c.Code.Digits = 11 }},
		{"weak code hash memory", func(c *Config) { c.CodeHash.Memory = 1024 }},
		{"weak code hash salt", func(c *Config) { c.CodeHash.SaltLength = 8 }},
		{"weak password memory", func(c *Config) { c.Password.Memory = 1024 }},
		{"weak password key length", func(c *Config) { c.Password.KeyLength = 8 }},
		{"zero mail timeout", func(c *Config) { c.Mail.SendTimeout = 0 }},
		{"sweep without interval", func(c *Config) {
			c.Sweep.Enabled = true
			c.Sweep.Interval = 0
		}},
		{"throttle without budget", func(c *Config) { c.Throttle.MaxIssues = 0 }},
		{"throttle without cooldown", func(c *Config) { c.Throttle.Cooldown = 0 }},
		{"audit without buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation to fail")
			}
		})
	}
}

func TestCloneConfigIsolatesPolicyTable(t *testing.T) {
	original := DefaultConfig()
	cloned := cloneConfig(original)

	p := cloned.Purposes[PurposeRegistration]
	p.MaxAttempts = 1
	cloned.Purposes[PurposeRegistration] = p

	if original.Purposes[PurposeRegistration].MaxAttempts != 3 {
		t.Fatal("mutating the clone leaked into the original policy table")
	}
}
